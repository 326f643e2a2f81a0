package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Reader is a sequential cursor over an immutable byte buffer. All integers
// and floats are big-endian.
type Reader struct {
	buf  []byte
	off  int
	tags *TagTable
}

// NewReader returns a Reader over buf. A nil table selects DefaultTags.
func NewReader(buf []byte, tags *TagTable) *Reader {
	if tags == nil {
		tags = DefaultTags()
	}
	return &Reader{buf: buf, tags: tags}
}

// Offset returns the cursor position from the start of the buffer.
func (r *Reader) Offset() int { return r.off }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

// Seek moves the cursor to an absolute offset.
func (r *Reader) Seek(off int) error {
	if off < 0 || off > len(r.buf) {
		return fmt.Errorf("%w: seek to %d of %d", ErrTruncated, off, len(r.buf))
	}
	r.off = off
	return nil
}

func (r *Reader) next(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCount, n)
	}
	if r.Remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, r.off, r.Remaining())
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	b, err := r.next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadInt8() (int8, error) {
	v, err := r.ReadUint8()
	return int8(v), err
}

// ReadBool treats any non-zero byte as true.
func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadUint8()
	return v != 0, err
}

func (r *Reader) ReadUint16() (uint16, error) {
	b, err := r.next(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.next(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

func (r *Reader) ReadUint64() (uint64, error) {
	b, err := r.next(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	return math.Float32frombits(v), err
}

func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadString reads a uint16 length-prefixed UTF-8 string.
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadUint16()
	if err != nil {
		return "", err
	}
	b, err := r.next(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadString32 reads a uint32 length-prefixed UTF-8 string.
func (r *Reader) ReadString32() (string, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return "", err
	}
	if n > math.MaxInt32 {
		return "", fmt.Errorf("%w: string length %d", ErrInvalidCount, n)
	}
	b, err := r.next(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadBytes returns a copy of the next n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	b, err := r.next(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// Read decodes one primitive value using the table entry for tag. Count-chained
// and void tags carry no length on the wire and are rejected here.
func (r *Reader) Read(tag string) (Value, error) {
	if class, _ := Classify(tag); class != ClassPrimitive {
		return Value{}, fmt.Errorf("%w: %q needs an explicit count", ErrInvalidCount, tag)
	}
	t, ok := r.tags.Lookup(tag)
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrUnknownTypeTag, tag)
	}
	return t.Decode(r)
}

// ReadArray decodes count elements of elem. The count is supplied by the
// caller; the wire carries no length of its own.
func (r *Reader) ReadArray(elem string, count int) ([]Value, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCount, count)
	}
	t, ok := r.tags.Lookup(elem)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTypeTag, elem)
	}
	// Built-in elements consume at least one byte, so a count larger than
	// the remaining buffer can only end in truncation.
	if t.builtin && count > r.Remaining() {
		return nil, fmt.Errorf("%w: %d elements of %s at offset %d, %d bytes left", ErrTruncated, count, elem, r.off, r.Remaining())
	}
	items := make([]Value, 0, count)
	for i := 0; i < count; i++ {
		v, err := t.Decode(r)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		items = append(items, v)
	}
	return items, nil
}
