package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Writer appends big-endian encoded values to a growing buffer.
type Writer struct {
	buf  []byte
	tags *TagTable
}

// NewWriter returns a Writer with the given initial capacity. A nil table
// selects DefaultTags.
func NewWriter(capacity int, tags *TagTable) *Writer {
	if tags == nil {
		tags = DefaultTags()
	}
	return &Writer{buf: make([]byte, 0, capacity), tags: tags}
}

// Bytes returns the encoded buffer. The slice aliases the writer's storage.
func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) Len() int { return len(w.buf) }

func (w *Writer) Reset() { w.buf = w.buf[:0] }

func (w *Writer) WriteUint8(v uint8) { w.buf = append(w.buf, v) }

func (w *Writer) WriteInt8(v int8) { w.buf = append(w.buf, uint8(v)) }

func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
		return
	}
	w.buf = append(w.buf, 0)
}

func (w *Writer) WriteUint16(v uint16) { w.buf = binary.BigEndian.AppendUint16(w.buf, v) }

func (w *Writer) WriteInt16(v int16) { w.WriteUint16(uint16(v)) }

func (w *Writer) WriteUint32(v uint32) { w.buf = binary.BigEndian.AppendUint32(w.buf, v) }

func (w *Writer) WriteInt32(v int32) { w.WriteUint32(uint32(v)) }

func (w *Writer) WriteUint64(v uint64) { w.buf = binary.BigEndian.AppendUint64(w.buf, v) }

func (w *Writer) WriteInt64(v int64) { w.WriteUint64(uint64(v)) }

func (w *Writer) WriteFloat32(v float32) { w.WriteUint32(math.Float32bits(v)) }

func (w *Writer) WriteFloat64(v float64) { w.WriteUint64(math.Float64bits(v)) }

// WriteString writes a uint16 length prefix followed by the UTF-8 bytes of s.
func (w *Writer) WriteString(s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("%w: %d bytes", ErrStringTooLong, len(s))
	}
	w.WriteUint16(uint16(len(s)))
	w.buf = append(w.buf, s...)
	return nil
}

// WriteString32 writes a uint32 length prefix followed by the UTF-8 bytes of s.
func (w *Writer) WriteString32(s string) error {
	if uint64(len(s)) > math.MaxUint32 {
		return fmt.Errorf("%w: %d bytes", ErrStringTooLong, len(s))
	}
	w.WriteUint32(uint32(len(s)))
	w.buf = append(w.buf, s...)
	return nil
}

// WriteBytes appends b verbatim, without a length prefix.
func (w *Writer) WriteBytes(b []byte) { w.buf = append(w.buf, b...) }

// Write encodes v as the layout tag declares. Void and raw byte tags take a
// bytes value written verbatim; array tags take an array value written
// element by element.
func (w *Writer) Write(tag string, v Value) error {
	class, elem := Classify(tag)
	switch class {
	case ClassVoid, ClassRawBytes:
		if err := expect(v, TypeBytes, tag); err != nil {
			return err
		}
		w.WriteBytes(v.Raw)
		return nil
	case ClassArray:
		if err := expect(v, TypeArray, tag); err != nil {
			return err
		}
		return w.WriteArray(elem, v.Items)
	}
	t, ok := w.tags.Lookup(tag)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTypeTag, tag)
	}
	return t.Encode(w, v)
}

// WriteArray encodes items element by element with no length prefix.
func (w *Writer) WriteArray(elem string, items []Value) error {
	t, ok := w.tags.Lookup(elem)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTypeTag, elem)
	}
	for i, item := range items {
		if err := t.Encode(w, item); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}
