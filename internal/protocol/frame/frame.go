// Package frame reads and writes length-prefixed game packets on a stream.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// HeaderLen is the int32 total length followed by the one-byte packet id.
const HeaderLen = 5

var (
	ErrShortHeader    = errors.New("frame: short packet header")
	ErrPacketTooSmall = errors.New("frame: declared length smaller than header")
	ErrPacketTooLarge = errors.New("frame: packet too large")
)

// Header is the fixed packet prefix. Length counts the whole packet,
// header included.
type Header struct {
	Length int32
	ID     byte
}

// Limits constrains packet read/write memory use.
type Limits struct {
	MaxPacketBytes int
}

func DefaultLimits() Limits {
	return Limits{MaxPacketBytes: 1 << 20}
}

// ReadPacket reads one complete packet, header included, into a fresh buffer.
func ReadPacket(r io.Reader, limits Limits) ([]byte, error) {
	var fixed [HeaderLen]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortHeader
		}
		return nil, err
	}

	h, err := DecodeHeader(fixed[:])
	if err != nil {
		return nil, err
	}
	if h.Length < HeaderLen {
		return nil, fmt.Errorf("%w: %d", ErrPacketTooSmall, h.Length)
	}
	if int64(h.Length) > int64(limits.MaxPacketBytes) {
		return nil, fmt.Errorf("%w: %d > %d", ErrPacketTooLarge, h.Length, limits.MaxPacketBytes)
	}

	buf := make([]byte, h.Length)
	copy(buf, fixed[:])
	if _, err := io.ReadFull(r, buf[HeaderLen:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf, nil
}

// PatchLength writes len(buf) into the length placeholder of an encoded
// packet.
func PatchLength(buf []byte) error {
	if len(buf) < HeaderLen {
		return ErrShortHeader
	}
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(buf)))
	return nil
}

// Seal checks an encoded packet against limits and patches its length
// prefix in place.
func Seal(buf []byte, limits Limits) error {
	if len(buf) > limits.MaxPacketBytes {
		return fmt.Errorf("%w: %d > %d", ErrPacketTooLarge, len(buf), limits.MaxPacketBytes)
	}
	return PatchLength(buf)
}

// WritePacket seals buf and writes it.
func WritePacket(w io.Writer, buf []byte, limits Limits) error {
	if err := Seal(buf, limits); err != nil {
		return err
	}
	return Write(w, buf, limits)
}

// Write sends an already framed buffer as is. The length prefix is left
// untouched.
func Write(w io.Writer, buf []byte, limits Limits) error {
	if len(buf) < HeaderLen {
		return fmt.Errorf("%w: %d bytes", ErrShortHeader, len(buf))
	}
	if len(buf) > limits.MaxPacketBytes {
		return fmt.Errorf("%w: %d > %d", ErrPacketTooLarge, len(buf), limits.MaxPacketBytes)
	}
	_, err := w.Write(buf)
	return err
}

func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderLen)
	binary.BigEndian.PutUint32(buf[0:4], uint32(h.Length))
	buf[4] = h.ID
	return buf
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrShortHeader, len(b))
	}
	return Header{
		Length: int32(binary.BigEndian.Uint32(b[0:4])),
		ID:     b[4],
	}, nil
}
