package frame

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestReadWritePacketRoundTrip(t *testing.T) {
	in := []byte{0, 0, 0, 0, 36, 0, 0, 0x04, 0xd2, 7, 0, 0, 0, 99}
	var buf bytes.Buffer
	if err := WritePacket(&buf, in, DefaultLimits()); err != nil {
		t.Fatalf("write packet: %v", err)
	}
	out, err := ReadPacket(&buf, DefaultLimits())
	if err != nil {
		t.Fatalf("read packet: %v", err)
	}
	h, _ := DecodeHeader(out)
	if int(h.Length) != len(in) || h.ID != 36 {
		t.Fatalf("header mismatch: %+v", h)
	}
	if !bytes.Equal(out, in) {
		t.Fatalf("packet mismatch: %x", out)
	}
}

func TestReadPacketSequential(t *testing.T) {
	var buf bytes.Buffer
	for id := byte(1); id <= 3; id++ {
		if err := WritePacket(&buf, []byte{0, 0, 0, 0, id, id}, DefaultLimits()); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	for id := byte(1); id <= 3; id++ {
		p, err := ReadPacket(&buf, DefaultLimits())
		if err != nil || p[4] != id || len(p) != 6 {
			t.Fatalf("packet %d: %x %v", id, p, err)
		}
	}
	if _, err := ReadPacket(&buf, DefaultLimits()); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF at clean end of stream, got %v", err)
	}
}

func TestReadPacketMalformedHeaderIsDeterministic(t *testing.T) {
	_, err := ReadPacket(bytes.NewReader([]byte{1, 2, 3}), DefaultLimits())
	if !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
}

func TestReadPacketLengthTooSmall(t *testing.T) {
	buf := EncodeHeader(Header{Length: 4, ID: 1})
	_, err := ReadPacket(bytes.NewReader(buf), DefaultLimits())
	if !errors.Is(err, ErrPacketTooSmall) {
		t.Fatalf("expected ErrPacketTooSmall, got %v", err)
	}
}

func TestReadPacketTooLarge(t *testing.T) {
	buf := EncodeHeader(Header{Length: 64, ID: 1})
	_, err := ReadPacket(bytes.NewReader(buf), Limits{MaxPacketBytes: 32})
	if !errors.Is(err, ErrPacketTooLarge) {
		t.Fatalf("expected ErrPacketTooLarge, got %v", err)
	}
}

func TestReadPacketTruncatedBody(t *testing.T) {
	buf := append(EncodeHeader(Header{Length: 10, ID: 1}), 1, 2)
	_, err := ReadPacket(bytes.NewReader(buf), DefaultLimits())
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected io.ErrUnexpectedEOF, got %v", err)
	}
}

func TestWritePacketRejectsOversize(t *testing.T) {
	var buf bytes.Buffer
	err := WritePacket(&buf, make([]byte, 16), Limits{MaxPacketBytes: 8})
	if !errors.Is(err, ErrPacketTooLarge) {
		t.Fatalf("expected ErrPacketTooLarge, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("nothing should be written on error")
	}
	if err := PatchLength([]byte{0, 0}); !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
}

func TestWriteLeavesLengthPrefixAlone(t *testing.T) {
	in := []byte{0, 0, 0, 0x20, 42, 0, 0, 0, 9}
	var buf bytes.Buffer
	if err := Write(&buf, in, DefaultLimits()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), in) {
		t.Fatalf("write altered the buffer: %x", buf.Bytes())
	}
	if err := Write(&buf, []byte{0, 0}, DefaultLimits()); !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
	if err := Write(&buf, make([]byte, 16), Limits{MaxPacketBytes: 8}); !errors.Is(err, ErrPacketTooLarge) {
		t.Fatalf("expected ErrPacketTooLarge, got %v", err)
	}
}

func TestSealChecksLimitBeforePatching(t *testing.T) {
	buf := make([]byte, 16)
	if err := Seal(buf, Limits{MaxPacketBytes: 8}); !errors.Is(err, ErrPacketTooLarge) {
		t.Fatalf("expected ErrPacketTooLarge, got %v", err)
	}
	if h, _ := DecodeHeader(buf); h.Length != 0 {
		t.Fatalf("rejected buffer was patched: %+v", h)
	}
	if err := Seal(buf, DefaultLimits()); err != nil {
		t.Fatalf("seal: %v", err)
	}
	if h, _ := DecodeHeader(buf); h.Length != 16 {
		t.Fatalf("length not patched: %+v", h)
	}
}
