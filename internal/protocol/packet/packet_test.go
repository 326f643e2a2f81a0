package packet

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/krelay/internal/protocol"
	"github.com/danmuck/krelay/internal/protocol/codecs"
	"github.com/danmuck/krelay/internal/protocol/schema"
	"github.com/danmuck/krelay/internal/protocol/wire"
	"github.com/danmuck/krelay/internal/testutil/testlog"
	"github.com/google/go-cmp/cmp"
)

// fakeRegistry serves hand-built definitions, including ones a schema
// registry would refuse.
type fakeRegistry struct {
	defs []protocol.Definition
}

func (f fakeRegistry) ByID(id byte) (protocol.Definition, bool) {
	for _, d := range f.defs {
		if d.ID == id {
			return d, true
		}
	}
	return protocol.Definition{}, false
}

func (f fakeRegistry) ByKind(kind protocol.Kind) (protocol.Definition, bool) {
	for _, d := range f.defs {
		if d.Kind == kind {
			return d, true
		}
	}
	return protocol.Definition{}, false
}

func (fakeRegistry) Tags() *wire.TagTable { return wire.DefaultTags() }

func loadRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := schema.LoadFile("../schema/testdata/packets.toml", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := codecs.Register(reg); err != nil {
		t.Fatalf("codecs: %v", err)
	}
	return reg
}

func frame(id byte, body ...byte) []byte {
	return append([]byte{0, 0, 0, 0, id}, body...)
}

func TestDecodeShoot2Example(t *testing.T) {
	testlog.Start(t)
	reg := loadRegistry(t)
	body := []byte{0, 0, 0x04, 0xd2, 7, 0, 0, 0, 99}
	p, err := Decode(reg, frame(36, body...), protocol.DirectionServer)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Kind() != protocol.KindShoot2 {
		t.Fatalf("unexpected kind: %s", p.Kind())
	}
	want := map[string]wire.Value{
		"time":     wire.Int32(1234),
		"bulletId": wire.Uint8(7),
		"ownerId":  wire.Int32(99),
	}
	for name, w := range want {
		got, err := p.Get(name)
		if err != nil || !got.Equal(w) {
			t.Fatalf("field %q: want %v, got %v (%v)", name, w, got, err)
		}
	}
	out, err := p.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if diff := cmp.Diff(frame(36, body...), out); diff != "" {
		t.Fatalf("re-encode mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTripEveryTestdataKind(t *testing.T) {
	testlog.Start(t)
	reg := loadRegistry(t)
	values := map[string]wire.Value{
		"int32:":   wire.Int32(-42),
		"byte:":    wire.Uint8(200),
		"string:":  wire.String("Oryx"),
		"bool:":    wire.Bool(true),
		"byte[]:3": wire.Bytes([]byte{1, 2, 3}),
	}
	for _, kind := range reg.Kinds() {
		p, err := New(reg, kind, protocol.DirectionClient)
		if err != nil {
			t.Fatalf("new %s: %v", kind, err)
		}
		specs := p.Layout().Specs()
		for i, spec := range specs {
			switch {
			case spec.Name == "size":
				_ = p.SetAt(i, wire.Int32(3))
			case spec.Tag == "void":
				_ = p.SetAt(i, wire.Bytes([]byte{9, 8, 7}))
			case spec.Tag == "byte[]":
				_ = p.SetAt(i, values["byte[]:3"])
			default:
				_ = p.SetAt(i, values[spec.Tag+":"])
			}
		}
		data, err := p.Encode()
		if err != nil {
			t.Fatalf("encode %s: %v", kind, err)
		}
		back, err := Decode(reg, data, protocol.DirectionClient)
		if err != nil {
			t.Fatalf("decode %s: %v", kind, err)
		}
		if back.Kind() != kind {
			t.Fatalf("kind changed: %s -> %s", kind, back.Kind())
		}
		for i := range specs {
			a, _ := p.At(i)
			b, _ := back.At(i)
			if !a.Equal(b) {
				t.Fatalf("%s field %d: %v != %v", kind, i, a, b)
			}
		}
	}
}

func TestCountChainedArrayRoundTrip(t *testing.T) {
	testlog.Start(t)
	reg := schema.New(nil)
	if err := reg.Register(20, protocol.KindInvResult,
		protocol.FieldSpec{Name: "count", Tag: "int32"},
		protocol.FieldSpec{Name: "items", Tag: "int32[]"},
		protocol.FieldSpec{Name: "tail", Tag: "byte"},
	); err != nil {
		t.Fatalf("register: %v", err)
	}
	p, _ := New(reg, protocol.KindInvResult, protocol.DirectionServer)
	_ = p.Set("count", wire.Int32(3))
	_ = p.Set("items", wire.Array(wire.Int32(10), wire.Int32(20), wire.Int32(30)))
	_ = p.Set("tail", wire.Uint8(5))
	data, err := p.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := Decode(reg, data, protocol.DirectionServer)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	items, _ := back.Get("items")
	if !items.Equal(wire.Array(wire.Int32(10), wire.Int32(20), wire.Int32(30))) {
		t.Fatalf("items: %v", items)
	}
	if tail, _ := back.Get("tail"); !tail.Equal(wire.Uint8(5)) {
		t.Fatalf("adjacent field corrupted: %v", tail)
	}

	_ = p.Set("count", wire.Int32(2))
	if _, err := p.Encode(); !errors.Is(err, protocol.ErrCountMismatch) {
		t.Fatalf("expected ErrCountMismatch, got %v", err)
	}
}

func TestDecodeRawBytesTakesPrecedingCount(t *testing.T) {
	testlog.Start(t)
	reg := loadRegistry(t)
	w := wire.NewWriter(32, nil)
	w.WriteInt32(0)
	w.WriteUint8(52)
	_ = w.WriteString("a.swf")
	w.WriteInt32(2)
	w.WriteBytes([]byte{0xca, 0xfe})
	p, err := Decode(reg, w.Bytes(), protocol.DirectionServer)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v, _ := p.Get("contents"); !bytes.Equal(v.Raw, []byte{0xca, 0xfe}) {
		t.Fatalf("contents: %v", v)
	}

	short := append([]byte(nil), w.Bytes()[:w.Len()-1]...)
	if _, err := Decode(reg, short, protocol.DirectionServer); !errors.Is(err, protocol.ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestDecodeUnknownIDKeepsRawBytes(t *testing.T) {
	testlog.Start(t)
	reg := loadRegistry(t)
	data := frame(250, 1, 2, 3)
	p, err := Decode(reg, data, protocol.DirectionClient)
	if err != nil {
		t.Fatalf("unknown id must not fail: %v", err)
	}
	if p.Kind() != protocol.KindUnknown || p.Layout().Len() != 0 {
		t.Fatalf("expected empty UNKNOWN packet, got %s with %d fields", p.Kind(), p.Layout().Len())
	}
	if !bytes.Equal(p.Raw(), data) {
		t.Fatalf("raw bytes not retained: %x", p.Raw())
	}
	if _, err := p.Encode(); !errors.Is(err, protocol.ErrUndefinedKind) {
		t.Fatalf("expected ErrUndefinedKind, got %v", err)
	}
}

func TestVoidCapturesWholeBody(t *testing.T) {
	testlog.Start(t)
	reg := schema.New(nil)
	if err := reg.Register(42, protocol.KindUpdate,
		protocol.FieldSpec{Name: "tick", Tag: "int32"},
		protocol.FieldSpec{Name: "data", Tag: "void"},
	); err != nil {
		t.Fatalf("register: %v", err)
	}
	data := frame(42, 0, 0, 0, 9, 0xaa, 0xbb)
	p, err := Decode(reg, data, protocol.DirectionServer)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	v, _ := p.Get("data")
	if diff := cmp.Diff(data[HeaderSize:], v.Raw); diff != "" {
		t.Fatalf("void capture mismatch (-want +got):\n%s", diff)
	}
	data[6] = 0xff
	if v.Raw[1] == 0xff {
		t.Fatalf("void capture must not alias the input buffer")
	}
}

func registerTickUpdate(t *testing.T) *schema.Registry {
	t.Helper()
	reg := schema.New(nil)
	if err := reg.Register(42, protocol.KindUpdate,
		protocol.FieldSpec{Name: "tick", Tag: "int32"},
		protocol.FieldSpec{Name: "data", Tag: "void"},
	); err != nil {
		t.Fatalf("register: %v", err)
	}
	return reg
}

func TestVoidAfterFieldsReencodesUnchanged(t *testing.T) {
	testlog.Start(t)
	reg := registerTickUpdate(t)
	data := []byte{0, 0, 0, 0x0b, 42, 0, 0, 0, 9, 0xaa, 0xbb}
	p, err := Decode(reg, data, protocol.DirectionServer)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	out, err := p.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := frame(42, 0, 0, 0, 9, 0xaa, 0xbb)
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("re-encode mismatch (-want +got):\n%s", diff)
	}

	if err := p.Set("tick", wire.Int32(10)); err != nil {
		t.Fatalf("set: %v", err)
	}
	out, err = p.Encode()
	if err != nil {
		t.Fatalf("encode edited: %v", err)
	}
	if diff := cmp.Diff(frame(42, 0, 0, 0, 10, 0xaa, 0xbb), out); diff != "" {
		t.Fatalf("edited tick mismatch (-want +got):\n%s", diff)
	}
}

func TestVoidEncodeFailures(t *testing.T) {
	testlog.Start(t)
	reg := registerTickUpdate(t)
	p, _ := New(reg, protocol.KindUpdate, protocol.DirectionServer)
	_ = p.Set("tick", wire.Int32(1))
	if _, err := p.Encode(); !errors.Is(err, protocol.ErrUnsetField) {
		t.Fatalf("expected ErrUnsetField for unset void, got %v", err)
	}
	_ = p.Set("data", wire.Int32(3))
	if _, err := p.Encode(); !errors.Is(err, protocol.ErrValueMismatch) {
		t.Fatalf("expected ErrValueMismatch for non-bytes void, got %v", err)
	}
	_ = p.Set("data", wire.Bytes([]byte{0, 0}))
	out, err := p.Encode()
	if err != nil {
		t.Fatalf("encode short void: %v", err)
	}
	if diff := cmp.Diff(frame(42, 0, 0, 0, 1), out); diff != "" {
		t.Fatalf("short void mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeRejectsOutOfRangePayloads(t *testing.T) {
	testlog.Start(t)
	reg := loadRegistry(t)
	p, _ := New(reg, protocol.KindShoot2, protocol.DirectionClient)
	_ = p.Set("time", wire.Value{Type: wire.TypeInt32, Int: 1 << 40})
	_ = p.Set("bulletId", wire.Uint8(7))
	_ = p.Set("ownerId", wire.Int32(99))
	if _, err := p.Encode(); !errors.Is(err, protocol.ErrValueRange) || !errors.Is(err, protocol.ErrValueMismatch) {
		t.Fatalf("expected ErrValueRange for wide int32, got %v", err)
	}
	_ = p.Set("time", wire.Int32(1234))
	_ = p.Set("bulletId", wire.Value{Type: wire.TypeUint8, Uint: 300})
	if _, err := p.Encode(); !errors.Is(err, protocol.ErrValueRange) {
		t.Fatalf("expected ErrValueRange for wide byte, got %v", err)
	}

	ack, _ := New(reg, protocol.KindShootAck, protocol.DirectionClient)
	_ = ack.Set("time", wire.Value{Type: wire.TypeInt32, Int: -1 << 33})
	if _, err := ack.Encode(); !errors.Is(err, protocol.ErrValueRange) {
		t.Fatalf("expected ErrValueRange through the codec path, got %v", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	testlog.Start(t)
	reg := fakeRegistry{defs: []protocol.Definition{
		{ID: 1, Kind: protocol.KindMove, Layout: protocol.MustLayout(protocol.FieldSpec{Name: "pos", Tag: "vector2"})},
		{ID: 2, Kind: protocol.KindFile, Layout: protocol.MustLayout(protocol.FieldSpec{Name: "contents", Tag: "bytes"})},
		{ID: 3, Kind: protocol.KindPic, Layout: protocol.MustLayout(
			protocol.FieldSpec{Name: "name", Tag: "string"},
			protocol.FieldSpec{Name: "data", Tag: "bytes"},
		)},
	}}
	if _, err := Decode(reg, []byte{0, 0, 0, 0}, protocol.DirectionClient); !errors.Is(err, protocol.ErrTruncated) {
		t.Fatalf("expected ErrTruncated for short header, got %v", err)
	}
	_, err := Decode(reg, frame(1, 0, 0), protocol.DirectionClient)
	if !errors.Is(err, protocol.ErrUnknownTypeTag) || !strings.Contains(err.Error(), `"pos"`) {
		t.Fatalf("expected ErrUnknownTypeTag naming the field, got %v", err)
	}
	if _, err := Decode(reg, frame(2, 1), protocol.DirectionClient); !errors.Is(err, protocol.ErrMissingCount) {
		t.Fatalf("expected ErrMissingCount, got %v", err)
	}
	if _, err := Decode(reg, frame(3, 0, 1, 'x', 1), protocol.DirectionClient); !errors.Is(err, wire.ErrInvalidCount) {
		t.Fatalf("expected ErrInvalidCount for string count source, got %v", err)
	}
}

func TestNewRejectsUndefinedKinds(t *testing.T) {
	testlog.Start(t)
	reg := loadRegistry(t)
	if p, err := New(reg, protocol.KindUnknown, protocol.DirectionClient); !errors.Is(err, protocol.ErrUndefinedKind) || p != nil {
		t.Fatalf("expected ErrUndefinedKind for UNKNOWN, got %v %v", p, err)
	}
	if p, err := New(reg, protocol.KindReskin, protocol.DirectionClient); !errors.Is(err, protocol.ErrUndefinedKind) || p != nil {
		t.Fatalf("expected ErrUndefinedKind for kind without layout, got %v %v", p, err)
	}
	p, err := New(reg, protocol.KindShoot2, protocol.DirectionClient)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for name, v := range p.Fields().All() {
		if !v.IsAbsent() {
			t.Fatalf("field %q should start unset", name)
		}
	}
}

func TestEncodeFailures(t *testing.T) {
	testlog.Start(t)
	reg := loadRegistry(t)
	p, _ := New(reg, protocol.KindShoot2, protocol.DirectionClient)
	_ = p.Set("time", wire.Int32(1))
	_ = p.Set("bulletId", wire.Uint8(2))
	if _, err := p.Encode(); !errors.Is(err, protocol.ErrUnsetField) {
		t.Fatalf("expected ErrUnsetField, got %v", err)
	}
	_ = p.Set("ownerId", wire.String("oops"))
	if _, err := p.Encode(); !errors.Is(err, protocol.ErrValueMismatch) {
		t.Fatalf("expected ErrValueMismatch, got %v", err)
	}

	file, _ := New(reg, protocol.KindFile, protocol.DirectionServer)
	_ = file.Set("filename", wire.String("x"))
	_ = file.Set("size", wire.Int32(1))
	_ = file.Set("contents", wire.Array(wire.Uint8(1)))
	if _, err := file.Encode(); !errors.Is(err, protocol.ErrValueMismatch) {
		t.Fatalf("expected ErrValueMismatch for array in bytes field, got %v", err)
	}
}

func TestIndexAndNameAccessAgree(t *testing.T) {
	testlog.Start(t)
	reg := loadRegistry(t)
	p, _ := New(reg, protocol.KindEnemyHit, protocol.DirectionClient)
	_ = p.SetAt(3, wire.Bool(true))
	_ = p.Set("targetId", wire.Int32(17))
	for i, name := range p.Layout().Names() {
		a, _ := p.At(i)
		b, _ := p.Get(name)
		if !a.Equal(b) {
			t.Fatalf("index %d and name %q disagree", i, name)
		}
	}
	if v, _ := p.Get("kill"); !v.Equal(wire.Bool(true)) {
		t.Fatalf("SetAt not visible by name: %v", v)
	}
}

func TestCodecPathIsUsed(t *testing.T) {
	testlog.Start(t)
	reg := loadRegistry(t)
	p, err := Decode(reg, frame(16, 0, 0, 0, 1, 0, 0, 0, 2), protocol.DirectionServer)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v, _ := p.Get("time"); !v.Equal(wire.Int32(2)) {
		t.Fatalf("time: %v", v)
	}
	if _, err := Decode(reg, frame(16, 0, 0, 0, 1), protocol.DirectionServer); !errors.Is(err, protocol.ErrTruncated) {
		t.Fatalf("expected ErrTruncated through codec, got %v", err)
	}
}

func TestString(t *testing.T) {
	testlog.Start(t)
	reg := loadRegistry(t)
	p, _ := New(reg, protocol.KindPing, protocol.DirectionServer)
	_ = p.Set("serial", wire.Int32(5))
	want := "Server Packet PING(8)\n{\n\tserial=5\n}"
	if got := p.String(); got != want {
		t.Fatalf("unexpected dump:\n%s", got)
	}
}
