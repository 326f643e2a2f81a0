// Package packet decodes raw game packets into ordered field storage and
// encodes them back, driven by the layouts held in a protocol.Registry.
package packet

import (
	"fmt"
	"strings"

	"github.com/danmuck/krelay/internal/protocol"
	"github.com/danmuck/krelay/internal/protocol/wire"
)

// HeaderSize is the int32 length prefix plus the one-byte wire id.
const HeaderSize = 5

// Packet is one decoded or constructed game message. It is not safe for
// concurrent mutation.
type Packet struct {
	// Forward marks the packet for delivery to its destination. Hooks clear it
	// to drop the packet.
	Forward bool

	kind   protocol.Kind
	dir    protocol.Direction
	reg    protocol.Registry
	def    protocol.Definition
	fields *protocol.Fields
	raw    []byte
	rawID  byte
}

// Decode parses one complete packet buffer. An id with no definition yields
// a KindUnknown packet that keeps the raw bytes and reports no error.
func Decode(reg protocol.Registry, data []byte, dir protocol.Direction) (*Packet, error) {
	r := wire.NewReader(data, reg.Tags())
	if _, err := r.ReadInt32(); err != nil {
		return nil, fmt.Errorf("packet header: %w", err)
	}
	id, err := r.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("packet header: %w", err)
	}

	def, ok := reg.ByID(id)
	if !ok {
		return &Packet{
			Forward: true,
			kind:    protocol.KindUnknown,
			dir:     dir,
			reg:     reg,
			fields:  protocol.NewFields(protocol.Layout{}),
			raw:     append([]byte(nil), data...),
			rawID:   id,
		}, nil
	}

	p := &Packet{
		Forward: true,
		kind:    def.Kind,
		dir:     dir,
		reg:     reg,
		def:     def,
		fields:  protocol.NewFields(def.Layout),
		rawID:   id,
	}
	if def.Codec != nil {
		if err := def.Codec.DecodeBody(r, p.fields); err != nil {
			return nil, fmt.Errorf("decode %s: %w", def.Kind, err)
		}
		return p, nil
	}
	if err := p.decodeFields(r, data); err != nil {
		return nil, fmt.Errorf("decode %s: %w", def.Kind, err)
	}
	return p, nil
}

func (p *Packet) decodeFields(r *wire.Reader, data []byte) error {
	for i, spec := range p.def.Layout.Specs() {
		v, err := p.decodeField(r, data, i, spec)
		if err != nil {
			return fmt.Errorf("field %q: %w", spec.Name, err)
		}
		if err := p.fields.SetAt(i, v); err != nil {
			return err
		}
	}
	return nil
}

func (p *Packet) decodeField(r *wire.Reader, data []byte, i int, spec protocol.FieldSpec) (wire.Value, error) {
	class, elem := wire.Classify(spec.Tag)
	switch class {
	case wire.ClassVoid:
		return wire.Bytes(data[HeaderSize:]), nil
	case wire.ClassRawBytes:
		n, err := p.precedingCount(i)
		if err != nil {
			return wire.Value{}, err
		}
		b, err := r.ReadBytes(n)
		if err != nil {
			return wire.Value{}, err
		}
		return wire.Value{Type: wire.TypeBytes, Raw: b}, nil
	case wire.ClassArray:
		n, err := p.precedingCount(i)
		if err != nil {
			return wire.Value{}, err
		}
		items, err := r.ReadArray(elem, n)
		if err != nil {
			return wire.Value{}, err
		}
		return wire.Array(items...), nil
	default:
		return r.Read(spec.Tag)
	}
}

// precedingCount reads the element count a count-chained field at position i
// takes from the field before it.
func (p *Packet) precedingCount(i int) (int, error) {
	if i == 0 {
		return 0, protocol.ErrMissingCount
	}
	prev, err := p.fields.At(i - 1)
	if err != nil {
		return 0, err
	}
	return prev.Count()
}

// New returns an empty packet of kind with every field unset.
func New(reg protocol.Registry, kind protocol.Kind, dir protocol.Direction) (*Packet, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %s", protocol.ErrUndefinedKind, kind)
	}
	def, ok := reg.ByKind(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no definition", protocol.ErrUndefinedKind, kind)
	}
	return &Packet{
		Forward: true,
		kind:    kind,
		dir:     dir,
		reg:     reg,
		def:     def,
		fields:  protocol.NewFields(def.Layout),
		rawID:   def.ID,
	}, nil
}

func (p *Packet) Kind() protocol.Kind { return p.kind }

func (p *Packet) Direction() protocol.Direction { return p.dir }

func (p *Packet) Layout() protocol.Layout { return p.fields.Layout() }

// Fields exposes the packet's ordered field storage.
func (p *Packet) Fields() *protocol.Fields { return p.fields }

// Raw returns the original bytes of a KindUnknown packet and nil otherwise.
func (p *Packet) Raw() []byte { return p.raw }

func (p *Packet) Get(name string) (wire.Value, error) { return p.fields.Get(name) }

func (p *Packet) Set(name string, v wire.Value) error { return p.fields.Set(name, v) }

func (p *Packet) At(i int) (wire.Value, error) { return p.fields.At(i) }

func (p *Packet) SetAt(i int, v wire.Value) error { return p.fields.SetAt(i, v) }

// Encode serializes the packet with a zero length placeholder; the framing
// layer patches the real length before the bytes go out.
func (p *Packet) Encode() ([]byte, error) {
	def, ok := p.reg.ByKind(p.kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", protocol.ErrUndefinedKind, p.kind)
	}
	w := wire.NewWriter(HeaderSize+8*def.Layout.Len(), p.reg.Tags())
	w.WriteInt32(0)
	w.WriteUint8(def.ID)

	if def.Codec != nil {
		if err := def.Codec.EncodeBody(w, p.fields); err != nil {
			return nil, fmt.Errorf("encode %s: %w", p.kind, err)
		}
		return w.Bytes(), nil
	}
	var tail []byte
	haveTail := false
	for i, spec := range def.Layout.Specs() {
		if class, _ := wire.Classify(spec.Tag); class == wire.ClassVoid {
			raw, err := p.voidBody(i)
			if err != nil {
				return nil, fmt.Errorf("encode %s: field %q: %w", p.kind, spec.Name, err)
			}
			if !haveTail {
				tail, haveTail = raw, true
			}
			continue
		}
		if err := p.encodeField(w, i, spec); err != nil {
			return nil, fmt.Errorf("encode %s: field %q: %w", p.kind, spec.Name, err)
		}
	}
	// A void field holds the whole body. The other fields overlay its
	// leading bytes, so only the part past them is appended.
	if written := w.Len() - HeaderSize; len(tail) > written {
		w.WriteBytes(tail[written:])
	}
	return w.Bytes(), nil
}

func (p *Packet) voidBody(i int) ([]byte, error) {
	v, err := p.fields.At(i)
	if err != nil {
		return nil, err
	}
	if v.IsAbsent() {
		return nil, protocol.ErrUnsetField
	}
	if v.Type != wire.TypeBytes {
		return nil, fmt.Errorf("%w: void wants %s, got %s", protocol.ErrValueMismatch, wire.TypeBytes, v.Type)
	}
	return v.Raw, nil
}

func (p *Packet) encodeField(w *wire.Writer, i int, spec protocol.FieldSpec) error {
	v, err := p.fields.At(i)
	if err != nil {
		return err
	}
	if v.IsAbsent() {
		return protocol.ErrUnsetField
	}
	var want wire.ValueType
	switch class, _ := wire.Classify(spec.Tag); class {
	case wire.ClassRawBytes:
		want = wire.TypeBytes
	case wire.ClassArray:
		want = wire.TypeArray
	default:
		return w.Write(spec.Tag, v)
	}
	if v.Type != want {
		return fmt.Errorf("%w: %s wants %s, got %s", protocol.ErrValueMismatch, spec.Tag, want, v.Type)
	}
	n, err := p.precedingCount(i)
	if err != nil {
		return err
	}
	if v.Len() != n {
		return fmt.Errorf("%w: count %d, value holds %d", protocol.ErrCountMismatch, n, v.Len())
	}
	return w.Write(spec.Tag, v)
}

// String renders the packet the way relay logs print it:
//
//	Server Packet SHOOT2(36)
//	{
//		time=1234
//	}
func (p *Packet) String() string {
	var b strings.Builder
	side := "Client"
	if p.dir == protocol.DirectionServer {
		side = "Server"
	}
	fmt.Fprintf(&b, "%s Packet %s(%d)\n{\n", side, p.kind, p.rawID)
	for name, v := range p.fields.All() {
		fmt.Fprintf(&b, "\t%s=%s\n", name, v)
	}
	b.WriteString("}")
	return b.String()
}
