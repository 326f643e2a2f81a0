package wire

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Layout tags with positional semantics. They have no table entry; callers
// resolve them with Classify.
const (
	TagVoid      = "void"
	TagBytes     = "bytes"
	TagByteArray = "byte[]"
)

// TagClass groups layout tags by how their length is determined.
type TagClass uint8

const (
	ClassPrimitive TagClass = iota
	ClassVoid               // rest of the packet, verbatim
	ClassRawBytes           // count-chained raw bytes
	ClassArray              // count-chained typed elements
)

// Classify reports the class of a layout tag and, for arrays, the element tag.
func Classify(tag string) (TagClass, string) {
	switch tag {
	case TagVoid:
		return ClassVoid, ""
	case TagBytes, TagByteArray:
		return ClassRawBytes, ""
	}
	if elem, ok := strings.CutSuffix(tag, "[]"); ok {
		return ClassArray, elem
	}
	return ClassPrimitive, tag
}

type DecodeFunc func(r *Reader) (Value, error)

type EncodeFunc func(w *Writer, v Value) error

// Tag binds a primitive type tag to its value variant and codec pair.
type Tag struct {
	Name   string
	Type   ValueType
	Decode DecodeFunc
	Encode EncodeFunc

	// builtin tags consume at least one byte per value.
	builtin bool
}

// TagTable maps primitive type-tag names to codecs. It is safe for concurrent
// use; registration is expected to happen at startup.
type TagTable struct {
	mu   sync.RWMutex
	tags map[string]Tag
}

var defaultTags = sync.OnceValue(NewTagTable)

// DefaultTags returns the shared table of built-in primitives.
func DefaultTags() *TagTable { return defaultTags() }

// NewTagTable returns a fresh table holding the built-in primitives.
func NewTagTable() *TagTable {
	t := &TagTable{tags: make(map[string]Tag, 32)}
	for _, tag := range builtinTags() {
		tag.builtin = true
		t.tags[tag.Name] = tag
	}
	t.alias("byte", "uint8")
	t.alias("sbyte", "int8")
	t.alias("short", "int16")
	t.alias("ushort", "uint16")
	t.alias("int", "int32")
	t.alias("uint", "uint32")
	t.alias("long", "int64")
	t.alias("ulong", "uint64")
	t.alias("float", "float32")
	t.alias("double", "float64")
	return t
}

func (t *TagTable) alias(name, target string) {
	tag := t.tags[target]
	tag.Name = name
	t.tags[name] = tag
}

// Register adds a custom primitive tag. Custom tags may decode zero-width
// values; arrays of them are read element by element with no size shortcut.
func (t *TagTable) Register(tag Tag) error {
	if tag.Name == "" || tag.Decode == nil || tag.Encode == nil {
		return fmt.Errorf("wire: incomplete tag %q", tag.Name)
	}
	if class, _ := Classify(tag.Name); class != ClassPrimitive {
		return fmt.Errorf("wire: reserved tag %q", tag.Name)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.tags[tag.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateTag, tag.Name)
	}
	t.tags[tag.Name] = tag
	return nil
}

// Lookup returns the primitive entry for name.
func (t *TagTable) Lookup(name string) (Tag, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tag, ok := t.tags[name]
	return tag, ok
}

// Has reports whether a layout tag can be decoded and encoded with this table.
func (t *TagTable) Has(tag string) bool {
	class, elem := Classify(tag)
	switch class {
	case ClassVoid, ClassRawBytes:
		return true
	default:
		_, ok := t.Lookup(elem)
		return ok
	}
}

// Names returns the registered primitive names in sorted order.
func (t *TagTable) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.tags))
	for name := range t.tags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func expect(v Value, want ValueType, tag string) error {
	if v.Type != want {
		return fmt.Errorf("%w: tag %q wants %s, got %s", ErrValueMismatch, tag, want, v.Type)
	}
	if err := v.InRange(); err != nil {
		return fmt.Errorf("tag %q: %w", tag, err)
	}
	return nil
}

func builtinTags() []Tag {
	return []Tag{
		{
			Name: "bool", Type: TypeBool,
			Decode: func(r *Reader) (Value, error) {
				v, err := r.ReadBool()
				return Bool(v), err
			},
			Encode: func(w *Writer, v Value) error {
				if err := expect(v, TypeBool, "bool"); err != nil {
					return err
				}
				w.WriteBool(v.Bool)
				return nil
			},
		},
		{
			Name: "int8", Type: TypeInt8,
			Decode: func(r *Reader) (Value, error) {
				v, err := r.ReadInt8()
				return Int8(v), err
			},
			Encode: func(w *Writer, v Value) error {
				if err := expect(v, TypeInt8, "int8"); err != nil {
					return err
				}
				w.WriteInt8(int8(v.Int))
				return nil
			},
		},
		{
			Name: "uint8", Type: TypeUint8,
			Decode: func(r *Reader) (Value, error) {
				v, err := r.ReadUint8()
				return Uint8(v), err
			},
			Encode: func(w *Writer, v Value) error {
				if err := expect(v, TypeUint8, "uint8"); err != nil {
					return err
				}
				w.WriteUint8(uint8(v.Uint))
				return nil
			},
		},
		{
			Name: "int16", Type: TypeInt16,
			Decode: func(r *Reader) (Value, error) {
				v, err := r.ReadInt16()
				return Int16(v), err
			},
			Encode: func(w *Writer, v Value) error {
				if err := expect(v, TypeInt16, "int16"); err != nil {
					return err
				}
				w.WriteInt16(int16(v.Int))
				return nil
			},
		},
		{
			Name: "uint16", Type: TypeUint16,
			Decode: func(r *Reader) (Value, error) {
				v, err := r.ReadUint16()
				return Uint16(v), err
			},
			Encode: func(w *Writer, v Value) error {
				if err := expect(v, TypeUint16, "uint16"); err != nil {
					return err
				}
				w.WriteUint16(uint16(v.Uint))
				return nil
			},
		},
		{
			Name: "int32", Type: TypeInt32,
			Decode: func(r *Reader) (Value, error) {
				v, err := r.ReadInt32()
				return Int32(v), err
			},
			Encode: func(w *Writer, v Value) error {
				if err := expect(v, TypeInt32, "int32"); err != nil {
					return err
				}
				w.WriteInt32(int32(v.Int))
				return nil
			},
		},
		{
			Name: "uint32", Type: TypeUint32,
			Decode: func(r *Reader) (Value, error) {
				v, err := r.ReadUint32()
				return Uint32(v), err
			},
			Encode: func(w *Writer, v Value) error {
				if err := expect(v, TypeUint32, "uint32"); err != nil {
					return err
				}
				w.WriteUint32(uint32(v.Uint))
				return nil
			},
		},
		{
			Name: "int64", Type: TypeInt64,
			Decode: func(r *Reader) (Value, error) {
				v, err := r.ReadInt64()
				return Int64(v), err
			},
			Encode: func(w *Writer, v Value) error {
				if err := expect(v, TypeInt64, "int64"); err != nil {
					return err
				}
				w.WriteInt64(v.Int)
				return nil
			},
		},
		{
			Name: "uint64", Type: TypeUint64,
			Decode: func(r *Reader) (Value, error) {
				v, err := r.ReadUint64()
				return Uint64(v), err
			},
			Encode: func(w *Writer, v Value) error {
				if err := expect(v, TypeUint64, "uint64"); err != nil {
					return err
				}
				w.WriteUint64(v.Uint)
				return nil
			},
		},
		{
			Name: "float32", Type: TypeFloat32,
			Decode: func(r *Reader) (Value, error) {
				v, err := r.ReadFloat32()
				return Float32(v), err
			},
			Encode: func(w *Writer, v Value) error {
				if err := expect(v, TypeFloat32, "float32"); err != nil {
					return err
				}
				w.WriteFloat32(float32(v.Float))
				return nil
			},
		},
		{
			Name: "float64", Type: TypeFloat64,
			Decode: func(r *Reader) (Value, error) {
				v, err := r.ReadFloat64()
				return Float64(v), err
			},
			Encode: func(w *Writer, v Value) error {
				if err := expect(v, TypeFloat64, "float64"); err != nil {
					return err
				}
				w.WriteFloat64(v.Float)
				return nil
			},
		},
		{
			Name: "string", Type: TypeString,
			Decode: func(r *Reader) (Value, error) {
				v, err := r.ReadString()
				return String(v), err
			},
			Encode: func(w *Writer, v Value) error {
				if err := expect(v, TypeString, "string"); err != nil {
					return err
				}
				return w.WriteString(v.Str)
			},
		},
		{
			Name: "string32", Type: TypeString,
			Decode: func(r *Reader) (Value, error) {
				v, err := r.ReadString32()
				return String(v), err
			},
			Encode: func(w *Writer, v Value) error {
				if err := expect(v, TypeString, "string32"); err != nil {
					return err
				}
				return w.WriteString32(v.Str)
			},
		},
	}
}
