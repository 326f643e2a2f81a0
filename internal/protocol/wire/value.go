package wire

import (
	"bytes"
	"fmt"
	"math"
	"strings"
)

// ValueType is the discriminant of a Value.
type ValueType uint8

const (
	TypeAbsent ValueType = iota
	TypeBool
	TypeInt8
	TypeUint8
	TypeInt16
	TypeUint16
	TypeInt32
	TypeUint32
	TypeInt64
	TypeUint64
	TypeFloat32
	TypeFloat64
	TypeString
	TypeBytes
	TypeArray
)

var valueTypeNames = [...]string{
	TypeAbsent:  "absent",
	TypeBool:    "bool",
	TypeInt8:    "int8",
	TypeUint8:   "uint8",
	TypeInt16:   "int16",
	TypeUint16:  "uint16",
	TypeInt32:   "int32",
	TypeUint32:  "uint32",
	TypeInt64:   "int64",
	TypeUint64:  "uint64",
	TypeFloat32: "float32",
	TypeFloat64: "float64",
	TypeString:  "string",
	TypeBytes:   "bytes",
	TypeArray:   "array",
}

func (t ValueType) String() string {
	if int(t) < len(valueTypeNames) {
		return valueTypeNames[t]
	}
	return fmt.Sprintf("ValueType(%d)", uint8(t))
}

// IsInteger reports whether t is one of the fixed-width integer variants.
func (t ValueType) IsInteger() bool {
	return t >= TypeInt8 && t <= TypeUint64
}

func (t ValueType) unsigned() bool {
	return t == TypeUint8 || t == TypeUint16 || t == TypeUint32 || t == TypeUint64
}

// Value is a decoded field value. Exactly one payload field is meaningful,
// selected by Type: signed integers use Int, unsigned use Uint, floats use
// Float, and so on. The zero Value is Absent.
type Value struct {
	Type  ValueType
	Int   int64
	Uint  uint64
	Float float64
	Bool  bool
	Str   string
	Raw   []byte
	Items []Value
}

// Absent returns the unset value.
func Absent() Value { return Value{} }

func Bool(v bool) Value       { return Value{Type: TypeBool, Bool: v} }
func Int8(v int8) Value       { return Value{Type: TypeInt8, Int: int64(v)} }
func Uint8(v uint8) Value     { return Value{Type: TypeUint8, Uint: uint64(v)} }
func Int16(v int16) Value     { return Value{Type: TypeInt16, Int: int64(v)} }
func Uint16(v uint16) Value   { return Value{Type: TypeUint16, Uint: uint64(v)} }
func Int32(v int32) Value     { return Value{Type: TypeInt32, Int: int64(v)} }
func Uint32(v uint32) Value   { return Value{Type: TypeUint32, Uint: uint64(v)} }
func Int64(v int64) Value     { return Value{Type: TypeInt64, Int: v} }
func Uint64(v uint64) Value   { return Value{Type: TypeUint64, Uint: v} }
func Float32(v float32) Value { return Value{Type: TypeFloat32, Float: float64(v)} }
func Float64(v float64) Value { return Value{Type: TypeFloat64, Float: v} }
func String(v string) Value   { return Value{Type: TypeString, Str: v} }

// Bytes returns a raw byte value holding a copy of v.
func Bytes(v []byte) Value {
	buf := make([]byte, len(v))
	copy(buf, v)
	return Value{Type: TypeBytes, Raw: buf}
}

// Array returns a sequence value.
func Array(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{Type: TypeArray, Items: items}
}

// InRange fails with ErrValueRange when the payload does not fit the width
// v.Type declares. Values built with the typed constructors always fit.
func (v Value) InRange() error {
	switch v.Type {
	case TypeInt8:
		return v.intRange(math.MinInt8, math.MaxInt8)
	case TypeInt16:
		return v.intRange(math.MinInt16, math.MaxInt16)
	case TypeInt32:
		return v.intRange(math.MinInt32, math.MaxInt32)
	case TypeUint8:
		return v.uintRange(math.MaxUint8)
	case TypeUint16:
		return v.uintRange(math.MaxUint16)
	case TypeUint32:
		return v.uintRange(math.MaxUint32)
	case TypeFloat32:
		if math.IsInf(v.Float, 0) || math.IsNaN(v.Float) {
			return nil
		}
		if math.Abs(v.Float) > math.MaxFloat32 {
			return fmt.Errorf("%w: %g overflows %s", ErrValueRange, v.Float, v.Type)
		}
	}
	return nil
}

func (v Value) intRange(lo, hi int64) error {
	if v.Int < lo || v.Int > hi {
		return fmt.Errorf("%w: %d overflows %s", ErrValueRange, v.Int, v.Type)
	}
	return nil
}

func (v Value) uintRange(hi uint64) error {
	if v.Uint > hi {
		return fmt.Errorf("%w: %d overflows %s", ErrValueRange, v.Uint, v.Type)
	}
	return nil
}

// IsAbsent reports whether v has never been set.
func (v Value) IsAbsent() bool { return v.Type == TypeAbsent }

// Count interprets an integer value as an element count. It fails for
// non-integer variants and for negative or oversized counts.
func (v Value) Count() (int, error) {
	if !v.Type.IsInteger() {
		return 0, fmt.Errorf("%w: count field holds %s", ErrInvalidCount, v.Type)
	}
	if v.Type.unsigned() {
		if v.Uint > math.MaxInt32 {
			return 0, fmt.Errorf("%w: %d", ErrInvalidCount, v.Uint)
		}
		return int(v.Uint), nil
	}
	if v.Int < 0 || v.Int > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidCount, v.Int)
	}
	return int(v.Int), nil
}

// Len returns the number of elements carried by an array, bytes or string
// value, and -1 for every other variant.
func (v Value) Len() int {
	switch v.Type {
	case TypeArray:
		return len(v.Items)
	case TypeBytes:
		return len(v.Raw)
	case TypeString:
		return len(v.Str)
	default:
		return -1
	}
}

// Equal reports whether v and o hold the same variant and payload.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case TypeAbsent:
		return true
	case TypeBool:
		return v.Bool == o.Bool
	case TypeInt8, TypeInt16, TypeInt32, TypeInt64:
		return v.Int == o.Int
	case TypeUint8, TypeUint16, TypeUint32, TypeUint64:
		return v.Uint == o.Uint
	case TypeFloat32, TypeFloat64:
		return v.Float == o.Float
	case TypeString:
		return v.Str == o.Str
	case TypeBytes:
		return bytes.Equal(v.Raw, o.Raw)
	case TypeArray:
		if len(v.Items) != len(o.Items) {
			return false
		}
		for i := range v.Items {
			if !v.Items[i].Equal(o.Items[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.Type {
	case TypeAbsent:
		return "<unset>"
	case TypeBool:
		return fmt.Sprint(v.Bool)
	case TypeInt8, TypeInt16, TypeInt32, TypeInt64:
		return fmt.Sprint(v.Int)
	case TypeUint8, TypeUint16, TypeUint32, TypeUint64:
		return fmt.Sprint(v.Uint)
	case TypeFloat32, TypeFloat64:
		return fmt.Sprint(v.Float)
	case TypeString:
		return fmt.Sprintf("%q", v.Str)
	case TypeBytes:
		return fmt.Sprintf("% x", v.Raw)
	case TypeArray:
		parts := make([]string, len(v.Items))
		for i, item := range v.Items {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return v.Type.String()
	}
}
