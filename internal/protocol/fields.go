package protocol

import (
	"fmt"
	"iter"
	"slices"

	"github.com/danmuck/krelay/internal/protocol/wire"
	"github.com/elliotchance/orderedmap/v3"
)

// Fields is the ordered name -> value storage of one packet. Its key set is
// fixed to the layout's names, in layout order, for its whole lifetime.
type Fields struct {
	layout Layout
	values *orderedmap.OrderedMap[string, wire.Value]
}

// NewFields returns storage for layout with every field absent.
func NewFields(layout Layout) *Fields {
	values := orderedmap.NewOrderedMapWithCapacity[string, wire.Value](layout.Len())
	for _, spec := range layout.specs {
		values.Set(spec.Name, wire.Absent())
	}
	return &Fields{layout: layout, values: values}
}

func (f *Fields) Layout() Layout { return f.layout }

func (f *Fields) Len() int { return f.values.Len() }

// Get returns the value stored under name.
func (f *Fields) Get(name string) (wire.Value, error) {
	v, ok := f.values.Get(name)
	if !ok {
		return wire.Value{}, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return v, nil
}

// Set replaces the value stored under name. The value is not checked against
// the declared tag; mismatches surface when the packet is encoded.
func (f *Fields) Set(name string, v wire.Value) error {
	if _, ok := f.layout.Index(name); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	f.values.Set(name, v)
	return nil
}

// At returns the value of the field at layout position i.
func (f *Fields) At(i int) (wire.Value, error) {
	spec, ok := f.layout.Field(i)
	if !ok {
		return wire.Value{}, fmt.Errorf("%w: index %d of %d", ErrUnknownField, i, f.layout.Len())
	}
	return f.Get(spec.Name)
}

// SetAt replaces the value of the field at layout position i.
func (f *Fields) SetAt(i int, v wire.Value) error {
	spec, ok := f.layout.Field(i)
	if !ok {
		return fmt.Errorf("%w: index %d of %d", ErrUnknownField, i, f.layout.Len())
	}
	return f.Set(spec.Name, v)
}

// Require returns the value under name, failing when it is unset, holds a
// variant other than want, or carries a payload too wide for want.
func (f *Fields) Require(name string, want wire.ValueType) (wire.Value, error) {
	v, err := f.Get(name)
	if err != nil {
		return wire.Value{}, err
	}
	if v.IsAbsent() {
		return wire.Value{}, fmt.Errorf("%w: %q", ErrUnsetField, name)
	}
	if v.Type != want {
		return wire.Value{}, fmt.Errorf("%w: field %q wants %s, got %s", ErrValueMismatch, name, want, v.Type)
	}
	if err := v.InRange(); err != nil {
		return wire.Value{}, fmt.Errorf("field %q: %w", name, err)
	}
	return v, nil
}

// All iterates fields in layout order.
func (f *Fields) All() iter.Seq2[string, wire.Value] {
	return f.values.AllFromFront()
}

// Names returns the field names in storage order.
func (f *Fields) Names() []string {
	return slices.Collect(f.values.Keys())
}
