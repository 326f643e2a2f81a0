package protocol

import (
	"fmt"
	"strings"
)

// FieldSpec names one field of a layout and its type tag.
type FieldSpec struct {
	Name string
	Tag  string
}

// Layout is the ordered field schema of one packet kind. It is immutable once
// built and shared by every packet of that kind.
type Layout struct {
	specs []FieldSpec
	index map[string]int
}

// NewLayout builds a layout from specs in wire order. Field names must be
// unique and non-empty.
func NewLayout(specs ...FieldSpec) (Layout, error) {
	l := Layout{
		specs: make([]FieldSpec, len(specs)),
		index: make(map[string]int, len(specs)),
	}
	for i, spec := range specs {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return Layout{}, fmt.Errorf("protocol: field %d has no name", i)
		}
		if strings.TrimSpace(spec.Tag) == "" {
			return Layout{}, fmt.Errorf("protocol: field %q has no type tag", name)
		}
		if _, dup := l.index[name]; dup {
			return Layout{}, fmt.Errorf("protocol: duplicate field %q", name)
		}
		l.specs[i] = FieldSpec{Name: name, Tag: strings.TrimSpace(spec.Tag)}
		l.index[name] = i
	}
	return l, nil
}

// MustLayout is NewLayout for static definitions; it panics on error.
func MustLayout(specs ...FieldSpec) Layout {
	l, err := NewLayout(specs...)
	if err != nil {
		panic(err)
	}
	return l
}

func (l Layout) Len() int { return len(l.specs) }

// Field returns the spec at position i.
func (l Layout) Field(i int) (FieldSpec, bool) {
	if i < 0 || i >= len(l.specs) {
		return FieldSpec{}, false
	}
	return l.specs[i], true
}

// Index returns the position of name.
func (l Layout) Index(name string) (int, bool) {
	i, ok := l.index[name]
	return i, ok
}

// Names returns field names in layout order.
func (l Layout) Names() []string {
	names := make([]string, len(l.specs))
	for i, spec := range l.specs {
		names[i] = spec.Name
	}
	return names
}

// Specs returns a copy of the field specs in layout order.
func (l Layout) Specs() []FieldSpec {
	out := make([]FieldSpec, len(l.specs))
	copy(out, l.specs)
	return out
}

// Equal reports whether both layouts declare the same fields in the same order.
func (l Layout) Equal(o Layout) bool {
	if len(l.specs) != len(o.specs) {
		return false
	}
	for i := range l.specs {
		if l.specs[i] != o.specs[i] {
			return false
		}
	}
	return true
}

func (l Layout) String() string {
	parts := make([]string, len(l.specs))
	for i, spec := range l.specs {
		parts[i] = spec.Name + ":" + spec.Tag
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
