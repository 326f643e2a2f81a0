package schema

import (
	"fmt"
	"sort"
	"sync"

	"github.com/danmuck/krelay/internal/protocol"
	"github.com/danmuck/krelay/internal/protocol/wire"
	"github.com/rs/zerolog/log"
)

// DefinitionError reports a packet definition the registry refused.
type DefinitionError struct {
	Kind   protocol.Kind
	ID     byte
	Field  string
	Reason string
	Err    error
}

func (e DefinitionError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema: kind=%s id=%d: %s", e.Kind, e.ID, e.Reason)
	}
	return fmt.Sprintf("schema: kind=%s id=%d field=%s: %s", e.Kind, e.ID, e.Field, e.Reason)
}

func (e DefinitionError) Unwrap() error { return e.Err }

// Registry is the in-memory packet definition table. Registration happens at
// startup; lookups are safe from any number of goroutines.
type Registry struct {
	mu     sync.RWMutex
	tags   *wire.TagTable
	byID   map[byte]*protocol.Definition
	byKind map[protocol.Kind]*protocol.Definition
}

var _ protocol.Registry = (*Registry)(nil)

// New returns an empty registry resolving tags against tags, or the default
// table when nil.
func New(tags *wire.TagTable) *Registry {
	if tags == nil {
		tags = wire.DefaultTags()
	}
	return &Registry{
		tags:   tags,
		byID:   make(map[byte]*protocol.Definition),
		byKind: make(map[protocol.Kind]*protocol.Definition),
	}
}

// Register binds a wire id and kind to a layout. Every tag in specs must
// resolve against the registry's tag table.
func (r *Registry) Register(id byte, kind protocol.Kind, specs ...protocol.FieldSpec) error {
	if !kind.Valid() {
		return DefinitionError{Kind: kind, ID: id, Reason: "kind cannot be defined"}
	}
	layout, err := protocol.NewLayout(specs...)
	if err != nil {
		return DefinitionError{Kind: kind, ID: id, Reason: err.Error()}
	}
	specs = layout.Specs()
	for i, spec := range specs {
		if !r.tags.Has(spec.Tag) {
			log.Error().
				Str("kind", kind.String()).
				Str("field", spec.Name).
				Str("tag", spec.Tag).
				Msg("schema.Register unknown type tag")
			return DefinitionError{Kind: kind, ID: id, Field: spec.Name, Reason: fmt.Sprintf("unknown type tag %q", spec.Tag), Err: wire.ErrUnknownTypeTag}
		}
		if reason := r.countSource(specs, i); reason != "" {
			return DefinitionError{Kind: kind, ID: id, Field: spec.Name, Reason: reason, Err: protocol.ErrMissingCount}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byID[id]; ok {
		return DefinitionError{Kind: kind, ID: id, Reason: fmt.Sprintf("id already bound to %s", existing.Kind)}
	}
	if existing, ok := r.byKind[kind]; ok {
		return DefinitionError{Kind: kind, ID: id, Reason: fmt.Sprintf("kind already bound to id %d", existing.ID)}
	}
	def := &protocol.Definition{ID: id, Kind: kind, Layout: layout}
	r.byID[id] = def
	r.byKind[kind] = def
	log.Debug().
		Str("kind", kind.String()).
		Uint8("id", id).
		Int("fields", layout.Len()).
		Msg("schema.Register")
	return nil
}

// countSource checks that a count-chained field at position i follows an
// integer field. It returns an empty reason when the field is valid.
func (r *Registry) countSource(specs []protocol.FieldSpec, i int) string {
	class, _ := wire.Classify(specs[i].Tag)
	if class != wire.ClassRawBytes && class != wire.ClassArray {
		return ""
	}
	if i == 0 {
		return "count-chained field cannot be first"
	}
	prev := specs[i-1]
	if pc, _ := wire.Classify(prev.Tag); pc != wire.ClassPrimitive {
		return fmt.Sprintf("preceding field %q is not a primitive count", prev.Name)
	}
	tag, ok := r.tags.Lookup(prev.Tag)
	if !ok || !tag.Type.IsInteger() {
		return fmt.Sprintf("preceding field %q is not an integer", prev.Name)
	}
	return ""
}

// RegisterCodec attaches a specialized codec to an already registered kind.
// The codec's layout must equal the registered layout.
func (r *Registry) RegisterCodec(kind protocol.Kind, codec protocol.Codec) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	def, ok := r.byKind[kind]
	if !ok {
		return DefinitionError{Kind: kind, Reason: "codec for unregistered kind"}
	}
	if !def.Layout.Equal(codec.Layout()) {
		return DefinitionError{
			Kind:   kind,
			ID:     def.ID,
			Reason: fmt.Sprintf("codec layout %s differs from registered %s", codec.Layout(), def.Layout),
			Err:    protocol.ErrCodecLayout,
		}
	}
	def.Codec = codec
	log.Debug().Str("kind", kind.String()).Uint8("id", def.ID).Msg("schema.RegisterCodec")
	return nil
}

func (r *Registry) ByID(id byte) (protocol.Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.byID[id]
	if !ok {
		return protocol.Definition{}, false
	}
	return *def, true
}

func (r *Registry) ByKind(kind protocol.Kind) (protocol.Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.byKind[kind]
	if !ok {
		return protocol.Definition{}, false
	}
	return *def, true
}

func (r *Registry) Tags() *wire.TagTable { return r.tags }

// Len returns the number of registered kinds.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKind)
}

// Kinds returns the registered kinds ordered by wire id.
func (r *Registry) Kinds() []protocol.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]*protocol.Definition, 0, len(r.byID))
	for _, def := range r.byID {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	out := make([]protocol.Kind, len(defs))
	for i, def := range defs {
		out[i] = def.Kind
	}
	return out
}
