package protocol

import "github.com/danmuck/krelay/internal/protocol/wire"

// Definition is everything the codec core needs to know about one kind.
type Definition struct {
	ID     byte
	Kind   Kind
	Layout Layout
	// Codec, when set, replaces the generic layout-driven body codec.
	Codec Codec
}

// Registry resolves wire ids and kinds to definitions. Implementations must
// be safe for concurrent readers; the codec core never mutates them.
type Registry interface {
	ByID(id byte) (Definition, bool)
	ByKind(kind Kind) (Definition, bool)
	// Tags is the table every layout tag in the registry resolves against.
	Tags() *wire.TagTable
}

// Codec is a hand-written body codec for one fixed-shape kind. It reads and
// writes the body only; the length prefix and id are handled by the caller.
// The fields passed in always match Layout().
type Codec interface {
	Layout() Layout
	DecodeBody(r *wire.Reader, f *Fields) error
	EncodeBody(w *wire.Writer, f *Fields) error
}
