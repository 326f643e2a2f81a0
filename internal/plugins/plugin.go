package plugins

import (
	"github.com/danmuck/krelay/internal/protocol"
	"github.com/danmuck/krelay/internal/protocol/packet"
)

// Hooker is the relay surface a plugin attaches its packet hooks to.
type Hooker interface {
	Hook(kind protocol.Kind, fn func(p *packet.Packet) error)
}

type Plugin interface {
	Name() string
	Attach(h Hooker) error
}
