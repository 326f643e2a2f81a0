package plugins

import (
	"strings"

	"github.com/danmuck/krelay/internal/protocol"
	"github.com/danmuck/krelay/internal/protocol/packet"
	"github.com/danmuck/krelay/internal/protocol/wire"
)

// Mute drops server TEXT packets sent by any of a fixed set of names.
type Mute struct {
	names map[string]struct{}
}

func NewMute(names ...string) *Mute {
	m := &Mute{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			m.names[n] = struct{}{}
		}
	}
	return m
}

func (m *Mute) Name() string { return "mute" }

func (m *Mute) Attach(h Hooker) error {
	h.Hook(protocol.KindText, m.onText)
	return nil
}

func (m *Mute) onText(p *packet.Packet) error {
	name, err := p.Get("name")
	if err != nil {
		return err
	}
	if name.Type != wire.TypeString {
		return nil
	}
	if _, muted := m.names[strings.ToLower(name.Str)]; muted {
		p.Forward = false
	}
	return nil
}
