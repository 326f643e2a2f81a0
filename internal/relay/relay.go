// Package relay runs captured or live packets through decode, hooks and
// re-encode before they are forwarded to the other side of a session.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/danmuck/krelay/internal/observability"
	"github.com/danmuck/krelay/internal/protocol"
	"github.com/danmuck/krelay/internal/protocol/frame"
	"github.com/danmuck/krelay/internal/protocol/packet"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// HookFunc inspects or rewrites a packet. Clearing p.Forward drops it; a
// returned error aborts processing of that packet.
type HookFunc = func(p *packet.Packet) error

type Option func(*Relay)

// WithDropUnknown drops packets whose id has no definition instead of
// forwarding their raw bytes.
func WithDropUnknown(drop bool) Option {
	return func(r *Relay) { r.dropUnknown = drop }
}

// WithDropKinds drops every packet of the given kinds unless a hook sets
// Forward again.
func WithDropKinds(kinds ...protocol.Kind) Option {
	return func(r *Relay) {
		for _, k := range kinds {
			r.dropKinds[k] = struct{}{}
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Relay) { r.logger = logger }
}

func WithLimits(limits frame.Limits) Option {
	return func(r *Relay) { r.limits = limits }
}

// Relay is safe for concurrent Process calls once hooks are registered.
type Relay struct {
	reg         protocol.Registry
	dropUnknown bool
	dropKinds   map[protocol.Kind]struct{}
	limits      frame.Limits
	logger      zerolog.Logger

	mu    sync.RWMutex
	hooks map[protocol.Kind][]HookFunc
}

func New(reg protocol.Registry, opts ...Option) *Relay {
	r := &Relay{
		reg:       reg,
		dropKinds: make(map[protocol.Kind]struct{}),
		limits:    frame.DefaultLimits(),
		logger:    log.Logger,
		hooks:     make(map[protocol.Kind][]HookFunc),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Hook registers fn for kind. Hooks for one kind run in registration order.
func (r *Relay) Hook(kind protocol.Kind, fn HookFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[kind] = append(r.hooks[kind], fn)
}

func (r *Relay) hooksFor(kind protocol.Kind) []HookFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hooks[kind]
}

// Process runs one complete packet through the pipeline. When forwarded is
// true, out holds the bytes to send with the length prefix patched.
func (r *Relay) Process(dir protocol.Direction, data []byte) (out []byte, forwarded bool, err error) {
	p, err := packet.Decode(r.reg, data, dir)
	if err != nil {
		r.record(dir, "INVALID", observability.OutcomeError, len(data))
		r.logger.Warn().Err(err).Str("direction", dir.String()).Int("bytes", len(data)).Msg("relay.Process decode failed")
		return nil, false, err
	}
	kind := p.Kind()

	if _, drop := r.dropKinds[kind]; drop {
		p.Forward = false
	}
	if kind == protocol.KindUnknown && r.dropUnknown {
		p.Forward = false
	}
	for _, fn := range r.hooksFor(kind) {
		if err := fn(p); err != nil {
			r.record(dir, kind.String(), observability.OutcomeError, len(data))
			return nil, false, fmt.Errorf("relay: %s hook: %w", kind, err)
		}
	}

	if !p.Forward {
		r.record(dir, kind.String(), observability.OutcomeDropped, len(data))
		r.logger.Debug().Str("direction", dir.String()).Str("kind", kind.String()).Msg("relay.Process dropped")
		return nil, false, nil
	}
	if kind == protocol.KindUnknown {
		r.record(dir, kind.String(), observability.OutcomeRaw, len(data))
		r.logger.Debug().Str("direction", dir.String()).Int("bytes", len(data)).Msg("relay.Process forwarding raw")
		return p.Raw(), true, nil
	}

	out, err = p.Encode()
	if err != nil {
		r.record(dir, kind.String(), observability.OutcomeError, len(data))
		return nil, false, err
	}
	if err := frame.Seal(out, r.limits); err != nil {
		r.record(dir, kind.String(), observability.OutcomeError, len(data))
		return nil, false, fmt.Errorf("relay: %s: %w", kind, err)
	}
	r.record(dir, kind.String(), observability.OutcomeForwarded, len(data))
	r.logger.Debug().Str("direction", dir.String()).Str("kind", kind.String()).Int("bytes", len(out)).Msg("relay.Process forwarded")
	return out, true, nil
}

func (r *Relay) record(dir protocol.Direction, kind, outcome string, size int) {
	observability.RecordPacket(dir.String(), kind, outcome, size)
}

// Stats summarizes one Pipe run.
type Stats struct {
	Read      int
	Forwarded int
	Dropped   int
	Failed    int
}

// Pipe reads framed packets from src until EOF, processes each and writes the
// forwarded ones to dst. Packets that fail to decode or encode are counted
// and skipped; stream errors end the run.
func (r *Relay) Pipe(ctx context.Context, dir protocol.Direction, src io.Reader, dst io.Writer) (Stats, error) {
	var stats Stats
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		data, err := frame.ReadPacket(src, r.limits)
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("relay: read packet %d: %w", stats.Read+1, err)
		}
		stats.Read++

		out, forwarded, err := r.Process(dir, data)
		switch {
		case err != nil:
			stats.Failed++
			continue
		case !forwarded:
			stats.Dropped++
			continue
		}
		if err := frame.Write(dst, out, r.limits); err != nil {
			return stats, fmt.Errorf("relay: write packet %d: %w", stats.Read, err)
		}
		stats.Forwarded++
	}
}
