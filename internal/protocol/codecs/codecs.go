// Package codecs holds hand-written body codecs for small fixed-shape packet
// kinds that sit on the hot path of every session (acks and keepalives).
package codecs

import (
	"fmt"

	"github.com/danmuck/krelay/internal/protocol"
	"github.com/danmuck/krelay/internal/protocol/wire"
)

// Registrar is the registry surface codecs attach to.
type Registrar interface {
	ByKind(kind protocol.Kind) (protocol.Definition, bool)
	RegisterCodec(kind protocol.Kind, codec protocol.Codec) error
}

// Builtin returns the built-in codecs keyed by kind.
func Builtin() map[protocol.Kind]protocol.Codec {
	return map[protocol.Kind]protocol.Codec{
		protocol.KindShootAck:  timeAck{},
		protocol.KindGotoAck:   timeAck{},
		protocol.KindPing:      ping{},
		protocol.KindPong:      pong{},
		protocol.KindUpdateAck: empty{},
		protocol.KindPlayerHit: playerHit{},
	}
}

// Register attaches every built-in codec whose kind is defined in reg and
// returns the kinds it attached. Kinds missing from reg are skipped.
func Register(reg Registrar) ([]protocol.Kind, error) {
	var attached []protocol.Kind
	for _, kind := range protocol.Kinds() {
		codec, ok := Builtin()[kind]
		if !ok {
			continue
		}
		if _, defined := reg.ByKind(kind); !defined {
			continue
		}
		if err := reg.RegisterCodec(kind, codec); err != nil {
			return attached, fmt.Errorf("codecs: %w", err)
		}
		attached = append(attached, kind)
	}
	return attached, nil
}

var (
	timeAckLayout = protocol.MustLayout(
		protocol.FieldSpec{Name: "time", Tag: "int32"},
	)
	pingLayout = protocol.MustLayout(
		protocol.FieldSpec{Name: "serial", Tag: "int32"},
	)
	pongLayout = protocol.MustLayout(
		protocol.FieldSpec{Name: "serial", Tag: "int32"},
		protocol.FieldSpec{Name: "time", Tag: "int32"},
	)
	playerHitLayout = protocol.MustLayout(
		protocol.FieldSpec{Name: "bulletId", Tag: "byte"},
		protocol.FieldSpec{Name: "objectId", Tag: "int32"},
	)
	emptyLayout = protocol.MustLayout()
)

// timeAck serves SHOOTACK and GOTOACK: a single client timestamp.
type timeAck struct{}

func (timeAck) Layout() protocol.Layout { return timeAckLayout }

func (timeAck) DecodeBody(r *wire.Reader, f *protocol.Fields) error {
	t, err := r.ReadInt32()
	if err != nil {
		return err
	}
	return f.Set("time", wire.Int32(t))
}

func (timeAck) EncodeBody(w *wire.Writer, f *protocol.Fields) error {
	t, err := f.Require("time", wire.TypeInt32)
	if err != nil {
		return err
	}
	w.WriteInt32(int32(t.Int))
	return nil
}

type ping struct{}

func (ping) Layout() protocol.Layout { return pingLayout }

func (ping) DecodeBody(r *wire.Reader, f *protocol.Fields) error {
	serial, err := r.ReadInt32()
	if err != nil {
		return err
	}
	return f.Set("serial", wire.Int32(serial))
}

func (ping) EncodeBody(w *wire.Writer, f *protocol.Fields) error {
	serial, err := f.Require("serial", wire.TypeInt32)
	if err != nil {
		return err
	}
	w.WriteInt32(int32(serial.Int))
	return nil
}

type pong struct{}

func (pong) Layout() protocol.Layout { return pongLayout }

func (pong) DecodeBody(r *wire.Reader, f *protocol.Fields) error {
	serial, err := r.ReadInt32()
	if err != nil {
		return err
	}
	t, err := r.ReadInt32()
	if err != nil {
		return err
	}
	if err := f.Set("serial", wire.Int32(serial)); err != nil {
		return err
	}
	return f.Set("time", wire.Int32(t))
}

func (pong) EncodeBody(w *wire.Writer, f *protocol.Fields) error {
	serial, err := f.Require("serial", wire.TypeInt32)
	if err != nil {
		return err
	}
	t, err := f.Require("time", wire.TypeInt32)
	if err != nil {
		return err
	}
	w.WriteInt32(int32(serial.Int))
	w.WriteInt32(int32(t.Int))
	return nil
}

type playerHit struct{}

func (playerHit) Layout() protocol.Layout { return playerHitLayout }

func (playerHit) DecodeBody(r *wire.Reader, f *protocol.Fields) error {
	bullet, err := r.ReadUint8()
	if err != nil {
		return err
	}
	object, err := r.ReadInt32()
	if err != nil {
		return err
	}
	if err := f.Set("bulletId", wire.Uint8(bullet)); err != nil {
		return err
	}
	return f.Set("objectId", wire.Int32(object))
}

func (playerHit) EncodeBody(w *wire.Writer, f *protocol.Fields) error {
	bullet, err := f.Require("bulletId", wire.TypeUint8)
	if err != nil {
		return err
	}
	object, err := f.Require("objectId", wire.TypeInt32)
	if err != nil {
		return err
	}
	w.WriteUint8(uint8(bullet.Uint))
	w.WriteInt32(int32(object.Int))
	return nil
}

// empty serves bodiless acknowledgements such as UPDATEACK.
type empty struct{}

func (empty) Layout() protocol.Layout { return emptyLayout }

func (empty) DecodeBody(*wire.Reader, *protocol.Fields) error { return nil }

func (empty) EncodeBody(*wire.Writer, *protocol.Fields) error { return nil }
