package schema

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/krelay/internal/protocol"
	"github.com/danmuck/krelay/internal/protocol/wire"
	"github.com/rs/zerolog/log"
)

// definitions file key mapping.
type fileDefinitions struct {
	Packets []filePacket `toml:"packet"`
}

type filePacket struct {
	Kind   string      `toml:"kind"`
	ID     int         `toml:"id"`
	Fields []fileField `toml:"fields"`
}

type fileField struct {
	Name string `toml:"name"`
	Type string `toml:"type"`
}

// LoadFile reads a TOML packet definitions file into a new registry.
func LoadFile(path string, tags *wire.TagTable) (*Registry, error) {
	var raw fileDefinitions
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("load packet definitions: %w", err)
	}
	reg, err := build(raw, meta, tags)
	if err != nil {
		return nil, fmt.Errorf("load packet definitions (%s): %w", path, err)
	}
	log.Info().Str("path", path).Int("packets", reg.Len()).Msg("schema.LoadFile")
	return reg, nil
}

// Parse reads TOML packet definitions from data into a new registry.
func Parse(data []byte, tags *wire.TagTable) (*Registry, error) {
	var raw fileDefinitions
	meta, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, fmt.Errorf("parse packet definitions: %w", err)
	}
	reg, err := build(raw, meta, tags)
	if err != nil {
		return nil, fmt.Errorf("parse packet definitions: %w", err)
	}
	return reg, nil
}

func build(raw fileDefinitions, meta toml.MetaData, tags *wire.TagTable) (*Registry, error) {
	for _, key := range meta.Undecoded() {
		log.Warn().Str("key", key.String()).Msg("schema: ignoring unknown definitions key")
	}
	reg := New(tags)
	for i, p := range raw.Packets {
		kind, ok := protocol.ParseKind(p.Kind)
		if !ok || !kind.Valid() {
			return nil, fmt.Errorf("packet[%d]: unknown kind %q", i, strings.TrimSpace(p.Kind))
		}
		if p.ID < 0 || p.ID > 0xff {
			return nil, fmt.Errorf("packet[%d] %s: id %d out of range 0-255", i, kind, p.ID)
		}
		specs := make([]protocol.FieldSpec, len(p.Fields))
		for j, f := range p.Fields {
			specs[j] = protocol.FieldSpec{Name: f.Name, Tag: f.Type}
		}
		if err := reg.Register(byte(p.ID), kind, specs...); err != nil {
			return nil, fmt.Errorf("packet[%d]: %w", i, err)
		}
	}
	return reg, nil
}
