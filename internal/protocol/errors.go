package protocol

import (
	"errors"

	"github.com/danmuck/krelay/internal/protocol/wire"
)

var (
	ErrUndefinedKind = errors.New("protocol: undefined packet kind")
	ErrUnsetField    = errors.New("protocol: field is unset")
	ErrUnknownField  = errors.New("protocol: unknown field")
	ErrCountMismatch = errors.New("protocol: count does not match element count")
	ErrMissingCount  = errors.New("protocol: count-chained field has no preceding count")
	ErrCodecLayout   = errors.New("protocol: codec layout does not match definition")

	ErrTruncated      = wire.ErrTruncated
	ErrUnknownTypeTag = wire.ErrUnknownTypeTag
	ErrValueMismatch  = wire.ErrValueMismatch
	ErrValueRange     = wire.ErrValueRange
)
