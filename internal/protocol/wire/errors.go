package wire

import (
	"errors"
	"fmt"
)

var (
	ErrTruncated      = errors.New("wire: truncated buffer")
	ErrUnknownTypeTag = errors.New("wire: unknown type tag")
	ErrInvalidCount   = errors.New("wire: invalid count")
	ErrValueMismatch  = errors.New("wire: value does not match type tag")
	ErrStringTooLong  = errors.New("wire: string too long")
	ErrDuplicateTag   = errors.New("wire: duplicate type tag")

	// ErrValueRange is a value whose payload does not fit its declared width.
	ErrValueRange = fmt.Errorf("%w: payload out of range", ErrValueMismatch)
)
