package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrTruncatedInput  = errors.New("protocol: truncated input")
	ErrOutOfBits       = errors.New("protocol: out of bits")
	ErrInvalidOperator = errors.New("protocol: invalid operator")
	ErrFramingMismatch = errors.New("protocol: framing mismatch")
	ErrLiteralOverflow = errors.New("protocol: literal overflows 64 bits")
	ErrArity           = errors.New("protocol: invalid operand count")
	ErrLimitExceeded   = errors.New("protocol: decode limit exceeded")
	ErrInvalidHex      = errors.New("protocol: invalid hex input")
)

// DecodeError records where in the transmission decoding failed.
type DecodeError struct {
	// Offset is the bit offset at which the failing packet began.
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%v (packet at bit %d)", e.Err, e.Offset)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
