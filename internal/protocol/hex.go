package protocol

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// ParseHex converts a hex transmission into its raw bytes. Surrounding
// whitespace, including a trailing newline, is ignored.
func ParseHex(s string) ([]byte, error) {
	buf, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHex, err)
	}
	return buf, nil
}

// DecodeHex parses a hex transmission and decodes its outermost packet.
func DecodeHex(s string) (*Packet, error) {
	buf, err := ParseHex(s)
	if err != nil {
		return nil, err
	}
	return Decode(buf)
}
