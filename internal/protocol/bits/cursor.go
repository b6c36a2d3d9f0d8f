// Package bits provides a read-only, bit-granular cursor over a byte slice.
//
// Bit order is big-endian within each byte: offset 0 is the most significant
// bit of the first byte.
package bits

import "errors"

// MaxWidth is the widest single read ReadBits supports.
const MaxWidth = 64

var (
	ErrOutOfBits      = errors.New("bits: out of bits")
	ErrWindowExceeded = errors.New("bits: read past window")
	ErrBitWidth       = errors.New("bits: invalid read width")
)

// Checkpoint is an opaque cursor position.
type Checkpoint int

// Cursor reads bits from a borrowed buffer. The buffer is never modified.
type Cursor struct {
	buf     []byte
	off     int
	end     int
	windows int
}

// Window is the saved outer bound returned by Narrow.
type Window struct {
	end int
}

func New(buf []byte) *Cursor {
	return &Cursor{buf: buf, end: len(buf) * 8}
}

// Offset returns the current bit offset.
func (c *Cursor) Offset() int { return c.off }

// Len returns the total number of bits in the buffer.
func (c *Cursor) Len() int { return len(c.buf) * 8 }

// Remaining returns the bits left before the active window ends.
func (c *Cursor) Remaining() int { return c.end - c.off }

func (c *Cursor) Checkpoint() Checkpoint { return Checkpoint(c.off) }

// ConsumedSince reports how many bits were read after cp was taken.
func (c *Cursor) ConsumedSince(cp Checkpoint) int { return c.off - int(cp) }

// ReadBits reads the next n bits as an unsigned integer, MSB first.
// The offset is left untouched when the read fails.
func (c *Cursor) ReadBits(n int) (uint64, error) {
	if n < 0 || n > MaxWidth {
		return 0, ErrBitWidth
	}
	if err := c.check(n); err != nil {
		return 0, err
	}

	var v uint64
	off := c.off
	for n > 0 {
		idx := off >> 3
		used := off & 7
		take := 8 - used
		if take > n {
			take = n
		}
		chunk := uint64(c.buf[idx]>>(8-used-take)) & (1<<take - 1)
		v = v<<take | chunk
		off += take
		n -= take
	}
	c.off = off
	return v, nil
}

// ReadBit reads a single flag bit.
func (c *Cursor) ReadBit() (bool, error) {
	v, err := c.ReadBits(1)
	return v == 1, err
}

// Narrow restricts reads to the next n bits until the returned Window is
// passed to Restore. Narrowing past an active window fails with
// ErrWindowExceeded, or ErrOutOfBits when the buffer itself is too short.
func (c *Cursor) Narrow(n int) (Window, error) {
	if n < 0 {
		return Window{}, ErrBitWidth
	}
	if err := c.check(n); err != nil {
		return Window{}, err
	}
	w := Window{end: c.end}
	c.end = c.off + n
	c.windows++
	return w, nil
}

// Restore reinstates the bound that was active before the matching Narrow.
func (c *Cursor) Restore(w Window) {
	if c.windows == 0 || w.end < c.end || w.end > c.Len() {
		return
	}
	c.end = w.end
	c.windows--
}

func (c *Cursor) check(n int) error {
	if n <= c.end-c.off {
		return nil
	}
	if c.windows > 0 {
		return ErrWindowExceeded
	}
	return ErrOutOfBits
}
