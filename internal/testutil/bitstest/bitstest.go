// Package bitstest builds BITS transmissions for tests.
package bitstest

import (
	"encoding/hex"
	"strings"
)

// Writer appends bits MSB first into a zero-padded byte buffer.
type Writer struct {
	buf []byte
	n   int
}

// WriteBits appends the low width bits of v.
func (w *Writer) WriteBits(v uint64, width int) {
	for i := width - 1; i >= 0; i-- {
		if w.n%8 == 0 {
			w.buf = append(w.buf, 0)
		}
		if v>>uint(i)&1 == 1 {
			w.buf[w.n/8] |= 0x80 >> uint(w.n%8)
		}
		w.n++
	}
}

// Append copies every bit written to other onto w.
func (w *Writer) Append(other *Writer) {
	for i := 0; i < other.n; i++ {
		w.WriteBits(uint64(other.buf[i/8]>>uint(7-i%8)&1), 1)
	}
}

// Len is the number of bits written.
func (w *Writer) Len() int { return w.n }

func (w *Writer) Bytes() []byte {
	out := make([]byte, len(w.buf))
	copy(out, w.buf)
	return out
}

// Hex returns the buffer as upper-case hex.
func (w *Writer) Hex() string {
	return strings.ToUpper(hex.EncodeToString(w.buf))
}

// Node describes one packet to encode.
type Node struct {
	Version uint8
	TypeID  uint8
	Value   uint64

	// Groups forces at least this many literal groups, padding with leading
	// zero nibbles.
	Groups int

	// ByCount selects packet-count framing instead of total-bits framing.
	ByCount bool
	// Skew is added to the true sub-packet length or count before it is
	// written, for building malformed frames.
	Skew int

	Children []Node
}

// Lit builds a literal node.
func Lit(version uint8, value uint64) Node {
	return Node{Version: version, TypeID: 4, Value: value}
}

// Op builds an operator node using total-bits framing.
func Op(version, typeID uint8, children ...Node) Node {
	return Node{Version: version, TypeID: typeID, Children: children}
}

// Counted switches n to packet-count framing.
func (n Node) Counted() Node {
	n.ByCount = true
	return n
}

// Skewed offsets the declared framing field of n by delta.
func (n Node) Skewed(delta int) Node {
	n.Skew = delta
	return n
}

// Padded forces at least groups literal groups.
func (n Node) Padded(groups int) Node {
	n.Groups = groups
	return n
}

// Encode writes n into a fresh Writer.
func Encode(n Node) *Writer {
	w := &Writer{}
	n.AppendTo(w)
	return w
}

// AppendTo writes n and its children onto w.
func (n Node) AppendTo(w *Writer) {
	w.WriteBits(uint64(n.Version), 3)
	w.WriteBits(uint64(n.TypeID), 3)
	if n.TypeID == 4 {
		writeLiteral(w, n.Value, n.Groups)
		return
	}

	body := &Writer{}
	for _, child := range n.Children {
		child.AppendTo(body)
	}
	if n.ByCount {
		w.WriteBits(1, 1)
		w.WriteBits(uint64(len(n.Children)+n.Skew), 11)
	} else {
		w.WriteBits(0, 1)
		w.WriteBits(uint64(body.Len()+n.Skew), 15)
	}
	w.Append(body)
}

func writeLiteral(w *Writer, v uint64, minGroups int) {
	groups := 1
	for x := v >> 4; x != 0; x >>= 4 {
		groups++
	}
	if minGroups > groups {
		groups = minGroups
	}
	for i := groups - 1; i >= 0; i-- {
		var nibble uint64
		if i < 16 {
			nibble = v >> uint(4*i) & 0x0F
		}
		more := uint64(0)
		if i > 0 {
			more = 1
		}
		w.WriteBits(more<<4|nibble, 5)
	}
}
