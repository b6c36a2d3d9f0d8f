package protocol

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// String renders p as an expression, e.g. "(lt 10 20)".
func (p *Packet) String() string {
	var b strings.Builder
	p.writeExpr(&b)
	return b.String()
}

func (p *Packet) writeExpr(b *strings.Builder) {
	switch {
	case p == nil:
		b.WriteString("<nil>")
	case p.Kind == KindLiteral:
		b.WriteString(strconv.FormatUint(p.Value, 10))
	default:
		b.WriteByte('(')
		b.WriteString(p.Op.String())
		for _, child := range p.Children {
			b.WriteByte(' ')
			child.writeExpr(b)
		}
		b.WriteByte(')')
	}
}

// Format writes an indented tree of p with versions and bit positions.
func Format(w io.Writer, p *Packet) error {
	var err error
	p.Walk(func(depth int, pkt *Packet) bool {
		if err != nil {
			return false
		}
		indent := strings.Repeat("  ", depth)
		if pkt.Kind == KindLiteral {
			_, err = fmt.Fprintf(w, "%sliteral v%d @%d+%d = %d\n",
				indent, pkt.Version, pkt.Offset, pkt.Bits, pkt.Value)
		} else {
			_, err = fmt.Fprintf(w, "%s%s v%d @%d+%d [%d]\n",
				indent, pkt.Op, pkt.Version, pkt.Offset, pkt.Bits, len(pkt.Children))
		}
		return err == nil
	})
	return err
}

type packetJSON struct {
	Version  uint8     `json:"version"`
	Type     string    `json:"type"`
	Value    *uint64   `json:"value,omitempty"`
	Op       string    `json:"op,omitempty"`
	Offset   int       `json:"offset"`
	Bits     int       `json:"bits"`
	Children []*Packet `json:"children,omitempty"`
}

// MarshalJSON encodes the tagged body explicitly so literals and operators
// stay distinguishable.
func (p *Packet) MarshalJSON() ([]byte, error) {
	out := packetJSON{
		Version: p.Version,
		Type:    p.Kind.String(),
		Offset:  p.Offset,
		Bits:    p.Bits,
	}
	if p.Kind == KindLiteral {
		v := p.Value
		out.Value = &v
	} else {
		out.Op = p.Op.String()
		out.Children = p.Children
	}
	return json.Marshal(out)
}
