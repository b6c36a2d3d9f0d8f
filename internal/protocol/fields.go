package protocol

// NewLiteral creates a literal packet.
func NewLiteral(version uint8, value uint64) *Packet {
	return &Packet{Version: version, Kind: KindLiteral, Value: value}
}

// NewOperator creates an operator packet over children.
func NewOperator(version uint8, op Operator, children ...*Packet) *Packet {
	return &Packet{Version: version, Kind: KindOperator, Op: op, Children: children}
}

// Walk visits p and its descendants depth-first, parents before children.
// Returning false from fn skips the children of the visited packet.
func (p *Packet) Walk(fn func(depth int, pkt *Packet) bool) {
	p.walk(0, fn)
}

func (p *Packet) walk(depth int, fn func(int, *Packet) bool) {
	if p == nil || !fn(depth, p) {
		return
	}
	for _, child := range p.Children {
		child.walk(depth+1, fn)
	}
}

// Count returns the number of packets in the tree rooted at p.
func (p *Packet) Count() int {
	n := 0
	p.Walk(func(int, *Packet) bool {
		n++
		return true
	})
	return n
}
