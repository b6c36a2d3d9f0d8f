package protocol

import "fmt"

// Wire field widths, in bits.
const (
	versionBits     = 3
	typeIDBits      = 3
	HeaderBits      = versionBits + typeIDBits
	groupBits       = 5
	nibbleBits      = 4
	totalLengthBits = 15
	packetCountBits = 11
)

// TypeLiteral is the type-id reserved for literal packets.
const TypeLiteral uint8 = 4

// Kind discriminates the packet body.
type Kind uint8

const (
	KindLiteral Kind = iota + 1
	KindOperator
)

func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindOperator:
		return "operator"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Operator is an operator packet's code. Values equal the wire type-id.
type Operator uint8

const (
	OpSum         Operator = 0
	OpProduct     Operator = 1
	OpMin         Operator = 2
	OpMax         Operator = 3
	OpGreaterThan Operator = 5
	OpLessThan    Operator = 6
	OpEqual       Operator = 7
)

var operatorNames = map[Operator]string{
	OpSum:         "sum",
	OpProduct:     "product",
	OpMin:         "min",
	OpMax:         "max",
	OpGreaterThan: "gt",
	OpLessThan:    "lt",
	OpEqual:       "eq",
}

// ParseOperator maps a header type-id to its operator.
func ParseOperator(typeID uint8) (Operator, error) {
	op := Operator(typeID)
	if _, ok := operatorNames[op]; !ok {
		return 0, fmt.Errorf("%w: type id %d", ErrInvalidOperator, typeID)
	}
	return op, nil
}

func (o Operator) String() string {
	if name, ok := operatorNames[o]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", uint8(o))
}

// Valid reports whether o is one of the seven known operators.
func (o Operator) Valid() bool {
	_, ok := operatorNames[o]
	return ok
}

// Comparison reports whether o takes exactly two operands and yields 0 or 1.
func (o Operator) Comparison() bool {
	return o == OpGreaterThan || o == OpLessThan || o == OpEqual
}

// Packet is one decoded BITS packet. Literal packets use Value; operator
// packets use Op and Children. A packet owns its children exclusively.
type Packet struct {
	Version  uint8
	Kind     Kind
	Value    uint64
	Op       Operator
	Children []*Packet

	// Offset and Bits locate the packet inside the transmission. They are
	// zero for packets built by hand.
	Offset int
	Bits   int
}
