package protocol

import (
	"errors"
	"fmt"

	"github.com/danmuck/bitsctl/internal/protocol/bits"
)

// Limits constrains decoder recursion and tree size. Zero disables a limit.
type Limits struct {
	MaxDepth   int
	MaxPackets int
}

func DefaultLimits() Limits {
	return Limits{
		MaxDepth:   1024,
		MaxPackets: 1 << 20,
	}
}

// Decoder decodes BITS transmissions under fixed limits. A Decoder holds no
// per-call state and may be shared.
type Decoder struct {
	limits Limits
}

func NewDecoder(limits Limits) *Decoder {
	return &Decoder{limits: limits}
}

// Decode parses the outermost packet of buf using DefaultLimits.
// Trailing bits after the packet are padding and are ignored.
func Decode(buf []byte) (*Packet, error) {
	return NewDecoder(DefaultLimits()).Decode(buf)
}

// Decode parses the outermost packet of buf.
func (d *Decoder) Decode(buf []byte) (*Packet, error) {
	s := &parser{cur: bits.New(buf), limits: d.limits}
	return s.packet(0)
}

// parser carries the cursor through one decode call.
type parser struct {
	cur     *bits.Cursor
	limits  Limits
	packets int
}

func (s *parser) packet(depth int) (*Packet, error) {
	offset := s.cur.Offset()
	start := s.cur.Checkpoint()

	if s.limits.MaxDepth > 0 && depth >= s.limits.MaxDepth {
		return nil, s.fail(offset, fmt.Errorf("%w: depth %d", ErrLimitExceeded, depth))
	}
	s.packets++
	if s.limits.MaxPackets > 0 && s.packets > s.limits.MaxPackets {
		return nil, s.fail(offset, fmt.Errorf("%w: more than %d packets", ErrLimitExceeded, s.limits.MaxPackets))
	}

	version, typeID, err := s.header()
	if err != nil {
		if depth == 0 {
			err = fmt.Errorf("%w: %w", ErrTruncatedInput, err)
		}
		return nil, s.fail(offset, err)
	}

	p := &Packet{Version: version, Offset: offset}
	if typeID == TypeLiteral {
		p.Kind = KindLiteral
		p.Value, err = s.literal()
	} else {
		p.Kind = KindOperator
		p.Op, err = ParseOperator(typeID)
		if err == nil {
			p.Children, err = s.operands(depth)
		}
		if err == nil && p.Op.Comparison() && len(p.Children) != 2 {
			err = fmt.Errorf("%w: %s with %d operands", ErrArity, p.Op, len(p.Children))
		}
	}
	if err != nil {
		return nil, s.fail(offset, err)
	}

	p.Bits = s.cur.ConsumedSince(start)
	return p, nil
}

func (s *parser) header() (uint8, uint8, error) {
	version, err := s.cur.ReadBits(versionBits)
	if err != nil {
		return 0, 0, err
	}
	typeID, err := s.cur.ReadBits(typeIDBits)
	if err != nil {
		return 0, 0, err
	}
	return uint8(version), uint8(typeID), nil
}

// literal reads continuation-flagged nibble groups, most significant first.
func (s *parser) literal() (uint64, error) {
	var v uint64
	for {
		group, err := s.cur.ReadBits(groupBits)
		if err != nil {
			return 0, err
		}
		if v>>(64-nibbleBits) != 0 {
			return 0, ErrLiteralOverflow
		}
		v = v<<nibbleBits | group&0x0F
		if group&0x10 == 0 {
			return v, nil
		}
	}
}

func (s *parser) operands(depth int) ([]*Packet, error) {
	// A clear length-type bit selects total-bits framing, a set one packet-count framing.
	counted, err := s.cur.ReadBit()
	if err != nil {
		return nil, err
	}
	if !counted {
		total, err := s.cur.ReadBits(totalLengthBits)
		if err != nil {
			return nil, err
		}
		return s.byLength(int(total), depth)
	}
	count, err := s.cur.ReadBits(packetCountBits)
	if err != nil {
		return nil, err
	}
	return s.byCount(int(count), depth)
}

// byLength parses sub-packets until exactly total bits are consumed. Reads
// are confined to a cursor window so a sub-packet can never run past the
// declared length.
func (s *parser) byLength(total, depth int) ([]*Packet, error) {
	win, err := s.cur.Narrow(total)
	if err != nil {
		return nil, fmt.Errorf("%w: declared %d bits, %d available: %w",
			ErrFramingMismatch, total, s.cur.Remaining(), err)
	}
	defer s.cur.Restore(win)

	start := s.cur.Checkpoint()
	var children []*Packet
	for s.cur.ConsumedSince(start) < total {
		child, err := s.packet(depth + 1)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

func (s *parser) byCount(count, depth int) ([]*Packet, error) {
	var children []*Packet
	for i := 0; i < count; i++ {
		child, err := s.packet(depth + 1)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

// fail attaches the packet offset to err once, at the innermost packet, and
// maps cursor errors onto the protocol error kinds.
func (s *parser) fail(offset int, err error) error {
	var decErr *DecodeError
	if errors.As(err, &decErr) {
		return err
	}
	return &DecodeError{Offset: offset, Err: classify(err)}
}

func classify(err error) error {
	switch {
	case errors.Is(err, ErrTruncatedInput),
		errors.Is(err, ErrFramingMismatch),
		errors.Is(err, ErrInvalidOperator),
		errors.Is(err, ErrLiteralOverflow),
		errors.Is(err, ErrArity),
		errors.Is(err, ErrLimitExceeded):
		return err
	case errors.Is(err, bits.ErrWindowExceeded):
		return fmt.Errorf("%w: sub-packet runs past declared length: %w", ErrFramingMismatch, err)
	case errors.Is(err, bits.ErrOutOfBits):
		return fmt.Errorf("%w: %w", ErrOutOfBits, err)
	default:
		return err
	}
}
