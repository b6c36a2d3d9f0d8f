package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/bitsctl/internal/protocol/bits"
	"github.com/danmuck/bitsctl/internal/testutil/bitstest"
	"github.com/danmuck/bitsctl/internal/testutil/testlog"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var ignorePosition = cmpopts.IgnoreFields(Packet{}, "Offset", "Bits")

func lit(version uint8, value uint64) *Packet { return NewLiteral(version, value) }

func TestDecodeReferenceTrees(t *testing.T) {
	testlog.Start(t)

	cases := []struct {
		hex  string
		want *Packet
	}{
		{"D2FE28", lit(6, 2021)},
		{"38006F45291200", NewOperator(1, OpLessThan, lit(6, 10), lit(2, 20))},
		{"EE00D40C823060", NewOperator(7, OpMax, lit(2, 1), lit(4, 2), lit(1, 3))},
		{"8A004A801A8002F478", NewOperator(4, OpMin,
			NewOperator(1, OpMin,
				NewOperator(5, OpMin, lit(6, 15))))},
		{"620080001611562C8802118E34", NewOperator(3, OpSum,
			NewOperator(0, OpSum, lit(0, 10), lit(5, 11)),
			NewOperator(1, OpSum, lit(0, 12), lit(3, 13)))},
		{"C0015000016115A2E0802F182340", NewOperator(6, OpSum,
			NewOperator(0, OpSum, lit(0, 10), lit(6, 11)),
			NewOperator(4, OpSum, lit(7, 12), lit(0, 13)))},
		{"A0016C880162017C3686B18A3D4780", NewOperator(5, OpSum,
			NewOperator(1, OpSum,
				NewOperator(3, OpSum, lit(7, 6), lit(6, 6), lit(5, 12), lit(2, 15), lit(2, 15))))},
	}
	for _, tc := range cases {
		got, err := DecodeHex(tc.hex)
		if err != nil {
			t.Fatalf("decode %s: %v", tc.hex, err)
		}
		if diff := cmp.Diff(tc.want, got, ignorePosition); diff != "" {
			t.Fatalf("decode %s mismatch (-want +got):\n%s", tc.hex, diff)
		}
		if err := Validate(got); err != nil {
			t.Fatalf("validate %s: %v", tc.hex, err)
		}
	}
}

func TestDecodeRecordsPositions(t *testing.T) {
	testlog.Start(t)

	p, err := DecodeHex("38006F45291200")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	// header 6 + length type 1 + length 15, then literals of 11 and 16 bits
	if p.Offset != 0 || p.Bits != 49 {
		t.Fatalf("root position: offset=%d bits=%d", p.Offset, p.Bits)
	}
	if p.Children[0].Offset != 22 || p.Children[0].Bits != 11 {
		t.Fatalf("first child position: offset=%d bits=%d", p.Children[0].Offset, p.Children[0].Bits)
	}
	if p.Children[1].Offset != 33 || p.Children[1].Bits != 16 {
		t.Fatalf("second child position: offset=%d bits=%d", p.Children[1].Offset, p.Children[1].Bits)
	}
}

func TestDecodeLiteralIndependentOfGroupCount(t *testing.T) {
	testlog.Start(t)

	values := []uint64{0, 1, 15, 16, 2021, 0xFFFF_FFFF, 1 << 63, ^uint64(0)}
	for _, v := range values {
		for extra := 0; extra < 4; extra++ {
			w := bitstest.Encode(bitstest.Lit(3, v).Padded(17 + extra))
			p, err := Decode(w.Bytes())
			if err != nil {
				t.Fatalf("decode %d padded with %d groups: %v", v, 17+extra, err)
			}
			if p.Kind != KindLiteral || p.Value != v || p.Version != 3 {
				t.Fatalf("decoded %+v, want literal v3 = %d", p, v)
			}
		}
		w := bitstest.Encode(bitstest.Lit(3, v))
		p, err := Decode(w.Bytes())
		if err != nil || p.Value != v {
			t.Fatalf("minimal groups for %d: value=%v err=%v", v, p, err)
		}
	}
}

func TestDecodeSingleGroupLiteral(t *testing.T) {
	testlog.Start(t)

	// 010 100 0 0111 -> v2 literal 7, single group
	w := &bitstest.Writer{}
	w.WriteBits(0b010, 3)
	w.WriteBits(0b100, 3)
	w.WriteBits(0b00111, 5)
	p, err := Decode(w.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Value != 7 || p.Version != 2 || p.Bits != 11 {
		t.Fatalf("unexpected packet: %+v", p)
	}
}

func TestDecodeLiteralOverflow(t *testing.T) {
	testlog.Start(t)

	w := &bitstest.Writer{}
	w.WriteBits(0, 3)
	w.WriteBits(4, 3)
	for i := 0; i < 16; i++ {
		w.WriteBits(0b11111, 5)
	}
	w.WriteBits(0b00001, 5)
	_, err := Decode(w.Bytes())
	if !errors.Is(err, ErrLiteralOverflow) {
		t.Fatalf("expected ErrLiteralOverflow, got %v", err)
	}
}

func TestDecodeTotalBitsFramingExact(t *testing.T) {
	testlog.Start(t)

	node := bitstest.Op(1, 0, bitstest.Lit(2, 5), bitstest.Op(3, 1, bitstest.Lit(4, 6)).Counted(), bitstest.Lit(5, 7))
	p, err := Decode(bitstest.Encode(node).Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	declared := p.Bits - (HeaderBits + 1 + totalLengthBits)
	consumed := 0
	for _, child := range p.Children {
		consumed += child.Bits
	}
	if consumed != declared {
		t.Fatalf("children consumed %d bits, frame declared %d", consumed, declared)
	}
	want := NewOperator(1, OpSum, lit(2, 5), NewOperator(3, OpProduct, lit(4, 6)), lit(5, 7))
	if diff := cmp.Diff(want, p, ignorePosition); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeTotalBitsFramingSkew(t *testing.T) {
	testlog.Start(t)

	children := []bitstest.Node{bitstest.Lit(6, 10), bitstest.Lit(2, 20)}
	for _, skew := range []int{-1, 1} {
		w := bitstest.Encode(bitstest.Op(1, 6, children...).Skewed(skew))
		_, err := Decode(w.Bytes())
		if !errors.Is(err, ErrFramingMismatch) {
			t.Fatalf("skew %+d: expected ErrFramingMismatch, got %v", skew, err)
		}
	}

	// a skewed frame nested inside a well-formed one is confined to its window
	inner := bitstest.Op(0, 0, bitstest.Lit(1, 1)).Skewed(1)
	w := bitstest.Encode(bitstest.Op(0, 0, inner, bitstest.Lit(1, 2)))
	_, err := Decode(w.Bytes())
	if !errors.Is(err, ErrFramingMismatch) {
		t.Fatalf("nested skew: expected ErrFramingMismatch, got %v", err)
	}
}

func TestDecodeTotalBitsPastBufferEnd(t *testing.T) {
	testlog.Start(t)

	w := &bitstest.Writer{}
	w.WriteBits(0, 3)
	w.WriteBits(0, 3)
	w.WriteBits(0, 1)
	w.WriteBits(500, 15)
	bitstest.Lit(0, 1).AppendTo(w)
	_, err := Decode(w.Bytes())
	if !errors.Is(err, ErrFramingMismatch) {
		t.Fatalf("expected ErrFramingMismatch, got %v", err)
	}
	var decErr *DecodeError
	if !errors.As(err, &decErr) || decErr.Offset != 0 {
		t.Fatalf("expected DecodeError at bit 0, got %v", err)
	}
}

func TestDecodePacketCountZero(t *testing.T) {
	testlog.Start(t)

	w := bitstest.Encode(bitstest.Op(2, 0).Counted())
	p, err := Decode(w.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Kind != KindOperator || p.Op != OpSum || len(p.Children) != 0 {
		t.Fatalf("unexpected packet: %+v", p)
	}
	if p.Bits != HeaderBits+1+packetCountBits {
		t.Fatalf("zero-count operator consumed %d bits", p.Bits)
	}
}

func TestDecodeTotalBitsZeroLength(t *testing.T) {
	testlog.Start(t)

	w := bitstest.Encode(bitstest.Op(0, 0))
	p, err := Decode(w.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := p.String(); got != "(sum)" {
		t.Fatalf("expression=%q want (sum)", got)
	}
	if len(p.Children) != 0 {
		t.Fatalf("expected no children, got %d", len(p.Children))
	}
	if p.Bits != 22 {
		t.Fatalf("zero-length operator consumed %d bits, want 22", p.Bits)
	}

	// an empty operator inside a total-bits frame leaves room for its sibling
	nested := bitstest.Encode(bitstest.Op(1, 0, bitstest.Op(2, 0), bitstest.Lit(3, 9)))
	p, err = Decode(nested.Bytes())
	if err != nil {
		t.Fatalf("decode nested: %v", err)
	}
	want := NewOperator(1, OpSum, NewOperator(2, OpSum), lit(3, 9))
	if diff := cmp.Diff(want, p, ignorePosition, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("nested tree mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodePacketCountOutOfBits(t *testing.T) {
	testlog.Start(t)

	w := bitstest.Encode(bitstest.Op(0, 1, bitstest.Lit(0, 3)).Counted().Skewed(1))
	_, err := Decode(w.Bytes())
	if !errors.Is(err, ErrOutOfBits) {
		t.Fatalf("expected ErrOutOfBits, got %v", err)
	}
	if !errors.Is(err, bits.ErrOutOfBits) {
		t.Fatalf("expected cursor cause in chain, got %v", err)
	}
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected DecodeError, got %T", err)
	}
	if decErr.Offset == 0 {
		t.Fatalf("expected failure offset inside the frame")
	}
}

func TestDecodeTruncatedInput(t *testing.T) {
	testlog.Start(t)

	for _, buf := range [][]byte{nil, {}} {
		_, err := Decode(buf)
		if !errors.Is(err, ErrTruncatedInput) {
			t.Fatalf("expected ErrTruncatedInput for %v, got %v", buf, err)
		}
	}
	// header fits, body does not
	_, err := Decode([]byte{0xD2})
	if !errors.Is(err, ErrOutOfBits) {
		t.Fatalf("expected ErrOutOfBits for truncated body, got %v", err)
	}
}

func TestDecodeComparisonArity(t *testing.T) {
	testlog.Start(t)

	cases := map[string]bitstest.Node{
		"eq with three":  bitstest.Op(0, 7, bitstest.Lit(0, 1), bitstest.Lit(0, 1), bitstest.Lit(0, 1)).Counted(),
		"gt with zero":   bitstest.Op(0, 5).Counted(),
		"lt with one":    bitstest.Op(0, 6, bitstest.Lit(0, 1)),
		"eq empty frame": bitstest.Op(0, 7),
	}
	for name, node := range cases {
		_, err := Decode(bitstest.Encode(node).Bytes())
		if !errors.Is(err, ErrArity) {
			t.Fatalf("%s: expected ErrArity, got %v", name, err)
		}
	}
}

func TestParseOperator(t *testing.T) {
	testlog.Start(t)

	for id, want := range map[uint8]Operator{0: OpSum, 1: OpProduct, 2: OpMin, 3: OpMax, 5: OpGreaterThan, 6: OpLessThan, 7: OpEqual} {
		got, err := ParseOperator(id)
		if err != nil || got != want {
			t.Fatalf("type id %d: got=%v err=%v", id, got, err)
		}
	}
	for _, id := range []uint8{4, 8, 255} {
		if _, err := ParseOperator(id); !errors.Is(err, ErrInvalidOperator) {
			t.Fatalf("type id %d: expected ErrInvalidOperator, got %v", id, err)
		}
	}
}

func TestDecodeLimits(t *testing.T) {
	testlog.Start(t)

	w := bitstest.Encode(bitstest.Op(0, 2, bitstest.Op(0, 2, bitstest.Op(0, 2, bitstest.Lit(0, 1)))))
	if _, err := NewDecoder(Limits{MaxDepth: 4}).Decode(w.Bytes()); err != nil {
		t.Fatalf("depth 4 within limit: %v", err)
	}
	if _, err := NewDecoder(Limits{MaxDepth: 3}).Decode(w.Bytes()); !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded for depth, got %v", err)
	}
	if _, err := NewDecoder(Limits{MaxPackets: 3}).Decode(w.Bytes()); !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded for packet count, got %v", err)
	}
	if _, err := NewDecoder(Limits{}).Decode(w.Bytes()); err != nil {
		t.Fatalf("zero limits: %v", err)
	}
}

func TestParseHex(t *testing.T) {
	testlog.Start(t)

	buf, err := ParseHex("  d2fe28\n")
	if err != nil || !bytes.Equal(buf, []byte{0xD2, 0xFE, 0x28}) {
		t.Fatalf("parse hex: %x %v", buf, err)
	}
	for _, bad := range []string{"D2F", "ZZ"} {
		if _, err := ParseHex(bad); !errors.Is(err, ErrInvalidHex) {
			t.Fatalf("%q: expected ErrInvalidHex, got %v", bad, err)
		}
	}
}

func TestValidateRejectsHandBuiltShapes(t *testing.T) {
	testlog.Start(t)

	cases := []*Packet{
		nil,
		NewOperator(0, OpEqual, lit(0, 1)),
		NewOperator(0, Operator(4), lit(0, 1)),
		{Version: 9, Kind: KindLiteral},
		NewOperator(0, OpSum, lit(0, 1), nil),
	}
	for i, p := range cases {
		var structErr StructureError
		if err := Validate(p); !errors.As(err, &structErr) {
			t.Fatalf("case %d: expected StructureError, got %v", i, err)
		}
	}
}

func TestFormatAndString(t *testing.T) {
	testlog.Start(t)

	p, err := DecodeHex("38006F45291200")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := p.String(); got != "(lt 10 20)" {
		t.Fatalf("unexpected expression: %q", got)
	}
	var buf bytes.Buffer
	if err := Format(&buf, p); err != nil {
		t.Fatalf("format: %v", err)
	}
	want := strings.Join([]string{
		"lt v1 @0+49 [2]",
		"  literal v6 @22+11 = 10",
		"  literal v2 @33+16 = 20",
		"",
	}, "\n")
	if buf.String() != want {
		t.Fatalf("unexpected tree:\n%s", buf.String())
	}
	if p.Count() != 3 {
		t.Fatalf("unexpected count: %d", p.Count())
	}
}

func TestMarshalJSON(t *testing.T) {
	testlog.Start(t)

	p, err := DecodeHex("D2FE28")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"version":6,"type":"literal","value":2021,"offset":0,"bits":21}`
	if string(raw) != want {
		t.Fatalf("unexpected json: %s", raw)
	}
}
