// Package eval computes results over decoded BITS packet trees.
//
// Traversals are read-only and share no state, so one tree may be evaluated
// from several goroutines at once.
package eval

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"

	"github.com/danmuck/bitsctl/internal/protocol"
)

var (
	ErrOverflow      = errors.New("eval: arithmetic overflow")
	ErrMalformedTree = errors.New("eval: malformed packet tree")
	ErrUnknownPolicy = errors.New("eval: unknown overflow policy")
)

// Policy selects how Sum and Product treat results wider than 64 bits.
type Policy int

const (
	// Wrap computes modulo 2^64.
	Wrap Policy = iota
	// Checked fails with ErrOverflow.
	Checked
)

func (p Policy) String() string {
	switch p {
	case Wrap:
		return "wrap"
	case Checked:
		return "checked"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

func ParsePolicy(raw string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "wrap", "wrapping":
		return Wrap, nil
	case "checked", "check", "strict":
		return Checked, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, raw)
	}
}

// Evaluator evaluates operator trees under an overflow policy.
type Evaluator struct {
	Overflow Policy
}

// Result holds the version sum and value of one transmission.
type Result struct {
	VersionSum uint64 `json:"version_sum"`
	Value      uint64 `json:"value"`
}

// VersionSum adds the version of p and of every packet below it.
func VersionSum(p *protocol.Packet) uint64 {
	if p == nil {
		return 0
	}
	sum := uint64(p.Version)
	for _, child := range p.Children {
		sum += VersionSum(child)
	}
	return sum
}

// Evaluate computes the value of p with wrapping arithmetic.
func Evaluate(p *protocol.Packet) (uint64, error) {
	return Evaluator{Overflow: Wrap}.Evaluate(p)
}

// Report computes the version sum and value of p.
func (e Evaluator) Report(p *protocol.Packet) (Result, error) {
	value, err := e.Evaluate(p)
	if err != nil {
		return Result{}, err
	}
	return Result{VersionSum: VersionSum(p), Value: value}, nil
}

func (e Evaluator) Evaluate(p *protocol.Packet) (uint64, error) {
	if p == nil {
		return 0, fmt.Errorf("%w: nil packet", ErrMalformedTree)
	}
	switch p.Kind {
	case protocol.KindLiteral:
		return p.Value, nil
	case protocol.KindOperator:
	default:
		return 0, fmt.Errorf("%w: unknown kind %s", ErrMalformedTree, p.Kind)
	}

	values := make([]uint64, len(p.Children))
	for i, child := range p.Children {
		v, err := e.Evaluate(child)
		if err != nil {
			return 0, err
		}
		values[i] = v
	}

	switch p.Op {
	case protocol.OpSum:
		return e.sum(values)
	case protocol.OpProduct:
		return e.product(values)
	case protocol.OpMin:
		return fold(values, func(a, b uint64) uint64 { return min(a, b) }), nil
	case protocol.OpMax:
		return fold(values, func(a, b uint64) uint64 { return max(a, b) }), nil
	case protocol.OpGreaterThan, protocol.OpLessThan, protocol.OpEqual:
		return compare(p.Op, values)
	default:
		return 0, fmt.Errorf("%w: operator %s", ErrMalformedTree, p.Op)
	}
}

func (e Evaluator) sum(values []uint64) (uint64, error) {
	var total uint64
	for _, v := range values {
		next, carry := bits.Add64(total, v, 0)
		if carry != 0 && e.Overflow == Checked {
			return 0, fmt.Errorf("%w: sum", ErrOverflow)
		}
		total = next
	}
	return total, nil
}

func (e Evaluator) product(values []uint64) (uint64, error) {
	total := uint64(1)
	for _, v := range values {
		hi, lo := bits.Mul64(total, v)
		if hi != 0 && e.Overflow == Checked {
			return 0, fmt.Errorf("%w: product", ErrOverflow)
		}
		total = lo
	}
	return total, nil
}

// fold reduces values with f; an empty list yields 0.
func fold(values []uint64, f func(a, b uint64) uint64) uint64 {
	if len(values) == 0 {
		return 0
	}
	acc := values[0]
	for _, v := range values[1:] {
		acc = f(acc, v)
	}
	return acc
}

func compare(op protocol.Operator, values []uint64) (uint64, error) {
	if len(values) != 2 {
		return 0, fmt.Errorf("%w: %s with %d operands", ErrMalformedTree, op, len(values))
	}
	var ok bool
	switch op {
	case protocol.OpGreaterThan:
		ok = values[0] > values[1]
	case protocol.OpLessThan:
		ok = values[0] < values[1]
	default:
		ok = values[0] == values[1]
	}
	if ok {
		return 1, nil
	}
	return 0, nil
}
