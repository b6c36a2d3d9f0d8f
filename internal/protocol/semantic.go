package protocol

import "fmt"

// StructureError indicates a packet tree violates a shape invariant.
type StructureError struct {
	Path   []int
	Reason string
}

func (e StructureError) Error() string {
	return fmt.Sprintf("protocol: invalid packet at %v: %s", e.Path, e.Reason)
}

// Validate checks the shape invariants a decoded tree always satisfies.
// Trees assembled by hand should pass Validate before evaluation.
func Validate(p *Packet) error {
	return validate(p, nil)
}

func validate(p *Packet, path []int) error {
	if p == nil {
		return StructureError{Path: path, Reason: "nil packet"}
	}
	if p.Version > 7 {
		return StructureError{Path: path, Reason: fmt.Sprintf("version %d exceeds 3 bits", p.Version)}
	}
	switch p.Kind {
	case KindLiteral:
		if len(p.Children) != 0 {
			return StructureError{Path: path, Reason: "literal with children"}
		}
		return nil
	case KindOperator:
		if !p.Op.Valid() {
			return StructureError{Path: path, Reason: fmt.Sprintf("unknown operator %d", uint8(p.Op))}
		}
		if p.Op.Comparison() && len(p.Children) != 2 {
			return StructureError{
				Path:   path,
				Reason: fmt.Sprintf("%s needs 2 operands, has %d", p.Op, len(p.Children)),
			}
		}
		for i, child := range p.Children {
			if err := validate(child, append(path[:len(path):len(path)], i)); err != nil {
				return err
			}
		}
		return nil
	default:
		return StructureError{Path: path, Reason: fmt.Sprintf("unknown kind %s", p.Kind)}
	}
}
