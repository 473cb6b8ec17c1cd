package engine

import (
	"fmt"

	"github.com/roach88/logicsim/internal/ir"
	"github.com/roach88/logicsim/internal/link"
)

// eval computes e against the current signal values.
func (s *Simulation) eval(e link.Expr) (ir.Value, error) {
	switch x := e.(type) {
	case *link.Read:
		return s.values[x.ID], nil
	case *link.Lit:
		return x.Value, nil
	case *link.Op:
		args := make([]ir.Value, len(x.Args))
		for i, a := range x.Args {
			v, err := s.eval(a)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return ir.Apply(x.Op, x.At, args...)
	default:
		return nil, fmt.Errorf("engine: unexpected expression %T", e)
	}
}
