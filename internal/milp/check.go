package milp

import (
	"fmt"
	"math"
)

// Violation describes one way an assignment breaks a program.
type Violation struct {
	Name   string
	Reason string
	Amount float64
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s (by %.6g)", v.Name, v.Reason, v.Amount)
}

// Check lists every bound, integrality and constraint violated by values
// beyond tol. An empty result means the assignment is feasible.
func (p *Program) Check(values []float64, tol float64) []Violation {
	if len(values) != len(p.vars) {
		return []Violation{{
			Name:   p.name,
			Reason: fmt.Sprintf("assignment has %d values for %d variables", len(values), len(p.vars)),
		}}
	}

	var out []Violation
	for i, v := range p.vars {
		x := values[i]
		if x < v.Lower-tol {
			out = append(out, Violation{v.Name, "below lower bound", v.Lower - x})
		}
		if x > v.Upper+tol {
			out = append(out, Violation{v.Name, "above upper bound", x - v.Upper})
		}
		if v.Integral() {
			if d := math.Abs(x - math.Round(x)); d > tol {
				out = append(out, Violation{v.Name, "not integral", d})
			}
		}
	}

	for _, c := range p.cons {
		lhs := 0.0
		for _, t := range c.Terms {
			lhs += t.Coef * values[t.Var]
		}
		switch c.Sense {
		case LE:
			if lhs > c.RHS+tol {
				out = append(out, Violation{c.Name, "<= violated", lhs - c.RHS})
			}
		case GE:
			if lhs < c.RHS-tol {
				out = append(out, Violation{c.Name, ">= violated", c.RHS - lhs})
			}
		case EQ:
			if d := math.Abs(lhs - c.RHS); d > tol {
				out = append(out, Violation{c.Name, "= violated", d})
			}
		}
	}
	return out
}
