package solver

import (
	"math"

	"github.com/hammamikhairi/potionbrew/internal/milp"
)

const (
	// rowTolerance is the slack allowed when a row's activity range is
	// compared with its bounds.
	rowTolerance = 1e-9
	// propagationPasses caps the sweeps over all rows per node.
	propagationPasses = 20
)

// rangeRow is lo <= sum(terms) <= hi, the form every constraint sense
// takes during the search.
type rangeRow struct {
	terms  []milp.Term
	lo, hi float64
}

func rangeRows(p *milp.Program) []rangeRow {
	cons := p.Constraints()
	rows := make([]rangeRow, 0, len(cons))
	for _, c := range cons {
		r := rangeRow{terms: c.Terms, lo: math.Inf(-1), hi: math.Inf(1)}
		switch c.Sense {
		case milp.LE:
			r.hi = c.RHS
		case milp.GE:
			r.lo = c.RHS
		default:
			r.lo, r.hi = c.RHS, c.RHS
		}
		rows = append(rows, r)
	}
	return rows
}

// activity bounds sum(terms) over the box [lo, hi]. The counts report how
// many terms make each end infinite.
func activity(terms []milp.Term, lo, hi []float64) (minA, maxA float64, minInf, maxInf int) {
	for _, t := range terms {
		l, u := lo[t.Var], hi[t.Var]
		if t.Coef < 0 {
			l, u = u, l
		}
		if math.IsInf(l, 0) {
			minInf++
		} else {
			minA += t.Coef * l
		}
		if math.IsInf(u, 0) {
			maxInf++
		} else {
			maxA += t.Coef * u
		}
	}
	return minA, maxA, minInf, maxInf
}

// sides reports which ends of a row can never bind inside the box.
func (r rangeRow) sides(lo, hi []float64) (loSlack, hiSlack bool) {
	minA, maxA, minInf, maxInf := activity(r.terms, lo, hi)
	loSlack = math.IsInf(r.lo, -1) || (minInf == 0 && minA >= r.lo-rowTolerance)
	hiSlack = math.IsInf(r.hi, 1) || (maxInf == 0 && maxA <= r.hi+rowTolerance)
	return loSlack, hiSlack
}

// propagate tightens the bounds of integer variables from the rows until
// nothing changes, and reports false when some row cannot be met inside
// the box. Continuous bounds are only read. Activities are computed once
// per row and reused while its variables tighten, which only loosens the
// derived bounds.
func propagate(rows []rangeRow, vars []milp.Variable, lo, hi []float64) bool {
	for pass := 0; pass < propagationPasses; pass++ {
		changed := false
		for _, r := range rows {
			minA, maxA, minInf, maxInf := activity(r.terms, lo, hi)
			if minInf == 0 && minA > r.hi+rowTolerance*(1+math.Abs(r.hi)) {
				return false
			}
			if maxInf == 0 && maxA < r.lo-rowTolerance*(1+math.Abs(r.lo)) {
				return false
			}

			for _, t := range r.terms {
				k := t.Var
				if !vars[k].Integral() || hi[k]-lo[k] < 0.5 {
					continue
				}
				newLo, newHi := lo[k], hi[k]
				if !math.IsInf(r.hi, 1) && minInf == 0 {
					if t.Coef > 0 {
						newHi = math.Min(newHi, math.Floor((r.hi-minA)/t.Coef+lo[k]+intTolerance))
					} else {
						newLo = math.Max(newLo, math.Ceil((r.hi-minA)/t.Coef+hi[k]-intTolerance))
					}
				}
				if !math.IsInf(r.lo, -1) && maxInf == 0 {
					if t.Coef > 0 {
						newLo = math.Max(newLo, math.Ceil((r.lo-maxA)/t.Coef+hi[k]-intTolerance))
					} else {
						newHi = math.Min(newHi, math.Floor((r.lo-maxA)/t.Coef+lo[k]+intTolerance))
					}
				}
				if newLo > newHi {
					return false
				}
				if newLo > lo[k] || newHi < hi[k] {
					lo[k], hi[k] = newLo, newHi
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}
	return true
}
