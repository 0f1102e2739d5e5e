package solver

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/hammamikhairi/potionbrew/internal/milp"
)

const (
	// pivotTolerance is the smallest tableau entry accepted as a pivot.
	pivotTolerance = 1e-9
	// dualTolerance is how negative a reduced cost must be to improve.
	dualTolerance = 1e-9
	// phaseOneTolerance is the largest artificial total still treated as
	// feasible.
	phaseOneTolerance = 1e-7
	// ratioTolerance groups step lengths that tie in the ratio test.
	ratioTolerance = 1e-12
	// blandAfter is the number of consecutive degenerate steps after which
	// pricing switches to Bland's rule until the objective moves again.
	blandAfter = 50
	// refreshEvery recomputes basic values from the nonbasic ones.
	refreshEvery = 100
)

// lpRow is lo <= sum(coef[k] * x[cols[k]]) <= hi.
type lpRow struct {
	cols   []int
	coef   []float64
	lo, hi float64
}

type colState uint8

const (
	atLower colState = iota
	atUpper
	basic
)

// boundedLP is a dense tableau for minimizing c*x subject to lpRows and
// bounds on every column. Each row i gets a logical column s_i with
// a*x - s_i = 0 and lo_i <= s_i <= hi_i, so the system is homogeneous and
// basic values always follow from the nonbasic ones. Rows whose starting
// point violates their range also get an artificial column for phase one.
//
// Nonbasic columns sit at a finite bound. Rows are scaled to a largest
// coefficient of one before the tableau is built.
type boundedLP struct {
	m, n  int
	t     *mat.Dense
	d     []float64
	cost  []float64
	lb    []float64
	ub    []float64
	state []colState
	basis []int
	beta  []float64
	arts  []int
	bland bool
}

func newBoundedLP(rows []lpRow, lb, ub []float64) *boundedLP {
	m, ns := len(rows), len(lb)

	type scaled struct {
		scale, start, lo, hi float64
		fits                 bool
	}
	pre := make([]scaled, m)
	needs := 0
	for i, r := range rows {
		biggest := 0.0
		start := 0.0
		for k, j := range r.cols {
			biggest = math.Max(biggest, math.Abs(r.coef[k]))
			start += r.coef[k] * lb[j]
		}
		sc := scaled{scale: 1 / biggest}
		sc.start, sc.lo, sc.hi = start*sc.scale, r.lo*sc.scale, r.hi*sc.scale
		sc.fits = sc.start >= sc.lo && sc.start <= sc.hi
		if !sc.fits {
			needs++
		}
		pre[i] = sc
	}

	n := ns + m + needs
	lp := &boundedLP{
		m:     m,
		n:     n,
		t:     mat.NewDense(m, n, nil),
		d:     make([]float64, n),
		cost:  make([]float64, n),
		lb:    make([]float64, n),
		ub:    make([]float64, n),
		state: make([]colState, n),
		basis: make([]int, m),
		beta:  make([]float64, m),
	}
	copy(lp.lb, lb)
	copy(lp.ub, ub)

	next := ns + m
	for i, r := range rows {
		sc := pre[i]
		row := lp.t.RawRowView(i)
		for k, j := range r.cols {
			row[j] += r.coef[k] * sc.scale
		}

		s := ns + i
		row[s] = -1
		lp.lb[s], lp.ub[s] = sc.lo, sc.hi

		if sc.fits {
			// The logical column starts basic: negate so its entry is one.
			floats.Scale(-1, row)
			lp.basis[i], lp.state[s], lp.beta[i] = s, basic, sc.start
			continue
		}

		bound, st := sc.lo, atLower
		if sc.start > sc.hi {
			bound, st = sc.hi, atUpper
		}
		a := next
		next++
		sign := 1.0
		if bound < sc.start {
			sign = -1
		}
		row[a] = sign
		floats.Scale(sign, row)
		lp.state[s] = st
		lp.lb[a], lp.ub[a] = 0, math.Inf(1)
		lp.basis[i], lp.state[a], lp.beta[i] = a, basic, math.Abs(bound-sc.start)
		lp.arts = append(lp.arts, a)
	}
	return lp
}

// solve runs both phases. The returned values cover the structural
// columns only.
func (lp *boundedLP) solve(cost []float64) (milp.Status, []float64) {
	limit := 20*(lp.m+lp.n) + 1000

	if len(lp.arts) > 0 {
		phase1 := make([]float64, lp.n)
		for _, a := range lp.arts {
			phase1[a] = 1
		}
		if st := lp.optimize(phase1, limit); st != milp.Optimal {
			return milp.Error, nil
		}
		infeasibility := 0.0
		for i, b := range lp.basis {
			if phase1[b] != 0 {
				infeasibility += lp.beta[i]
			}
		}
		if infeasibility > phaseOneTolerance {
			return milp.Infeasible, nil
		}
		for _, a := range lp.arts {
			lp.ub[a] = 0
			if lp.state[a] == atUpper {
				lp.state[a] = atLower
			}
		}
	}

	full := make([]float64, lp.n)
	copy(full, cost)
	st := lp.optimize(full, limit)
	if st != milp.Optimal {
		return st, nil
	}

	x := make([]float64, len(cost))
	for j := range x {
		x[j] = lp.value(j)
	}
	for i, b := range lp.basis {
		if b < len(x) {
			x[b] = math.Min(math.Max(lp.beta[i], lp.lb[b]), lp.ub[b])
		}
	}
	return milp.Optimal, x
}

func (lp *boundedLP) value(j int) float64 {
	switch lp.state[j] {
	case atLower:
		return lp.lb[j]
	case atUpper:
		return lp.ub[j]
	}
	return 0
}

func (lp *boundedLP) optimize(cost []float64, limit int) milp.Status {
	lp.cost = cost
	lp.price()
	lp.bland = false
	degenerate := 0

	for it := 1; it <= limit; it++ {
		if it%refreshEvery == 0 {
			lp.refresh()
			lp.price()
		}
		j, dir := lp.entering()
		if j < 0 {
			lp.refresh()
			return milp.Optimal
		}
		r, step := lp.ratio(j, dir)
		if math.IsInf(step, 1) {
			return milp.Unbounded
		}
		lp.move(j, dir, r, step)

		if step <= ratioTolerance {
			degenerate++
			if degenerate > blandAfter {
				lp.bland = true
			}
		} else {
			degenerate = 0
			lp.bland = false
		}
	}
	return milp.Error
}

// price recomputes the reduced costs c - c_B * T.
func (lp *boundedLP) price() {
	copy(lp.d, lp.cost)
	for i, b := range lp.basis {
		if c := lp.cost[b]; c != 0 {
			floats.AddScaled(lp.d, -c, lp.t.RawRowView(i))
		}
	}
}

// refresh recomputes basic values from the homogeneous rows.
func (lp *boundedLP) refresh() {
	xn := make([]float64, lp.n)
	for j := range xn {
		if lp.state[j] != basic {
			xn[j] = lp.value(j)
		}
	}
	for i := range lp.beta {
		lp.beta[i] = -floats.Dot(lp.t.RawRowView(i), xn)
	}
}

// entering picks a nonbasic column whose move improves the objective:
// the largest reduced cost, or the lowest index under Bland's rule.
func (lp *boundedLP) entering() (int, float64) {
	best, bestScore, bestDir := -1, dualTolerance, 0.0
	for j, st := range lp.state {
		if st == basic || lp.ub[j]-lp.lb[j] <= 0 {
			continue
		}
		var score, dir float64
		switch {
		case st == atLower && lp.d[j] < -dualTolerance:
			score, dir = -lp.d[j], 1
		case st == atUpper && lp.d[j] > dualTolerance:
			score, dir = lp.d[j], -1
		default:
			continue
		}
		if lp.bland {
			return j, dir
		}
		if score > bestScore {
			best, bestScore, bestDir = j, score, dir
		}
	}
	return best, bestDir
}

// ratio finds how far column j can move in direction dir. It returns the
// blocking row, or -1 when j reaches its own opposite bound first.
func (lp *boundedLP) ratio(j int, dir float64) (int, float64) {
	r := -1
	step := lp.ub[j] - lp.lb[j]
	pivot := 0.0

	for i := 0; i < lp.m; i++ {
		a := lp.t.At(i, j) * dir
		if math.Abs(a) <= pivotTolerance {
			continue
		}
		b := lp.basis[i]
		var limit float64
		if a > 0 {
			if math.IsInf(lp.lb[b], -1) {
				continue
			}
			limit = (lp.beta[i] - lp.lb[b]) / a
		} else {
			if math.IsInf(lp.ub[b], 1) {
				continue
			}
			limit = (lp.ub[b] - lp.beta[i]) / -a
		}
		limit = math.Max(limit, 0)

		switch {
		case limit < step-ratioTolerance:
			r, step, pivot = i, limit, math.Abs(a)
		case r >= 0 && limit <= step+ratioTolerance:
			if lp.bland {
				if b < lp.basis[r] {
					r, pivot = i, math.Abs(a)
				}
			} else if math.Abs(a) > pivot {
				r, pivot = i, math.Abs(a)
			}
		}
	}
	return r, step
}

func (lp *boundedLP) move(j int, dir float64, r int, step float64) {
	if step > 0 {
		for i := 0; i < lp.m; i++ {
			if a := lp.t.At(i, j); a != 0 {
				lp.beta[i] -= a * dir * step
			}
		}
	}
	if r < 0 {
		if lp.state[j] == atLower {
			lp.state[j] = atUpper
		} else {
			lp.state[j] = atLower
		}
		return
	}

	entered := lp.value(j) + dir*step
	leaving := lp.basis[r]
	if lp.t.At(r, j)*dir > 0 {
		lp.state[leaving] = atLower
	} else {
		lp.state[leaving] = atUpper
	}
	lp.basis[r], lp.state[j], lp.beta[r] = j, basic, entered
	lp.pivot(r, j)
}

func (lp *boundedLP) pivot(r, j int) {
	prow := lp.t.RawRowView(r)
	floats.Scale(1/prow[j], prow)
	prow[j] = 1
	for i := 0; i < lp.m; i++ {
		if i == r {
			continue
		}
		row := lp.t.RawRowView(i)
		if f := row[j]; f != 0 {
			floats.AddScaled(row, -f, prow)
			row[j] = 0
		}
	}
	if f := lp.d[j]; f != 0 {
		floats.AddScaled(lp.d, -f, prow)
		lp.d[j] = 0
	}
}
