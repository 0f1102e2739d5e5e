package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/hammamikhairi/potionbrew/internal/logger"
	"github.com/hammamikhairi/potionbrew/internal/milp"
)

const (
	// intTolerance is how far from an integer a value may sit and still
	// count as integral.
	intTolerance = 1e-6
	// checkTolerance is used to verify incumbents against the program.
	checkTolerance = 1e-6
	// fixTolerance is the bound width below which a variable is treated
	// as fixed and substituted out of a relaxation.
	fixTolerance = 1e-9
)

var (
	// ErrNoIncumbent is returned when a limit stops the search before any
	// feasible assignment was found.
	ErrNoIncumbent = errors.New("search stopped before a feasible solution was found")
	// ErrUnsolvedNodes is returned when relaxations failed and no
	// incumbent was found, so infeasibility cannot be claimed.
	ErrUnsolvedNodes = errors.New("subproblems could not be solved")
)

// Simplex is the in-process branch-and-bound fallback used when no CBC
// binary is installed. Each node propagates integer bounds through the
// rows, drops rows that cannot bind and solves what remains with a
// bounded-variable tableau simplex. The search is depth-first and branches
// on general integers before binaries.
type Simplex struct {
	log *logger.Logger
}

var _ milp.Solver = (*Simplex)(nil)

// NewSimplex creates the in-process solver.
func NewSimplex(log *logger.Logger) *Simplex {
	return &Simplex{log: log}
}

// node is one subproblem: the program with tightened bounds.
type node struct {
	lo, hi []float64
}

func (n node) child() node {
	c := node{lo: make([]float64, len(n.lo)), hi: make([]float64, len(n.hi))}
	copy(c.lo, n.lo)
	copy(c.hi, n.hi)
	return c
}

type relaxation struct {
	status milp.Status
	obj    float64 // in minimization form, without the constant
	x      []float64
}

// search holds what every node of one Solve shares.
type search struct {
	p    *milp.Program
	vars []milp.Variable
	rows []rangeRow
	cost []float64
}

// Solve runs branch-and-bound until the tree is exhausted, ctx is done or
// a limit is reached. Nodes whose relaxation fails are counted; when any
// were lost the result is marked LimitReached, or is an error when nothing
// feasible was found, since the lost subtrees may hold better answers.
func (s *Simplex) Solve(ctx context.Context, p *milp.Program, lim milp.Limits) (*milp.Solution, error) {
	vars := p.Variables()
	root := node{lo: make([]float64, len(vars)), hi: make([]float64, len(vars))}
	for j, v := range vars {
		if math.IsInf(v.Lower, -1) || math.IsNaN(v.Lower) {
			err := fmt.Errorf("variable %s has no finite lower bound", v.Name)
			return &milp.Solution{Status: milp.Error}, err
		}
		root.lo[j], root.hi[j] = v.Lower, v.Upper
		if v.Integral() {
			root.lo[j] = math.Ceil(v.Lower - intTolerance)
			root.hi[j] = math.Floor(v.Upper + intTolerance)
		}
	}

	dir, objective := p.Objective()
	sign := 1.0
	if dir == milp.Maximize {
		sign = -1
	}
	sr := &search{p: p, vars: vars, rows: rangeRows(p), cost: make([]float64, len(vars))}
	for _, t := range objective.Terms() {
		sr.cost[t.Var] = sign * t.Coef
	}

	var deadline time.Time
	if lim.TimeLimit > 0 {
		deadline = time.Now().Add(lim.TimeLimit)
	}

	var (
		incumbent []float64
		best      = math.Inf(1)
		nodes     int
		lost      int
		stack     = []node{root}
		stopErr   error
	)

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			stopErr = err
			break
		}
		if lim.NodeLimit > 0 && nodes >= lim.NodeLimit {
			stopErr = fmt.Errorf("node limit %d reached", lim.NodeLimit)
			break
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			stopErr = fmt.Errorf("time limit %s reached", lim.TimeLimit)
			break
		}

		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		if !propagate(sr.rows, vars, n.lo, n.hi) {
			continue
		}
		r := sr.relax(n)
		switch r.status {
		case milp.Infeasible:
			continue
		case milp.Unbounded:
			if incumbent == nil {
				return &milp.Solution{Status: milp.Unbounded, Nodes: nodes}, nil
			}
			lost++
			continue
		case milp.Error:
			s.log.Debug("%s: relaxation failed at node %d", p.Name(), nodes)
			lost++
			continue
		}

		if incumbent != nil && r.obj >= best-1e-9*(1+math.Abs(best)) {
			continue
		}

		j := branchVar(vars, r.x, intTolerance)
		if j < 0 {
			if x, obj, ok := sr.polish(n, r.x); ok {
				if obj < best {
					incumbent, best = x, obj
					s.log.Debug("%s: incumbent %.6g after %d nodes", p.Name(), sign*best+objective.Constant(), nodes)
				}
				continue
			}
			// Near-integral values that do not hold up once fixed: keep
			// branching on the closest call instead of dropping the node.
			if j = branchVar(vars, r.x, 0); j < 0 {
				s.log.Debug("%s: integral relaxation at node %d fails the program", p.Name(), nodes)
				lost++
				continue
			}
		}

		v := r.x[j]
		down, up := n.child(), n.child()
		down.hi[j] = math.Floor(v)
		up.lo[j] = math.Floor(v) + 1
		// The child on the nearer side is explored first.
		if v-math.Floor(v) < 0.5 {
			stack = append(stack, up, down)
		} else {
			stack = append(stack, down, up)
		}
	}

	if lost > 0 {
		s.log.Warn("%s: %d of %d nodes could not be solved", p.Name(), lost, nodes)
	}
	if stopErr != nil {
		if incumbent == nil {
			s.log.Warn("%s: %v", p.Name(), stopErr)
			return &milp.Solution{Status: milp.Error, Nodes: nodes}, fmt.Errorf("%w: %w", ErrNoIncumbent, stopErr)
		}
		s.log.Warn("%s: %v, returning best incumbent", p.Name(), stopErr)
	}
	if incumbent == nil {
		if lost > 0 {
			return &milp.Solution{Status: milp.Error, Nodes: nodes},
				fmt.Errorf("%s: %d %w", p.Name(), lost, ErrUnsolvedNodes)
		}
		return &milp.Solution{Status: milp.Infeasible, Nodes: nodes}, nil
	}
	return &milp.Solution{
		Status:       milp.Optimal,
		Objective:    objective.Eval(incumbent),
		Values:       incumbent,
		LimitReached: stopErr != nil || lost > 0,
		Nodes:        nodes,
	}, nil
}

// branchVar picks the most fractional general integer, falling back to
// the most fractional binary. It returns -1 when no value is further than
// tol from an integer.
func branchVar(vars []milp.Variable, x []float64, tol float64) int {
	pick := func(kind milp.Kind) int {
		best, bestFrac := -1, tol
		for j, v := range vars {
			if v.Kind != kind {
				continue
			}
			f := math.Abs(x[j] - math.Round(x[j]))
			if f > bestFrac {
				best, bestFrac = j, f
			}
		}
		return best
	}
	if j := pick(milp.Integer); j >= 0 {
		return j
	}
	return pick(milp.Binary)
}

// polish fixes every integer variable at its rounded value, re-solves for
// the continuous ones and keeps the result only if it satisfies the whole
// program.
func (sr *search) polish(n node, x []float64) ([]float64, float64, bool) {
	f := n.child()
	for j, v := range sr.vars {
		if v.Integral() {
			r := math.Round(x[j])
			f.lo[j], f.hi[j] = r, r
		}
	}
	if !propagate(sr.rows, sr.vars, f.lo, f.hi) {
		return nil, 0, false
	}
	r := sr.relax(f)
	if r.status != milp.Optimal {
		return nil, 0, false
	}
	if v := sr.p.Check(r.x, checkTolerance); len(v) > 0 {
		return nil, 0, false
	}
	return r.x, r.obj, true
}

// relax solves the LP relaxation of one node. Fixed variables are
// substituted into the row bounds and rows that cannot bind inside the
// node's box are left out.
func (sr *search) relax(n node) relaxation {
	nv := len(n.lo)
	col := make([]int, nv)
	var lb, ub, cost []float64
	for j := 0; j < nv; j++ {
		if n.lo[j] > n.hi[j]+fixTolerance {
			return relaxation{status: milp.Infeasible}
		}
		if n.hi[j]-n.lo[j] <= fixTolerance {
			col[j] = -1
			continue
		}
		col[j] = len(lb)
		lb = append(lb, n.lo[j])
		ub = append(ub, n.hi[j])
		cost = append(cost, sr.cost[j])
	}

	var rows []lpRow
	for _, rr := range sr.rows {
		loSlack, hiSlack := rr.sides(n.lo, n.hi)
		if loSlack && hiSlack {
			continue
		}
		row := lpRow{lo: rr.lo, hi: rr.hi}
		if loSlack {
			row.lo = math.Inf(-1)
		}
		if hiSlack {
			row.hi = math.Inf(1)
		}
		shift := 0.0
		for _, t := range rr.terms {
			if k := col[t.Var]; k >= 0 && t.Coef != 0 {
				row.cols = append(row.cols, k)
				row.coef = append(row.coef, t.Coef)
			} else {
				shift += t.Coef * n.lo[t.Var]
			}
		}
		row.lo -= shift
		row.hi -= shift
		if len(row.cols) == 0 {
			if row.lo > rowTolerance || row.hi < -rowTolerance {
				return relaxation{status: milp.Infeasible}
			}
			continue
		}
		rows = append(rows, row)
	}

	x := make([]float64, nv)
	copy(x, n.lo)

	var vals []float64
	if len(rows) == 0 {
		// Every column moves to whichever bound its cost prefers.
		vals = make([]float64, len(lb))
		for k := range vals {
			vals[k] = lb[k]
			if cost[k] < 0 {
				if math.IsInf(ub[k], 1) {
					return relaxation{status: milp.Unbounded}
				}
				vals[k] = ub[k]
			}
		}
	} else {
		var status milp.Status
		status, vals = newBoundedLP(rows, lb, ub).solve(cost)
		if status != milp.Optimal {
			return relaxation{status: status}
		}
	}

	obj := 0.0
	for j := 0; j < nv; j++ {
		if k := col[j]; k >= 0 {
			x[j] = vals[k]
		}
		obj += sr.cost[j] * x[j]
	}
	return relaxation{status: milp.Optimal, obj: obj, x: x}
}
