package milp

import (
	"context"
	"math"
	"time"
)

// Status is the outcome reported by a Solver.
type Status int

const (
	Optimal Status = iota
	Infeasible
	Unbounded
	Error
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Infeasible:
		return "infeasible"
	case Unbounded:
		return "unbounded"
	default:
		return "error"
	}
}

// Solution is a solver's answer. Values holds one entry per program
// variable and is only meaningful when Status is Optimal.
type Solution struct {
	Status    Status
	Objective float64
	Values    []float64

	// LimitReached is set when a time or node limit stopped the search
	// after an incumbent was found. Status is then Optimal but the value
	// is only the best found.
	LimitReached bool
	Nodes        int
}

// Value returns the value of v.
func (s *Solution) Value(v Var) float64 {
	return s.Values[v]
}

// Int returns the value of v rounded to the nearest integer.
func (s *Solution) Int(v Var) int {
	return int(math.Round(s.Values[v]))
}

// Bool reports whether a binary variable is set.
func (s *Solution) Bool(v Var) bool {
	return s.Values[v] > 0.5
}

// Eval evaluates an expression at the solution.
func (s *Solution) Eval(e Expr) float64 {
	return e.Eval(s.Values)
}

// Limits bounds a solve. Zero values mean "no limit".
type Limits struct {
	TimeLimit time.Duration
	NodeLimit int
}

// Solver solves a program. Implementations must not retain the program
// after Solve returns and must stop when ctx is cancelled.
//
// Solve returns a non-nil Solution in every case. The error is non-nil
// exactly when the status is Error.
type Solver interface {
	Solve(ctx context.Context, p *Program, lim Limits) (*Solution, error)
}

// SolverFunc adapts a function to the Solver interface.
type SolverFunc func(ctx context.Context, p *Program, lim Limits) (*Solution, error)

// Solve calls f.
func (f SolverFunc) Solve(ctx context.Context, p *Program, lim Limits) (*Solution, error) {
	return f(ctx, p, lim)
}
