// Package milp models mixed-integer linear programs independently of any
// solving algorithm. A Program is built once per request, handed to a
// Solver, and discarded; nothing in it is shared between programs.
package milp

import (
	"fmt"
	"math"
	"sort"
)

// Kind is the domain of a decision variable.
type Kind int

const (
	Continuous Kind = iota
	Integer
	Binary
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Integer:
		return "integer"
	case Binary:
		return "binary"
	default:
		return "continuous"
	}
}

// Var is a handle to a variable of one Program.
type Var int

// Variable describes one decision variable. Upper may be +Inf.
type Variable struct {
	Name  string
	Kind  Kind
	Lower float64
	Upper float64
}

// Integral reports whether the variable must take an integer value.
func (v Variable) Integral() bool {
	return v.Kind != Continuous
}

// Sense is the relation of a constraint.
type Sense int

const (
	LE Sense = iota
	GE
	EQ
)

// String returns the relation symbol.
func (s Sense) String() string {
	switch s {
	case GE:
		return ">="
	case EQ:
		return "="
	default:
		return "<="
	}
}

// Term is one coefficient-variable product.
type Term struct {
	Var  Var
	Coef float64
}

// Constraint is sum(Terms) Sense RHS. Terms are sorted by variable and
// carry no zero coefficients.
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Direction selects minimization or maximization.
type Direction int

const (
	Minimize Direction = iota
	Maximize
)

// String returns the direction name.
func (d Direction) String() string {
	if d == Maximize {
		return "maximize"
	}
	return "minimize"
}

// Program is a mixed-integer linear program under construction.
type Program struct {
	name      string
	vars      []Variable
	cons      []Constraint
	objective Expr
	direction Direction
}

// NewProgram creates an empty program.
func NewProgram(name string) *Program {
	return &Program{name: name}
}

// Name returns the program name.
func (p *Program) Name() string { return p.name }

// NewVar adds a variable. Binary variables are always bounded to [0, 1].
func (p *Program) NewVar(name string, kind Kind, lower, upper float64) Var {
	if kind == Binary {
		lower, upper = math.Max(lower, 0), math.Min(upper, 1)
	}
	p.vars = append(p.vars, Variable{Name: name, Kind: kind, Lower: lower, Upper: upper})
	return Var(len(p.vars) - 1)
}

// IntVar adds an integer variable in [lower, upper].
func (p *Program) IntVar(name string, lower, upper float64) Var {
	return p.NewVar(name, Integer, lower, upper)
}

// BinVar adds a binary variable.
func (p *Program) BinVar(name string) Var {
	return p.NewVar(name, Binary, 0, 1)
}

// ContVar adds a continuous variable in [lower, upper].
func (p *Program) ContVar(name string, lower, upper float64) Var {
	return p.NewVar(name, Continuous, lower, upper)
}

// SetBounds replaces the bounds of v.
func (p *Program) SetBounds(v Var, lower, upper float64) {
	p.vars[v].Lower, p.vars[v].Upper = lower, upper
}

// Variable returns the description of v.
func (p *Program) Variable(v Var) Variable {
	return p.vars[v]
}

// NumVars returns the number of variables.
func (p *Program) NumVars() int { return len(p.vars) }

// Variables returns a copy of all variable descriptions in index order.
func (p *Program) Variables() []Variable {
	out := make([]Variable, len(p.vars))
	copy(out, p.vars)
	return out
}

// Add appends the constraint lhs sense rhs. Constants on either side are
// moved to the right-hand side.
func (p *Program) Add(name string, lhs Expr, sense Sense, rhs Expr) {
	diff := lhs.Minus(rhs)
	p.cons = append(p.cons, Constraint{
		Name:  name,
		Terms: diff.Terms(),
		Sense: sense,
		RHS:   -diff.Constant(),
	})
}

// AddLE appends lhs <= rhs.
func (p *Program) AddLE(name string, lhs, rhs Expr) { p.Add(name, lhs, LE, rhs) }

// AddGE appends lhs >= rhs.
func (p *Program) AddGE(name string, lhs, rhs Expr) { p.Add(name, lhs, GE, rhs) }

// AddEQ appends lhs == rhs.
func (p *Program) AddEQ(name string, lhs, rhs Expr) { p.Add(name, lhs, EQ, rhs) }

// Constraints returns the constraints in insertion order. The slice is
// shared; callers must not modify it.
func (p *Program) Constraints() []Constraint { return p.cons }

// NumConstraints returns the number of constraints.
func (p *Program) NumConstraints() int { return len(p.cons) }

// Constraint returns the first constraint with the given name.
func (p *Program) Constraint(name string) (Constraint, bool) {
	for _, c := range p.cons {
		if c.Name == name {
			return c, true
		}
	}
	return Constraint{}, false
}

// SetObjective sets the optimization direction and expression.
func (p *Program) SetObjective(dir Direction, e Expr) {
	p.direction = dir
	p.objective = e
}

// Objective returns the direction and expression.
func (p *Program) Objective() (Direction, Expr) {
	return p.direction, p.objective
}

// String summarizes the program size.
func (p *Program) String() string {
	ints := 0
	for _, v := range p.vars {
		if v.Integral() {
			ints++
		}
	}
	return fmt.Sprintf("%s: %d vars (%d integral), %d constraints, %s",
		p.name, len(p.vars), ints, len(p.cons), p.direction)
}

// Expr is an immutable affine expression: sum(coef*var) + constant.
type Expr struct {
	coef     map[Var]float64
	constant float64
}

// Const returns the constant expression c.
func Const(c float64) Expr {
	return Expr{constant: c}
}

// Of returns the expression coef*v.
func Of(v Var, coef float64) Expr {
	return Expr{coef: map[Var]float64{v: coef}}
}

// V returns the expression 1*v.
func V(v Var) Expr { return Of(v, 1) }

// Sum adds expressions together.
func Sum(es ...Expr) Expr {
	var out Expr
	for _, e := range es {
		out = out.Plus(e)
	}
	return out
}

func (e Expr) clone() Expr {
	c := make(map[Var]float64, len(e.coef)+1)
	for v, k := range e.coef {
		c[v] = k
	}
	return Expr{coef: c, constant: e.constant}
}

// Plus returns e + o.
func (e Expr) Plus(o Expr) Expr {
	out := e.clone()
	for v, k := range o.coef {
		out.coef[v] += k
	}
	out.constant += o.constant
	return out
}

// Minus returns e - o.
func (e Expr) Minus(o Expr) Expr {
	return e.Plus(o.Scale(-1))
}

// Scale returns k*e.
func (e Expr) Scale(k float64) Expr {
	out := Expr{coef: make(map[Var]float64, len(e.coef)), constant: e.constant * k}
	for v, c := range e.coef {
		out.coef[v] = c * k
	}
	return out
}

// AddTerm returns e + coef*v.
func (e Expr) AddTerm(v Var, coef float64) Expr {
	out := e.clone()
	out.coef[v] += coef
	return out
}

// AddConst returns e + c.
func (e Expr) AddConst(c float64) Expr {
	out := e.clone()
	out.constant += c
	return out
}

// Constant returns the constant part.
func (e Expr) Constant() float64 { return e.constant }

// Coef returns the coefficient of v.
func (e Expr) Coef(v Var) float64 { return e.coef[v] }

// Terms returns the non-zero terms sorted by variable.
func (e Expr) Terms() []Term {
	out := make([]Term, 0, len(e.coef))
	for v, c := range e.coef {
		if c != 0 {
			out = append(out, Term{Var: v, Coef: c})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Var < out[j].Var })
	return out
}

// Eval evaluates e at the given variable values.
func (e Expr) Eval(values []float64) float64 {
	s := e.constant
	for v, c := range e.coef {
		s += c * values[v]
	}
	return s
}
