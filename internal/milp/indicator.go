package milp

// Lower is the lower end of a range test. A strict lower end excludes its
// boundary: the expression must exceed it by at least the tolerance.
type Lower struct {
	Expr   Expr
	Strict bool
}

// Indicator holds the binaries created by IndicateRange. Active is 1
// exactly when the tested expression lies in the range; AtLeast and AtMost
// track each end separately.
type Indicator struct {
	Active  Var
	AtLeast Var
	AtMost  Var
}

// IndicateRange ties a new binary to the range membership lo <= x <= hi
// (lo < x when lo is strict) with the big-M technique:
//
//	AtLeast = 1  =>  x - lo >= d          AtLeast = 0  =>  x - lo <= d - tol
//	AtMost  = 1  =>  x - hi <= 0          AtMost  = 0  =>  x - hi >= tol
//	Active = AtLeast AND AtMost
//
// where d is tol for a strict lower end and 0 otherwise. bigM must exceed
// |x - lo| + tol and |x - hi| + tol over every assignment the rest of the
// program allows; a smaller value silently lets a false indicator through.
// Values of x within tol of a boundary on the excluded side are infeasible,
// so tol must be below the resolution x can take near the boundaries.
func (p *Program) IndicateRange(name string, x Expr, lo Lower, hi Expr, bigM, tol float64) Indicator {
	ind := Indicator{
		Active:  p.BinVar(name),
		AtLeast: p.BinVar(name + "_atleast"),
		AtMost:  p.BinVar(name + "_atmost"),
	}

	d := 0.0
	if lo.Strict {
		d = tol
	}

	overLo := x.Minus(lo.Expr)
	overHi := x.Minus(hi)

	p.AddGE(name+"_lo_on", overLo.AddTerm(ind.AtLeast, -bigM), Const(d-bigM))
	p.AddLE(name+"_lo_off", overLo.AddTerm(ind.AtLeast, -bigM), Const(d-tol))
	p.AddLE(name+"_hi_on", overHi.AddTerm(ind.AtMost, bigM), Const(bigM))
	p.AddGE(name+"_hi_off", overHi.AddTerm(ind.AtMost, bigM), Const(tol))

	p.AddLE(name+"_and_lo", V(ind.Active).Minus(V(ind.AtLeast)), Const(0))
	p.AddLE(name+"_and_hi", V(ind.Active).Minus(V(ind.AtMost)), Const(0))
	p.AddGE(name+"_and", V(ind.Active).Minus(V(ind.AtLeast)).Minus(V(ind.AtMost)), Const(-1))

	return ind
}
