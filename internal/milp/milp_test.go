package milp

import (
	"math"
	"strings"
	"testing"
)

func TestExprArithmetic(t *testing.T) {
	p := NewProgram("expr")
	x := p.IntVar("x", 0, 10)
	y := p.ContVar("y", 0, math.Inf(1))

	e := Sum(Of(x, 2), V(y), Const(3)).Minus(Of(y, 1)).Scale(2).AddConst(1)
	// 2*(2x + y + 3 - y) + 1 = 4x + 7
	if got := e.Coef(x); got != 4 {
		t.Fatalf("coef x = %v, want 4", got)
	}
	if got := e.Coef(y); got != 0 {
		t.Fatalf("coef y = %v, want 0", got)
	}
	if terms := e.Terms(); len(terms) != 1 || terms[0].Var != x {
		t.Fatalf("terms = %+v, want only x", terms)
	}
	if got := e.Eval([]float64{2, 5}); got != 15 {
		t.Fatalf("eval = %v, want 15", got)
	}

	// Operations never alias their receiver.
	base := V(x)
	_ = base.AddTerm(y, 3)
	if base.Coef(y) != 0 {
		t.Fatal("AddTerm modified its receiver")
	}
}

func TestAddMovesConstants(t *testing.T) {
	p := NewProgram("move")
	x := p.IntVar("x", 0, 10)
	p.AddLE("c", V(x).AddConst(2), Const(7).AddTerm(x, -1))

	c, ok := p.Constraint("c")
	if !ok {
		t.Fatal("constraint c not found")
	}
	// x + 2 <= 7 - x  ->  2x <= 5
	if len(c.Terms) != 1 || c.Terms[0].Coef != 2 || c.RHS != 5 || c.Sense != LE {
		t.Fatalf("unexpected constraint %+v", c)
	}
}

func TestBinaryBoundsClamped(t *testing.T) {
	p := NewProgram("bin")
	b := p.NewVar("b", Binary, -3, 7)
	v := p.Variable(b)
	if v.Lower != 0 || v.Upper != 1 {
		t.Fatalf("binary bounds = [%v,%v], want [0,1]", v.Lower, v.Upper)
	}
}

func TestCheckReportsViolations(t *testing.T) {
	p := NewProgram("check")
	x := p.IntVar("x", 0, 4)
	y := p.ContVar("y", 0, 10)
	p.AddEQ("sum", Sum(V(x), V(y)), Const(6))

	if v := p.Check([]float64{2, 4}, 1e-9); len(v) != 0 {
		t.Fatalf("expected feasible, got %v", v)
	}

	v := p.Check([]float64{4.5, 1}, 1e-9)
	var reasons []string
	for _, x := range v {
		reasons = append(reasons, x.Name+":"+x.Reason)
	}
	joined := strings.Join(reasons, ",")
	for _, want := range []string{"x:above upper bound", "x:not integral", "sum:= violated"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing %q in %s", want, joined)
		}
	}

	if v := p.Check([]float64{1}, 1e-9); len(v) != 1 {
		t.Fatalf("expected a length violation, got %v", v)
	}
}

// feasibleIndicators enumerates every binary triple for an indicator at a
// fixed x and returns those the program accepts.
func feasibleIndicators(p *Program, ind Indicator, x Var, xv float64) [][3]float64 {
	var out [][3]float64
	for mask := 0; mask < 8; mask++ {
		values := make([]float64, p.NumVars())
		values[x] = xv
		triple := [3]float64{float64(mask & 1), float64(mask >> 1 & 1), float64(mask >> 2 & 1)}
		values[ind.Active], values[ind.AtLeast], values[ind.AtMost] = triple[0], triple[1], triple[2]
		if len(p.Check(values, 1e-9)) == 0 {
			out = append(out, triple)
		}
	}
	return out
}

func TestIndicateRangeIntegerExpression(t *testing.T) {
	p := NewProgram("ind")
	x := p.IntVar("x", 0, 20)
	ind := p.IndicateRange("bucket", V(x), Lower{Expr: Const(5)}, Const(9), 50, 1)

	for xv := 0; xv <= 20; xv++ {
		got := feasibleIndicators(p, ind, x, float64(xv))
		if len(got) != 1 {
			t.Fatalf("x=%d: %d feasible indicator settings, want exactly 1", xv, len(got))
		}
		in := xv >= 5 && xv <= 9
		if (got[0][0] == 1) != in {
			t.Fatalf("x=%d: active=%v, want %v", xv, got[0][0], in)
		}
		if (got[0][1] == 1) != (xv >= 5) || (got[0][2] == 1) != (xv <= 9) {
			t.Fatalf("x=%d: auxiliaries %v inconsistent", xv, got[0])
		}
	}
}

func TestIndicateRangeStrictLowerWithExpressionBounds(t *testing.T) {
	// Band (0.1*T, 0.3*T] on a continuous deviance d with T fixed at 40.
	p := NewProgram("band")
	d := p.ContVar("d", 0, 100)
	total := p.IntVar("T", 0, 100)
	ind := p.IndicateRange("stable", V(d),
		Lower{Expr: Of(total, 0.1), Strict: true}, Of(total, 0.3), 500, 1e-3)

	cases := []struct {
		d    float64
		want bool
	}{
		{0, false},
		{3.9, false},
		{4, false}, // exactly at the strict lower end
		{4.01, true},
		{8, true},
		{12, true}, // inclusive upper end
		{12.5, false},
		{30, false},
	}
	for _, c := range cases {
		values := func(a, lo, hi float64) []float64 {
			v := make([]float64, p.NumVars())
			v[d], v[total] = c.d, 40
			v[ind.Active], v[ind.AtLeast], v[ind.AtMost] = a, lo, hi
			return v
		}
		var feasible [][3]float64
		for mask := 0; mask < 8; mask++ {
			tr := [3]float64{float64(mask & 1), float64(mask >> 1 & 1), float64(mask >> 2 & 1)}
			if len(p.Check(values(tr[0], tr[1], tr[2]), 1e-9)) == 0 {
				feasible = append(feasible, tr)
			}
		}
		if len(feasible) != 1 {
			t.Fatalf("d=%v: %d feasible settings, want 1", c.d, len(feasible))
		}
		if (feasible[0][0] == 1) != c.want {
			t.Fatalf("d=%v: active=%v, want %v", c.d, feasible[0][0], c.want)
		}
	}
}

func TestIndicateRangeUndersizedBigM(t *testing.T) {
	// With M too small the lower test cannot relax: x=20 violates the
	// AtLeast off-row whatever AtLeast is, so no setting is feasible.
	p := NewProgram("small-m")
	x := p.IntVar("x", 0, 20)
	ind := p.IndicateRange("bucket", V(x), Lower{Expr: Const(5)}, Const(9), 3, 1)

	if got := feasibleIndicators(p, ind, x, 20); len(got) != 0 {
		t.Fatalf("expected no feasible setting with undersized M, got %v", got)
	}
}
