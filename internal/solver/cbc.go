package solver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hammamikhairi/potionbrew/internal/domain"
	"github.com/hammamikhairi/potionbrew/internal/logger"
	"github.com/hammamikhairi/potionbrew/internal/milp"
)

// DefaultCBCBinary is looked up on PATH when no binary path is configured.
const DefaultCBCBinary = "cbc"

// CBC runs the COIN-OR CBC command-line solver on a CPLEX LP file.
// Variables are written with positional names (x0, x1, ...) so that the
// solution file maps straight back to program indices.
type CBC struct {
	binary string
	log    *logger.Logger
}

var _ milp.Solver = (*CBC)(nil)

// NewCBC creates the adapter. An empty binary means DefaultCBCBinary.
func NewCBC(binary string, log *logger.Logger) *CBC {
	if binary == "" {
		binary = DefaultCBCBinary
	}
	return &CBC{binary: binary, log: log}
}

// Available reports whether the CBC binary can be found.
func (c *CBC) Available() bool {
	_, err := exec.LookPath(c.binary)
	return err == nil
}

// Solve writes the program to a temporary directory, runs CBC on it and
// reads back the solution file.
func (c *CBC) Solve(ctx context.Context, p *milp.Program, lim milp.Limits) (*milp.Solution, error) {
	bin, err := exec.LookPath(c.binary)
	if err != nil {
		return &milp.Solution{Status: milp.Error}, fmt.Errorf("%w: %v", domain.ErrSolverUnavailable, err)
	}

	if ok, feasible := trivial(p); ok {
		if !feasible {
			return &milp.Solution{Status: milp.Infeasible}, nil
		}
		values := lowerBounds(p)
		_, obj := p.Objective()
		return &milp.Solution{Status: milp.Optimal, Objective: obj.Eval(values), Values: values}, nil
	}

	dir, err := os.MkdirTemp("", "potionbrew-cbc-")
	if err != nil {
		return &milp.Solution{Status: milp.Error}, fmt.Errorf("creating work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	model := filepath.Join(dir, "model.lp")
	out := filepath.Join(dir, "solution.txt")

	f, err := os.Create(model)
	if err != nil {
		return &milp.Solution{Status: milp.Error}, fmt.Errorf("creating model file: %w", err)
	}
	if err := WriteLP(f, p); err != nil {
		f.Close()
		return &milp.Solution{Status: milp.Error}, fmt.Errorf("writing model: %w", err)
	}
	if err := f.Close(); err != nil {
		return &milp.Solution{Status: milp.Error}, fmt.Errorf("writing model: %w", err)
	}

	args := []string{model}
	if lim.TimeLimit > 0 {
		args = append(args, "sec", strconv.Itoa(int(math.Ceil(lim.TimeLimit.Seconds()))))
	}
	if lim.NodeLimit > 0 {
		args = append(args, "maxNodes", strconv.Itoa(lim.NodeLimit))
	}
	args = append(args, "solve", "solu", out)

	start := time.Now()
	cmd := exec.CommandContext(ctx, bin, args...)
	combined, err := cmd.CombinedOutput()
	if ctx.Err() != nil {
		return &milp.Solution{Status: milp.Error}, ctx.Err()
	}
	if err != nil {
		c.log.Debug("cbc output:\n%s", combined)
		return &milp.Solution{Status: milp.Error}, fmt.Errorf("running cbc: %w", err)
	}
	c.log.Debug("%s: cbc finished in %s", p.Name(), time.Since(start).Round(time.Millisecond))

	sf, err := os.Open(out)
	if err != nil {
		return &milp.Solution{Status: milp.Error}, fmt.Errorf("reading cbc solution: %w", err)
	}
	defer sf.Close()

	sol, err := ParseSolution(sf, p)
	if err != nil {
		return &milp.Solution{Status: milp.Error}, err
	}
	if sol.Status == milp.Optimal {
		if v := p.Check(sol.Values, checkTolerance); len(v) > 0 {
			return &milp.Solution{Status: milp.Error}, fmt.Errorf("cbc solution violates %s", v[0])
		}
		if sol.LimitReached {
			c.log.Warn("%s: cbc stopped on a limit, returning best incumbent", p.Name())
		}
	}
	return sol, nil
}

// trivial reports whether the program has no variables, and if so whether
// its constant constraints hold.
func trivial(p *milp.Program) (ok, feasible bool) {
	if p.NumVars() > 0 {
		return false, false
	}
	for _, c := range p.Constraints() {
		if !constantHolds(c.Sense, c.RHS) {
			return true, false
		}
	}
	return true, true
}

func lowerBounds(p *milp.Program) []float64 {
	vars := p.Variables()
	out := make([]float64, len(vars))
	for j, v := range vars {
		out[j] = v.Lower
	}
	return out
}

func lpName(v milp.Var) string {
	return "x" + strconv.Itoa(int(v))
}

func lpNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// writeTerms writes " + 2 x0 - 1.5 x3". An empty term list is written as
// "0 x0" since the format needs at least one variable.
func writeTerms(w *bufio.Writer, terms []milp.Term) {
	if len(terms) == 0 {
		w.WriteString(" 0 x0")
		return
	}
	for _, t := range terms {
		sign := "+"
		coef := t.Coef
		if coef < 0 {
			sign, coef = "-", -coef
		}
		fmt.Fprintf(w, " %s %s %s", sign, lpNumber(coef), lpName(t.Var))
	}
}

// WriteLP writes the program in CPLEX LP format. The constant part of the
// objective is left out; callers evaluate the objective themselves.
// Constraints with no terms are written as "0 x0" rows.
func WriteLP(out io.Writer, p *milp.Program) error {
	w := bufio.NewWriter(out)

	dir, obj := p.Objective()
	fmt.Fprintf(w, "\\ %s\n", p.Name())
	if dir == milp.Maximize {
		w.WriteString("Maximize\n")
	} else {
		w.WriteString("Minimize\n")
	}
	w.WriteString(" obj:")
	writeTerms(w, obj.Terms())
	w.WriteString("\n")

	w.WriteString("Subject To\n")
	for i, c := range p.Constraints() {
		fmt.Fprintf(w, " c%d:", i)
		writeTerms(w, c.Terms)
		fmt.Fprintf(w, " %s %s\n", c.Sense, lpNumber(c.RHS))
	}

	var general, binary []string
	w.WriteString("Bounds\n")
	for j, v := range p.Variables() {
		name := lpName(milp.Var(j))
		switch {
		case v.Lower == v.Upper:
			fmt.Fprintf(w, " %s = %s\n", name, lpNumber(v.Lower))
		case math.IsInf(v.Upper, 1):
			fmt.Fprintf(w, " %s >= %s\n", name, lpNumber(v.Lower))
		default:
			fmt.Fprintf(w, " %s <= %s <= %s\n", lpNumber(v.Lower), name, lpNumber(v.Upper))
		}
		switch v.Kind {
		case milp.Integer:
			general = append(general, name)
		case milp.Binary:
			binary = append(binary, name)
		}
	}
	if len(general) > 0 {
		w.WriteString("General\n " + strings.Join(general, " ") + "\n")
	}
	if len(binary) > 0 {
		w.WriteString("Binary\n " + strings.Join(binary, " ") + "\n")
	}
	w.WriteString("End\n")
	return w.Flush()
}

// ParseSolution reads a CBC solution file. The first line carries the
// status; every following line is "index name value reduced-cost", with
// variables at zero omitted.
func ParseSolution(r io.Reader, p *milp.Program) (*milp.Solution, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("reading cbc solution: %w", err)
		}
		return nil, errors.New("empty cbc solution file")
	}
	header := strings.TrimSpace(sc.Text())
	lower := strings.ToLower(header)

	sol := &milp.Solution{}
	switch {
	case strings.HasPrefix(lower, "optimal"):
		sol.Status = milp.Optimal
	case strings.Contains(lower, "infeasible"):
		return &milp.Solution{Status: milp.Infeasible}, nil
	case strings.Contains(lower, "unbounded"):
		return &milp.Solution{Status: milp.Unbounded}, nil
	case strings.HasPrefix(lower, "stopped"):
		if obj, ok := headerObjective(header); !ok || math.Abs(obj) >= 1e49 {
			return &milp.Solution{Status: milp.Error}, fmt.Errorf("%w: cbc %s", ErrNoIncumbent, header)
		}
		sol.Status = milp.Optimal
		sol.LimitReached = true
	default:
		return nil, fmt.Errorf("unrecognized cbc status %q", header)
	}

	sol.Values = make([]float64, p.NumVars())
	for sc.Scan() {
		fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(sc.Text()), "**"))
		if len(fields) < 3 {
			continue
		}
		name := fields[1]
		if !strings.HasPrefix(name, "x") {
			continue
		}
		idx, err := strconv.Atoi(name[1:])
		if err != nil || idx < 0 || idx >= len(sol.Values) {
			return nil, fmt.Errorf("unexpected variable %q in cbc solution", name)
		}
		val, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing value of %s: %w", name, err)
		}
		sol.Values[idx] = val
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading cbc solution: %w", err)
	}

	vars := p.Variables()
	sol.Values = roundIntegral(vars, sol.Values)
	_, obj := p.Objective()
	sol.Objective = obj.Eval(sol.Values)
	return sol, nil
}

// headerObjective extracts the number after "objective value".
func headerObjective(header string) (float64, bool) {
	i := strings.Index(strings.ToLower(header), "objective value")
	if i < 0 {
		return 0, false
	}
	fields := strings.Fields(header[i+len("objective value"):])
	if len(fields) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	return v, err == nil
}

// constantHolds checks a constraint whose terms all vanished: 0 sense rhs.
func constantHolds(sense milp.Sense, rhs float64) bool {
	switch sense {
	case milp.LE:
		return 0 <= rhs+intTolerance
	case milp.GE:
		return 0 >= rhs-intTolerance
	default:
		return math.Abs(rhs) <= intTolerance
	}
}

// roundIntegral snaps integer and binary values to the nearest integer.
func roundIntegral(vars []milp.Variable, x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range vars {
		out[j] = x[j]
		if v.Integral() {
			out[j] = math.Round(x[j])
		}
	}
	return out
}
