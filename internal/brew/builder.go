package brew

import (
	"fmt"
	"strings"

	"github.com/hammamikhairi/potionbrew/internal/domain"
	"github.com/hammamikhairi/potionbrew/internal/milp"
)

const (
	// bucketTolerance separates star buckets. Substance totals are
	// integers, so one unit is the finest step.
	bucketTolerance = 1.0
	// BandTolerance is the margin a deviance must clear to leave a
	// stability band through its boundary.
	BandTolerance = 1e-3
	// tieBreak scales the deviance term added to every objective. It is
	// divided by the cauldron capacity so the term stays below any
	// difference in the primary objective.
	tieBreak = 1e-4
)

// Quantity is the decision variable for one candidate ingredient.
type Quantity struct {
	Ingredient domain.Ingredient
	Var        milp.Var
	Upper      int
}

// Model is a compiled program together with typed handles to the parts of
// it the extractor and tests read back. Handles are indexed by substance,
// bucket and band; nothing is looked up by name.
type Model struct {
	Plan    *Plan
	Program *milp.Program
	Stars   domain.StarTable
	Ratio   domain.Ratio
	BigM    float64

	Quantities []Quantity
	Count      milp.Expr
	Totals     [domain.NumSubstances]milp.Expr
	Total      milp.Expr
	Deviation  [domain.NumSubstances]milp.Var
	Deviance   milp.Expr
	Cost       milp.Expr

	Buckets        []milp.Indicator
	Bands          [domain.NumStabilityBands]milp.Indicator
	BaseStars      milp.Expr
	StabilityStars milp.Expr
}

// TotalStars is base stars plus the stability modifier.
func (m *Model) TotalStars() milp.Expr {
	return m.BaseStars.Plus(m.StabilityStars)
}

// BigM returns the indicator constant for a cauldron and star table. It
// exceeds the reach of every expression the indicators bound: the
// substance total against any breakpoint, and the deviance (at most the
// sum of five deviation variables, each capped at the cauldron capacity)
// against any band boundary.
func BigM(c domain.Cauldron, stars domain.StarTable) float64 {
	last := 0
	if n := len(stars.Breakpoints); n > 0 {
		last = stars.Breakpoints[n-1]
	}
	return float64(6*c.MaxSubstance+last) + 1
}

// Compile builds the mixed-integer program for a validated plan.
func Compile(plan *Plan, stars domain.StarTable) (*Model, error) {
	if err := stars.Validate(); err != nil {
		return nil, err
	}
	c := plan.Cauldron
	if c.MaxIngredients <= 0 || c.MaxSubstance <= 0 {
		return nil, fmt.Errorf("cauldron %q has no capacity", c.ID)
	}
	ratio, ok := plan.Potion.Ratio.Normalize()
	if !ok {
		return nil, fmt.Errorf("potion %q has no usable substance ratio", plan.Potion.ID)
	}

	m := &Model{
		Plan:    plan,
		Program: milp.NewProgram(fmt.Sprintf("%s/%s/%s", plan.Potion.ID, c.ID, plan.Objective)),
		Stars:   stars,
		Ratio:   ratio,
		BigM:    BigM(c, stars),
	}

	m.addQuantities()
	m.addCapacity()
	m.addDeviance()
	m.addStarBuckets()
	m.addStabilityBands()
	m.addSensory()
	plan.Objective.apply(m)
	return m, nil
}

func (m *Model) addQuantities() {
	p, c := m.Program, m.Plan.Cauldron
	limited := m.Plan.Objective.limitedByStock()

	for _, s := range m.Plan.Stock {
		upper := c.MaxIngredients
		if limited {
			upper = min(s.Available, c.MaxIngredients)
		}
		if upper <= 0 {
			continue
		}
		v := p.IntVar("qty_"+s.Ingredient.ID, 0, float64(upper))
		m.Quantities = append(m.Quantities, Quantity{Ingredient: s.Ingredient, Var: v, Upper: upper})

		m.Count = m.Count.AddTerm(v, 1)
		m.Cost = m.Cost.AddTerm(v, s.Ingredient.Price)
		for _, sub := range domain.Substances {
			if amt := s.Ingredient.Substances[sub]; amt != 0 {
				m.Totals[sub] = m.Totals[sub].AddTerm(v, float64(amt))
			}
		}
	}
	m.Total = milp.Sum(m.Totals[:]...)
}

func (m *Model) addCapacity() {
	p, c := m.Program, m.Plan.Cauldron

	p.AddGE("min_ingredients", m.Count, milp.Const(1))
	p.AddLE("max_ingredients", m.Count, milp.Const(float64(c.MaxIngredients)))
	p.AddLE("max_substance", m.Total, milp.Const(float64(c.MaxSubstance)))

	for _, sub := range domain.Substances {
		if m.Ratio.Required(sub) {
			p.AddGE("required_"+sub.String(), m.Totals[sub], milp.Const(1))
		}
	}
}

// addDeviance linearizes |w*Total - Totals[s]| per substance.
func (m *Model) addDeviance() {
	p := m.Program
	capacity := float64(m.Plan.Cauldron.MaxSubstance)

	for _, sub := range domain.Substances {
		dev := p.ContVar("dev_"+sub.String(), 0, capacity)
		m.Deviation[sub] = dev

		target := m.Total.Scale(m.Ratio[sub])
		p.AddGE("dev_"+sub.String()+"_under", milp.V(dev), target.Minus(m.Totals[sub]))
		p.AddGE("dev_"+sub.String()+"_over", milp.V(dev), m.Totals[sub].Minus(target))
		m.Deviance = m.Deviance.AddTerm(dev, 1)
	}
	p.AddLE("max_deviance", m.Deviance, m.Total.Scale(domain.MaxDevianceFraction))
}

// addStarBuckets ties one indicator to each [lo, hi) breakpoint pair.
func (m *Model) addStarBuckets() {
	p := m.Program
	bp := m.Stars.Breakpoints
	capacity := m.Plan.Cauldron.MaxSubstance
	n := m.Stars.Buckets()

	var one milp.Expr
	for i := 0; i < n; i++ {
		lo, hi := bp[i], bp[i+1]-1
		if i == n-1 && capacity > hi {
			hi = capacity
		}
		ind := p.IndicateRange(fmt.Sprintf("stars_%d", i), m.Total,
			milp.Lower{Expr: milp.Const(float64(lo))}, milp.Const(float64(hi)),
			m.BigM, bucketTolerance)
		if lo > capacity {
			p.SetBounds(ind.Active, 0, 0)
		}
		m.Buckets = append(m.Buckets, ind)

		one = one.AddTerm(ind.Active, 1)
		if i > 0 {
			m.BaseStars = m.BaseStars.AddTerm(ind.Active, float64(i))
		}
	}
	p.AddEQ("one_bucket", one, milp.Const(1))
}

// addStabilityBands ties one indicator to each deviance-fraction band,
// expressed against the substance total so it stays linear.
func (m *Model) addStabilityBands() {
	p := m.Program

	var one milp.Expr
	for _, b := range domain.StabilityBands {
		lo, hi, strict := b.Bounds()
		name := "band_" + strings.ReplaceAll(strings.ToLower(b.String()), " ", "_")
		ind := p.IndicateRange(name, m.Deviance,
			milp.Lower{Expr: m.Total.Scale(lo), Strict: strict}, m.Total.Scale(hi),
			m.BigM, BandTolerance)
		m.Bands[b] = ind

		one = one.AddTerm(ind.Active, 1)
		if bonus := b.Bonus(); bonus != 0 {
			m.StabilityStars = m.StabilityStars.AddTerm(ind.Active, float64(bonus))
		}
	}
	p.AddEQ("one_band", one, milp.Const(1))
}

func (m *Model) addSensory() {
	p := m.Program

	for _, axis := range domain.SensoryAxes {
		req := m.Plan.Sensory[axis]
		if req == domain.SensoryAny {
			continue
		}

		var neg, pos milp.Expr
		for _, q := range m.Quantities {
			switch q.Ingredient.Sensory[axis] {
			case domain.SensoryNegative:
				neg = neg.AddTerm(q.Var, 1)
			case domain.SensoryPositive:
				pos = pos.AddTerm(q.Var, 1)
			}
		}

		if len(neg.Terms()) > 0 {
			p.AddEQ("sensory_"+axis.String()+"_no_negative", neg, milp.Const(0))
		}
		if req == domain.SensoryRequirePositive {
			p.AddGE("sensory_"+axis.String()+"_positive", pos, milp.Const(1))
		}
	}
}

// devianceTieBreak is the small deviance term that keeps the deviation
// variables at the true absolute deviation at the optimum.
func (m *Model) devianceTieBreak() milp.Expr {
	return m.Deviance.Scale(tieBreak / float64(m.Plan.Cauldron.MaxSubstance))
}
