package brew

import (
	"math"

	"github.com/hammamikhairi/potionbrew/internal/domain"
	"github.com/hammamikhairi/potionbrew/internal/milp"
)

// fractionRound is the grid deviance is rounded to, so that a perfectly
// balanced brew reads as exactly zero.
const fractionRound = 1e-9

// Extract decodes a solver answer into a recipe report. It reports false
// when the solution is not optimal; no recipe is produced in that case.
func Extract(m *Model, sol *milp.Solution) (*domain.RecipeSolution, bool) {
	if sol == nil || sol.Status != milp.Optimal || len(sol.Values) != m.Program.NumVars() {
		return nil, false
	}

	r := &domain.RecipeSolution{
		Potion:   m.Plan.Potion.ID,
		Cauldron: m.Plan.Cauldron.ID,
	}

	var good, bad [domain.NumSensoryAxes]int
	for _, q := range m.Quantities {
		n := sol.Int(q.Var)
		if n <= 0 {
			continue
		}
		r.Ingredients = append(r.Ingredients, domain.IngredientUse{
			ID:        q.Ingredient.ID,
			Name:      q.Ingredient.Name,
			Quantity:  n,
			UnitPrice: q.Ingredient.Price,
		})
		r.IngredientCount += n
		r.IngredientCost += float64(n) * q.Ingredient.Price

		for _, axis := range domain.SensoryAxes {
			switch q.Ingredient.Sensory[axis] {
			case domain.SensoryPositive:
				good[axis] += n
			case domain.SensoryNegative:
				bad[axis] += n
			}
		}
	}

	for _, sub := range domain.Substances {
		r.Substances[sub] = int(math.Round(sol.Eval(m.Totals[sub])))
	}
	r.TotalSubstance = r.Substances.Total()

	// Deviance and rank follow from the integer totals. The indicators only
	// bound them, so they are read back when the totals fall outside every
	// band or bucket.
	total := float64(r.TotalSubstance)
	for _, sub := range domain.Substances {
		r.Deviance += math.Abs(m.Ratio[sub]*total - float64(r.Substances[sub]))
	}
	r.Deviance = math.Round(r.Deviance/fractionRound) * fractionRound
	if r.TotalSubstance > 0 {
		r.DevianceFraction = r.Deviance / total
	}

	band, ok := domain.BandForFraction(r.DevianceFraction)
	if !ok || r.TotalSubstance == 0 {
		band = domain.StabilityBands[argmaxActive(sol, m.Bands[:])]
	}
	r.Stability = band
	r.BaseStars = m.Stars.BaseStars(r.TotalSubstance)
	if r.BaseStars < 0 {
		r.BaseStars = argmaxActive(sol, m.Buckets)
	}
	r.StabilityStars = r.Stability.Bonus()
	r.TotalStars = r.BaseStars + r.StabilityStars

	for _, axis := range domain.SensoryAxes {
		n := good[axis] + bad[axis]
		if n == 0 {
			continue
		}
		if r.Sensory == nil {
			r.Sensory = make(map[domain.SensoryAxis]domain.SensoryMix)
		}
		r.Sensory[axis] = domain.SensoryMix{
			Good: float64(good[axis]) / float64(n),
			Bad:  float64(bad[axis]) / float64(n),
		}
	}

	count := float64(r.IngredientCount)
	r.BasePotionPrice = m.Plan.Potion.PriceAt(r.BaseStars)
	r.BaseBatchPrice = r.BasePotionPrice * count
	r.BaseNetProfit = r.BaseBatchPrice - r.IngredientCost
	r.ActualPotionPrice = m.Plan.Potion.PriceAt(r.TotalStars)
	r.ActualBatchPrice = r.ActualPotionPrice * count
	r.ActualNetProfit = r.ActualBatchPrice - r.IngredientCost

	return r, true
}

// argmaxActive returns the index of the indicator with the largest value.
// Exactly one is set in any feasible solution; taking the maximum absorbs
// solver round-off.
func argmaxActive(sol *milp.Solution, inds []milp.Indicator) int {
	best, bestV := 0, math.Inf(-1)
	for i, ind := range inds {
		if v := sol.Value(ind.Active); v > bestV {
			best, bestV = i, v
		}
	}
	return best
}
