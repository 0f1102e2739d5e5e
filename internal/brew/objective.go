package brew

import (
	"github.com/hammamikhairi/potionbrew/internal/domain"
	"github.com/hammamikhairi/potionbrew/internal/milp"
)

func (BestForType) limitedByStock() bool { return true }

func (BestForType) apply(m *Model) {
	m.Program.SetObjective(milp.Maximize, m.TotalStars().Minus(m.devianceTieBreak()))
}

func (CheapestForStars) limitedByStock() bool { return true }

func (o CheapestForStars) apply(m *Model) {
	m.Program.AddGE("target_stars", m.TotalStars(), milp.Const(float64(o.Stars)))
	m.Program.SetObjective(milp.Minimize, m.Cost.Plus(m.devianceTieBreak()))
}

func (MostProfitableBatch) limitedByStock() bool { return false }

// apply fills the cauldron with a perfectly stable brew. With the band
// fixed, the unit price depends on the star bucket alone, so revenue is
// linear in the bucket indicators.
func (MostProfitableBatch) apply(m *Model) {
	p := m.Program
	batch := float64(m.Plan.Cauldron.MaxIngredients)

	p.AddEQ("full_batch", m.Count, milp.Const(batch))
	p.AddEQ("perfect_stability", milp.V(m.Bands[domain.StabilityPerfect].Active), milp.Const(1))

	bonus := domain.StabilityPerfect.Bonus()
	var revenue milp.Expr
	for i, ind := range m.Buckets {
		revenue = revenue.AddTerm(ind.Active, m.Plan.Potion.PriceAt(i+bonus)*batch)
	}
	p.SetObjective(milp.Maximize, revenue.Minus(m.Cost).Minus(m.devianceTieBreak()))
}
