package domain

import "time"

// SolveStatus is the terminal state of one solve.
type SolveStatus int

const (
	StatusOptimal SolveStatus = iota
	StatusInfeasible
	StatusUnbounded
	StatusError
)

// String returns a human-readable status.
func (s SolveStatus) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	default:
		return "error"
	}
}

// MarshalText encodes the status name.
func (s SolveStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name.
func (s *SolveStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "optimal":
		*s = StatusOptimal
	case "infeasible":
		*s = StatusInfeasible
	case "unbounded":
		*s = StatusUnbounded
	default:
		*s = StatusError
	}
	return nil
}

// IngredientUse is one line of a recipe.
type IngredientUse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// RecipeSolution is the decoded report for one feasible recipe.
type RecipeSolution struct {
	Potion   string `json:"potion"`
	Cauldron string `json:"cauldron"`

	Ingredients     []IngredientUse `json:"ingredients"`
	IngredientCount int             `json:"ingredientCount"`

	Substances       SubstanceVector `json:"substances"`
	TotalSubstance   int             `json:"totalSubstance"`
	Deviance         float64         `json:"deviance"`
	DevianceFraction float64         `json:"devianceFraction"`

	Stability      StabilityBand `json:"stability"`
	BaseStars      int           `json:"baseStars"`
	StabilityStars int           `json:"stabilityStars"`
	TotalStars     int           `json:"totalStars"`

	// Sensory holds an entry only for axes where at least one chosen
	// ingredient is rated positive or negative.
	Sensory map[SensoryAxis]SensoryMix `json:"sensory,omitempty"`

	IngredientCost    float64 `json:"ingredientCost"`
	BasePotionPrice   float64 `json:"basePotionPrice"`
	BaseBatchPrice    float64 `json:"baseBatchPrice"`
	BaseNetProfit     float64 `json:"baseNetProfit"`
	ActualPotionPrice float64 `json:"actualPotionPrice"`
	ActualBatchPrice  float64 `json:"actualBatchPrice"`
	ActualNetProfit   float64 `json:"actualNetProfit"`
}

// Quantity returns the chosen quantity of an ingredient, 0 if unused.
func (s *RecipeSolution) Quantity(id string) int {
	for _, u := range s.Ingredients {
		if u.ID == id {
			return u.Quantity
		}
	}
	return 0
}

// Outcome is the result of one brew request. Solution is nil when no
// feasible recipe exists; that is a normal outcome, not an error.
type Outcome struct {
	ID          string          `json:"id"`
	Fingerprint string          `json:"fingerprint,omitempty"`
	Request     RecipeRequest   `json:"request"`
	Status      SolveStatus     `json:"status"`
	Solution    *RecipeSolution `json:"solution,omitempty"`

	// LimitReached is set when the solver stopped on a time or node limit;
	// the solution is then the best found rather than a proven optimum.
	LimitReached bool          `json:"limitReached,omitempty"`
	Nodes        int           `json:"nodes,omitempty"`
	Elapsed      time.Duration `json:"elapsed"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// Found reports whether a recipe was produced.
func (o *Outcome) Found() bool {
	return o != nil && o.Solution != nil
}
