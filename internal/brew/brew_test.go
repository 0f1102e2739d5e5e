package brew

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/hammamikhairi/potionbrew/internal/domain"
	"github.com/hammamikhairi/potionbrew/internal/logger"
	"github.com/hammamikhairi/potionbrew/internal/milp"
	"github.com/hammamikhairi/potionbrew/internal/solver"
)

// testCatalog is a map-backed domain.Catalog. Lookups accept IDs or names.
type testCatalog struct {
	ingredients []domain.Ingredient
	cauldrons   []domain.Cauldron
	potions     []domain.PotionType
	stars       domain.StarTable
}

func (c *testCatalog) Ingredient(key string) (domain.Ingredient, error) {
	for _, i := range c.ingredients {
		if strings.EqualFold(i.ID, key) || strings.EqualFold(i.Name, key) {
			return i, nil
		}
	}
	return domain.Ingredient{}, domain.ErrUnknownIngredient
}

func (c *testCatalog) Ingredients() []domain.Ingredient { return c.ingredients }

func (c *testCatalog) Cauldron(key string) (domain.Cauldron, error) {
	for _, x := range c.cauldrons {
		if strings.EqualFold(x.ID, key) || strings.EqualFold(x.Name, key) {
			return x, nil
		}
	}
	return domain.Cauldron{}, domain.ErrUnknownCauldron
}

func (c *testCatalog) Cauldrons() []domain.Cauldron { return c.cauldrons }

func (c *testCatalog) Potion(key string) (domain.PotionType, error) {
	for _, p := range c.potions {
		if strings.EqualFold(p.ID, key) || strings.EqualFold(p.Name, key) {
			return p, nil
		}
	}
	return domain.PotionType{}, domain.ErrUnknownPotion
}

func (c *testCatalog) Potions() []domain.PotionType { return c.potions }

func (c *testCatalog) Stars() domain.StarTable { return c.stars }

var _ domain.Catalog = (*testCatalog)(nil)

// newTestCatalog has two single-substance ingredients of 10 units each,
// a 10-ingredient/100-unit cauldron and a small cauldron for exhaustive
// checks.
func newTestCatalog() *testCatalog {
	var tasty [domain.NumSensoryAxes]domain.SensoryQuality
	tasty[domain.SensoryTaste] = domain.SensoryPositive
	var smelly [domain.NumSensoryAxes]domain.SensoryQuality
	smelly[domain.SensoryAroma] = domain.SensoryNegative

	return &testCatalog{
		ingredients: []domain.Ingredient{
			{ID: "alpha", Name: "Alpha Root", Substances: domain.SubstanceVector{10, 0, 0, 0, 0}, Price: 1},
			{ID: "beta", Name: "Beta Leaf", Substances: domain.SubstanceVector{0, 10, 0, 0, 0}, Price: 2},
			{ID: "gamma", Name: "Gamma Berry", Substances: domain.SubstanceVector{10, 0, 0, 0, 0}, Price: 5, Sensory: tasty},
			{ID: "delta", Name: "Delta Moss", Substances: domain.SubstanceVector{0, 10, 0, 0, 0}, Price: 0.5, Sensory: smelly},
		},
		cauldrons: []domain.Cauldron{
			{ID: "big", Name: "Big Pot", MaxIngredients: 10, MaxSubstance: 100},
			{ID: "small", Name: "Small Pot", MaxIngredients: 4, MaxSubstance: 40},
		},
		potions: []domain.PotionType{
			{ID: "health", Name: "Health Potion", Ratio: domain.Ratio{1, 1, 0, 0, 0},
				Prices: []float64{10, 20, 30, 40, 50, 60, 70}},
			{ID: "fire", Name: "Fire Tonic", Ratio: domain.Ratio{1, 0, 0, 0, 0},
				Prices: []float64{5, 10, 15, 20, 25, 30, 35}},
			{ID: "broken", Name: "Broken Brew"},
		},
		stars: domain.StarTable{Breakpoints: []int{0, 10, 30, 60, 1000}},
	}
}

func intp(n int) *int { return &n }

func tierp(t domain.Tier) *domain.Tier { return &t }

func TestValidate(t *testing.T) {
	cat := newTestCatalog()
	base := func() domain.RecipeRequest {
		return domain.RecipeRequest{
			Inventory: domain.Inventory{"alpha": 3, "beta": 3},
			Cauldron:  "big",
			Potion:    "health",
			Objective: domain.ObjectiveBestForType,
		}
	}

	tests := []struct {
		name      string
		mutate    func(r *domain.RecipeRequest)
		wantKind  *domain.ValidationKind
		wantIs    error
		wantInMsg string
		check     func(t *testing.T, p *Plan)
	}{
		{
			name: "valid best",
			check: func(t *testing.T, p *Plan) {
				if _, ok := p.Objective.(BestForType); !ok {
					t.Fatalf("objective = %T, want BestForType", p.Objective)
				}
				if len(p.Stock) != 2 || p.Stock[0].Ingredient.ID != "alpha" {
					t.Fatalf("stock = %+v", p.Stock)
				}
			},
		},
		{
			name:      "everything missing",
			mutate:    func(r *domain.RecipeRequest) { *r = domain.RecipeRequest{} },
			wantKind:  kindp(domain.MissingField),
			wantInMsg: "inventory is required; cauldron is required",
		},
		{
			name:      "unknown potion",
			mutate:    func(r *domain.RecipeRequest) { r.Potion = "elixir of life" },
			wantKind:  kindp(domain.MissingField),
			wantInMsg: "valid potion type",
		},
		{
			name:      "potion without ratio",
			mutate:    func(r *domain.RecipeRequest) { r.Potion = "broken" },
			wantKind:  kindp(domain.MissingField),
			wantInMsg: "no usable substance ratio",
		},
		{
			name:     "best with star level",
			mutate:   func(r *domain.RecipeRequest) { r.StarLevel = intp(3) },
			wantKind: kindp(domain.InvalidObjective),
		},
		{
			name:     "best with tier",
			mutate:   func(r *domain.RecipeRequest) { r.Tier = tierp(domain.TierGrand) },
			wantKind: kindp(domain.InvalidObjective),
		},
		{
			name:     "cheapest without target",
			mutate:   func(r *domain.RecipeRequest) { r.Objective = domain.ObjectiveCheapestForStars },
			wantKind: kindp(domain.InvalidObjective),
		},
		{
			name: "cheapest negative stars",
			mutate: func(r *domain.RecipeRequest) {
				r.Objective = domain.ObjectiveCheapestForStars
				r.StarLevel = intp(-1)
			},
			wantKind: kindp(domain.InvalidObjective),
		},
		{
			name:     "unknown objective",
			mutate:   func(r *domain.RecipeRequest) { r.Objective = domain.ObjectiveKind(-1) },
			wantKind: kindp(domain.InvalidObjective),
		},
		{
			name: "cheapest with tier and stars",
			mutate: func(r *domain.RecipeRequest) {
				r.Objective = domain.ObjectiveCheapestForStars
				r.Tier = tierp(domain.TierCommon)
				r.StarLevel = intp(2)
			},
			check: func(t *testing.T, p *Plan) {
				if p.Objective != (CheapestForStars{Stars: 8}) {
					t.Fatalf("objective = %v, want 8 stars", p.Objective)
				}
			},
		},
		{
			name: "cheapest with tier only",
			mutate: func(r *domain.RecipeRequest) {
				r.Objective = domain.ObjectiveCheapestForStars
				r.Tier = tierp(domain.TierGreater)
			},
			check: func(t *testing.T, p *Plan) {
				if p.Objective != (CheapestForStars{Stars: 12}) {
					t.Fatalf("objective = %v, want 12 stars", p.Objective)
				}
			},
		},
		{
			name: "cheapest with absolute star level",
			mutate: func(r *domain.RecipeRequest) {
				r.Objective = domain.ObjectiveCheapestForStars
				r.StarLevel = intp(3)
			},
			check: func(t *testing.T, p *Plan) {
				if p.Objective != (CheapestForStars{Stars: 3}) {
					t.Fatalf("objective = %v, want 3 stars", p.Objective)
				}
			},
		},
		{
			name:   "unknown cauldron",
			mutate: func(r *domain.RecipeRequest) { r.Cauldron = "bathtub" },
			wantIs: domain.ErrUnknownCauldron,
		},
		{
			name:   "unknown ingredient",
			mutate: func(r *domain.RecipeRequest) { r.Inventory["unobtainium"] = 1 },
			wantIs: domain.ErrUnknownIngredient,
		},
		{
			name:   "negative quantity",
			mutate: func(r *domain.RecipeRequest) { r.Inventory["alpha"] = -2 },
			wantIs: domain.ErrInventoryFormat,
		},
		{
			name: "names and ids merge",
			mutate: func(r *domain.RecipeRequest) {
				r.Inventory = domain.Inventory{"alpha": 2, "Alpha Root": 3}
				r.Sensory = map[domain.SensoryAxis]domain.SensoryRequirement{
					domain.SensoryTaste: domain.SensoryAny,
					domain.SensoryAroma: domain.SensoryExcludeNegative,
				}
			},
			check: func(t *testing.T, p *Plan) {
				if len(p.Stock) != 1 || p.Stock[0].Available != 5 {
					t.Fatalf("stock = %+v, want one entry of 5", p.Stock)
				}
				if len(p.Sensory) != 1 || p.Sensory[domain.SensoryAroma] != domain.SensoryExcludeNegative {
					t.Fatalf("sensory = %v, want only aroma", p.Sensory)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base()
			if tt.mutate != nil {
				tt.mutate(&req)
			}
			plan, err := Validate(req, cat)

			if tt.wantKind != nil {
				var ve *domain.ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("err = %v, want *ValidationError", err)
				}
				if ve.Kind != *tt.wantKind {
					t.Fatalf("kind = %s, want %s", ve.Kind, *tt.wantKind)
				}
				if !errors.Is(err, domain.ErrInvalidRequest) {
					t.Fatal("validation error does not unwrap to ErrInvalidRequest")
				}
				if tt.wantInMsg != "" && !strings.Contains(err.Error(), tt.wantInMsg) {
					t.Fatalf("message %q does not contain %q", err.Error(), tt.wantInMsg)
				}
				return
			}
			if tt.wantIs != nil {
				if !errors.Is(err, tt.wantIs) {
					t.Fatalf("err = %v, want %v", err, tt.wantIs)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.check != nil {
				tt.check(t, plan)
			}
		})
	}
}

func kindp(k domain.ValidationKind) *domain.ValidationKind { return &k }

func TestValidateDoesNotMutateInventory(t *testing.T) {
	inv := domain.Inventory{"alpha": 2, "Alpha Root": 3}
	req := domain.RecipeRequest{Inventory: inv, Cauldron: "big", Potion: "health", Objective: domain.ObjectiveBestForType}
	if _, err := Validate(req, newTestCatalog()); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(inv) != 2 || inv["alpha"] != 2 || inv["Alpha Root"] != 3 {
		t.Fatalf("inventory changed: %v", inv)
	}
}

func compileRequest(t *testing.T, cat *testCatalog, req domain.RecipeRequest) *Model {
	t.Helper()
	plan, err := Validate(req, cat)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	m, err := Compile(plan, cat.stars)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return m
}

// complete builds the full assignment implied by ingredient quantities:
// exact deviations and the indicator values the encoding is meant to force.
func complete(m *Model, qty map[string]int) []float64 {
	values := make([]float64, m.Program.NumVars())
	for _, q := range m.Quantities {
		values[q.Var] = float64(qty[q.Ingredient.ID])
	}

	total := m.Total.Eval(values)
	deviance := 0.0
	for _, sub := range domain.Substances {
		d := math.Abs(m.Ratio[sub]*total - m.Totals[sub].Eval(values))
		values[m.Deviation[sub]] = d
		deviance += d
	}

	set := func(ind milp.Indicator, atLeast, atMost bool) {
		values[ind.AtLeast] = b2f(atLeast)
		values[ind.AtMost] = b2f(atMost)
		values[ind.Active] = b2f(atLeast && atMost)
	}

	bp := m.Stars.Breakpoints
	for i, ind := range m.Buckets {
		hi := bp[i+1] - 1
		if i == len(m.Buckets)-1 && m.Plan.Cauldron.MaxSubstance > hi {
			hi = m.Plan.Cauldron.MaxSubstance
		}
		set(ind, total >= float64(bp[i]), total <= float64(hi))
	}
	for _, b := range domain.StabilityBands {
		lo, hi, strict := b.Bounds()
		atLeast := deviance >= lo*total
		if strict {
			atLeast = deviance > lo*total
		}
		set(m.Bands[b], atLeast, deviance <= hi*total)
	}
	return values
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func TestCompileMatchesDomainRulesExhaustively(t *testing.T) {
	cat := newTestCatalog()
	m := compileRequest(t, cat, domain.RecipeRequest{
		Inventory: domain.Inventory{"alpha": 9, "beta": 9},
		Cauldron:  "small",
		Potion:    "health",
		Objective: domain.ObjectiveBestForType,
	})

	for _, q := range m.Quantities {
		if q.Upper != 4 {
			t.Fatalf("%s upper = %d, want cauldron max 4", q.Ingredient.ID, q.Upper)
		}
	}

	for a := 0; a <= 4; a++ {
		for b := 0; b <= 4; b++ {
			count, total := a+b, 10*(a+b)
			frac := 0.0
			if count > 0 {
				frac = math.Abs(float64(a-b)) / float64(count)
			}
			feasible := count >= 1 && count <= 4 && total <= 40 && a >= 1 && b >= 1 && frac <= 0.5

			values := complete(m, map[string]int{"alpha": a, "beta": b})
			violations := m.Program.Check(values, 1e-9)
			if feasible != (len(violations) == 0) {
				t.Fatalf("a=%d b=%d: feasible=%v but violations %v", a, b, feasible, violations)
			}
			if !feasible {
				continue
			}

			// Exactly one bucket and one band.
			buckets, bands := 0, 0
			for _, ind := range m.Buckets {
				buckets += int(values[ind.Active])
			}
			for _, ind := range m.Bands {
				bands += int(values[ind.Active])
			}
			if buckets != 1 || bands != 1 {
				t.Fatalf("a=%d b=%d: %d buckets and %d bands active", a, b, buckets, bands)
			}

			// Claiming a different bucket must break the program.
			for i, ind := range m.Buckets {
				if values[ind.Active] == 1 {
					continue
				}
				alt := append([]float64(nil), values...)
				for _, other := range m.Buckets {
					alt[other.Active] = 0
				}
				alt[ind.Active] = 1
				if len(m.Program.Check(alt, 1e-9)) == 0 {
					t.Fatalf("a=%d b=%d: bucket %d accepted for total %d", a, b, i, total)
				}
			}

			// Same for bands.
			for bi, ind := range m.Bands {
				if values[ind.Active] == 1 {
					continue
				}
				alt := append([]float64(nil), values...)
				for _, other := range m.Bands {
					alt[other.Active] = 0
				}
				alt[ind.Active] = 1
				if len(m.Program.Check(alt, 1e-9)) == 0 {
					t.Fatalf("a=%d b=%d: band %s accepted at fraction %.2f", a, b, domain.StabilityBands[bi], frac)
				}
			}
		}
	}
}

func TestCompileBoundsAndBigM(t *testing.T) {
	cat := newTestCatalog()

	t.Run("stock caps quantities", func(t *testing.T) {
		m := compileRequest(t, cat, domain.RecipeRequest{
			Inventory: domain.Inventory{"alpha": 2, "beta": 50, "gamma": 0},
			Cauldron:  "big",
			Potion:    "health",
			Objective: domain.ObjectiveBestForType,
		})
		if len(m.Quantities) != 2 {
			t.Fatalf("quantities = %d, want 2 (gamma has none on hand)", len(m.Quantities))
		}
		if m.Quantities[0].Upper != 2 || m.Quantities[1].Upper != 10 {
			t.Fatalf("uppers = %d, %d; want 2, 10", m.Quantities[0].Upper, m.Quantities[1].Upper)
		}
	})

	t.Run("batch ignores stock", func(t *testing.T) {
		m := compileRequest(t, cat, domain.RecipeRequest{
			Inventory: domain.Inventory{"alpha": 0, "beta": 1},
			Cauldron:  "big",
			Potion:    "health",
			Objective: domain.ObjectiveMostProfitableBatch,
		})
		if len(m.Quantities) != 2 {
			t.Fatalf("quantities = %d, want 2", len(m.Quantities))
		}
		for _, q := range m.Quantities {
			if q.Upper != 10 {
				t.Fatalf("%s upper = %d, want 10", q.Ingredient.ID, q.Upper)
			}
		}
	})

	t.Run("big-M covers capacity", func(t *testing.T) {
		c := domain.Cauldron{MaxIngredients: 10, MaxSubstance: 100}
		stars := domain.StarTable{Breakpoints: []int{0, 10, 30, 60, 1000}}
		// Substance total against any breakpoint, and deviance (up to five
		// times capacity) against any band boundary.
		if m := BigM(c, stars); m <= 100+1000+1 || m <= 5*100+50+1 {
			t.Fatalf("BigM = %v is too small", m)
		}
	})

	t.Run("unreachable buckets are fixed off", func(t *testing.T) {
		m := compileRequest(t, cat, domain.RecipeRequest{
			Inventory: domain.Inventory{"alpha": 4, "beta": 4},
			Cauldron:  "small",
			Potion:    "health",
			Objective: domain.ObjectiveBestForType,
		})
		// Small cauldron holds 40: bucket 3 starts at 60.
		v := m.Program.Variable(m.Buckets[3].Active)
		if v.Upper != 0 {
			t.Fatalf("bucket 3 upper = %v, want 0", v.Upper)
		}
	})
}

func TestCompileWidensLastBucket(t *testing.T) {
	cat := newTestCatalog()
	cat.stars = domain.StarTable{Breakpoints: []int{0, 10, 30}}
	m := compileRequest(t, cat, domain.RecipeRequest{
		Inventory: domain.Inventory{"alpha": 5, "beta": 5},
		Cauldron:  "big",
		Potion:    "health",
		Objective: domain.ObjectiveBestForType,
	})
	values := complete(m, map[string]int{"alpha": 5, "beta": 5})
	if v := m.Program.Check(values, 1e-9); len(v) != 0 {
		t.Fatalf("total 100 past the last breakpoint rejected: %v", v)
	}
	if values[m.Buckets[1].Active] != 1 {
		t.Fatal("total 100 should land in the last bucket")
	}
}

func TestExtract(t *testing.T) {
	cat := newTestCatalog()
	m := compileRequest(t, cat, domain.RecipeRequest{
		Inventory: domain.Inventory{"gamma": 5, "delta": 5, "alpha": 5},
		Cauldron:  "big",
		Potion:    "health",
		Objective: domain.ObjectiveBestForType,
	})
	values := complete(m, map[string]int{"gamma": 2, "delta": 2})
	if v := m.Program.Check(values, 1e-9); len(v) != 0 {
		t.Fatalf("assignment infeasible: %v", v)
	}

	if _, ok := Extract(m, &milp.Solution{Status: milp.Infeasible}); ok {
		t.Fatal("Extract accepted an infeasible solution")
	}
	if _, ok := Extract(m, nil); ok {
		t.Fatal("Extract accepted a nil solution")
	}

	r, ok := Extract(m, &milp.Solution{Status: milp.Optimal, Values: values})
	if !ok {
		t.Fatal("Extract rejected an optimal solution")
	}
	if len(r.Ingredients) != 2 || r.Quantity("gamma") != 2 || r.Quantity("delta") != 2 || r.Quantity("alpha") != 0 {
		t.Fatalf("ingredients = %+v", r.Ingredients)
	}
	if r.Substances != (domain.SubstanceVector{20, 20, 0, 0, 0}) || r.TotalSubstance != 40 {
		t.Fatalf("substances = %v total %d", r.Substances, r.TotalSubstance)
	}
	if r.Deviance != 0 || r.DevianceFraction != 0 || r.Stability != domain.StabilityPerfect {
		t.Fatalf("deviance %v fraction %v stability %s", r.Deviance, r.DevianceFraction, r.Stability)
	}
	if r.BaseStars != 2 || r.StabilityStars != 2 || r.TotalStars != 4 {
		t.Fatalf("stars = %d + %d = %d, want 2 + 2 = 4", r.BaseStars, r.StabilityStars, r.TotalStars)
	}
	if r.Sensory[domain.SensoryTaste] != (domain.SensoryMix{Good: 1}) {
		t.Fatalf("taste = %+v", r.Sensory[domain.SensoryTaste])
	}
	if r.Sensory[domain.SensoryAroma] != (domain.SensoryMix{Bad: 1}) {
		t.Fatalf("aroma = %+v", r.Sensory[domain.SensoryAroma])
	}
	if _, ok := r.Sensory[domain.SensorySound]; ok {
		t.Fatal("sound has no rated ingredient and should be omitted")
	}
	if r.IngredientCount != 4 || r.IngredientCost != 11 {
		t.Fatalf("count %d cost %v, want 4 and 11", r.IngredientCount, r.IngredientCost)
	}
	if r.BasePotionPrice != 30 || r.BaseBatchPrice != 120 || r.BaseNetProfit != 109 {
		t.Fatalf("base prices %v %v %v", r.BasePotionPrice, r.BaseBatchPrice, r.BaseNetProfit)
	}
	if r.ActualPotionPrice != 50 || r.ActualBatchPrice != 200 || r.ActualNetProfit != 189 {
		t.Fatalf("actual prices %v %v %v", r.ActualPotionPrice, r.ActualBatchPrice, r.ActualNetProfit)
	}
}

func TestExtractReadsBandFromTotals(t *testing.T) {
	cat := newTestCatalog()
	m := compileRequest(t, cat, domain.RecipeRequest{
		Inventory: domain.Inventory{"alpha": 5, "beta": 5},
		Cauldron:  "big",
		Potion:    "health",
		Objective: domain.ObjectiveBestForType,
	})
	values := complete(m, map[string]int{"alpha": 2, "beta": 2})
	// Deviation variables are only bounded below, so a solver may return
	// them inflated with a weaker band selected.
	values[m.Bands[domain.StabilityPerfect].Active] = 0
	values[m.Bands[domain.StabilityVeryStable].Active] = 1
	for _, dev := range m.Deviation {
		values[dev] = 1
	}

	r, ok := Extract(m, &milp.Solution{Status: milp.Optimal, Values: values})
	if !ok {
		t.Fatal("Extract rejected an optimal solution")
	}
	if r.Stability != domain.StabilityPerfect || r.Deviance != 0 || r.DevianceFraction != 0 {
		t.Fatalf("stability %s deviance %v fraction %v, want Perfect with none", r.Stability, r.Deviance, r.DevianceFraction)
	}
	if r.BaseStars != 2 || r.TotalStars != 4 {
		t.Fatalf("stars = %d total %d, want 2 and 4", r.BaseStars, r.TotalStars)
	}
}

func solve(t *testing.T, cat *testCatalog, req domain.RecipeRequest) (*Model, *domain.RecipeSolution, bool) {
	t.Helper()
	m := compileRequest(t, cat, req)
	s := solver.NewSimplex(logger.New(logger.LevelOff, nil))
	sol, err := s.Solve(context.Background(), m.Program, milp.Limits{})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if sol.Status == milp.Optimal {
		if v := m.Program.Check(sol.Values, 1e-6); len(v) != 0 {
			t.Fatalf("solver returned infeasible assignment: %v", v)
		}
	}
	r, ok := Extract(m, sol)
	return m, r, ok
}

func TestScenarioBestBalancesTwoSubstances(t *testing.T) {
	_, r, ok := solve(t, newTestCatalog(), domain.RecipeRequest{
		Inventory: domain.Inventory{"alpha": 99, "beta": 99},
		Cauldron:  "big",
		Potion:    "health",
		Objective: domain.ObjectiveBestForType,
	})
	if !ok {
		t.Fatal("no recipe found")
	}
	if r.Quantity("alpha") != r.Quantity("beta") {
		t.Fatalf("alpha %d beta %d, want equal", r.Quantity("alpha"), r.Quantity("beta"))
	}
	if r.Stability != domain.StabilityPerfect || r.TotalStars != 5 {
		t.Fatalf("stability %s stars %d, want Perfect and 5", r.Stability, r.TotalStars)
	}
	if r.IngredientCount > 10 || r.TotalSubstance > 100 || r.DevianceFraction > 0.5 {
		t.Fatalf("capacity broken: %+v", r)
	}
}

func TestScenarioRequirePositiveWithoutPositives(t *testing.T) {
	_, _, ok := solve(t, newTestCatalog(), domain.RecipeRequest{
		Inventory: domain.Inventory{"alpha": 99, "beta": 99},
		Cauldron:  "big",
		Potion:    "health",
		Objective: domain.ObjectiveBestForType,
		Sensory:   map[domain.SensoryAxis]domain.SensoryRequirement{domain.SensoryTaste: domain.SensoryRequirePositive},
	})
	if ok {
		t.Fatal("expected no recipe when no ingredient tastes good")
	}
}

func TestScenarioSensoryRules(t *testing.T) {
	cat := newTestCatalog()
	inv := domain.Inventory{"alpha": 5, "beta": 5, "gamma": 5, "delta": 5}

	_, r, ok := solve(t, cat, domain.RecipeRequest{
		Inventory: inv,
		Cauldron:  "small",
		Potion:    "health",
		Objective: domain.ObjectiveCheapestForStars,
		StarLevel: intp(0),
		Sensory: map[domain.SensoryAxis]domain.SensoryRequirement{
			domain.SensoryTaste: domain.SensoryRequirePositive,
			domain.SensoryAroma: domain.SensoryExcludeNegative,
		},
	})
	if !ok {
		t.Fatal("no recipe found")
	}
	if r.Quantity("gamma") < 1 {
		t.Fatal("taste requires the positive gamma berry")
	}
	if r.Quantity("delta") != 0 {
		t.Fatal("aroma forbids the negative delta moss")
	}
}

func TestScenarioCheapestForZeroStars(t *testing.T) {
	_, r, ok := solve(t, newTestCatalog(), domain.RecipeRequest{
		Inventory: domain.Inventory{"alpha": 5, "beta": 5, "gamma": 5},
		Cauldron:  "big",
		Potion:    "fire",
		Objective: domain.ObjectiveCheapestForStars,
		StarLevel: intp(0),
	})
	if !ok {
		t.Fatal("no recipe found")
	}
	if len(r.Ingredients) != 1 || r.Quantity("alpha") != 1 || r.IngredientCost != 1 {
		t.Fatalf("ingredients = %+v, want a single alpha root", r.Ingredients)
	}
}

func TestScenarioCheapestForZeroStarsUsesOneOfEach(t *testing.T) {
	_, r, ok := solve(t, newTestCatalog(), domain.RecipeRequest{
		Inventory: domain.Inventory{"alpha": 5, "beta": 5},
		Cauldron:  "big",
		Potion:    "health",
		Objective: domain.ObjectiveCheapestForStars,
		StarLevel: intp(0),
	})
	if !ok {
		t.Fatal("no recipe found")
	}
	if r.Quantity("alpha") != 1 || r.Quantity("beta") != 1 || r.IngredientCost != 3 {
		t.Fatalf("ingredients = %+v cost %v, want 1+1 for 3", r.Ingredients, r.IngredientCost)
	}
	if r.Stability != domain.StabilityPerfect || r.Deviance != 0 {
		t.Fatalf("stability %s deviance %v, want Perfect and 0", r.Stability, r.Deviance)
	}
}

func TestScenarioCheapestReachesTargetAtMinimalCost(t *testing.T) {
	_, r, ok := solve(t, newTestCatalog(), domain.RecipeRequest{
		Inventory: domain.Inventory{"alpha": 10, "beta": 10},
		Cauldron:  "big",
		Potion:    "health",
		Objective: domain.ObjectiveCheapestForStars,
		StarLevel: intp(5),
	})
	if !ok {
		t.Fatal("no recipe found")
	}
	if r.TotalStars < 5 {
		t.Fatalf("stars = %d, want at least 5", r.TotalStars)
	}
	// 60 units perfectly balanced is the cheapest way to 3+2 stars.
	if r.Quantity("alpha") != 3 || r.Quantity("beta") != 3 || r.IngredientCost != 9 {
		t.Fatalf("ingredients = %+v cost %v, want 3+3 for 9", r.Ingredients, r.IngredientCost)
	}
}

func TestScenarioMostProfitableBatch(t *testing.T) {
	_, r, ok := solve(t, newTestCatalog(), domain.RecipeRequest{
		Inventory: domain.Inventory{"alpha": 0, "beta": 1},
		Cauldron:  "big",
		Potion:    "health",
		Objective: domain.ObjectiveMostProfitableBatch,
	})
	if !ok {
		t.Fatal("no recipe found")
	}
	if r.Stability != domain.StabilityPerfect {
		t.Fatalf("stability = %s, want Perfect", r.Stability)
	}
	if r.IngredientCount != 10 {
		t.Fatalf("count = %d, want the full cauldron", r.IngredientCount)
	}
	if r.TotalStars != 5 || r.ActualBatchPrice != 600 || r.ActualNetProfit != 585 {
		t.Fatalf("stars %d batch %v profit %v, want 5, 600, 585", r.TotalStars, r.ActualBatchPrice, r.ActualNetProfit)
	}
}

func TestNormalizedRatioSumsToOne(t *testing.T) {
	for _, p := range newTestCatalog().potions {
		r, ok := p.Ratio.Normalize()
		if !ok {
			continue
		}
		if math.Abs(r.Sum()-1) > 1e-12 {
			t.Fatalf("%s normalized sum = %v", p.ID, r.Sum())
		}
	}
}
