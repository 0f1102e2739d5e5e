// Package brew turns a recipe request into a mixed-integer program and
// decodes solver output back into a recipe report.
//
// The flow is Validate -> Compile -> (any milp.Solver) -> Extract. Every
// call builds fresh values; nothing is cached or shared between requests.
package brew

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"

	"github.com/hammamikhairi/potionbrew/internal/domain"
)

// Objective is the validated optimization goal. The set of variants is
// closed: BestForType, CheapestForStars and MostProfitableBatch.
type Objective interface {
	fmt.Stringer
	// limitedByStock reports whether quantities are capped by inventory.
	limitedByStock() bool
	apply(m *Model)
}

// BestForType maximizes the total star count.
type BestForType struct{}

// CheapestForStars minimizes ingredient cost subject to reaching Stars.
type CheapestForStars struct {
	Stars int
}

// MostProfitableBatch maximizes batch profit for a full, perfectly stable
// cauldron, ignoring how much of each ingredient is on hand.
type MostProfitableBatch struct{}

func (BestForType) String() string { return domain.ObjectiveBestForType.String() }
func (o CheapestForStars) String() string {
	return fmt.Sprintf("%s(%d)", domain.ObjectiveCheapestForStars, o.Stars)
}
func (MostProfitableBatch) String() string { return domain.ObjectiveMostProfitableBatch.String() }

// Stock is one candidate ingredient with its on-hand quantity.
type Stock struct {
	Ingredient domain.Ingredient
	Available  int
}

// Plan is a request that passed validation, with every identifier
// resolved against the catalog. Stock is sorted by ingredient ID.
type Plan struct {
	Stock     []Stock
	Cauldron  domain.Cauldron
	Potion    domain.PotionType
	Objective Objective
	Sensory   map[domain.SensoryAxis]domain.SensoryRequirement
}

// Validate checks a request and resolves it into a Plan.
//
// Missing or unusable fields fail with a *domain.ValidationError of kind
// MissingField; an unknown objective or one inconsistent with the star
// level and tier fields fails with kind InvalidObjective. Unknown cauldron
// or ingredient identifiers are returned as the catalog reports them.
func Validate(req domain.RecipeRequest, cat domain.Catalog) (*Plan, error) {
	var missing []string
	if len(req.Inventory) == 0 {
		missing = append(missing, "inventory is required")
	}
	if req.Cauldron == "" {
		missing = append(missing, "cauldron is required")
	}

	var potion domain.PotionType
	switch {
	case req.Potion == "":
		missing = append(missing, "potion is required and must be a valid potion type")
	default:
		p, err := cat.Potion(req.Potion)
		if err != nil {
			if !errors.Is(err, domain.ErrUnknownPotion) {
				return nil, err
			}
			missing = append(missing, fmt.Sprintf("potion %q is not a valid potion type", req.Potion))
		}
		potion = p
	}
	if req.Objective == domain.ObjectiveUnset {
		missing = append(missing, "objective is required")
	}
	if len(missing) > 0 {
		return nil, &domain.ValidationError{Kind: domain.MissingField, Problems: missing}
	}

	obj, err := validateObjective(req)
	if err != nil {
		return nil, err
	}

	if _, ok := potion.Ratio.Normalize(); !ok {
		return nil, &domain.ValidationError{
			Kind:     domain.MissingField,
			Problems: []string{fmt.Sprintf("potion %q has no usable substance ratio", potion.ID)},
		}
	}

	cauldron, err := cat.Cauldron(req.Cauldron)
	if err != nil {
		return nil, err
	}

	stock, err := resolveStock(req.Inventory, cat)
	if err != nil {
		return nil, err
	}

	sensory := make(map[domain.SensoryAxis]domain.SensoryRequirement, len(req.Sensory))
	for axis, r := range req.Sensory {
		if r != domain.SensoryAny {
			sensory[axis] = r
		}
	}

	return &Plan{
		Stock:     stock,
		Cauldron:  cauldron,
		Potion:    potion,
		Objective: obj,
		Sensory:   sensory,
	}, nil
}

func validateObjective(req domain.RecipeRequest) (Objective, error) {
	invalid := func(format string, args ...any) error {
		return &domain.ValidationError{
			Kind:     domain.InvalidObjective,
			Problems: []string{fmt.Sprintf(format, args...)},
		}
	}

	switch req.Objective {
	case domain.ObjectiveBestForType:
		if req.StarLevel != nil || req.Tier != nil {
			return nil, invalid("%s does not take a star level or tier", req.Objective)
		}
		return BestForType{}, nil

	case domain.ObjectiveCheapestForStars:
		if req.StarLevel == nil && req.Tier == nil {
			return nil, invalid("%s needs a star level or a tier", req.Objective)
		}
		stars := 0
		if req.StarLevel != nil {
			if *req.StarLevel < 0 {
				return nil, invalid("star level %d is negative", *req.StarLevel)
			}
			stars = *req.StarLevel
		}
		if req.Tier != nil {
			stars = domain.StarLevel(*req.Tier, stars)
		}
		return CheapestForStars{Stars: stars}, nil

	case domain.ObjectiveMostProfitableBatch:
		return MostProfitableBatch{}, nil

	default:
		return nil, invalid("objective must be one of %s, %s or %s",
			domain.ObjectiveBestForType, domain.ObjectiveCheapestForStars, domain.ObjectiveMostProfitableBatch)
	}
}

// resolveStock maps inventory keys to catalog ingredients. Keys naming the
// same ingredient are merged.
func resolveStock(inv domain.Inventory, cat domain.Catalog) ([]Stock, error) {
	byID := make(map[string]*Stock, len(inv))
	for _, key := range slices.Sorted(maps.Keys(inv)) {
		qty := inv[key]
		if qty < 0 {
			return nil, fmt.Errorf("%w: %q has negative quantity %d", domain.ErrInventoryFormat, key, qty)
		}
		ing, err := cat.Ingredient(key)
		if err != nil {
			return nil, fmt.Errorf("inventory entry %q: %w", key, err)
		}
		if s, ok := byID[ing.ID]; ok {
			s.Available += qty
			continue
		}
		byID[ing.ID] = &Stock{Ingredient: ing, Available: qty}
	}

	out := make([]Stock, 0, len(byID))
	for _, s := range byID {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ingredient.ID < out[j].Ingredient.ID })
	return out, nil
}
