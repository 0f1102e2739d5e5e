package domain

import (
	"fmt"
	"maps"
	"strings"
)

// ObjectiveKind is the optimization goal as received from a caller.
// The zero value means "not specified".
type ObjectiveKind int

const (
	ObjectiveUnset ObjectiveKind = iota
	// ObjectiveBestForType maximizes star count for a potion type.
	ObjectiveBestForType
	// ObjectiveCheapestForStars minimizes ingredient cost for a star level.
	ObjectiveCheapestForStars
	// ObjectiveMostProfitableBatch maximizes batch profit for a full cauldron.
	ObjectiveMostProfitableBatch
)

// String returns the snake_case objective name.
func (o ObjectiveKind) String() string {
	switch o {
	case ObjectiveBestForType:
		return "best_for_type"
	case ObjectiveCheapestForStars:
		return "cheapest_for_stars"
	case ObjectiveMostProfitableBatch:
		return "most_profitable_batch"
	case ObjectiveUnset:
		return ""
	default:
		return fmt.Sprintf("objective(%d)", int(o))
	}
}

// objectiveNames maps accepted spellings to objectives.
var objectiveNames = map[string]ObjectiveKind{
	"best_for_type":            ObjectiveBestForType,
	"best":                     ObjectiveBestForType,
	"best_for_given_type":      ObjectiveBestForType,
	"cheapest_for_stars":       ObjectiveCheapestForStars,
	"cheapest":                 ObjectiveCheapestForStars,
	"cheapest_for_given_stars": ObjectiveCheapestForStars,
	"most_profitable_batch":    ObjectiveMostProfitableBatch,
	"profit":                   ObjectiveMostProfitableBatch,
	"most_profitable":          ObjectiveMostProfitableBatch,
}

// ParseObjective converts a name like "best", "Cheapest For Stars" or
// "most-profitable-batch" into an ObjectiveKind.
func ParseObjective(s string) (ObjectiveKind, error) {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.NewReplacer("-", "_", " ", "_").Replace(k)
	if o, ok := objectiveNames[k]; ok {
		return o, nil
	}
	return ObjectiveUnset, fmt.Errorf("unknown objective %q", s)
}

// MarshalText encodes the objective name.
func (o ObjectiveKind) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText parses an objective name. Unknown names decode to an
// out-of-range kind so request validation can report them.
func (o *ObjectiveKind) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*o = ObjectiveUnset
		return nil
	}
	v, err := ParseObjective(string(b))
	if err != nil {
		*o = ObjectiveKind(-1)
		return nil
	}
	*o = v
	return nil
}

// Inventory maps ingredient ID to the quantity on hand.
type Inventory map[string]int

// Clone returns an independent copy.
func (inv Inventory) Clone() Inventory {
	if inv == nil {
		return nil
	}
	return maps.Clone(inv)
}

// RecipeRequest is one optimization request as a caller states it.
// Identifiers may be IDs or display names; they are resolved against
// the catalog.
type RecipeRequest struct {
	Inventory Inventory                          `json:"inventory"`
	Cauldron  string                             `json:"cauldron"`
	Potion    string                             `json:"potion"`
	Objective ObjectiveKind                      `json:"objective"`
	StarLevel *int                               `json:"starLevel,omitempty"`
	Tier      *Tier                              `json:"tier,omitempty"`
	Sensory   map[SensoryAxis]SensoryRequirement `json:"sensory,omitempty"`
}

// Requirement returns the sensory requirement for an axis, SensoryAny if unset.
func (r RecipeRequest) Requirement(a SensoryAxis) SensoryRequirement {
	return r.Sensory[a]
}
