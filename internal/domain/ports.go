package domain

import (
	"context"
	"io"
)

// Catalog provides the read-only game data tables. Lookups accept an ID
// or a display name and fail with ErrUnknownIngredient, ErrUnknownCauldron
// or ErrUnknownPotion.
type Catalog interface {
	Ingredient(key string) (Ingredient, error)
	Ingredients() []Ingredient
	Cauldron(key string) (Cauldron, error)
	Cauldrons() []Cauldron
	Potion(key string) (PotionType, error)
	Potions() []PotionType
	Stars() StarTable
}

// InventoryLoader turns a saved inventory artifact into an Inventory keyed
// by ingredient ID. Malformed input fails with ErrInventoryFormat.
type InventoryLoader interface {
	Load(ctx context.Context, r io.Reader) (Inventory, error)
}

// ReportStore keeps brew outcomes for later retrieval. Implementations can
// be in-memory, Redis, or any other backend.
type ReportStore interface {
	Save(ctx context.Context, outcome *Outcome) error
	Load(ctx context.Context, id string) (*Outcome, error)
	// Lookup finds a stored outcome by request fingerprint.
	Lookup(ctx context.Context, fingerprint string) (*Outcome, error)
	Delete(ctx context.Context, id string) error
}
