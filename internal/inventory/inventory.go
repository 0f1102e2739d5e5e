// Package inventory reads player inventories from YAML or JSON files and
// builds sandbox inventories from the catalog.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/hammamikhairi/potionbrew/internal/domain"
	"github.com/hammamikhairi/potionbrew/internal/gamedata"
)

// Compile-time interface check.
var _ domain.InventoryLoader = (*Loader)(nil)

// Loader resolves inventory documents against a catalog. A document is a
// mapping of ingredient name or ID to quantity, either at the top level or
// under an "inventory" key:
//
//	inventory:
//	  Sack of Slime: 13
//	  mandrake-root: 17
type Loader struct {
	catalog domain.Catalog
}

// NewLoader creates a loader for the given catalog.
func NewLoader(catalog domain.Catalog) *Loader {
	return &Loader{catalog: catalog}
}

// Load parses one document. The result is keyed by ingredient ID.
func (l *Loader) Load(ctx context.Context, r io.Reader) (domain.Inventory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", domain.ErrInventoryFormat)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInventoryFormat, err)
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) == 1 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: expected a mapping of ingredient to quantity", domain.ErrInventoryFormat)
	}
	if len(root.Content) == 2 && root.Content[0].Value == "inventory" {
		root = root.Content[1]
		if root.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%w: inventory must be a mapping", domain.ErrInventoryFormat)
		}
	}

	inv := make(domain.Inventory, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		qty, err := strconv.Atoi(val.Value)
		if val.Kind != yaml.ScalarNode || err != nil {
			return nil, fmt.Errorf("%w: line %d: quantity for %q is not an integer",
				domain.ErrInventoryFormat, val.Line, key.Value)
		}
		if qty < 0 {
			return nil, fmt.Errorf("%w: line %d: negative quantity for %q",
				domain.ErrInventoryFormat, val.Line, key.Value)
		}
		ing, err := l.catalog.Ingredient(key.Value)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", key.Line, err)
		}
		inv[ing.ID] += qty
	}
	return inv, nil
}

// Filter narrows a sandbox inventory. Zero values select everything.
type Filter struct {
	Zones     []string
	MaxRarity int
}

func (f Filter) match(ing domain.Ingredient) bool {
	if f.MaxRarity > 0 && ing.Rarity > f.MaxRarity {
		return false
	}
	if len(f.Zones) == 0 {
		return true
	}
	for _, z := range f.Zones {
		if gamedata.Normalize(z) == gamedata.Normalize(ing.Zone) {
			return true
		}
	}
	return false
}

// Sandbox returns qty of every catalog ingredient the filter selects.
func Sandbox(catalog domain.Catalog, qty int, f Filter) domain.Inventory {
	inv := make(domain.Inventory)
	for _, ing := range catalog.Ingredients() {
		if f.match(ing) {
			inv[ing.ID] = qty
		}
	}
	return inv
}

// Write encodes an inventory as YAML under an "inventory" key, keyed by
// ingredient name where the catalog knows it.
func Write(w io.Writer, catalog domain.Catalog, inv domain.Inventory) error {
	out := make(map[string]int, len(inv))
	for id, qty := range inv {
		name := id
		if ing, err := catalog.Ingredient(id); err == nil {
			name = ing.Name
		}
		out[name] += qty
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]map[string]int{"inventory": out}); err != nil {
		return err
	}
	return enc.Close()
}
