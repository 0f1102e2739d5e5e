// Package gamedata provides the read-only game tables: ingredients,
// cauldrons, potion types and the star table.
package gamedata

import (
	_ "embed"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/tidwall/gjson"

	"github.com/hammamikhairi/potionbrew/internal/domain"
	"github.com/hammamikhairi/potionbrew/internal/logger"
)

//go:embed catalog.json
var builtin []byte

// Compile-time interface check.
var _ domain.Catalog = (*Catalog)(nil)

// Catalog holds immutable game data. Safe for concurrent reads since
// nothing mutates it after Load returns.
type Catalog struct {
	version     string
	ingredients []domain.Ingredient
	cauldrons   []domain.Cauldron
	potions     []domain.PotionType
	stars       domain.StarTable

	ingredientKeys map[string]int
	cauldronKeys   map[string]int
	potionKeys     map[string]int
}

// Builtin parses the embedded catalog.
func Builtin(log *logger.Logger) (*Catalog, error) {
	return Load(builtin, log)
}

// Normalize reduces a name to lowercase letters and digits so that
// "Sack of Slime", "sack-of-slime" and "SACK_OF_SLIME" match.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// Load parses a JSON catalog document.
func Load(data []byte, log *logger.Logger) (*Catalog, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("catalog: invalid JSON")
	}
	doc := gjson.ParseBytes(data)

	c := &Catalog{
		version:        doc.Get("version").String(),
		ingredientKeys: make(map[string]int),
		cauldronKeys:   make(map[string]int),
		potionKeys:     make(map[string]int),
	}

	if err := c.parseStars(doc.Get("stars")); err != nil {
		return nil, err
	}
	if err := c.parseIngredients(doc.Get("ingredients")); err != nil {
		return nil, err
	}
	if err := c.parseCauldrons(doc.Get("cauldrons")); err != nil {
		return nil, err
	}
	if err := c.parsePotions(doc.Get("potions"), doc.Get("stars.priceMultipliers")); err != nil {
		return nil, err
	}

	log.Info("catalog v%s loaded: %d ingredients, %d cauldrons, %d potions, %d star levels",
		c.version, len(c.ingredients), len(c.cauldrons), len(c.potions), c.stars.Buckets())
	return c, nil
}

func (c *Catalog) parseStars(v gjson.Result) error {
	for _, bp := range v.Get("breakpoints").Array() {
		c.stars.Breakpoints = append(c.stars.Breakpoints, int(bp.Int()))
	}
	if err := c.stars.Validate(); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	return nil
}

// index registers the ID and normalized name of entry i.
func index(keys map[string]int, kind, id, name string, i int) error {
	if id == "" || name == "" {
		return fmt.Errorf("catalog: %s %d needs an id and a name", kind, i)
	}
	for _, k := range []string{Normalize(id), Normalize(name)} {
		if j, ok := keys[k]; ok && j != i {
			return fmt.Errorf("catalog: %s %q collides with an earlier entry", kind, name)
		}
		keys[k] = i
	}
	return nil
}

func (c *Catalog) parseIngredients(v gjson.Result) error {
	var err error
	v.ForEach(func(_, item gjson.Result) bool {
		ing := domain.Ingredient{
			ID:     item.Get("id").String(),
			Name:   item.Get("name").String(),
			Price:  item.Get("price").Float(),
			Rarity: int(item.Get("rarity").Int()),
			Zone:   item.Get("zone").String(),
		}

		mags := item.Get("magimins").Array()
		if len(mags) != domain.NumSubstances {
			err = fmt.Errorf("catalog: ingredient %q has %d magimin values, want %d",
				ing.Name, len(mags), domain.NumSubstances)
			return false
		}
		for i, m := range mags {
			if m.Int() < 0 {
				err = fmt.Errorf("catalog: ingredient %q has negative magimin %s", ing.Name, domain.Substance(i))
				return false
			}
			ing.Substances[i] = int(m.Int())
		}

		item.Get("sensory").ForEach(func(k, q gjson.Result) bool {
			axis, e := domain.ParseSensoryAxis(k.String())
			if e != nil {
				err = fmt.Errorf("catalog: ingredient %q: %w", ing.Name, e)
				return false
			}
			quality, e := domain.ParseSensoryQuality(q.String())
			if e != nil {
				err = fmt.Errorf("catalog: ingredient %q: %w", ing.Name, e)
				return false
			}
			ing.Sensory[axis] = quality
			return true
		})
		if err != nil {
			return false
		}

		if err = index(c.ingredientKeys, "ingredient", ing.ID, ing.Name, len(c.ingredients)); err != nil {
			return false
		}
		c.ingredients = append(c.ingredients, ing)
		return true
	})
	return err
}

func (c *Catalog) parseCauldrons(v gjson.Result) error {
	var err error
	v.ForEach(func(_, item gjson.Result) bool {
		cd := domain.Cauldron{
			ID:             item.Get("id").String(),
			Name:           item.Get("name").String(),
			MaxIngredients: int(item.Get("maxIngredients").Int()),
			MaxSubstance:   int(item.Get("maxMagimins").Int()),
		}
		if cd.MaxIngredients <= 0 || cd.MaxSubstance <= 0 {
			err = fmt.Errorf("catalog: cauldron %q needs positive capacities", cd.Name)
			return false
		}
		if err = index(c.cauldronKeys, "cauldron", cd.ID, cd.Name, len(c.cauldrons)); err != nil {
			return false
		}
		c.cauldrons = append(c.cauldrons, cd)
		return true
	})
	return err
}

// parsePotions reads potion types. A potion either lists its prices per
// star level or gives a base price scaled by the star table multipliers.
func (c *Catalog) parsePotions(v, multipliers gjson.Result) error {
	var mult []float64
	for _, m := range multipliers.Array() {
		mult = append(mult, m.Float())
	}

	var err error
	v.ForEach(func(_, item gjson.Result) bool {
		p := domain.PotionType{
			ID:   item.Get("id").String(),
			Name: item.Get("name").String(),
		}
		ratio := item.Get("ratio").Array()
		if len(ratio) != domain.NumSubstances {
			err = fmt.Errorf("catalog: potion %q has %d ratio weights, want %d",
				p.Name, len(ratio), domain.NumSubstances)
			return false
		}
		for i, w := range ratio {
			p.Ratio[i] = w.Float()
		}
		if _, ok := p.Ratio.Normalize(); !ok {
			err = fmt.Errorf("catalog: potion %q has no usable ratio", p.Name)
			return false
		}

		if prices := item.Get("prices"); prices.IsArray() {
			for _, pr := range prices.Array() {
				p.Prices = append(p.Prices, pr.Float())
			}
		} else {
			base := item.Get("basePrice").Float()
			for _, m := range mult {
				p.Prices = append(p.Prices, math.Round(base*m))
			}
		}

		if err = index(c.potionKeys, "potion", p.ID, p.Name, len(c.potions)); err != nil {
			return false
		}
		c.potions = append(c.potions, p)
		return true
	})
	return err
}

// Version returns the catalog version string.
func (c *Catalog) Version() string { return c.version }

// Ingredient looks up an ingredient by ID or name.
func (c *Catalog) Ingredient(key string) (domain.Ingredient, error) {
	i, ok := c.ingredientKeys[Normalize(key)]
	if !ok {
		return domain.Ingredient{}, fmt.Errorf("%w: %q", domain.ErrUnknownIngredient, key)
	}
	return c.ingredients[i], nil
}

// Ingredients returns every ingredient sorted by name.
func (c *Catalog) Ingredients() []domain.Ingredient {
	out := append([]domain.Ingredient(nil), c.ingredients...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Cauldron looks up a cauldron by ID or name.
func (c *Catalog) Cauldron(key string) (domain.Cauldron, error) {
	i, ok := c.cauldronKeys[Normalize(key)]
	if !ok {
		return domain.Cauldron{}, fmt.Errorf("%w: %q", domain.ErrUnknownCauldron, key)
	}
	return c.cauldrons[i], nil
}

// Cauldrons returns every cauldron in catalog order, smallest first.
func (c *Catalog) Cauldrons() []domain.Cauldron {
	return append([]domain.Cauldron(nil), c.cauldrons...)
}

// Potion looks up a potion type by ID or name.
func (c *Catalog) Potion(key string) (domain.PotionType, error) {
	i, ok := c.potionKeys[Normalize(key)]
	if !ok {
		return domain.PotionType{}, fmt.Errorf("%w: %q", domain.ErrUnknownPotion, key)
	}
	p := c.potions[i]
	p.Prices = append([]float64(nil), p.Prices...)
	return p, nil
}

// Potions returns every potion type in catalog order.
func (c *Catalog) Potions() []domain.PotionType {
	out := make([]domain.PotionType, len(c.potions))
	for i, p := range c.potions {
		p.Prices = append([]float64(nil), p.Prices...)
		out[i] = p
	}
	return out
}

// Stars returns the star table.
func (c *Catalog) Stars() domain.StarTable {
	return domain.StarTable{Breakpoints: append([]int(nil), c.stars.Breakpoints...)}
}

// Zones lists the distinct ingredient zones in sorted order.
func (c *Catalog) Zones() []string {
	seen := make(map[string]bool)
	var out []string
	for _, i := range c.ingredients {
		if i.Zone != "" && !seen[i.Zone] {
			seen[i.Zone] = true
			out = append(out, i.Zone)
		}
	}
	sort.Strings(out)
	return out
}
