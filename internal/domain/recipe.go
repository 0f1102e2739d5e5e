// Package domain defines the core types and interfaces for the brewing
// optimizer. All other packages depend on domain; domain depends on nothing.
package domain

import (
	"fmt"
	"strings"
)

// Ingredient is immutable reference data for one brewing ingredient.
type Ingredient struct {
	ID         string
	Name       string
	Substances SubstanceVector
	Sensory    [NumSensoryAxes]SensoryQuality
	Price      float64
	Rarity     int
	Zone       string
}

// Cauldron limits how much can go into one brew.
type Cauldron struct {
	ID             string
	Name           string
	MaxIngredients int // max total ingredient count
	MaxSubstance   int // max total magimin amount
}

// PotionType is a substance profile: the target ratio a brew must match,
// plus the sell price per potion indexed by total star count.
type PotionType struct {
	ID     string
	Name   string
	Ratio  Ratio
	Prices []float64
}

// PriceAt returns the unit price for a star count, clamped to the table.
// A negative star count (an unstable brew at the lowest bucket) sells at
// the zero-star price.
func (p PotionType) PriceAt(stars int) float64 {
	if len(p.Prices) == 0 {
		return 0
	}
	if stars < 0 {
		stars = 0
	}
	if stars >= len(p.Prices) {
		stars = len(p.Prices) - 1
	}
	return p.Prices[stars]
}

// StarsPerTier is the number of star levels in each potion tier.
const StarsPerTier = 6

// Tier is the potion grade a star level belongs to.
type Tier int

const (
	TierMinor Tier = iota
	TierCommon
	TierGreater
	TierGrand
	TierSuperior
	TierMasterwork
)

var tierNames = []string{"minor", "common", "greater", "grand", "superior", "masterwork"}

// String returns the lowercase tier name.
func (t Tier) String() string {
	if t < 0 || int(t) >= len(tierNames) {
		return "unknown"
	}
	return tierNames[t]
}

// ParseTier accepts a tier name in any case.
func ParseTier(s string) (Tier, error) {
	k := strings.ToLower(strings.TrimSpace(s))
	for i, n := range tierNames {
		if n == k {
			return Tier(i), nil
		}
	}
	return 0, fmt.Errorf("unknown tier %q", s)
}

// MarshalText encodes the tier name.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses a tier name.
func (t *Tier) UnmarshalText(b []byte) error {
	v, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// StarLevel combines a tier and a star count within it.
func StarLevel(t Tier, stars int) int {
	return int(t)*StarsPerTier + stars
}

// StarTable maps total substance to a base star count. Bucket i covers
// [Breakpoints[i], Breakpoints[i+1]) and yields i stars.
type StarTable struct {
	Breakpoints []int
}

// Buckets returns the number of buckets in the table.
func (s StarTable) Buckets() int {
	if len(s.Breakpoints) < 2 {
		return 0
	}
	return len(s.Breakpoints) - 1
}

// BaseStars returns the bucket containing total, or -1 when total lies
// outside the table.
func (s StarTable) BaseStars(total int) int {
	for i := 0; i+1 < len(s.Breakpoints); i++ {
		if total >= s.Breakpoints[i] && total < s.Breakpoints[i+1] {
			return i
		}
	}
	return -1
}

// Validate checks the breakpoints are strictly increasing and start at or
// below zero.
func (s StarTable) Validate() error {
	if len(s.Breakpoints) < 2 {
		return fmt.Errorf("star table needs at least two breakpoints, got %d", len(s.Breakpoints))
	}
	if s.Breakpoints[0] > 0 {
		return fmt.Errorf("star table must start at 0, starts at %d", s.Breakpoints[0])
	}
	for i := 1; i < len(s.Breakpoints); i++ {
		if s.Breakpoints[i] <= s.Breakpoints[i-1] {
			return fmt.Errorf("star table breakpoints not increasing at %d (%d <= %d)",
				i, s.Breakpoints[i], s.Breakpoints[i-1])
		}
	}
	return nil
}

// StabilityBand classifies a brew by its deviance fraction.
type StabilityBand int

const (
	StabilityPerfect StabilityBand = iota
	StabilityVeryStable
	StabilityStable
	StabilityUnstable
)

// NumStabilityBands is the number of bands.
const NumStabilityBands = 4

// StabilityBands lists the bands from best to worst.
var StabilityBands = [NumStabilityBands]StabilityBand{
	StabilityPerfect, StabilityVeryStable, StabilityStable, StabilityUnstable,
}

// MaxDevianceFraction is the deviance fraction above which a brew fails.
const MaxDevianceFraction = 0.5

var bandLimits = [NumStabilityBands]struct {
	lo, hi float64
	bonus  int
	name   string
}{
	{0, 0, 2, "Perfect"},
	{0, 0.10, 1, "Very Stable"},
	{0.10, 0.30, 0, "Stable"},
	{0.30, MaxDevianceFraction, -1, "Unstable"},
}

// String returns the in-game rank name.
func (b StabilityBand) String() string {
	if b < 0 || int(b) >= NumStabilityBands {
		return "Unknown"
	}
	return bandLimits[b].name
}

// Bonus returns the star modifier the band applies.
func (b StabilityBand) Bonus() int {
	return bandLimits[b].bonus
}

// Bounds returns the deviance-fraction range of the band. Every band but
// Perfect excludes its lower bound.
func (b StabilityBand) Bounds() (lo, hi float64, strictLo bool) {
	l := bandLimits[b]
	return l.lo, l.hi, b != StabilityPerfect
}

// BandForFraction classifies a deviance fraction. It reports false when
// the fraction exceeds MaxDevianceFraction.
func BandForFraction(f float64) (StabilityBand, bool) {
	for _, b := range StabilityBands {
		lo, hi, strict := b.Bounds()
		if (f > lo || (!strict && f == lo)) && f <= hi {
			return b, true
		}
	}
	return StabilityUnstable, false
}

// MarshalText encodes the band's rank name.
func (b StabilityBand) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText parses a rank name as produced by String.
func (b *StabilityBand) UnmarshalText(t []byte) error {
	for _, c := range StabilityBands {
		if strings.EqualFold(c.String(), string(t)) {
			*b = c
			return nil
		}
	}
	return fmt.Errorf("unknown stability band %q", string(t))
}
