package domain

import (
	"fmt"
	"strings"
)

// Substance is one of the five magimin types an ingredient contributes.
type Substance int

const (
	SubstanceA Substance = iota
	SubstanceB
	SubstanceC
	SubstanceD
	SubstanceE
)

// NumSubstances is the size of the substance alphabet.
const NumSubstances = 5

// Substances lists every substance in index order.
var Substances = [NumSubstances]Substance{SubstanceA, SubstanceB, SubstanceC, SubstanceD, SubstanceE}

// String returns the single-letter name of the substance.
func (s Substance) String() string {
	if s < 0 || int(s) >= NumSubstances {
		return "?"
	}
	return string(rune('A' + int(s)))
}

// ParseSubstance accepts "A".."E" in either case.
func ParseSubstance(s string) (Substance, error) {
	t := strings.ToUpper(strings.TrimSpace(s))
	if len(t) == 1 && t[0] >= 'A' && t[0] < 'A'+NumSubstances {
		return Substance(t[0] - 'A'), nil
	}
	return 0, fmt.Errorf("unknown substance %q", s)
}

// SubstanceVector holds a non-negative amount per substance type.
type SubstanceVector [NumSubstances]int

// Total returns the sum over all substance types.
func (v SubstanceVector) Total() int {
	n := 0
	for _, a := range v {
		n += a
	}
	return n
}

// Ratio is a target weight per substance. Weights need not sum to 1.
type Ratio [NumSubstances]float64

// Sum returns the total weight.
func (r Ratio) Sum() float64 {
	s := 0.0
	for _, w := range r {
		s += w
	}
	return s
}

// Normalize scales the weights to sum to 1. It reports false when the
// weights are not positive overall, in which case the ratio is unusable.
func (r Ratio) Normalize() (Ratio, bool) {
	sum := r.Sum()
	if sum <= 0 {
		return Ratio{}, false
	}
	var out Ratio
	for i, w := range r {
		if w < 0 {
			return Ratio{}, false
		}
		out[i] = w / sum
	}
	return out, true
}

// Required reports whether the substance carries a strictly positive weight.
func (r Ratio) Required(s Substance) bool {
	return r[s] > 0
}
