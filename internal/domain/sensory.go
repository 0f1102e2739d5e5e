package domain

import (
	"fmt"
	"strings"
)

// SensoryAxis is one of the five sensory dimensions an ingredient is rated on.
type SensoryAxis int

const (
	SensoryTaste SensoryAxis = iota
	SensoryAroma
	SensoryVisual
	SensorySensation
	SensorySound
)

// NumSensoryAxes is the number of sensory dimensions.
const NumSensoryAxes = 5

// SensoryAxes lists every axis in index order.
var SensoryAxes = [NumSensoryAxes]SensoryAxis{SensoryTaste, SensoryAroma, SensoryVisual, SensorySensation, SensorySound}

var sensoryAxisNames = [NumSensoryAxes]string{"taste", "aroma", "visual", "sensation", "sound"}

// String returns the lowercase axis name.
func (a SensoryAxis) String() string {
	if a < 0 || int(a) >= NumSensoryAxes {
		return "unknown"
	}
	return sensoryAxisNames[a]
}

// ParseSensoryAxis accepts axis names and the in-game synonyms
// (smell, touch, sight, feel, hearing).
func ParseSensoryAxis(s string) (SensoryAxis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "taste":
		return SensoryTaste, nil
	case "aroma", "smell", "scent":
		return SensoryAroma, nil
	case "visual", "sight", "look":
		return SensoryVisual, nil
	case "sensation", "touch", "feel":
		return SensorySensation, nil
	case "sound", "hearing":
		return SensorySound, nil
	}
	return 0, fmt.Errorf("unknown sensory axis %q", s)
}

// MarshalText lets axes serve as JSON object keys.
func (a SensoryAxis) MarshalText() ([]byte, error) {
	if a < 0 || int(a) >= NumSensoryAxes {
		return nil, fmt.Errorf("invalid sensory axis %d", int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText parses an axis name.
func (a *SensoryAxis) UnmarshalText(b []byte) error {
	v, err := ParseSensoryAxis(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// SensoryQuality is an ingredient's rating on one axis.
type SensoryQuality int

const (
	SensoryNegative SensoryQuality = -1
	SensoryNeutral  SensoryQuality = 0
	SensoryPositive SensoryQuality = 1
)

// String returns a human-readable quality.
func (q SensoryQuality) String() string {
	switch q {
	case SensoryNegative:
		return "negative"
	case SensoryPositive:
		return "positive"
	default:
		return "neutral"
	}
}

// ParseSensoryQuality accepts negative/neutral/positive and bad/none/good.
func ParseSensoryQuality(s string) (SensoryQuality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "negative", "bad", "-", "-1":
		return SensoryNegative, nil
	case "", "neutral", "none", "0":
		return SensoryNeutral, nil
	case "positive", "good", "+", "1":
		return SensoryPositive, nil
	}
	return 0, fmt.Errorf("unknown sensory quality %q", s)
}

// SensoryRequirement is the player's constraint on one axis.
type SensoryRequirement int

const (
	// SensoryAny places no constraint on the axis.
	SensoryAny SensoryRequirement = iota
	// SensoryExcludeNegative forbids ingredients rated negative on the axis.
	SensoryExcludeNegative
	// SensoryRequirePositive forbids negatives and needs at least one positive.
	SensoryRequirePositive
)

// String returns the config spelling of the requirement.
func (r SensoryRequirement) String() string {
	switch r {
	case SensoryExcludeNegative:
		return "exclude_negative"
	case SensoryRequirePositive:
		return "require_positive"
	default:
		return "any"
	}
}

// ParseSensoryRequirement accepts the config spellings plus the in-game
// wording ("Any", "Not Bad", "Good").
func ParseSensoryRequirement(s string) (SensoryRequirement, error) {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.NewReplacer("-", "_", " ", "_").Replace(k)
	switch k {
	case "", "any":
		return SensoryAny, nil
	case "exclude_negative", "no_negative", "not_bad", "neutral":
		return SensoryExcludeNegative, nil
	case "require_positive", "positive", "good":
		return SensoryRequirePositive, nil
	}
	return 0, fmt.Errorf("unknown sensory requirement %q", s)
}

// MarshalText encodes the requirement as its config spelling.
func (r SensoryRequirement) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText parses a requirement.
func (r *SensoryRequirement) UnmarshalText(b []byte) error {
	v, err := ParseSensoryRequirement(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// SensoryMix is the share of chosen quantity rated positive (Good) and
// negative (Bad) on one axis. Neutral ingredients count toward neither.
type SensoryMix struct {
	Good float64 `json:"good"`
	Bad  float64 `json:"bad"`
}
