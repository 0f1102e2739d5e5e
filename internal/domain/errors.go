package domain

import (
	"errors"
	"strings"
)

// Sentinel errors used across layers.
var (
	ErrNotFound          = errors.New("not found")
	ErrUnknownIngredient = errors.New("unknown ingredient")
	ErrUnknownCauldron   = errors.New("unknown cauldron")
	ErrUnknownPotion     = errors.New("unknown potion type")
	ErrInvalidRequest    = errors.New("invalid recipe request")
	ErrInventoryFormat   = errors.New("malformed inventory")
	ErrSolverUnavailable = errors.New("solver unavailable")
)

// ValidationKind classifies a request validation failure.
type ValidationKind int

const (
	// MissingField means required request fields are absent or unusable.
	MissingField ValidationKind = iota
	// InvalidObjective means the objective is unknown or inconsistent with
	// the star level / tier fields.
	InvalidObjective
)

// String returns the kind name.
func (k ValidationKind) String() string {
	if k == InvalidObjective {
		return "invalid objective"
	}
	return "missing field"
}

// ValidationError lists every problem found in a request. It unwraps to
// ErrInvalidRequest.
type ValidationError struct {
	Kind     ValidationKind
	Problems []string
}

func (e *ValidationError) Error() string {
	return e.Kind.String() + ": " + strings.Join(e.Problems, "; ")
}

// Unwrap lets errors.Is(err, ErrInvalidRequest) match.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}
