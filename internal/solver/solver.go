// Package solver provides milp.Solver adapters. CBC, run as a command-line
// tool, is the primary backend. The in-process branch-and-bound is a
// best-effort fallback for hosts without it: it proves optimality on the
// brewing programs it finishes but has none of CBC's cuts or heuristics,
// so large searches lean on the time limit.
package solver

import (
	"fmt"
	"strings"

	"github.com/hammamikhairi/potionbrew/internal/logger"
	"github.com/hammamikhairi/potionbrew/internal/milp"
)

// Kind names a solver backend.
type Kind string

const (
	// KindAuto uses CBC when its binary is found and the in-process
	// search otherwise.
	KindAuto    Kind = "auto"
	KindSimplex Kind = "simplex"
	KindCBC     Kind = "cbc"
)

// ParseKind accepts a backend name in any case. Empty means auto.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "", KindAuto:
		return KindAuto, nil
	case KindSimplex:
		return KindSimplex, nil
	case KindCBC:
		return KindCBC, nil
	default:
		return "", fmt.Errorf("unknown solver %q (want %s, %s or %s)", s, KindAuto, KindCBC, KindSimplex)
	}
}

// New builds the solver for a backend. cbcBinary is ignored by KindSimplex.
func New(kind Kind, cbcBinary string, log *logger.Logger) (milp.Solver, error) {
	switch kind {
	case KindAuto, "":
		c := NewCBC(cbcBinary, log.Named("cbc"))
		if c.Available() {
			return c, nil
		}
		log.Info("cbc binary %q not found; using the in-process solver", c.binary)
		return NewSimplex(log.Named("simplex")), nil
	case KindSimplex:
		return NewSimplex(log.Named("simplex")), nil
	case KindCBC:
		c := NewCBC(cbcBinary, log.Named("cbc"))
		if !c.Available() {
			log.Warn("cbc binary %q not found; solves will fail until it is installed", c.binary)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown solver %q", kind)
	}
}
