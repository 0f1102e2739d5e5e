// Package engine runs brew requests end to end: validation, model
// compilation, solving, report extraction and optional report storage.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"maps"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/hammamikhairi/potionbrew/internal/brew"
	"github.com/hammamikhairi/potionbrew/internal/domain"
	"github.com/hammamikhairi/potionbrew/internal/logger"
	"github.com/hammamikhairi/potionbrew/internal/milp"
)

// Option configures the engine.
type Option func(*Engine)

// WithStore keeps every outcome in store and reuses stored outcomes for
// identical requests.
func WithStore(store domain.ReportStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLimits sets the time and node limits passed to the solver.
func WithLimits(lim milp.Limits) Option {
	return func(e *Engine) {
		e.limits = lim
	}
}

// WithMaxConcurrent caps the number of solves running at once.
func WithMaxConcurrent(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// Engine turns recipe requests into outcomes. It depends only on
// interfaces and keeps no per-request state.
type Engine struct {
	catalog domain.Catalog
	solver  milp.Solver
	store   domain.ReportStore
	limits  milp.Limits
	workers int
	sem     *semaphore.Weighted
	log     *logger.Logger
	now     func() time.Time
}

// New creates an engine with the given dependencies and options.
func New(catalog domain.Catalog, solver milp.Solver, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		catalog: catalog,
		solver:  solver,
		log:     log,
		workers: runtime.NumCPU(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.sem = semaphore.NewWeighted(int64(e.workers))
	return e
}

// Catalog returns the game data the engine resolves requests against.
func (e *Engine) Catalog() domain.Catalog {
	return e.catalog
}

// Brew solves one request. A request with no feasible recipe yields an
// outcome with a nil Solution, not an error. Errors are validation
// failures, unknown identifiers, solver failures and store failures.
func (e *Engine) Brew(ctx context.Context, req domain.RecipeRequest) (*domain.Outcome, error) {
	req.Inventory = req.Inventory.Clone()
	req.Sensory = maps.Clone(req.Sensory)

	plan, err := brew.Validate(req, e.catalog)
	if err != nil {
		return nil, err
	}
	fp := Fingerprint(plan)

	if out := e.lookup(ctx, fp); out != nil {
		e.log.Debug("reusing report %s for %s/%s", out.ID, plan.Potion.ID, plan.Objective)
		return out, nil
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.sem.Release(1)

	start := e.now()
	model, err := brew.Compile(plan, e.catalog.Stars())
	if err != nil {
		return nil, fmt.Errorf("compiling model: %w", err)
	}
	e.log.Debug("compiled %s for %s in %s: %d vars, %d constraints",
		plan.Objective, plan.Potion.ID, plan.Cauldron.ID,
		model.Program.NumVars(), model.Program.NumConstraints())

	sol, err := e.solver.Solve(ctx, model.Program, e.limits)
	if err != nil {
		return nil, fmt.Errorf("solving %s: %w", plan.Objective, err)
	}

	out := &domain.Outcome{
		ID:           uuid.NewString(),
		Fingerprint:  fp,
		Request:      req,
		Status:       status(sol.Status),
		LimitReached: sol.LimitReached,
		Nodes:        sol.Nodes,
		Elapsed:      e.now().Sub(start),
		CreatedAt:    e.now(),
	}
	if r, ok := brew.Extract(model, sol); ok {
		out.Solution = r
	}

	switch {
	case out.Solution == nil:
		e.log.Info("no recipe for %s in %s (%s)", plan.Potion.Name, plan.Cauldron.Name, out.Status)
	case out.LimitReached:
		e.log.Warn("solve for %s stopped at a limit after %d nodes; report is the best found",
			plan.Potion.Name, out.Nodes)
	default:
		e.log.Info("brewed %s: %d stars, cost %.0f, %d nodes in %s",
			plan.Potion.Name, out.Solution.TotalStars, out.Solution.IngredientCost, out.Nodes, out.Elapsed)
	}

	if e.store != nil {
		if err := e.store.Save(ctx, out); err != nil {
			return nil, fmt.Errorf("saving report: %w", err)
		}
	}
	return out, nil
}

// lookup returns a stored proven outcome for fp, or nil.
func (e *Engine) lookup(ctx context.Context, fp string) *domain.Outcome {
	if e.store == nil {
		return nil
	}
	out, err := e.store.Lookup(ctx, fp)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			e.log.Warn("report lookup failed: %v", err)
		}
		return nil
	}
	if out.LimitReached {
		return nil
	}
	return out
}

// Report returns a stored outcome by ID.
func (e *Engine) Report(ctx context.Context, id string) (*domain.Outcome, error) {
	if e.store == nil {
		return nil, domain.ErrNotFound
	}
	return e.store.Load(ctx, id)
}

// BatchResult is one entry of a BrewBatch call.
type BatchResult struct {
	Outcome *domain.Outcome
	Err     error
}

// BrewBatch solves requests concurrently, at most the configured number at
// a time. Results are in request order; a failing request does not stop
// the others. The returned error is only set when ctx ends first.
func (e *Engine) BrewBatch(ctx context.Context, reqs []domain.RecipeRequest) ([]BatchResult, error) {
	results := make([]BatchResult, len(reqs))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, req := range reqs {
		g.Go(func() error {
			out, err := e.Brew(ctx, req)
			results[i] = BatchResult{Outcome: out, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// Fingerprint identifies a validated request: the same potion, cauldron,
// objective, stock and sensory rules always give the same fingerprint.
func Fingerprint(plan *brew.Plan) string {
	var b strings.Builder
	b.WriteString(plan.Potion.ID)
	b.WriteByte('|')
	b.WriteString(plan.Cauldron.ID)
	b.WriteByte('|')
	b.WriteString(plan.Objective.String())
	for _, s := range plan.Stock {
		b.WriteByte('|')
		b.WriteString(s.Ingredient.ID)
		b.WriteByte('=')
		b.WriteString(strconv.Itoa(s.Available))
	}
	for _, a := range domain.SensoryAxes {
		if r, ok := plan.Sensory[a]; ok {
			fmt.Fprintf(&b, "|%s:%s", a, r)
		}
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:16])
}

func status(s milp.Status) domain.SolveStatus {
	switch s {
	case milp.Optimal:
		return domain.StatusOptimal
	case milp.Infeasible:
		return domain.StatusInfeasible
	case milp.Unbounded:
		return domain.StatusUnbounded
	default:
		return domain.StatusError
	}
}
