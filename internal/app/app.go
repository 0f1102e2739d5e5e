// Package app wires the catalog, solver, report store and engine from a
// Config. Both the CLI and the Lambda entry point start here.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/hammamikhairi/potionbrew/internal/config"
	"github.com/hammamikhairi/potionbrew/internal/domain"
	"github.com/hammamikhairi/potionbrew/internal/engine"
	"github.com/hammamikhairi/potionbrew/internal/gamedata"
	"github.com/hammamikhairi/potionbrew/internal/logger"
	"github.com/hammamikhairi/potionbrew/internal/milp"
	"github.com/hammamikhairi/potionbrew/internal/solver"
	"github.com/hammamikhairi/potionbrew/internal/storage"
)

// App is a wired engine plus the resources it holds.
type App struct {
	Catalog *gamedata.Catalog
	Engine  *engine.Engine
	Store   domain.ReportStore

	closers []func() error
}

// New builds every dependency named by cfg. Redis is pinged up front so a
// bad URL fails at startup rather than on the first request.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	catalog, err := loadCatalog(cfg.CatalogPath, log.Named("gamedata"))
	if err != nil {
		return nil, err
	}

	slv, err := solver.New(cfg.Solver, cfg.CBCPath, log)
	if err != nil {
		return nil, err
	}

	a := &App{Catalog: catalog}
	if cfg.RedisURL != "" {
		rs, err := storage.NewRedisStore(cfg.RedisURL, cfg.ReportTTL, log.Named("redis"))
		if err != nil {
			return nil, err
		}
		if err := rs.Ping(ctx); err != nil {
			rs.Close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		a.Store = rs
		a.closers = append(a.closers, rs.Close)
		log.Info("reports stored in redis (ttl %s)", cfg.ReportTTL)
	} else {
		a.Store = storage.NewMemoryStore(cfg.ReportTTL, log.Named("store"))
	}

	a.Engine = engine.New(catalog, slv, log.Named("engine"),
		engine.WithStore(a.Store),
		engine.WithLimits(milp.Limits{TimeLimit: cfg.Timeout, NodeLimit: cfg.NodeLimit}),
		engine.WithMaxConcurrent(cfg.Workers),
	)
	log.Info("solver %s, %d workers, timeout %s", cfg.Solver, cfg.Workers, cfg.Timeout)
	return a, nil
}

// Close releases held connections.
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func loadCatalog(path string, log *logger.Logger) (*gamedata.Catalog, error) {
	if path == "" {
		return gamedata.Builtin(log)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return gamedata.Load(data, log)
}
