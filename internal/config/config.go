// Package config loads runtime settings from a .env file and
// POTIONBREW_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/hammamikhairi/potionbrew/internal/logger"
	"github.com/hammamikhairi/potionbrew/internal/solver"
)

// Environment variable names.
const (
	EnvSolver      = "POTIONBREW_SOLVER"
	EnvCBCPath     = "POTIONBREW_CBC_PATH"
	EnvTimeout     = "POTIONBREW_TIMEOUT"
	EnvNodeLimit   = "POTIONBREW_NODE_LIMIT"
	EnvWorkers     = "POTIONBREW_WORKERS"
	EnvAddr        = "POTIONBREW_ADDR"
	EnvReportTTL   = "POTIONBREW_REPORT_TTL"
	EnvRateLimit   = "POTIONBREW_RATE_LIMIT"
	EnvRateBurst   = "POTIONBREW_RATE_BURST"
	EnvRedisURL    = "POTIONBREW_REDIS_URL"
	EnvLogLevel    = "POTIONBREW_LOG_LEVEL"
	EnvCORSOrigins = "POTIONBREW_CORS_ORIGINS"
	EnvCatalog     = "POTIONBREW_CATALOG"
)

// Config is the full runtime configuration.
type Config struct {
	Solver    solver.Kind
	CBCPath   string
	Timeout   time.Duration
	NodeLimit int
	Workers   int

	Addr        string
	ReportTTL   time.Duration
	RateLimit   float64
	RateBurst   int
	CORSOrigins []string
	RedisURL    string

	// CatalogPath points at an alternate catalog JSON; empty uses the
	// built-in one.
	CatalogPath string
	LogLevel    logger.Level
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		Solver:    solver.KindAuto,
		CBCPath:   solver.DefaultCBCBinary,
		Timeout:   30 * time.Second,
		Workers:   runtime.NumCPU(),
		Addr:      ":8080",
		ReportTTL: 24 * time.Hour,
		RateLimit: 5,
		RateBurst: 10,
		LogLevel:  logger.LevelNormal,
	}
}

// Load reads the given .env files (".env" when none are named; missing
// files are skipped) and then the process environment.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a variable lookup, starting from Default.
func FromEnv(getenv func(string) string) (*Config, error) {
	c := Default()
	var errs []error

	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs = append(errs, fmt.Errorf("%s: want a non-negative integer, got %q", key, v))
			return
		}
		*dst = n
	}
	duration := func(key string, dst *time.Duration) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			errs = append(errs, fmt.Errorf("%s: want a duration like 30s, got %q", key, v))
			return
		}
		*dst = d
	}

	if v := getenv(EnvSolver); v != "" {
		k, err := solver.ParseKind(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvSolver, err))
		}
		c.Solver = k
	}
	str(EnvCBCPath, &c.CBCPath)
	duration(EnvTimeout, &c.Timeout)
	integer(EnvNodeLimit, &c.NodeLimit)
	integer(EnvWorkers, &c.Workers)
	str(EnvAddr, &c.Addr)
	duration(EnvReportTTL, &c.ReportTTL)
	integer(EnvRateBurst, &c.RateBurst)
	str(EnvRedisURL, &c.RedisURL)
	str(EnvCatalog, &c.CatalogPath)

	if v := strings.TrimSpace(getenv(EnvRateLimit)); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			errs = append(errs, fmt.Errorf("%s: want a non-negative number, got %q", EnvRateLimit, v))
		} else {
			c.RateLimit = f
		}
	}
	if v := getenv(EnvLogLevel); v != "" {
		lvl, err := logger.ParseLevel(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvLogLevel, err))
		}
		c.LogLevel = lvl
	}
	if v := getenv(EnvCORSOrigins); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.CORSOrigins = append(c.CORSOrigins, o)
			}
		}
	}

	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}
