package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hammamikhairi/potionbrew/internal/logger"
	"github.com/hammamikhairi/potionbrew/internal/solver"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaults(t *testing.T) {
	c, err := FromEnv(env(nil))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if c.Solver != solver.KindAuto || c.CBCPath != "cbc" || c.Addr != ":8080" {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.Timeout != 30*time.Second || c.ReportTTL != 24*time.Hour || c.Workers < 1 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.LogLevel != logger.LevelNormal || c.RedisURL != "" || len(c.CORSOrigins) != 0 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
}

func TestFromEnv(t *testing.T) {
	c, err := FromEnv(env(map[string]string{
		EnvSolver:      "CBC",
		EnvCBCPath:     "/opt/cbc/bin/cbc",
		EnvTimeout:     "90s",
		EnvNodeLimit:   "5000",
		EnvWorkers:     "3",
		EnvAddr:        "127.0.0.1:9000",
		EnvReportTTL:   "2h",
		EnvRateLimit:   "0.5",
		EnvRateBurst:   "4",
		EnvRedisURL:    "redis://localhost:6379/1",
		EnvLogLevel:    "debug",
		EnvCORSOrigins: "http://a.test, http://b.test,",
		EnvCatalog:     "catalog.json",
	}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if c.Solver != solver.KindCBC || c.CBCPath != "/opt/cbc/bin/cbc" {
		t.Fatalf("solver settings: %+v", c)
	}
	if c.Timeout != 90*time.Second || c.NodeLimit != 5000 || c.Workers != 3 {
		t.Fatalf("limits: %+v", c)
	}
	if c.Addr != "127.0.0.1:9000" || c.ReportTTL != 2*time.Hour || c.RateLimit != 0.5 || c.RateBurst != 4 {
		t.Fatalf("server settings: %+v", c)
	}
	if c.RedisURL != "redis://localhost:6379/1" || c.LogLevel != logger.LevelVerbose || c.CatalogPath != "catalog.json" {
		t.Fatalf("misc settings: %+v", c)
	}
	if len(c.CORSOrigins) != 2 || c.CORSOrigins[1] != "http://b.test" {
		t.Fatalf("origins: %v", c.CORSOrigins)
	}
}

func TestFromEnvCollectsErrors(t *testing.T) {
	_, err := FromEnv(env(map[string]string{
		EnvSolver:    "gurobi",
		EnvTimeout:   "soon",
		EnvWorkers:   "-2",
		EnvRateLimit: "fast",
		EnvLogLevel:  "loud",
	}))
	if err == nil {
		t.Fatal("expected error")
	}
	for _, key := range []string{EnvSolver, EnvTimeout, EnvWorkers, EnvRateLimit, EnvLogLevel} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("error does not mention %s: %v", key, err)
		}
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("POTIONBREW_ADDR=:7070\nPOTIONBREW_NODE_LIMIT=12\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvAddr, "")
	os.Unsetenv(EnvAddr)
	t.Setenv(EnvNodeLimit, "99")

	c, err := Load(path, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Addr != ":7070" {
		t.Fatalf("addr = %q, want value from the file", c.Addr)
	}
	// Existing environment wins over the file.
	if c.NodeLimit != 99 {
		t.Fatalf("node limit = %d, want 99", c.NodeLimit)
	}
}
