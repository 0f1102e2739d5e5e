// PotionBrew finds optimal potion recipes for a cauldron and inventory.
//
// Usage:
//
//	potionbrew [flags] -potion <potion> -cauldron <cauldron> [inventory.yaml]
//	potionbrew -sandbox 99 -potion "Health Potion" -cauldron "Iron Cauldron II" -objective profit
//	potionbrew -list potions|cauldrons|ingredients|zones
//	potionbrew -serve
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hammamikhairi/potionbrew/internal/api"
	"github.com/hammamikhairi/potionbrew/internal/app"
	"github.com/hammamikhairi/potionbrew/internal/config"
	"github.com/hammamikhairi/potionbrew/internal/display"
	"github.com/hammamikhairi/potionbrew/internal/domain"
	"github.com/hammamikhairi/potionbrew/internal/inventory"
	"github.com/hammamikhairi/potionbrew/internal/logger"
	"github.com/hammamikhairi/potionbrew/internal/solver"
)

// senseFlags collects repeated -sense axis=requirement values.
type senseFlags map[domain.SensoryAxis]domain.SensoryRequirement

func (s senseFlags) String() string {
	var parts []string
	for _, a := range domain.SensoryAxes {
		if r, ok := s[a]; ok {
			parts = append(parts, a.String()+"="+r.String())
		}
	}
	return strings.Join(parts, ",")
}

func (s senseFlags) Set(v string) error {
	axis, req, ok := strings.Cut(v, "=")
	if !ok {
		return fmt.Errorf("want axis=requirement, got %q", v)
	}
	a, err := domain.ParseSensoryAxis(axis)
	if err != nil {
		return err
	}
	r, err := domain.ParseSensoryRequirement(req)
	if err != nil {
		return err
	}
	s[a] = r
	return nil
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}

	sense := senseFlags{}
	invFile := flag.String("inventory", "", "inventory file (YAML or JSON); may also be given as the first argument")
	sandbox := flag.Int("sandbox", 0, "use N of every catalog ingredient instead of an inventory file")
	zones := flag.String("zones", "", "comma-separated zones to draw sandbox ingredients from")
	maxRarity := flag.Int("max-rarity", 0, "highest ingredient rarity in the sandbox (0 = any)")
	cauldron := flag.String("cauldron", "", "cauldron name or id")
	potion := flag.String("potion", "", "potion type name or id")
	objective := flag.String("objective", "best", "best | cheapest | profit")
	stars := flag.Int("stars", -1, "star level (within -tier when given)")
	tier := flag.String("tier", "", "tier: minor, common, greater, grand, superior, masterwork")
	flag.Var(sense, "sense", "sensory rule axis=any|no_negative|positive (repeatable)")
	asJSON := flag.Bool("json", false, "print the outcome as JSON")
	list := flag.String("list", "", "list catalog entries: potions, cauldrons, ingredients or zones")
	serve := flag.Bool("serve", false, "run the HTTP API")
	addr := flag.String("addr", cfg.Addr, "HTTP listen address for -serve")
	solverName := flag.String("solver", string(cfg.Solver), "solver backend: auto, cbc or simplex")
	timeout := flag.Duration("timeout", cfg.Timeout, "time limit per solve")
	verbose := flag.Bool("verbose", false, "enable verbose/debug logging")
	quiet := flag.Bool("quiet", false, "disable all logging")
	flag.Parse()

	// Flags win over the environment.
	kind, err := solver.ParseKind(*solverName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	cfg.Solver = kind
	cfg.Timeout = *timeout
	cfg.Addr = *addr
	if *verbose {
		cfg.LogLevel = logger.LevelVerbose
	}
	if *quiet {
		cfg.LogLevel = logger.LevelOff
	}
	log := logger.New(cfg.LogLevel, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		fmt.Fprint(os.Stderr, display.Error(err))
		return 1
	}
	defer a.Close()

	switch {
	case *list != "":
		return listCatalog(a, *list)
	case *serve:
		return serveHTTP(ctx, a, cfg, log)
	}

	if *invFile == "" && flag.NArg() > 0 {
		*invFile = flag.Arg(0)
	}

	req := domain.RecipeRequest{
		Cauldron: *cauldron,
		Potion:   *potion,
		Sensory:  sense,
	}
	if req.Objective, err = domain.ParseObjective(*objective); err != nil {
		fmt.Fprint(os.Stderr, display.Error(err))
		return 2
	}
	if *stars >= 0 {
		req.StarLevel = stars
	}
	if *tier != "" {
		t, err := domain.ParseTier(*tier)
		if err != nil {
			fmt.Fprint(os.Stderr, display.Error(err))
			return 2
		}
		req.Tier = &t
	}

	switch {
	case *sandbox > 0:
		f := inventory.Filter{MaxRarity: *maxRarity}
		if *zones != "" {
			f.Zones = strings.Split(*zones, ",")
		}
		req.Inventory = inventory.Sandbox(a.Catalog, *sandbox, f)
	case *invFile != "":
		f, err := os.Open(*invFile)
		if err != nil {
			fmt.Fprint(os.Stderr, display.Error(err))
			return 1
		}
		req.Inventory, err = inventory.NewLoader(a.Catalog).Load(ctx, f)
		f.Close()
		if err != nil {
			fmt.Fprint(os.Stderr, display.Error(fmt.Errorf("%s: %w", *invFile, err)))
			return 1
		}
	}

	out, err := a.Engine.Brew(ctx, req)
	if err != nil {
		fmt.Fprint(os.Stderr, display.Error(err))
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return 2
		}
		return 1
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fmt.Fprint(os.Stderr, display.Error(err))
			return 1
		}
	} else {
		fmt.Print(display.Report(out))
	}
	if !out.Found() {
		return 3
	}
	return 0
}

func listCatalog(a *app.App, what string) int {
	var lines []string
	switch strings.ToLower(what) {
	case "potions":
		for _, p := range a.Catalog.Potions() {
			lines = append(lines, fmt.Sprintf("%-28s %v", p.Name, p.Ratio))
		}
	case "cauldrons":
		for _, c := range a.Catalog.Cauldrons() {
			lines = append(lines, fmt.Sprintf("%-28s %3d ingredients  %4d magimins", c.Name, c.MaxIngredients, c.MaxSubstance))
		}
	case "ingredients":
		for _, i := range a.Catalog.Ingredients() {
			lines = append(lines, fmt.Sprintf("%-28s %-18s %v  %.0f", i.Name, i.Zone, i.Substances, i.Price))
		}
	case "zones":
		lines = a.Catalog.Zones()
	default:
		fmt.Fprint(os.Stderr, display.Error(fmt.Errorf("unknown list %q", what)))
		return 2
	}
	fmt.Print(display.Catalog(strings.ToUpper(what[:1])+strings.ToLower(what[1:]), lines))
	return 0
}

func serveHTTP(ctx context.Context, a *app.App, cfg *config.Config, log *logger.Logger) int {
	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(a.Engine, log.Named("api"), api.Options{
		AllowOrigins:      cfg.CORSOrigins,
		RequestsPerSecond: cfg.RateLimit,
		Burst:             cfg.RateBurst,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Print(display.Banner(display.TerminalWidth(), "brewing on "+cfg.Addr))
		log.Info("listening on %s", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server: %v", err)
			return 1
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown: %v", err)
			return 1
		}
	}
	return 0
}
