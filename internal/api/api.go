// Package api exposes the brew engine over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/hammamikhairi/potionbrew/internal/domain"
	"github.com/hammamikhairi/potionbrew/internal/engine"
	"github.com/hammamikhairi/potionbrew/internal/gamedata"
	"github.com/hammamikhairi/potionbrew/internal/logger"
)

// Options tunes the router.
type Options struct {
	// AllowOrigins lists CORS origins; empty allows any origin.
	AllowOrigins []string
	// RequestsPerSecond and Burst size the per-client token bucket.
	// Zero disables rate limiting.
	RequestsPerSecond float64
	Burst             int
	// MaxBatch caps the number of requests in one batch call.
	MaxBatch int
}

// Server holds the handlers' dependencies.
type Server struct {
	engine *engine.Engine
	log    *logger.Logger
	opts   Options
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(eng *engine.Engine, log *logger.Logger, opts Options) *gin.Engine {
	if opts.MaxBatch <= 0 {
		opts.MaxBatch = 32
	}
	s := &Server{engine: eng, log: log, opts: opts}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}
	if len(opts.AllowOrigins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = opts.AllowOrigins
	}
	r.Use(cors.New(cfg))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	if opts.RequestsPerSecond > 0 {
		v1.Use(RateLimit(rate.Limit(opts.RequestsPerSecond), opts.Burst))
	}
	v1.GET("/catalog/potions", s.listPotions)
	v1.GET("/catalog/cauldrons", s.listCauldrons)
	v1.GET("/catalog/ingredients", s.listIngredients)
	v1.POST("/recipes", s.createRecipe)
	v1.POST("/recipes/batch", s.createBatch)
	v1.GET("/recipes/:id", s.getRecipe)

	return r
}

// recipeResponse is an outcome plus a top-level found flag.
type recipeResponse struct {
	Found bool `json:"found"`
	*domain.Outcome
}

func respond(out *domain.Outcome) recipeResponse {
	return recipeResponse{Found: out.Found(), Outcome: out}
}

func (s *Server) listPotions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"potions": s.engine.Catalog().Potions()})
}

func (s *Server) listCauldrons(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cauldrons": s.engine.Catalog().Cauldrons()})
}

// listIngredients accepts an optional ?zone= filter.
func (s *Server) listIngredients(c *gin.Context) {
	all := s.engine.Catalog().Ingredients()
	zone := c.Query("zone")
	if zone == "" {
		c.JSON(http.StatusOK, gin.H{"ingredients": all})
		return
	}
	out := make([]domain.Ingredient, 0, len(all))
	for _, ing := range all {
		if gamedata.Normalize(ing.Zone) == gamedata.Normalize(zone) {
			out = append(out, ing)
		}
	}
	c.JSON(http.StatusOK, gin.H{"ingredients": out})
}

func (s *Server) createRecipe(c *gin.Context) {
	var req domain.RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	out, err := s.engine.Brew(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, respond(out))
}

type batchItem struct {
	Found   bool            `json:"found"`
	Outcome *domain.Outcome `json:"outcome,omitempty"`
	Error   *ErrorBody      `json:"error,omitempty"`
}

func (s *Server) createBatch(c *gin.Context) {
	var reqs []domain.RecipeRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if len(reqs) > s.opts.MaxBatch {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too many requests in batch"})
		return
	}

	results, err := s.engine.BrewBatch(c.Request.Context(), reqs)
	if err != nil {
		s.fail(c, err)
		return
	}
	items := make([]batchItem, len(results))
	for i, r := range results {
		if r.Err != nil {
			_, body := Describe(r.Err)
			items[i] = batchItem{Error: &body}
			continue
		}
		items[i] = batchItem{Found: r.Outcome.Found(), Outcome: r.Outcome}
	}
	c.JSON(http.StatusOK, gin.H{"results": items})
}

func (s *Server) getRecipe(c *gin.Context) {
	out, err := s.engine.Report(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, respond(out))
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error    string   `json:"error"`
	Kind     string   `json:"kind,omitempty"`
	Problems []string `json:"problems,omitempty"`
}

// Describe maps an engine error to an HTTP status and body.
func Describe(err error) (int, ErrorBody) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, ErrorBody{Error: domain.ErrInvalidRequest.Error(), Kind: verr.Kind.String(), Problems: verr.Problems}
	case errors.Is(err, domain.ErrInventoryFormat):
		return http.StatusBadRequest, ErrorBody{Error: err.Error()}
	case errors.Is(err, domain.ErrUnknownIngredient),
		errors.Is(err, domain.ErrUnknownCauldron),
		errors.Is(err, domain.ErrUnknownPotion),
		errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, ErrorBody{Error: err.Error()}
	case errors.Is(err, domain.ErrSolverUnavailable):
		return http.StatusServiceUnavailable, ErrorBody{Error: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorBody{Error: err.Error()}
	default:
		return http.StatusInternalServerError, ErrorBody{Error: err.Error()}
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	code, body := Describe(err)
	if code >= http.StatusInternalServerError {
		s.log.Error("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(code, body)
}
