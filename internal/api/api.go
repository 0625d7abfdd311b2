package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/starbank/recommender/internal/recommendation"
	"github.com/starbank/recommender/internal/store"
)

// Recommender is the recommendation use case consumed by the handlers.
type Recommender interface {
	Recommendations(ctx context.Context, userID uuid.UUID) (recommendation.UserRecommendations, error)
	RuleFireStats(ctx context.Context) ([]recommendation.RuleStat, error)
	FlushCaches(ctx context.Context)
}

// Info identifies the running build for GET /management/info.
type Info struct {
	Name    string
	Version string
}

// API holds the dependencies and the router of the HTTP surface.
type API struct {
	// Router is the Chi multiplexer that handles HTTP requests.
	Router *chi.Mux

	rules       store.RuleRepository
	recommender Recommender
	info        Info

	// apiKeyHash is the hex SHA-256 of the valid API key.
	apiKeyHash string

	// skipAuth disables authentication (development and tests only).
	skipAuth bool
}

// NewAPI creates a new API instance with authentication enabled.
// Panics if apiKeyHash is empty.
func NewAPI(rules store.RuleRepository, recommender Recommender, info Info, apiKeyHash string) *API {
	return NewAPIWithConfig(rules, recommender, info, apiKeyHash, false)
}

// NewAPIWithConfig creates a new API instance with explicit control over authentication.
//
// Panics if:
//   - rules or recommender are nil
//   - apiKeyHash is empty when skipAuth is false
func NewAPIWithConfig(rules store.RuleRepository, recommender Recommender, info Info, apiKeyHash string, skipAuth bool) *API {
	if rules == nil {
		panic("api: rule repository cannot be nil")
	}
	if recommender == nil {
		panic("api: recommender cannot be nil")
	}
	if !skipAuth && apiKeyHash == "" {
		panic("api: apiKeyHash cannot be empty when authentication is enabled")
	}

	a := &API{
		Router:      chi.NewRouter(),
		rules:       rules,
		recommender: recommender,
		info:        info,
		apiKeyHash:  apiKeyHash,
		skipAuth:    skipAuth,
	}

	a.configureRoutes()
	return a
}

// configureRoutes registers the global middleware stack and the endpoints.
func (a *API) configureRoutes() {
	a.Router.Use(middleware.RequestID)
	a.Router.Use(middleware.RealIP)
	a.Router.Use(RequestLogger)
	a.Router.Use(Metrics)
	a.Router.Use(middleware.Recoverer)
	a.Router.Use(render.SetContentType(render.ContentTypeJSON))

	// Public routes
	a.Router.Get("/health", a.handleHealthCheck)
	a.Router.Get("/recommendation/{user_id}", a.handleRecommend)

	// Administrative routes
	a.Router.Group(func(r chi.Router) {
		r.Use(a.authenticateAPIKey)

		r.Route("/rule", func(r chi.Router) {
			r.Post("/", a.handleCreateRule)
			r.Get("/", a.handleListRules)
			r.Get("/stats", a.handleRuleStats)
			r.Delete("/{id}", a.handleDeleteRule)
		})

		r.Route("/management", func(r chi.Router) {
			r.Post("/clear-caches", a.handleClearCaches)
			r.Get("/info", a.handleInfo)
		})
	})
}

// handleHealthCheck only reports HTTP serving capability; dependency checks live on the observability server.
func (a *API) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "ok"})
}
