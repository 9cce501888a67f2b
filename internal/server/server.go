// Package server wires the JSON API, auth and the SSE import stream
// into one HTTP handler.
package server

import (
	"context"
	"net/http"

	"github.com/kenralotamd/spending-tracker/internal/handlers"
	"github.com/kenralotamd/spending-tracker/internal/middleware"
	"github.com/kenralotamd/spending-tracker/internal/store"
	"github.com/kenralotamd/spending-tracker/internal/streaming"
)

// Server represents the household spending API server
type Server struct {
	store store.Store
	mux   *http.ServeMux
}

// Config controls how the server authenticates requests.
//
// With a Verifier, every /api route requires a Firebase bearer token and
// the household comes from the token. With LocalHousehold set instead,
// requests are trusted and pinned to that household; this is the mode
// the CLI uses when serving a local sqlite store.
type Config struct {
	Store          store.Store
	Verifier       middleware.TokenVerifier
	LocalHousehold string
}

// New creates a new server instance
func New(cfg Config) *Server {
	s := &Server{
		store: cfg.Store,
		mux:   http.NewServeMux(),
	}
	s.setupRoutes(cfg)
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config) {
	// Health check (no auth required)
	s.mux.HandleFunc("/health", handlers.HealthCheck)

	apiHandler := handlers.NewAPIHandler(s.store)

	hub := streaming.NewStreamHub()
	importHandler := handlers.NewImportHandlers(s.store, hub)

	guard := s.authGuard(cfg)

	s.mux.Handle("GET /api/transactions", guard(http.HandlerFunc(apiHandler.GetTransactions)))
	s.mux.Handle("POST /api/transactions", guard(http.HandlerFunc(apiHandler.CreateTransaction)))
	s.mux.Handle("PUT /api/transactions/{id}/category", guard(http.HandlerFunc(apiHandler.CategorizeTransaction)))
	s.mux.Handle("DELETE /api/transactions/{id}", guard(http.HandlerFunc(apiHandler.DeleteTransaction)))

	s.mux.Handle("GET /api/categories", guard(http.HandlerFunc(apiHandler.GetCategories)))
	s.mux.Handle("POST /api/categories", guard(http.HandlerFunc(apiHandler.CreateCategory)))
	s.mux.Handle("PUT /api/categories/{name}", guard(http.HandlerFunc(apiHandler.RenameCategory)))
	s.mux.Handle("DELETE /api/categories/{name}", guard(http.HandlerFunc(apiHandler.DeleteCategory)))

	s.mux.Handle("GET /api/budgets/{category}", guard(http.HandlerFunc(apiHandler.GetBudget)))
	s.mux.Handle("PUT /api/budgets/{category}", guard(http.HandlerFunc(apiHandler.PutBudget)))

	s.mux.Handle("GET /api/settings", guard(http.HandlerFunc(apiHandler.GetSettings)))
	s.mux.Handle("PUT /api/settings", guard(http.HandlerFunc(apiHandler.PutSettings)))

	s.mux.Handle("POST /api/import", guard(http.HandlerFunc(importHandler.StartImport)))
	s.mux.Handle("GET /api/import/{id}/stream", guard(http.HandlerFunc(importHandler.StreamImport)))

	// Static files for frontend (when deployed together)
	fs := http.FileServer(http.Dir("./dist"))
	s.mux.Handle("/", fs)
}

func (s *Server) authGuard(cfg Config) func(http.Handler) http.Handler {
	if cfg.Verifier != nil {
		return middleware.NewAuthMiddleware(cfg.Verifier).RequireAuth
	}
	household := cfg.LocalHousehold
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := middleware.AuthInfo{UserID: household, HouseholdID: household}
			ctx := context.WithValue(r.Context(), middleware.AuthKey, info)
			ctx = context.WithValue(ctx, middleware.HouseholdIDKey, household)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return middleware.CORS(s.mux)
}
