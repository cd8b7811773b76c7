// Package api exposes the engine over a JSON HTTP API.
//
// The transport is deliberately thin: it parses field values, resolves the
// caller identity stamped by the gateway, and maps typed service errors to
// status codes. All invariants live below it.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmynk/evensplit/internal/ledger"
	"github.com/mmynk/evensplit/internal/middleware"
	"github.com/mmynk/evensplit/internal/service"
	"github.com/mmynk/evensplit/internal/storage"
)

// Server is the EvenSplit HTTP API server.
type Server struct {
	bills       *service.BillService
	settlements *service.SettlementService
	analytics   *service.AnalyticsService
	engine      *ledger.Engine
	store       storage.Store
}

// NewServer creates an API server over the given services.
func NewServer(bills *service.BillService, settlements *service.SettlementService, analytics *service.AnalyticsService, engine *ledger.Engine, store storage.Store) *Server {
	return &Server{
		bills:       bills,
		settlements: settlements,
		analytics:   analytics,
		engine:      engine,
		store:       store,
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Identity)

		r.Route("/bills", func(r chi.Router) {
			r.Post("/", s.handleCreateBill)
			r.Get("/", s.handleListBills)
			r.Get("/{billID}", s.handleGetBill)
		})

		r.Route("/settlements", func(r chi.Router) {
			r.Post("/", s.handleCreateSettlement)
			r.Get("/", s.handleListSettlements)
		})

		r.Route("/balances", func(r chi.Router) {
			r.Get("/", s.handleBalances)
			r.Get("/{counterpartyID}", s.handlePairBalance)
		})

		r.Get("/analytics", s.handleAnalytics)

		r.Route("/users", func(r chi.Router) {
			r.Post("/", s.handleCreateUser)
			r.Get("/{userID}", s.handleGetUser)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
