package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/forgeops/stocksync/pkg/alerts"
	"github.com/forgeops/stocksync/pkg/live"
	"github.com/forgeops/stocksync/pkg/notifier"
	"github.com/forgeops/stocksync/pkg/syncer"
)

// Server bundles the engine's HTTP surface: rule and preference management,
// notification queries, offline sync submission, and the live websocket
// endpoint.
type Server struct {
	rules      alerts.Storage
	dispatcher *notifier.Dispatcher
	evaluator  *alerts.Evaluator
	reconciler *syncer.Reconciler
	hub        *live.Hub
	identities IdentityProvider
	logger     *slog.Logger
	readiness  http.HandlerFunc
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the logger for the Server.
func WithServerLogger(log *slog.Logger) ServerOption {
	return func(s *Server) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithReadiness mounts the handler at /readyz so deployments can probe
// backing dependencies.
func WithReadiness(h http.HandlerFunc) ServerOption {
	return func(s *Server) {
		s.readiness = h
	}
}

// NewServer creates the HTTP surface over the given components.
func NewServer(
	rules alerts.Storage,
	dispatcher *notifier.Dispatcher,
	evaluator *alerts.Evaluator,
	reconciler *syncer.Reconciler,
	hub *live.Hub,
	identities IdentityProvider,
	opts ...ServerOption,
) *Server {
	s := &Server{
		rules:      rules,
		dispatcher: dispatcher,
		evaluator:  evaluator,
		reconciler: reconciler,
		hub:        hub,
		identities: identities,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Router builds the chi router with every route mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.readiness != nil {
		r.Get("/readyz", s.readiness)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Route("/api/v1", func(r chi.Router) {
			r.Route("/alert-rules", func(r chi.Router) {
				r.Get("/", s.listRules)
				r.Post("/", s.createRule)
				r.Get("/{ruleID}", s.getRule)
				r.Put("/{ruleID}", s.updateRule)
				r.Delete("/{ruleID}", s.deleteRule)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", s.listNotifications)
				r.Get("/summary", s.notificationSummary)
				r.Post("/{notificationID}/read", s.markNotificationRead)
				r.With(requireElevated).Post("/bulk", s.bulkNotify)
			})

			r.Route("/preferences", func(r chi.Router) {
				r.Get("/", s.getPreference)
				r.Put("/", s.updatePreference)
			})

			r.Post("/sync/batch", s.applySyncBatch)
			r.Post("/scan/result", s.relayScanResult)

			r.With(requireElevated).Post("/alerts/evaluate", s.triggerEvaluation)
			r.With(requireAdmin).Get("/connections", s.connectionSnapshot)
		})

		r.Get("/ws/inventory", s.serveWebsocket)
	})

	return r
}

// serveWebsocket hands the already-authenticated request to the live
// handler. The live handler re-runs auth through this closure so a direct
// mount without the middleware would still be safe.
func (s *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	wsHandler := live.NewHandler(s.hub, func(r *http.Request) (string, error) {
		identity, ok := identityFrom(r.Context())
		if !ok {
			return "", live.ErrUnauthorized
		}
		return identity.UserID.String(), nil
	}, s.reconciler, s.logger)

	wsHandler.ServeHTTP(w, r)
}
