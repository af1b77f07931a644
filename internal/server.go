package internal

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/valethq/valet/internal/config"
	"github.com/valethq/valet/internal/settings"
	"github.com/valethq/valet/internal/task"
	"github.com/valethq/valet/pkg/cerr"
	"github.com/valethq/valet/pkg/clog"
)

type Server struct {
	server         *http.Server
	env            *config.Env
	taskServer     *task.Server
	settingsServer *settings.Server
}

func NewServer(
	env *config.Env,
	taskServer *task.Server,
	settingsServer *settings.Server,
) *Server {
	return &Server{
		env:            env,
		taskServer:     taskServer,
		settingsServer: settingsServer,
	}
}

// ListenAndServe starts the HTTP server. The provided context is used as
// the base context for all incoming requests via http.Server.BaseContext,
// so cancelling it on shutdown also cancels in-flight request contexts.
func (s *Server) ListenAndServe(ctx context.Context) error {
	r := chi.NewRouter()
	r.Use(
		clog.SlogChiMiddleware(),
		cerr.NewJSONResponseChiMiddleware(),
	)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		cerr.SetNewJSONError(r.Context(), cerr.NotFound, "not found", nil)
	})

	r.Post("/agent", s.taskServer.Submit)
	r.Get("/tasks", s.taskServer.List)
	r.Get("/tasks/{taskID}", s.taskServer.Get)
	r.Post("/tasks/{taskID}/complete", s.taskServer.Complete)
	r.Get("/settings", s.settingsServer.Get)
	r.Post("/settings", s.settingsServer.Update)
	r.Get("/auth/status", s.authStatus)

	mux := http.NewServeMux()
	mux.Handle("/health", &HealthChecker{})
	mux.Handle("/", r)

	addr := net.JoinHostPort(s.env.HTTPHost, s.env.HTTPPort)
	slog.Info("starting server", "addr", addr)

	s.server = &http.Server{
		Addr: addr,
		Handler: h2c.NewHandler(cors.New(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}).Handler(s.apiKeyMiddleware(mux)), &http2.Server{}),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type HealthChecker struct{}

func (hc *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

type authStatusResponse struct {
	Connected bool `json:"connected"`
}

func (s *Server) authStatus(w http.ResponseWriter, r *http.Request) {
	cerr.SetJSONResponse(r.Context(), &authStatusResponse{
		Connected: s.env.AccessToken != "",
	})
}

func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip API key check for the health endpoint, and skip entirely
		// when no key is configured (local development).
		if s.env.APIKey == "" || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			apiKey = r.Header.Get("Authorization")
			if len(apiKey) > 7 && apiKey[:7] == "Bearer " {
				apiKey = apiKey[7:]
			}
		}
		if apiKey != s.env.APIKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
