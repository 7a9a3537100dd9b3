// Package relay exposes the fetcher, the proxy and the workspace over a
// local JSON HTTP API.
package relay

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/kolah/speclens/internal/loader"
	"github.com/kolah/speclens/internal/metrics"
	"github.com/kolah/speclens/internal/proxy"
	"github.com/kolah/speclens/internal/workspace"
)

// maxRequestBody bounds request payloads; inline documents are the largest.
const maxRequestBody = 64 << 20

type Options struct {
	Workspace *workspace.Workspace
	Fetcher   *loader.Fetcher
	Proxy     *proxy.Proxy
	Metrics   *metrics.Registry
	Logger    *slog.Logger
	// Token, when set, is required as a bearer token on every /api route.
	Token            string
	ValidateRequests bool
}

type Server struct {
	ws        *workspace.Workspace
	fetcher   *loader.Fetcher
	proxy     *proxy.Proxy
	metrics   *metrics.Registry
	logger    *slog.Logger
	token     string
	validator *RequestValidator
}

func New(opts Options) (*Server, error) {
	if opts.Workspace == nil || opts.Fetcher == nil || opts.Proxy == nil {
		return nil, errors.New("relay requires a workspace, a fetcher and a proxy")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		ws:      opts.Workspace,
		fetcher: opts.Fetcher,
		proxy:   opts.Proxy,
		metrics: opts.Metrics,
		logger:  opts.Logger.With("component", "relay"),
		token:   opts.Token,
	}
	if opts.ValidateRequests {
		v, err := NewRequestValidator(apiDocument, s.writeError)
		if err != nil {
			return nil, fmt.Errorf("loading relay document: %w", err)
		}
		s.validator = v
	}
	return s, nil
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(s.logRequests)
	r.Use(s.recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.MaxBytesHandler(next, maxRequestBody)
		})
		if s.token != "" {
			r.Use(RequireBearer(StaticToken(s.token), s.writeError))
		}
		if s.validator != nil {
			r.Use(s.validator.Handler)
		}

		r.Post("/spec/fetch", s.fetchSpec)
		r.Post("/spec/check-update", s.checkSpecUpdate)
		r.Post("/proxy", s.proxyRequest)

		r.Route("/workspace", func(r chi.Router) {
			r.Get("/spec", s.getSpec)
			r.Post("/spec", s.loadSpec)
			r.Delete("/spec", s.clearSpec)
			r.Post("/refresh", s.refreshSpec)
			r.Get("/endpoints", s.listEndpoints)
			r.Get("/tags", s.listTags)
			r.Get("/endpoint", s.describeEndpoint)
			r.Put("/selection", s.selectEndpoint)
			r.Get("/testdata", s.getTestData)
			r.Post("/execute", s.execute)
			r.Get("/auth", s.getAuth)
			r.Put("/auth", s.setAuth)
			r.Get("/variables", s.getVariables)
			r.Put("/variables", s.setVariables)
			r.Get("/cookies", s.getCookies)
			r.Put("/cookies", s.setCustomCookies)
			r.Delete("/cookies/session", s.clearSessionCookies)
			r.Delete("/cookies/session/{name}", s.removeSessionCookie)
			r.Get("/history", s.listHistory)
			r.Delete("/history", s.clearHistory)
			r.Get("/history/{id}", s.getHistoryEntry)
		})
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("handled request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}

// recoverer turns a handler panic into a 500 JSON error.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.writeError(w, r, fmt.Errorf("panic: %v", rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
