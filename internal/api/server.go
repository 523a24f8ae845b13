package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Server wraps the HTTP server.
type Server struct {
	srv *http.Server
	log zerolog.Logger
}

// NewServer wires routes and returns a ready-to-start Server.
func NewServer(addr string, h *Handler, log zerolog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/api/v1/search", h.Search)
	mux.HandleFunc("/api/v1/search/cache", h.InvalidateCache)
	mux.HandleFunc("/api/v1/profile", h.Profile)
	mux.HandleFunc("/api/v1/insights", h.Insights)
	mux.HandleFunc("/api/v1/followers", h.Followers)

	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      loggingMiddleware(mux, log),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute, // enrichment chains can be slow
			IdleTimeout:  60 * time.Second,
		},
		log: log,
	}
}

// Start begins listening and blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("influencer-api listening")
	return s.srv.ListenAndServe()
}

// Shutdown gracefully shuts down with the given context.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// loggingMiddleware logs each request with method, path and duration.
func loggingMiddleware(next http.Handler, log zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.status).
			Dur("latency", time.Since(start)).
			Msg("request")
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}
