package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/lucasfdcampos/influencer-api/internal/cache"
	"github.com/lucasfdcampos/influencer-api/internal/domain"
	"github.com/lucasfdcampos/influencer-api/internal/insights"
	"github.com/lucasfdcampos/influencer-api/internal/pipeline"
	"github.com/lucasfdcampos/influencer-api/internal/rapid"
)

// SearchRunner executes the search pipeline.
type SearchRunner interface {
	Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error)
}

// ProfileFetcher backs the single-user deep fetch.
type ProfileFetcher interface {
	FetchUserMetrics(ctx context.Context, username string) (*domain.UserMetrics, error)
	FetchProfile(ctx context.Context, userID string) (*domain.Profile, error)
}

// InsightsGetter backs the insights endpoint.
type InsightsGetter interface {
	Get(ctx context.Context, username, userID string) (*domain.Insights, error)
}

// Handler holds the HTTP dependencies.
type Handler struct {
	pipeline SearchRunner
	upstream ProfileFetcher
	insights InsightsGetter
	redis    *cache.Client
}

// NewHandler creates a new Handler. redis may be nil.
func NewHandler(p SearchRunner, upstream ProfileFetcher, ins InsightsGetter, redis *cache.Client) *Handler {
	return &Handler{pipeline: p, upstream: upstream, insights: ins, redis: redis}
}

// errResponse writes a JSON error body.
func errResponse(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto HTTP statuses: bad caller
// input → 400, upstream failures → 502, anything else → 500.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pipeline.ErrEmptyKeyword), errors.Is(err, insights.ErrMissingIdentifier):
		errResponse(w, http.StatusBadRequest, err.Error())
	case rapid.IsUpstream(err):
		errResponse(w, http.StatusBadGateway, err.Error())
	default:
		errResponse(w, http.StatusInternalServerError, err.Error())
	}
}

// Health godoc
//
//	GET /health
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

// Search godoc
//
//	GET /api/v1/search?keyword=...&limit=10&user_id=...
//
// user_id is the opaque caller scope supplied by the auth layer; when
// present, cached results are scoped to that caller.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	keyword := q.Get("keyword")
	if keyword == "" {
		errResponse(w, http.StatusBadRequest, "keyword is required")
		return
	}
	limit := domain.DefaultLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			errResponse(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		if n > 0 {
			limit = n
		}
	}

	resp, err := h.pipeline.Search(r.Context(), domain.SearchRequest{
		Keyword:     keyword,
		Limit:       limit,
		CallerScope: q.Get("user_id"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, resp)
}

// Profile godoc
//
//	GET /api/v1/profile?username=...
//
// Single-user deep fetch; no enrichment retry policy applies here.
// Engagement fields are null when upstream reports no per-post
// averages.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	username := r.URL.Query().Get("username")
	if username == "" {
		errResponse(w, http.StatusBadRequest, "username is required")
		return
	}

	m, err := h.upstream.FetchUserMetrics(r.Context(), username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, m)
}

// Insights godoc
//
//	GET /api/v1/insights?user_id=...  (preferred)
//	GET /api/v1/insights?username=... (resolved via profile lookup)
func (h *Handler) Insights(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	username, userID := q.Get("username"), q.Get("user_id")
	if username == "" && userID == "" {
		errResponse(w, http.StatusBadRequest, "username or user_id is required")
		return
	}

	metrics, err := h.insights.Get(r.Context(), username, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, metrics)
}

// Followers godoc
//
//	GET /api/v1/followers?user_id=...
//
// Profile passthrough used by the frontend's follower widget.
func (h *Handler) Followers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		errResponse(w, http.StatusBadRequest, "user_id is required")
		return
	}

	p, err := h.upstream.FetchProfile(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, p)
}

// InvalidateCache godoc
//
//	DELETE /api/v1/search/cache?keyword=...&limit=10&user_id=...
func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.redis == nil {
		errResponse(w, http.StatusServiceUnavailable, "redis not configured")
		return
	}

	q := r.URL.Query()
	keyword := q.Get("keyword")
	if keyword == "" {
		errResponse(w, http.StatusBadRequest, "keyword is required")
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))

	key := cache.SearchKey(domain.NewSearchKey(keyword, limit, q.Get("user_id")))
	if err := h.redis.DeleteSearch(r.Context(), key); err != nil {
		errResponse(w, http.StatusInternalServerError, "failed to delete cache key: "+err.Error())
		return
	}
	writeJSON(w, map[string]string{"status": "deleted", "key": key})
}
