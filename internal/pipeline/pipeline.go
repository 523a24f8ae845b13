// Package pipeline orchestrates the search → cache → enrichment flow.
//
// Phases:
//  1. Cache check – Redis L1 then MongoDB L2 exact, then MongoDB
//     case-insensitive fallback; return immediately on hit
//  2. Fetch       – keyword search against the upstream provider
//     (coalesced per cache key); on failure, degrade to
//     any available stale entry instead of surfacing
//  3. Enrichment  – per-item profile + insight merge, in result order
//  4. Persist     – upsert MongoDB and warm Redis, best-effort
package pipeline

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/lucasfdcampos/influencer-api/internal/cache"
	"github.com/lucasfdcampos/influencer-api/internal/domain"
)

// ErrEmptyKeyword rejects searches without a keyword.
var ErrEmptyKeyword = errors.New("pipeline: keyword is required")

// SearchStore is the L2 cache surface the pipeline needs.
// Implementations return nil, nil on a miss.
type SearchStore interface {
	FindSearch(ctx context.Context, key domain.SearchKey) (*domain.StoredSearch, error)
	FindSearchFallback(ctx context.Context, rawKeyword string, limit int) (*domain.StoredSearch, error)
	FindSearchAnyStale(ctx context.Context, rawKeyword string) (*domain.StoredSearch, error)
	UpsertSearch(ctx context.Context, s *domain.StoredSearch) error
}

// Searcher performs the raw upstream keyword search.
type Searcher interface {
	SearchUsers(ctx context.Context, query string, count int) ([]domain.Profile, error)
}

// Enricher turns raw profiles into enriched ones, best-effort.
type Enricher interface {
	EnrichAll(ctx context.Context, profiles []domain.Profile) []domain.EnrichedProfile
}

// Config holds injectable dependencies. Redis and Store may be nil;
// the pipeline then runs uncached or Mongo-less respectively.
type Config struct {
	Redis    *cache.Client
	Store    SearchStore
	Upstream Searcher
	Enricher Enricher
	Logger   zerolog.Logger
}

// Pipeline executes searches. Concurrent requests for the same
// normalized key share a single upstream fetch.
type Pipeline struct {
	cfg Config
	sf  singleflight.Group
}

// New creates a Pipeline.
func New(cfg Config) *Pipeline {
	return &Pipeline{cfg: cfg}
}

// Search runs the full pipeline for one request.
func (p *Pipeline) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	rawKeyword := strings.TrimSpace(req.Keyword)
	if rawKeyword == "" {
		return nil, ErrEmptyKeyword
	}

	key := domain.NewSearchKey(rawKeyword, req.Limit, req.CallerScope)
	log := p.cfg.Logger.With().Str("keyword", key.Keyword).Int("limit", key.Limit).Logger()

	// ── Phase 1a: Redis exact (L1) ───────────────────────────────────
	var redisKey string
	if p.cfg.Redis != nil {
		redisKey = cache.SearchKey(key)
		if resp, err := p.cfg.Redis.GetSearch(ctx, redisKey); err != nil {
			log.Warn().Err(err).Msg("redis lookup failed")
		} else if resp != nil {
			resp.Cached = true
			return resp, nil
		}
	}

	// ── Phase 1b: MongoDB exact (L2) ─────────────────────────────────
	if p.cfg.Store != nil {
		stored, err := p.cfg.Store.FindSearch(ctx, key)
		if err != nil {
			log.Warn().Err(err).Msg("search cache lookup failed")
		}
		if stored == nil && err == nil {
			// ── Phase 1c: case-insensitive fallback, same limit ──────
			stored, err = p.cfg.Store.FindSearchFallback(ctx, rawKeyword, key.Limit)
			if err != nil {
				log.Warn().Err(err).Msg("fallback cache lookup failed")
			}
		}
		if stored != nil {
			resp := &domain.SearchResponse{Results: stored.Results, Cached: true}
			p.warmRedis(ctx, redisKey, resp, log)
			return resp, nil
		}
	}

	// ── Phase 2: upstream fetch + enrichment, coalesced per key ──────
	sfKey := key.Keyword + "|" + strconv.Itoa(key.Limit) + "|" + key.CallerScope
	v, err, _ := p.sf.Do(sfKey, func() (any, error) {
		return p.fetchAndPersist(ctx, key, rawKeyword)
	})
	if err != nil {
		// ── Phase 2b: degrade to stale cache before surfacing ────────
		if stale := p.staleFallback(ctx, rawKeyword, key.Limit, log); stale != nil {
			return stale, nil
		}
		return nil, err
	}
	return v.(*domain.SearchResponse), nil
}

// fetchAndPersist performs the fresh upstream fetch, enriches and
// persists the result set. Cache writes are best-effort and are
// skipped entirely when the request was canceled mid-flight.
func (p *Pipeline) fetchAndPersist(ctx context.Context, key domain.SearchKey, rawKeyword string) (*domain.SearchResponse, error) {
	log := p.cfg.Logger.With().Str("keyword", key.Keyword).Logger()

	raw, err := p.cfg.Upstream.SearchUsers(ctx, rawKeyword, key.Limit)
	if err != nil {
		return nil, err
	}

	results := p.cfg.Enricher.EnrichAll(ctx, raw)
	resp := &domain.SearchResponse{Results: results, Cached: false}

	// An abandoned run must not leave partial entries behind.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if p.cfg.Store != nil {
		doc := &domain.StoredSearch{
			Keyword:     key.Keyword,
			KeywordRaw:  rawKeyword,
			Limit:       key.Limit,
			CallerScope: key.CallerScope,
			Results:     results,
		}
		if err := p.cfg.Store.UpsertSearch(ctx, doc); err != nil {
			log.Warn().Err(err).Msg("search cache write failed")
		}
	}
	if p.cfg.Redis != nil {
		p.warmRedis(ctx, cache.SearchKey(key), resp, log)
	}
	return resp, nil
}

// staleFallback serves any cached entry for the keyword after a failed
// fresh fetch: first the same-limit tier, then the broadest tier that
// ignores limit entirely.
func (p *Pipeline) staleFallback(ctx context.Context, rawKeyword string, limit int, log zerolog.Logger) *domain.SearchResponse {
	if p.cfg.Store == nil {
		return nil
	}
	stored, err := p.cfg.Store.FindSearchFallback(ctx, rawKeyword, limit)
	if err != nil || stored == nil {
		stored, err = p.cfg.Store.FindSearchAnyStale(ctx, rawKeyword)
	}
	if err != nil || stored == nil {
		return nil
	}
	log.Info().Msg("upstream failed, serving stale cached results")
	return &domain.SearchResponse{Results: stored.Results, Cached: true, Stale: true}
}

func (p *Pipeline) warmRedis(ctx context.Context, redisKey string, resp *domain.SearchResponse, log zerolog.Logger) {
	if p.cfg.Redis == nil || redisKey == "" {
		return
	}
	if err := p.cfg.Redis.SetSearch(ctx, redisKey, resp); err != nil {
		log.Warn().Err(err).Msg("redis write failed")
	}
}
