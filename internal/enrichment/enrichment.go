// Package enrichment turns raw search profiles into enriched ones by
// combining a per-user profile lookup with feed-derived insights.
//
// Every step is best-effort: a failed lookup degrades the item to
// partial data (null fields) and never aborts the batch. Items are
// processed sequentially, in result order, with a fixed pacing delay
// between them to respect the upstream rate limit.
package enrichment

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/lucasfdcampos/influencer-api/internal/domain"
	"github.com/lucasfdcampos/influencer-api/internal/insights"
)

// itemDelay is the pacing pause between successive items.
const itemDelay = 250 * time.Millisecond

// ProfileFetcher is the slice of the provider client the enricher needs.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, userID string) (*domain.Profile, error)
}

// InsightsGetter resolves aggregate metrics for one user.
type InsightsGetter interface {
	Get(ctx context.Context, username, userID string) (*domain.Insights, error)
}

// Enricher orchestrates per-item enrichment.
type Enricher struct {
	upstream ProfileFetcher
	insights InsightsGetter
	delay    insights.Delay
	log      zerolog.Logger
}

// New creates an Enricher. delay may be nil; insights.SleepDelay is used.
func New(upstream ProfileFetcher, ins InsightsGetter, delay insights.Delay, log zerolog.Logger) *Enricher {
	if delay == nil {
		delay = insights.SleepDelay
	}
	return &Enricher{upstream: upstream, insights: ins, delay: delay, log: log}
}

// EnrichAll enriches each profile in order and returns one
// EnrichedProfile per input, regardless of how many lookups succeeded.
func (e *Enricher) EnrichAll(ctx context.Context, profiles []domain.Profile) []domain.EnrichedProfile {
	out := make([]domain.EnrichedProfile, 0, len(profiles))
	for i, p := range profiles {
		out = append(out, e.enrichOne(ctx, p))

		if i < len(profiles)-1 {
			if err := e.delay(ctx, itemDelay); err != nil {
				// Caller went away; remaining items stay unenriched.
				for _, rest := range profiles[i+1:] {
					out = append(out, domain.EnrichedProfile{Profile: rest})
				}
				break
			}
		}
	}
	return out
}

// enrichOne merges profile and insight data for a single item.
//
// Precedence: insight-derived followers/total posts override the raw
// profile's values; post_count/avg_likes/engagement/rate come only from
// insights. With insights absent, the profile lookup alone fills
// followers and total posts; the engagement fields stay null.
func (e *Enricher) enrichOne(ctx context.Context, p domain.Profile) domain.EnrichedProfile {
	out := domain.EnrichedProfile{Profile: p}
	if p.UserID == "" {
		return out
	}

	var prof *domain.Profile
	if fetched, err := e.upstream.FetchProfile(ctx, p.UserID); err != nil {
		e.log.Warn().Str("user_id", p.UserID).Str("username", p.Username).Err(err).
			Msg("profile enrichment failed")
	} else {
		prof = fetched
	}

	ins, err := e.insights.Get(ctx, "", p.UserID)
	if err != nil {
		e.log.Warn().Str("user_id", p.UserID).Str("username", p.Username).Err(err).
			Msg("insight enrichment failed")
		ins = nil
	}

	switch {
	case ins != nil:
		out.PostCount = &ins.PostCount
		out.AvgLikes = &ins.AvgLikes
		out.Engagement = &ins.Engagement
		out.EngagementRatePercent = ins.EngagementRatePercent
		if ins.Followers != nil {
			out.Followers = ins.Followers
		}
		if ins.TotalPosts != nil {
			out.TotalPosts = ins.TotalPosts
		} else if prof != nil {
			out.TotalPosts = prof.MediaCount
		}
	case prof != nil:
		if prof.Followers != nil {
			out.Followers = prof.Followers
		}
		out.TotalPosts = prof.MediaCount
	}
	return out
}
