// Package insights resolves feed-derived aggregate metrics for a
// single user: likes/comments summed over the most recent posts plus
// authoritative follower and post totals from the profile endpoint.
package insights

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/lucasfdcampos/influencer-api/internal/domain"
	"github.com/lucasfdcampos/influencer-api/internal/engagement"
	"github.com/lucasfdcampos/influencer-api/internal/rapid"
)

// ErrMissingIdentifier is returned when neither a user id nor a
// resolvable username was supplied. Never retried.
var ErrMissingIdentifier = errors.New("insights: user_id is required to fetch feed insights")

// retryDelay is waited before the single retry when the first attempt
// comes back without followers or an engagement rate.
const retryDelay = 2 * time.Second

// Upstream is the slice of the provider client the resolver needs.
type Upstream interface {
	FetchUserByUsername(ctx context.Context, username string) (*domain.Profile, error)
	FetchProfile(ctx context.Context, userID string) (*domain.Profile, error)
	FetchRecentFeed(ctx context.Context, userID string, count int) ([]domain.FeedPost, error)
}

// Delay blocks for d or until ctx is done. Injectable so tests run
// without real sleeps.
type Delay func(ctx context.Context, d time.Duration) error

// SleepDelay is the production Delay.
func SleepDelay(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Resolver fetches and aggregates insight metrics.
type Resolver struct {
	upstream Upstream
	delay    Delay
	log      zerolog.Logger
}

// NewResolver creates a Resolver. delay may be nil; SleepDelay is used.
func NewResolver(upstream Upstream, delay Delay, log zerolog.Logger) *Resolver {
	if delay == nil {
		delay = SleepDelay
	}
	return &Resolver{upstream: upstream, delay: delay, log: log}
}

// Get returns aggregate metrics for the user identified by userID, or
// by username when userID is empty (resolved through a profile
// lookup). If the first attempt yields no followers or no engagement
// rate, the whole fetch-and-compute sequence is repeated exactly once
// after a fixed delay and the second result is returned as-is.
func (r *Resolver) Get(ctx context.Context, username, userID string) (*domain.Insights, error) {
	if userID == "" && username != "" {
		p, err := r.upstream.FetchUserByUsername(ctx, username)
		if err != nil {
			r.log.Warn().Str("username", username).Err(err).Msg("could not resolve user id")
		} else {
			userID = p.UserID
		}
	}
	if userID == "" {
		return nil, ErrMissingIdentifier
	}

	result, err := r.fetchAndCompute(ctx, userID)
	if err != nil {
		return nil, err
	}

	if result.Followers == nil || result.EngagementRatePercent == nil {
		r.log.Debug().Str("user_id", userID).Msg("incomplete insights, retrying once")
		if derr := r.delay(ctx, retryDelay); derr != nil {
			return nil, derr
		}
		return r.fetchAndCompute(ctx, userID)
	}
	return result, nil
}

// fetchAndCompute performs one full pass: recent feed aggregation, then
// the authoritative profile totals, then the engagement rate.
func (r *Resolver) fetchAndCompute(ctx context.Context, userID string) (*domain.Insights, error) {
	posts, err := r.upstream.FetchRecentFeed(ctx, userID, rapid.FeedSampleSize)
	if err != nil {
		return nil, err
	}

	var totalLikes, totalComments int64
	for _, p := range posts {
		totalLikes += p.LikeCount
		totalComments += p.CommentCount
	}
	postCount := int64(len(posts))

	var avgLikes int64
	if postCount > 0 {
		avgLikes = totalLikes / postCount
	}
	total := totalLikes + totalComments

	// Follower/post totals are best-effort; a failed profile lookup
	// leaves them nil rather than failing the insight fetch.
	var followers, totalPosts *int64
	if profile, perr := r.upstream.FetchProfile(ctx, userID); perr != nil {
		r.log.Warn().Str("user_id", userID).Err(perr).Msg("profile totals unavailable")
	} else {
		followers = profile.Followers
		totalPosts = profile.MediaCount
	}

	return &domain.Insights{
		PostCount:             postCount,
		AvgLikes:              avgLikes,
		Engagement:            total,
		EngagementRatePercent: engagement.Rate2(total, followers),
		Followers:             followers,
		TotalPosts:            totalPosts,
	}, nil
}
