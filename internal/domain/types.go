package domain

import (
	"strings"
	"time"
)

// DefaultLimit is applied when a search request omits or zeroes the limit.
const DefaultLimit = 10

// SearchKey identifies a cached result set. Keyword is always the
// normalized (lowercased, trimmed) form; two keys with equal fields are
// cache-equivalent regardless of the original casing.
type SearchKey struct {
	Keyword     string
	Limit       int
	CallerScope string
}

// NewSearchKey normalizes a raw keyword into a SearchKey.
// Normalization is idempotent: NewSearchKey on an already-normalized
// keyword yields the same key.
func NewSearchKey(rawKeyword string, limit int, callerScope string) SearchKey {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return SearchKey{
		Keyword:     strings.ToLower(strings.TrimSpace(rawKeyword)),
		Limit:       limit,
		CallerScope: callerScope,
	}
}

// SearchRequest are the inbound search parameters. CallerScope is an
// opaque per-principal identifier supplied by the auth layer; the core
// never interprets it.
type SearchRequest struct {
	Keyword     string `json:"keyword"`
	Limit       int    `json:"limit"`
	CallerScope string `json:"caller_scope,omitempty"`
}

// SearchResponse is the API response for a search.
type SearchResponse struct {
	Results []EnrichedProfile `json:"results"`
	Cached  bool              `json:"cached"`
	Stale   bool              `json:"stale,omitempty"`
}

// Profile holds the raw upstream profile fields. Count fields are
// pointers: a missing count stays null end to end and is never
// flattened to 0.
type Profile struct {
	UserID     string `json:"user_id,omitempty"     bson:"user_id,omitempty"`
	Username   string `json:"username,omitempty"    bson:"username,omitempty"`
	FullName   string `json:"full_name,omitempty"   bson:"full_name,omitempty"`
	Followers  *int64 `json:"followers"             bson:"followers,omitempty"`
	MediaCount *int64 `json:"media_count,omitempty" bson:"media_count,omitempty"`
	ProfilePic string `json:"profile_pic,omitempty" bson:"profile_pic,omitempty"`
	Bio        string `json:"bio,omitempty"         bson:"bio,omitempty"`
}

// EnrichedProfile is a Profile plus best-effort engagement enrichment.
// The enrichment fields are always serialized (even when null) so that
// "unknown" remains distinguishable from "zero".
type EnrichedProfile struct {
	Profile `bson:",inline"`

	PostCount             *int64   `json:"post_count"              bson:"post_count,omitempty"`
	AvgLikes              *int64   `json:"avg_likes"               bson:"avg_likes,omitempty"`
	Engagement            *int64   `json:"engagement"              bson:"engagement,omitempty"`
	EngagementRatePercent *float64 `json:"engagement_rate_percent" bson:"engagement_rate_percent,omitempty"`
	TotalPosts            *int64   `json:"total_posts"             bson:"total_posts,omitempty"`
}

// UserMetrics is the single-user deep fetch payload: the raw profile
// plus engagement derived from the provider's own per-post averages.
// The derived fields are always serialized and stay null when no
// average is available, so "unknown" never reads as "zero".
type UserMetrics struct {
	Profile

	AvgLikes              *int64   `json:"avg_likes"`
	AvgComments           *int64   `json:"avg_comments"`
	Engagement            *int64   `json:"engagement"`
	EngagementRatePercent *float64 `json:"engagement_rate_percent"`
}

// Insights are feed-derived aggregate metrics for a single user.
// PostCount/AvgLikes/Engagement cover only the sampled recent posts;
// Followers and TotalPosts are the authoritative profile totals and
// stay nil when the profile lookup failed.
type Insights struct {
	PostCount             int64    `json:"post_count"`
	AvgLikes              int64    `json:"avg_likes"`
	Engagement            int64    `json:"engagement"`
	EngagementRatePercent *float64 `json:"engagement_rate_percent"`
	Followers             *int64   `json:"followers"`
	TotalPosts            *int64   `json:"total_posts"`
}

// FeedPost is one item of a user's recent feed.
type FeedPost struct {
	LikeCount    int64 `json:"like_count"`
	CommentCount int64 `json:"comment_count"`
}

// StoredSearch is the cached result-set document (collection: searches).
// Keyword holds the normalized form used for exact lookups; KeywordRaw
// preserves the caller's original casing for the fallback tiers.
type StoredSearch struct {
	ID          string            `bson:"_id,omitempty"          json:"id,omitempty"`
	Keyword     string            `bson:"keyword"                json:"keyword"`
	KeywordRaw  string            `bson:"keyword_raw"            json:"keyword_raw"`
	Limit       int               `bson:"limit"                  json:"limit"`
	CallerScope string            `bson:"caller_scope,omitempty" json:"caller_scope,omitempty"`
	Results     []EnrichedProfile `bson:"results"                json:"results"`
	CreatedAt   time.Time         `bson:"created_at"             json:"created_at"`
	ExpiresAt   time.Time         `bson:"expires_at"             json:"expires_at"`
}
