// Package rapid is the client for the rate-limited RapidAPI Instagram
// provider. It exposes one method per upstream endpoint; each call is
// an independent network request with its own timeout and failure
// domain. The client itself never retries.
package rapid

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/lucasfdcampos/influencer-api/internal/domain"
	"github.com/lucasfdcampos/influencer-api/internal/engagement"
)

const (
	// FeedSampleSize caps how many recent posts a feed fetch returns,
	// bounding latency and upstream rate consumption.
	FeedSampleSize = 20

	searchTimeout  = 15 * time.Second
	profileTimeout = 20 * time.Second
	feedTimeout    = 20 * time.Second

	// maxErrBody bounds how much of an error response is kept for
	// diagnostics.
	maxErrBody = 2048
)

// Config holds the upstream credential pair and transport options.
type Config struct {
	Host    string // e.g. "instagram-best-experience.p.rapidapi.com"
	Key     string
	BaseURL string // defaults to https://{Host}

	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client issues authenticated calls to the upstream provider.
// Construct it with New and inject it where needed; there is no
// package-level instance.
type Client struct {
	host    string
	key     string
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// New creates a Client from cfg.
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://" + cfg.Host
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		host:    cfg.Host,
		key:     cfg.Key,
		baseURL: baseURL,
		http:    hc,
		log:     cfg.Logger,
	}
}

// SearchUsers performs a keyword search and returns up to count raw,
// unenriched profiles.
func (c *Client) SearchUsers(ctx context.Context, query string, count int) ([]domain.Profile, error) {
	const op = "users_search"

	body, err := c.get(ctx, op, "/users_search", url.Values{
		"query": {query},
		"count": {strconv.Itoa(count)},
	}, searchTimeout)
	if err != nil {
		return nil, err
	}

	// The search endpoint answers either {"users": [...]} or a bare
	// list.
	var raw any
	if err := decodeNumbers(body, &raw); err != nil {
		return nil, malformed(op, err)
	}

	var users []Document
	switch v := raw.(type) {
	case map[string]any:
		users = Document(v).List("users")
	case []any:
		users = asDocuments(v)
	default:
		return nil, malformed(op, errUnexpectedShape)
	}

	profiles := make([]domain.Profile, 0, len(users))
	for _, u := range users {
		if len(profiles) >= count {
			break
		}
		profiles = append(profiles, profileFromDoc(u))
	}
	return profiles, nil
}

// FetchProfile fetches a profile by user id, with follower and total
// post counts populated when upstream has them.
func (c *Client) FetchProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	const op = "profile"

	doc, err := c.getDoc(ctx, op, "/profile", url.Values{"user_id": {userID}}, profileTimeout)
	if err != nil {
		return nil, err
	}
	p := profileFromDoc(doc)
	return &p, nil
}

// FetchUserByUsername fetches a profile by username. Used to resolve a
// user id when the caller only knows the handle, and to back the
// single-user deep fetch.
func (c *Client) FetchUserByUsername(ctx context.Context, username string) (*domain.Profile, error) {
	const op = "user_by_username"

	doc, err := c.getDoc(ctx, op, "/v1/user/by/username", url.Values{"username": {username}}, profileTimeout)
	if err != nil {
		return nil, err
	}
	p := profileFromDoc(doc)
	return &p, nil
}

// FetchUserMetrics fetches a profile by username together with the
// provider's per-post averages, deriving engagement totals when at
// least one average is present. Absent averages leave the derived
// fields nil rather than reporting zero engagement.
func (c *Client) FetchUserMetrics(ctx context.Context, username string) (*domain.UserMetrics, error) {
	const op = "user_by_username"

	doc, err := c.getDoc(ctx, op, "/v1/user/by/username", url.Values{"username": {username}}, profileTimeout)
	if err != nil {
		return nil, err
	}

	m := &domain.UserMetrics{
		Profile:     profileFromDoc(doc),
		AvgLikes:    doc.Count("avg_likes", "average_likes", "avgLikes", "avg_like"),
		AvgComments: doc.Count("avg_comments", "average_comments", "comments_avg", "avg_comment", "comments"),
	}
	if m.AvgLikes != nil || m.AvgComments != nil {
		em := engagement.Compute(countValue(m.Followers), countValue(m.AvgLikes), countValue(m.AvgComments))
		m.Engagement = &em.Engagement
		m.EngagementRatePercent = em.RatePercent
	}
	return m, nil
}

// countValue unwraps an optional count for engagement.Compute.
func countValue(n *int64) any {
	if n == nil {
		return nil
	}
	return *n
}

// FetchRecentFeed returns like/comment counts for the user's most
// recent posts, capped at count (at most FeedSampleSize).
func (c *Client) FetchRecentFeed(ctx context.Context, userID string, count int) ([]domain.FeedPost, error) {
	const op = "feed"

	if count <= 0 || count > FeedSampleSize {
		count = FeedSampleSize
	}
	doc, err := c.getDoc(ctx, op, "/feed", url.Values{
		"user_id": {userID},
		"count":   {strconv.Itoa(count)},
	}, feedTimeout)
	if err != nil {
		return nil, err
	}

	items := doc.List("items", "media", "data")
	posts := make([]domain.FeedPost, 0, len(items))
	for _, it := range items {
		if len(posts) >= count {
			break
		}
		var post domain.FeedPost
		if n := it.Count("like_count"); n != nil {
			post.LikeCount = *n
		}
		if n := it.Count("comment_count"); n != nil {
			post.CommentCount = *n
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// profileFromDoc maps an upstream user object onto a domain.Profile,
// trying each field alias in precedence order.
func profileFromDoc(d Document) domain.Profile {
	return domain.Profile{
		UserID:     d.ID("pk", "id"),
		Username:   d.Str("username"),
		FullName:   d.Str("full_name", "name", "fullName"),
		Followers:  d.Count("follower_count", "followers", "followerCount", "followers_count"),
		MediaCount: d.Count("media_count", "posts"),
		ProfilePic: d.Str("profile_pic_url", "profile_picture", "profile_pic", "avatar"),
		Bio:        d.Str("biography", "bio"),
	}
}

// get performs an authenticated GET and returns the raw body of a
// 2xx response.
func (c *Client) get(ctx context.Context, op, path string, params url.Values, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, unavailable(op, err)
	}
	req.Header.Set("x-rapidapi-host", c.host)
	req.Header.Set("x-rapidapi-key", c.key)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Str("op", op).Err(err).Msg("upstream request failed")
		return nil, unavailable(op, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("op", op).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("upstream call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, unavailable(op, err)
	}
	return body, nil
}

// getDoc performs a GET expecting a single JSON object.
func (c *Client) getDoc(ctx context.Context, op, path string, params url.Values, timeout time.Duration) (Document, error) {
	body, err := c.get(ctx, op, path, params, timeout)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := decodeNumbers(body, &doc); err != nil {
		return nil, malformed(op, err)
	}
	return doc, nil
}

// decodeNumbers unmarshals keeping numbers as json.Number, so large
// numeric ids are not rounded through float64.
func decodeNumbers(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return dec.Decode(v)
}
