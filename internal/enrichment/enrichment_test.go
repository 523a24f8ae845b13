package enrichment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasfdcampos/influencer-api/internal/domain"
)

type fakeFetcher struct {
	profiles map[string]*domain.Profile
	err      error
	calls    []string
}

func (f *fakeFetcher) FetchProfile(_ context.Context, userID string) (*domain.Profile, error) {
	f.calls = append(f.calls, userID)
	if f.err != nil {
		return nil, f.err
	}
	if p, ok := f.profiles[userID]; ok {
		return p, nil
	}
	return nil, errors.New("not found")
}

type fakeInsights struct {
	results map[string]*domain.Insights
	err     error
	calls   []string
}

func (f *fakeInsights) Get(_ context.Context, _, userID string) (*domain.Insights, error) {
	f.calls = append(f.calls, userID)
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.results[userID]; ok {
		return r, nil
	}
	return nil, errors.New("no insights")
}

type delayRecorder struct {
	delays []time.Duration
	err    error
}

func (d *delayRecorder) delay(_ context.Context, dur time.Duration) error {
	d.delays = append(d.delays, dur)
	return d.err
}

func i64(n int64) *int64 { return &n }
func f64(n float64) *float64 { return &n }

func TestEnrichAllInsightsPrecedence(t *testing.T) {
	fetcher := &fakeFetcher{profiles: map[string]*domain.Profile{
		"1": {Followers: i64(900), MediaCount: i64(100)},
	}}
	ins := &fakeInsights{results: map[string]*domain.Insights{
		"1": {
			PostCount:             20,
			AvgLikes:              50,
			Engagement:            1100,
			EngagementRatePercent: f64(2.2),
			Followers:             i64(1000),
			TotalPosts:            i64(120),
		},
	}}
	e := New(fetcher, ins, (&delayRecorder{}).delay, zerolog.Nop())

	out := e.EnrichAll(context.Background(), []domain.Profile{
		{UserID: "1", Username: "alpha", Followers: i64(800)},
	})
	require.Len(t, out, 1)

	// insights override both the search result and the profile lookup
	require.NotNil(t, out[0].Followers)
	assert.Equal(t, int64(1000), *out[0].Followers)
	require.NotNil(t, out[0].TotalPosts)
	assert.Equal(t, int64(120), *out[0].TotalPosts)
	require.NotNil(t, out[0].PostCount)
	assert.Equal(t, int64(20), *out[0].PostCount)
	require.NotNil(t, out[0].EngagementRatePercent)
	assert.Equal(t, 2.2, *out[0].EngagementRatePercent)
}

func TestEnrichAllProfileOnlyFallback(t *testing.T) {
	fetcher := &fakeFetcher{profiles: map[string]*domain.Profile{
		"1": {Followers: i64(900), MediaCount: i64(100)},
	}}
	ins := &fakeInsights{err: errors.New("feed down")}
	e := New(fetcher, ins, (&delayRecorder{}).delay, zerolog.Nop())

	out := e.EnrichAll(context.Background(), []domain.Profile{
		{UserID: "1", Username: "alpha", Followers: i64(800), Bio: "bio"},
	})
	require.Len(t, out, 1)

	require.NotNil(t, out[0].Followers)
	assert.Equal(t, int64(900), *out[0].Followers)
	require.NotNil(t, out[0].TotalPosts)
	assert.Equal(t, int64(100), *out[0].TotalPosts)

	// engagement fields come only from insights: null, not zero
	assert.Nil(t, out[0].PostCount)
	assert.Nil(t, out[0].AvgLikes)
	assert.Nil(t, out[0].Engagement)
	assert.Nil(t, out[0].EngagementRatePercent)

	// non-enrichment fields survive untouched
	assert.Equal(t, "alpha", out[0].Username)
	assert.Equal(t, "bio", out[0].Bio)
}

func TestEnrichAllTotalFailureKeepsItem(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("profile down")}
	ins := &fakeInsights{err: errors.New("feed down")}
	e := New(fetcher, ins, (&delayRecorder{}).delay, zerolog.Nop())

	out := e.EnrichAll(context.Background(), []domain.Profile{
		{UserID: "1", Username: "alpha", Followers: i64(800)},
		{UserID: "2", Username: "beta"},
	})
	require.Len(t, out, 2, "a failing item never aborts the batch")

	require.NotNil(t, out[0].Followers)
	assert.Equal(t, int64(800), *out[0].Followers, "search-result followers survive")
	assert.Nil(t, out[0].Engagement)
	assert.Equal(t, "beta", out[1].Username)
}

func TestEnrichAllPreservesOrderAndPaces(t *testing.T) {
	fetcher := &fakeFetcher{profiles: map[string]*domain.Profile{}}
	ins := &fakeInsights{results: map[string]*domain.Insights{}}
	rec := &delayRecorder{}
	e := New(fetcher, ins, rec.delay, zerolog.Nop())

	out := e.EnrichAll(context.Background(), []domain.Profile{
		{UserID: "1"}, {UserID: "2"}, {UserID: "3"},
	})
	require.Len(t, out, 3)
	assert.Equal(t, []string{"1", "2", "3"}, fetcher.calls)
	assert.Equal(t, []string{"1", "2", "3"}, ins.calls)

	// one pause between items, none after the last
	require.Len(t, rec.delays, 2)
	assert.Equal(t, 250*time.Millisecond, rec.delays[0])
}

func TestEnrichAllMissingUserID(t *testing.T) {
	fetcher := &fakeFetcher{}
	ins := &fakeInsights{}
	e := New(fetcher, ins, (&delayRecorder{}).delay, zerolog.Nop())

	out := e.EnrichAll(context.Background(), []domain.Profile{{Username: "noid"}})
	require.Len(t, out, 1)
	assert.Equal(t, "noid", out[0].Username)
	assert.Empty(t, fetcher.calls)
	assert.Empty(t, ins.calls)
}

func TestEnrichAllCancellation(t *testing.T) {
	fetcher := &fakeFetcher{profiles: map[string]*domain.Profile{}}
	ins := &fakeInsights{results: map[string]*domain.Insights{}}
	rec := &delayRecorder{err: context.Canceled}
	e := New(fetcher, ins, rec.delay, zerolog.Nop())

	out := e.EnrichAll(context.Background(), []domain.Profile{
		{UserID: "1"}, {UserID: "2"}, {UserID: "3"},
	})
	require.Len(t, out, 3, "every input still yields an output item")
	assert.Equal(t, []string{"1"}, fetcher.calls, "no upstream calls after cancellation")
}
