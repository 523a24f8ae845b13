package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSearchKey(t *testing.T) {
	key := NewSearchKey("  Nike Running ", 10, "u1")
	assert.Equal(t, "nike running", key.Keyword)
	assert.Equal(t, 10, key.Limit)
	assert.Equal(t, "u1", key.CallerScope)

	// normalization is idempotent
	again := NewSearchKey(key.Keyword, key.Limit, key.CallerScope)
	assert.Equal(t, key, again)

	// zero or negative limits fall back to the default
	assert.Equal(t, DefaultLimit, NewSearchKey("x", 0, "").Limit)
	assert.Equal(t, DefaultLimit, NewSearchKey("x", -3, "").Limit)
}

// Unknown counts must serialize as null, not zero.
func TestEnrichedProfileNullFields(t *testing.T) {
	b, err := json.Marshal(EnrichedProfile{Profile: Profile{Username: "alpha"}})
	require.NoError(t, err)

	s := string(b)
	assert.Contains(t, s, `"followers":null`)
	assert.Contains(t, s, `"post_count":null`)
	assert.Contains(t, s, `"avg_likes":null`)
	assert.Contains(t, s, `"engagement":null`)
	assert.Contains(t, s, `"engagement_rate_percent":null`)
	assert.Contains(t, s, `"total_posts":null`)
}
