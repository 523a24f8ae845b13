// Package engagement normalizes heterogeneous count formats and derives
// engagement metrics from them. Pure functions, no I/O.
package engagement

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// countRe matches a numeric prefix with an optional magnitude suffix,
// e.g. "1.2k", "3400", "2 M".
var countRe = regexp.MustCompile(`^([\d.]+)\s*([kKmMbB]?)$`)

// ParseCount parses count representations like "1.2M", "3,400", 523 or
// 12.7 into an integer. Returns nil when the value is absent or has no
// numeric content; it never fails.
func ParseCount(value any) *int64 {
	switch v := value.(type) {
	case nil:
		return nil
	case int:
		n := int64(v)
		return &n
	case int32:
		n := int64(v)
		return &n
	case int64:
		return &v
	case float32:
		n := int64(v)
		return &n
	case float64:
		n := int64(v)
		return &n
	case json.Number:
		return parseCountString(v.String())
	case string:
		return parseCountString(v)
	default:
		return nil
	}
}

func parseCountString(s string) *int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, ",", "")

	if m := countRe.FindStringSubmatch(s); m != nil {
		num, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil
		}
		switch strings.ToLower(m[2]) {
		case "k":
			num *= 1_000
		case "m":
			num *= 1_000_000
		case "b":
			num *= 1_000_000_000
		}
		n := int64(num)
		return &n
	}

	num, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	n := int64(num)
	return &n
}

// Metrics holds derived engagement totals.
// RatePercent is nil when the follower count is unknown or zero.
type Metrics struct {
	Engagement  int64    `json:"engagement"`
	RatePercent *float64 `json:"engagement_rate_percent"`
}

// Compute derives total engagement and engagement rate from raw counts.
// Inputs may be numeric or strings like "1.2K". Missing likes/comments
// count as 0; a missing or zero follower count suppresses the rate
// instead (nil, never a division by zero). Rate is rounded to 3
// decimals.
func Compute(followers, avgLikes, avgComments any) Metrics {
	f := ParseCount(followers)
	likes := ParseCount(avgLikes)
	comments := ParseCount(avgComments)

	var total int64
	if likes != nil {
		total += *likes
	}
	if comments != nil {
		total += *comments
	}

	m := Metrics{Engagement: total}
	if f != nil && *f > 0 {
		rate := math.Round(float64(total)/float64(*f)*100*1000) / 1000
		m.RatePercent = &rate
	}
	return m
}

// Rate2 computes engagement/followers*100 rounded to 2 decimals, or nil
// when followers is nil or not positive. Used by the feed-insight path,
// which historically rounds coarser than Compute.
func Rate2(engagement int64, followers *int64) *float64 {
	if followers == nil || *followers <= 0 {
		return nil
	}
	rate := math.Round(float64(engagement)/float64(*followers)*100*100) / 100
	return &rate
}
