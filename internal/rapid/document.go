package rapid

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/lucasfdcampos/influencer-api/internal/engagement"
)

// Document is a loosely-typed upstream response object. The provider's
// schema names the same field differently across endpoints, so every
// accessor takes a precedence-ordered list of aliases and returns the
// first usable value.
type Document map[string]any

// Str returns the first alias whose value is a non-empty string.
func (d Document) Str(aliases ...string) string {
	for _, k := range aliases {
		if s, ok := d[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// ID returns the first alias rendered as a string identifier. Upstream
// sends numeric ids for some endpoints and strings for others; numeric
// tokens are kept verbatim so ids above 2^53 survive intact.
func (d Document) ID(aliases ...string) string {
	for _, k := range aliases {
		switch v := d[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case json.Number:
			s := v.String()
			if s != "" && !strings.ContainsAny(s, ".eE") {
				return s
			}
		case float64:
			return formatID(v)
		}
	}
	return ""
}

// Count returns the first alias that parses as a count ("1.2K", "3,400"
// or plain numbers). Nil when no alias yields a number.
func (d Document) Count(aliases ...string) *int64 {
	for _, k := range aliases {
		if v, ok := d[k]; ok {
			if n := engagement.ParseCount(v); n != nil {
				return n
			}
		}
	}
	return nil
}

// List returns the first alias holding a list of documents.
func (d Document) List(aliases ...string) []Document {
	for _, k := range aliases {
		raw, ok := d[k].([]any)
		if !ok {
			continue
		}
		return asDocuments(raw)
	}
	return nil
}

func asDocuments(raw []any) []Document {
	docs := make([]Document, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			docs = append(docs, Document(m))
		}
	}
	return docs
}

func formatID(v float64) string {
	// Ids arrive as JSON numbers; render without an exponent or
	// fractional part.
	n := int64(v)
	if float64(n) != v {
		return ""
	}
	return strconv.FormatInt(n, 10)
}
