package rapid

import (
	"errors"
	"fmt"
)

// Upstream failure kinds. None of them is retried inside the client;
// retry policy belongs to callers.
var (
	// ErrUnavailable marks transport-level failures (connect, timeout).
	ErrUnavailable = errors.New("upstream unavailable")
	// ErrMalformed marks responses that are not parseable as the
	// expected shape.
	ErrMalformed = errors.New("upstream response malformed")
)

// StatusError is a non-success upstream status. Body is kept for
// diagnostics.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("rapid: %s: upstream status %d: %s", e.Op, e.StatusCode, e.Body)
}

// IsUpstream reports whether err belongs to the upstream failure
// taxonomy (unavailable, bad status or malformed body).
func IsUpstream(err error) bool {
	var se *StatusError
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrMalformed) || errors.As(err, &se)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("rapid: %s: %w: %v", op, ErrUnavailable, err)
}

func malformed(op string, err error) error {
	return fmt.Errorf("rapid: %s: %w: %v", op, ErrMalformed, err)
}

// errUnexpectedShape is the detail used when a body parses as JSON but
// is neither an object nor a list where one was expected.
var errUnexpectedShape = errors.New("unexpected response shape")
