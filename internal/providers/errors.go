package providers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RateLimitError is returned when a remote service answers 429.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
	StatusCode int
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry after %s)", e.Message, e.RetryAfter)
	}
	return e.Message
}

// SynthesisError reports a speech call that failed or returned no audio.
type SynthesisError struct {
	Provider string
	Err      error
}

func (e *SynthesisError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("speech synthesis failed: %v", e.Err)
	}
	return fmt.Sprintf("speech synthesis failed (%s): %v", e.Provider, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// ErrNoAudio is wrapped by SynthesisError when a provider answers without audio.
var ErrNoAudio = errors.New("no audio payload returned")

// parseRetryAfter reads a Retry-After header given in seconds or as an HTTP date.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := time.Parse(time.RFC1123, v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
