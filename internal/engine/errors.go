package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest marks requests the engine refuses before any upstream
// call is made: empty input, unknown execution mode. Handlers surface it
// as a bad-request response.
var ErrInvalidRequest = errors.New("invalid execution request")

// maxExcerptRunes bounds the diagnostic excerpt carried by a FormatError
// so an error response can never balloon to the size of the raw output.
const maxExcerptRunes = 200

// FormatError reports structured output that stayed invalid after the one
// bounded repair attempt. It carries a truncated excerpt of the offending
// text, never the full payload.
type FormatError struct {
	Excerpt string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("generated output is not valid JSON after repair: %q", e.Excerpt)
}

// UpstreamError reports a failed call to the generation service itself
// (transport, auth, quota). The engine never retries these; Phase names
// which call failed.
type UpstreamError struct {
	Phase string // "clarify", "finalize", "build" or "repair"
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("generation call failed during %s phase: %v", e.Phase, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// excerpt returns at most maxExcerptRunes runes of s, marking truncation.
func excerpt(s string) string {
	runes := []rune(s)
	if len(runes) <= maxExcerptRunes {
		return s
	}
	return string(runes[:maxExcerptRunes]) + "..."
}
