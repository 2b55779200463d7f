package llm

import "time"

// Shared client settings. Both providers use the same HTTP timeout so
// caller-driven cancellation remains the only other way a call ends early.
const (
	defaultTimeout      = 120 * time.Second
	defaultMaxOutputTok = 4096
)
