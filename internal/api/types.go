// Package api defines the public request and response contracts for the
// tool execution endpoints. These types are the only shapes that cross the
// HTTP boundary; internal packages have their own representations and the
// handlers translate between the two.
package api

// ExecuteRequest is the body of POST /api/v1/tools/:slug/execute.
type ExecuteRequest struct {
	// Input is the raw user input text. It is required and must be non-empty.
	Input string `json:"input" binding:"required"`
	// Mode selects the execution contract: "simple", "auto" or "build".
	// An empty mode is treated as "simple".
	Mode string `json:"mode"`
	// OutputFormat optionally requests "plain" or "json" output.
	OutputFormat string `json:"outputFormat"`
	// Answers carries the user's answers to a previous clarify round.
	// Present only on the second leg of a clarification exchange.
	Answers []string `json:"answers,omitempty"`
	// FocusLabel and FocusPrompt select an optional focus lens that is
	// layered onto the tool's base prompt.
	FocusLabel  string `json:"focusLabel,omitempty"`
	FocusPrompt string `json:"focusPrompt,omitempty"`
	// BuildStepID and BuildPrompt are only meaningful in build mode: the
	// identifier of the step being executed and its step-specific
	// instruction text.
	BuildStepID string `json:"buildStepId,omitempty"`
	BuildPrompt string `json:"buildPrompt,omitempty"`
}

// ExecuteResponse is the discriminated result of an execute call.
// Step is either "clarify" (Questions populated, no Output) or "final"
// (Output populated, no Questions).
type ExecuteResponse struct {
	Step         string   `json:"step"`
	Questions    []string `json:"questions,omitempty"`
	Output       string   `json:"output,omitempty"`
	OutputFormat string   `json:"outputFormat"`
	LatencyMS    int64    `json:"latency_ms"`
}

// SaveRequest is the body of POST /api/v1/tools/:slug/save.
type SaveRequest struct {
	Input        string `json:"input" binding:"required"`
	Output       string `json:"output" binding:"required"`
	OutputFormat string `json:"outputFormat"`
}

// SaveResponse returns the identifier assigned to the saved item.
type SaveResponse struct {
	ID string `json:"id"`
}

// RateRequest is the body of POST /api/v1/tools/:slug/saved/:id/rate.
// Ratings are clamped to the 1-5 range by the history store.
type RateRequest struct {
	Rating int `json:"rating" binding:"required"`
}
