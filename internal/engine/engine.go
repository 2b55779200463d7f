// Package engine implements the request-time execution engine: it turns a
// tool's declarative configuration plus user input into a validated
// response, running the optional clarification protocol, the build-mode
// planning contract and the structured-output repair path.
//
// The engine is stateless and request-scoped. Nothing is shared or
// mutated across invocations, so any number of requests may run in
// parallel; within one request, upstream generation calls are strictly
// sequential.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/dileep-u-k/toolforge/internal/api"
	"github.com/dileep-u-k/toolforge/internal/catalog"
	"github.com/dileep-u-k/toolforge/internal/llm"
)

// Mode selects the execution contract for one request.
type Mode string

const (
	// ModeSimple generates the final artifact immediately.
	ModeSimple Mode = "simple"
	// ModeAuto runs the clarification protocol first when the tool
	// carries the clarify-first capability.
	ModeAuto Mode = "auto"
	// ModeBuild produces an incremental, schema-bound step plan.
	ModeBuild Mode = "build"
)

// Output formats, re-exported so engine callers need not import catalog.
const (
	FormatPlain = catalog.FormatPlain
	FormatJSON  = catalog.FormatJSON
)

// Result step discriminators.
const (
	StepClarify = "clarify"
	StepFinal   = "final"
)

// Result is the discriminated outcome of one execution. It is created
// fresh per call and never persisted or shared.
type Result struct {
	// Step is StepClarify (Questions set) or StepFinal (Output set).
	Step         string
	Questions    []string
	Output       string
	OutputFormat string

	// UpstreamCalls and Repaired expose what the request cost: how many
	// generation calls were made and whether the repair path ran.
	UpstreamCalls int
	Repaired      bool
}

// Engine orchestrates one execution request against the configuration
// store and the generation service.
type Engine struct {
	store     catalog.Store
	generator llm.Generator
}

// New wires an engine to its two collaborators.
func New(store catalog.Store, generator llm.Generator) *Engine {
	return &Engine{store: store, generator: generator}
}

// Execute runs one request against the tool identified by slug.
//
// Control flow: load and normalize the configuration, validate the
// request, then either run the build contract, short-circuit with clarify
// questions, or generate and validate the final artifact. Between one and
// three upstream calls occur, never more.
func (e *Engine) Execute(ctx context.Context, slug string, req api.ExecuteRequest) (*Result, error) {
	raw, err := e.store.Get(slug)
	if err != nil {
		return nil, err
	}
	cfg := catalog.Normalize(raw)

	if strings.TrimSpace(req.Input) == "" {
		return nil, fmt.Errorf("%w: input must not be empty", ErrInvalidRequest)
	}
	mode, err := parseMode(req.Mode)
	if err != nil {
		return nil, err
	}

	lens := resolveLens(cfg, req)
	format := effectiveFormat(cfg, req.OutputFormat, mode)

	if mode == ModeBuild {
		return e.runBuild(ctx, cfg, lens, req, format)
	}

	calls := 0
	userContent := req.Input

	switch classifyClarify(cfg, mode, req.Answers) {
	case clarifyAwaitingDecision:
		questions, clarifyCalls, err := e.runClarify(ctx, cfg, lens, req.Input)
		calls += clarifyCalls
		if err != nil {
			return nil, err
		}
		if len(questions) > 0 {
			return &Result{
				Step:          StepClarify,
				Questions:     questions,
				OutputFormat:  format,
				UpstreamCalls: calls,
			}, nil
		}
	case clarifyAnswersSupplied:
		userContent = prependAnswers(req.Input, req.Answers)
	}

	systemPrompt := assembleFinalizePrompt(cfg, lens, format)
	output, err := e.generator.Generate(ctx, systemPrompt, userContent, cfg.Temperature)
	if err != nil {
		return nil, &UpstreamError{Phase: "finalize", Err: err}
	}
	calls++

	output, repaired, err := e.enforceFormat(ctx, output, format, cfg.JSONSchemaHint)
	if repaired {
		calls++
	}
	if err != nil {
		return nil, err
	}

	return &Result{
		Step:          StepFinal,
		Output:        output,
		OutputFormat:  format,
		UpstreamCalls: calls,
		Repaired:      repaired,
	}, nil
}

// runBuild executes the build-mode contract: no clarification, the build
// core directive, and the fixed plan schema as the structured contract.
func (e *Engine) runBuild(ctx context.Context, cfg catalog.ToolConfig, lens *Lens, req api.ExecuteRequest, format string) (*Result, error) {
	systemPrompt := assembleBuildPrompt(lens, req.BuildPrompt, format)

	userContent := req.Input
	if req.BuildStepID != "" {
		userContent = fmt.Sprintf("Current step: %s\n\n%s", req.BuildStepID, req.Input)
	}

	output, err := e.generator.Generate(ctx, systemPrompt, userContent, cfg.Temperature)
	if err != nil {
		return nil, &UpstreamError{Phase: "build", Err: err}
	}
	calls := 1

	output, repaired, err := e.enforceFormat(ctx, output, format, buildSchemaHint)
	if repaired {
		calls++
	}
	if err != nil {
		return nil, err
	}

	return &Result{
		Step:          StepFinal,
		Output:        output,
		OutputFormat:  format,
		UpstreamCalls: calls,
		Repaired:      repaired,
	}, nil
}

// parseMode validates the requested execution mode. An empty mode means
// simple; anything outside the enumeration is a bad request.
func parseMode(s string) (Mode, error) {
	switch s {
	case "":
		return ModeSimple, nil
	case string(ModeSimple), string(ModeAuto), string(ModeBuild):
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, s)
	}
}

// resolveLens builds the focus lens for a request. An explicit
// focusPrompt wins; a bare focusLabel falls back to the matching preset's
// instruction text, and failing that the label alone is passed through as
// loose guidance.
func resolveLens(cfg catalog.ToolConfig, req api.ExecuteRequest) *Lens {
	if req.FocusLabel == "" && req.FocusPrompt == "" {
		return nil
	}
	lens := &Lens{Label: req.FocusLabel, Prompt: req.FocusPrompt}
	if lens.Prompt == "" {
		for _, p := range cfg.Presets {
			if p.Label == lens.Label {
				lens.Prompt = p.Prompt
				break
			}
		}
	}
	return lens
}

// effectiveFormat decides the output format actually used.
//
// Build mode defaults to json; an explicit "plain" request is honored. In
// the other modes a json request is honored only when the tool carries
// the structured-output capability, otherwise the configured default (or
// plain) applies.
func effectiveFormat(cfg catalog.ToolConfig, requested string, mode Mode) string {
	if mode == ModeBuild {
		if requested == FormatPlain {
			return FormatPlain
		}
		return FormatJSON
	}
	switch requested {
	case FormatJSON:
		if cfg.HasCapability(catalog.CapabilityStructuredOutput) {
			return FormatJSON
		}
		return FormatPlain
	case FormatPlain:
		return FormatPlain
	default:
		if cfg.DefaultOutputFormat == FormatJSON {
			return FormatJSON
		}
		return FormatPlain
	}
}
