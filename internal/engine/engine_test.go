package engine

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dileep-u-k/toolforge/internal/api"
	"github.com/dileep-u-k/toolforge/internal/catalog"
)

func TestExecuteSimpleMode(t *testing.T) {
	gen := newMockGenerator(scriptedReply{Output: "Here is your draft."})
	eng := New(newStubStore(basicTool("drafter")), gen)

	res, err := eng.Execute(context.Background(), "drafter", api.ExecuteRequest{
		Input: "Write a thank-you note for my mentor.",
	})
	require.NoError(t, err)

	assert.Equal(t, StepFinal, res.Step)
	assert.Equal(t, "Here is your draft.", res.Output)
	assert.Equal(t, FormatPlain, res.OutputFormat)
	assert.Equal(t, 1, res.UpstreamCalls)
	assert.False(t, res.Repaired)
	assert.Empty(t, res.Questions)

	call := gen.call(0)
	assert.Contains(t, call.SystemPrompt, "helpful writing assistant")
	assert.Equal(t, "Write a thank-you note for my mentor.", call.UserContent)
	assert.InDelta(t, 0.5, call.Temperature, 1e-9)
}

func TestExecuteUnknownTool(t *testing.T) {
	eng := New(newStubStore(), newMockGenerator())

	_, err := eng.Execute(context.Background(), "ghost", api.ExecuteRequest{Input: "hi"})
	assert.ErrorIs(t, err, catalog.ErrToolNotFound)
}

func TestExecuteRejectsBlankInput(t *testing.T) {
	gen := newMockGenerator()
	eng := New(newStubStore(basicTool("drafter")), gen)

	for _, input := range []string{"", "   ", "\n\t"} {
		_, err := eng.Execute(context.Background(), "drafter", api.ExecuteRequest{Input: input})
		assert.ErrorIs(t, err, ErrInvalidRequest)
	}
	assert.Zero(t, gen.callCount())
}

func TestExecuteRejectsUnknownMode(t *testing.T) {
	gen := newMockGenerator()
	eng := New(newStubStore(basicTool("drafter")), gen)

	_, err := eng.Execute(context.Background(), "drafter", api.ExecuteRequest{
		Input: "hi",
		Mode:  "turbo",
	})
	require.ErrorIs(t, err, ErrInvalidRequest)
	assert.Contains(t, err.Error(), "turbo")
	assert.Zero(t, gen.callCount())
}

func TestExecuteUpstreamFailure(t *testing.T) {
	gen := newMockGenerator(scriptedReply{Err: errStubUpstream})
	eng := New(newStubStore(basicTool("drafter")), gen)

	_, err := eng.Execute(context.Background(), "drafter", api.ExecuteRequest{Input: "hi there"})
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "finalize", upstream.Phase)
	assert.ErrorIs(t, err, errStubUpstream)
}

func TestExecuteClarifyShortCircuit(t *testing.T) {
	gen := newMockGenerator(scriptedReply{
		Output: `{"needClarification": true, "questions": ["What company?", "When is the launch?"]}`,
	})
	eng := New(newStubStore(clarifyTool("announcer")), gen)

	res, err := eng.Execute(context.Background(), "announcer", api.ExecuteRequest{
		Input: "We are launching something.",
		Mode:  "auto",
	})
	require.NoError(t, err)

	assert.Equal(t, StepClarify, res.Step)
	assert.Equal(t, []string{"What company?", "When is the launch?"}, res.Questions)
	assert.Empty(t, res.Output)
	assert.Equal(t, 1, res.UpstreamCalls)
	assert.Equal(t, 1, gen.callCount())

	// The clarify call carries the clarify instruction and its fixed
	// decision contract, not the tool's base prompt.
	call := gen.call(0)
	assert.Contains(t, call.SystemPrompt, "audience and deadline")
	assert.Contains(t, call.SystemPrompt, "needClarification")
	assert.NotContains(t, call.SystemPrompt, "helpful writing assistant")
}

func TestExecuteClarifyDecisionNoQuestions(t *testing.T) {
	gen := newMockGenerator(
		scriptedReply{Output: `{"needClarification": false, "questions": []}`},
		scriptedReply{Output: "Final artifact."},
	)
	eng := New(newStubStore(clarifyTool("announcer")), gen)

	res, err := eng.Execute(context.Background(), "announcer", api.ExecuteRequest{
		Input: "Launch announcement for Acme on June 3rd, aimed at developers.",
		Mode:  "auto",
	})
	require.NoError(t, err)

	assert.Equal(t, StepFinal, res.Step)
	assert.Equal(t, "Final artifact.", res.Output)
	assert.Equal(t, 2, res.UpstreamCalls)
}

func TestExecuteClarifyAnswersSupplied(t *testing.T) {
	gen := newMockGenerator(scriptedReply{Output: "Final artifact using answers."})
	eng := New(newStubStore(clarifyTool("announcer")), gen)

	res, err := eng.Execute(context.Background(), "announcer", api.ExecuteRequest{
		Input:   "We are launching something.",
		Mode:    "auto",
		Answers: []string{"Acme Corp", "June 3rd"},
	})
	require.NoError(t, err)

	// Answers skip the question-asking call entirely.
	assert.Equal(t, StepFinal, res.Step)
	assert.Equal(t, 1, res.UpstreamCalls)
	require.Equal(t, 1, gen.callCount())

	call := gen.call(0)
	assert.Contains(t, call.UserContent, "Answer to question 1: Acme Corp")
	assert.Contains(t, call.UserContent, "Answer to question 2: June 3rd")
	assert.Contains(t, call.UserContent, "We are launching something.")
	// Finalize addendum rides along on the second leg.
	assert.Contains(t, call.SystemPrompt, "Write the final artifact now")
}

func TestExecuteClarifySkippedInSimpleMode(t *testing.T) {
	gen := newMockGenerator(scriptedReply{Output: "Straight to final."})
	eng := New(newStubStore(clarifyTool("announcer")), gen)

	res, err := eng.Execute(context.Background(), "announcer", api.ExecuteRequest{
		Input: "We are launching something.",
		Mode:  "simple",
	})
	require.NoError(t, err)
	assert.Equal(t, StepFinal, res.Step)
	assert.Equal(t, 1, res.UpstreamCalls)
}

func TestExecuteClarifyIgnoredWithoutCapability(t *testing.T) {
	gen := newMockGenerator(scriptedReply{Output: "No clarify round here."})
	eng := New(newStubStore(basicTool("drafter")), gen)

	res, err := eng.Execute(context.Background(), "drafter", api.ExecuteRequest{
		Input: "hello",
		Mode:  "auto",
	})
	require.NoError(t, err)
	assert.Equal(t, StepFinal, res.Step)
	assert.Equal(t, 1, gen.callCount())
}

func TestExecuteClarifyUnparseableAfterRepair(t *testing.T) {
	// The clarify decision fails to parse even after repair; the request
	// defaults to "no clarification" and proceeds to finalize. Three calls
	// total: clarify, repair, finalize.
	gen := newMockGenerator(
		scriptedReply{Output: "I think you should clarify maybe?"},
		scriptedReply{Output: "still not json"},
		scriptedReply{Output: "Final anyway."},
	)
	eng := New(newStubStore(clarifyTool("announcer")), gen)

	res, err := eng.Execute(context.Background(), "announcer", api.ExecuteRequest{
		Input: "We are launching something.",
		Mode:  "auto",
	})
	require.NoError(t, err)
	assert.Equal(t, StepFinal, res.Step)
	assert.Equal(t, "Final anyway.", res.Output)
	assert.Equal(t, 3, res.UpstreamCalls)
}

func TestExecuteClarifyQuestionBound(t *testing.T) {
	questions := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		questions = append(questions, "Question?")
	}
	payload, err := json.Marshal(map[string]any{
		"needClarification": true,
		"questions":         append(questions, "", "   "),
	})
	require.NoError(t, err)

	gen := newMockGenerator(scriptedReply{Output: string(payload)})
	eng := New(newStubStore(clarifyTool("announcer")), gen)

	res, err := eng.Execute(context.Background(), "announcer", api.ExecuteRequest{
		Input: "vague",
		Mode:  "auto",
	})
	require.NoError(t, err)
	assert.Len(t, res.Questions, maxClarifyQuestions)
}

func TestExecuteStructuredOutputValid(t *testing.T) {
	gen := newMockGenerator(scriptedReply{Output: `{"metrics": [{"name": "ARR", "value": "12M"}]}`})
	eng := New(newStubStore(structuredTool("kpi-extractor", `{"metrics": [{"name": string, "value": string}]}`)), gen)

	res, err := eng.Execute(context.Background(), "kpi-extractor", api.ExecuteRequest{
		Input:        "ARR grew to 12M this quarter.",
		OutputFormat: "json",
	})
	require.NoError(t, err)

	assert.Equal(t, FormatJSON, res.OutputFormat)
	assert.True(t, json.Valid([]byte(res.Output)))
	assert.Equal(t, 1, res.UpstreamCalls)
	assert.False(t, res.Repaired)

	// The schema hint is embedded verbatim in the system prompt.
	call := gen.call(0)
	assert.Contains(t, call.SystemPrompt, `{"metrics": [{"name": string, "value": string}]}`)
	assert.Contains(t, call.SystemPrompt, "single valid JSON value")
}

func TestExecuteStructuredOutputFenceStripped(t *testing.T) {
	gen := newMockGenerator(scriptedReply{Output: "```json\n{\"ok\": true}\n```"})
	eng := New(newStubStore(structuredTool("kpi-extractor", `{"ok": bool}`)), gen)

	res, err := eng.Execute(context.Background(), "kpi-extractor", api.ExecuteRequest{
		Input:        "some report",
		OutputFormat: "json",
	})
	require.NoError(t, err)

	assert.Equal(t, `{"ok": true}`, res.Output)
	assert.Equal(t, 1, res.UpstreamCalls)
	assert.False(t, res.Repaired)
}

func TestExecuteStructuredOutputRepaired(t *testing.T) {
	gen := newMockGenerator(
		scriptedReply{Output: `{"metrics": [}`},
		scriptedReply{Output: `{"metrics": []}`},
	)
	eng := New(newStubStore(structuredTool("kpi-extractor", `{"metrics": []}`)), gen)

	res, err := eng.Execute(context.Background(), "kpi-extractor", api.ExecuteRequest{
		Input:        "no metrics here",
		OutputFormat: "json",
	})
	require.NoError(t, err)

	assert.Equal(t, `{"metrics": []}`, res.Output)
	assert.Equal(t, 2, res.UpstreamCalls)
	assert.True(t, res.Repaired)

	// The repair call runs at temperature zero and carries the broken text.
	repair := gen.call(1)
	assert.Zero(t, repair.Temperature)
	assert.Contains(t, repair.UserContent, `{"metrics": [}`)
	assert.Contains(t, repair.SystemPrompt, "repair malformed JSON")
}

func TestExecuteStructuredOutputRepairFails(t *testing.T) {
	broken := strings.Repeat("not json at all ", 30)
	gen := newMockGenerator(
		scriptedReply{Output: broken},
		scriptedReply{Output: "still broken"},
	)
	eng := New(newStubStore(structuredTool("kpi-extractor", `{"metrics": []}`)), gen)

	_, err := eng.Execute(context.Background(), "kpi-extractor", api.ExecuteRequest{
		Input:        "some report",
		OutputFormat: "json",
	})

	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.NotEmpty(t, formatErr.Excerpt)
	assert.LessOrEqual(t, len([]rune(formatErr.Excerpt)), maxExcerptRunes+3)
	// Exactly two upstream calls: generation plus one repair, never a third.
	assert.Equal(t, 2, gen.callCount())
}

func TestExecuteJSONRequestWithoutCapabilityFallsBackToPlain(t *testing.T) {
	gen := newMockGenerator(scriptedReply{Output: "free text"})
	eng := New(newStubStore(basicTool("drafter")), gen)

	res, err := eng.Execute(context.Background(), "drafter", api.ExecuteRequest{
		Input:        "hello",
		OutputFormat: "json",
	})
	require.NoError(t, err)

	assert.Equal(t, FormatPlain, res.OutputFormat)
	assert.NotContains(t, gen.call(0).SystemPrompt, "single valid JSON value")
}

func TestExecuteDefaultOutputFormatFromConfig(t *testing.T) {
	cfg := structuredTool("kpi-extractor", `{"metrics": []}`)
	cfg.DefaultOutputFormat = catalog.FormatJSON

	gen := newMockGenerator(scriptedReply{Output: `{"metrics": []}`})
	eng := New(newStubStore(cfg), gen)

	res, err := eng.Execute(context.Background(), "kpi-extractor", api.ExecuteRequest{
		Input: "a report",
	})
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, res.OutputFormat)
}

func TestExecuteFocusLens(t *testing.T) {
	cfg := basicTool("press-release-writer")
	cfg.Capabilities = append(cfg.Capabilities, catalog.CapabilityPresets)
	cfg.Presets = []catalog.Preset{
		{Label: "Product launch", Prompt: "Frame the release around a product launch."},
	}

	t.Run("explicit prompt wins", func(t *testing.T) {
		gen := newMockGenerator(scriptedReply{Output: "ok"})
		eng := New(newStubStore(cfg), gen)

		_, err := eng.Execute(context.Background(), "press-release-writer", api.ExecuteRequest{
			Input:       "announcement",
			FocusLabel:  "Product launch",
			FocusPrompt: "Emphasize pricing above all.",
		})
		require.NoError(t, err)
		sys := gen.call(0).SystemPrompt
		assert.Contains(t, sys, "Focus: Product launch")
		assert.Contains(t, sys, "Emphasize pricing above all.")
		assert.NotContains(t, sys, "Frame the release around a product launch.")
	})

	t.Run("bare label resolves preset prompt", func(t *testing.T) {
		gen := newMockGenerator(scriptedReply{Output: "ok"})
		eng := New(newStubStore(cfg), gen)

		_, err := eng.Execute(context.Background(), "press-release-writer", api.ExecuteRequest{
			Input:      "announcement",
			FocusLabel: "Product launch",
		})
		require.NoError(t, err)
		sys := gen.call(0).SystemPrompt
		assert.Contains(t, sys, "Focus: Product launch")
		assert.Contains(t, sys, "Frame the release around a product launch.")
	})

	t.Run("unknown label passes through as loose guidance", func(t *testing.T) {
		gen := newMockGenerator(scriptedReply{Output: "ok"})
		eng := New(newStubStore(cfg), gen)

		_, err := eng.Execute(context.Background(), "press-release-writer", api.ExecuteRequest{
			Input:      "announcement",
			FocusLabel: "Acquisition",
		})
		require.NoError(t, err)
		sys := gen.call(0).SystemPrompt
		assert.Contains(t, sys, "Focus: Acquisition")
		assert.Contains(t, sys, "loose guidance")
	})
}

func TestExecuteBuildMode(t *testing.T) {
	plan := BuildStep{
		StepID:  "step-1",
		Title:   "Scaffold the project",
		Summary: "Create the initial layout.",
		Deliverables: []BuildDeliverable{
			{Type: DeliverableFiles, Items: []any{"main.go"}},
		},
		NextSteps: []BuildNextStep{
			{ID: "step-2", Title: "Add storage", Prompt: "Design the schema."},
		},
	}
	payload, err := json.Marshal(plan)
	require.NoError(t, err)

	gen := newMockGenerator(scriptedReply{Output: string(payload)})
	eng := New(newStubStore(clarifyTool("builder")), gen)

	res, err := eng.Execute(context.Background(), "builder", api.ExecuteRequest{
		Input: "Build me a todo app.",
		Mode:  "build",
	})
	require.NoError(t, err)

	// Build mode never runs clarification, even with clarify-first set.
	assert.Equal(t, StepFinal, res.Step)
	assert.Equal(t, FormatJSON, res.OutputFormat)
	assert.Equal(t, 1, res.UpstreamCalls)
	require.Equal(t, 1, gen.callCount())

	var decoded BuildStep
	require.NoError(t, json.Unmarshal([]byte(res.Output), &decoded))
	assert.Equal(t, "step-1", decoded.StepID)

	// The build core replaces the tool's base identity prompt.
	sys := gen.call(0).SystemPrompt
	assert.Contains(t, sys, "incremental build planner")
	assert.NotContains(t, sys, "helpful writing assistant")
	assert.Contains(t, sys, `"nextSteps"`)
}

func TestExecuteBuildModeStepContext(t *testing.T) {
	gen := newMockGenerator(scriptedReply{Output: `{"stepId": "step-2"}`})
	eng := New(newStubStore(basicTool("builder")), gen)

	_, err := eng.Execute(context.Background(), "builder", api.ExecuteRequest{
		Input:       "Build me a todo app.",
		Mode:        "build",
		BuildStepID: "step-2",
		BuildPrompt: "Design the schema.",
	})
	require.NoError(t, err)

	call := gen.call(0)
	assert.Contains(t, call.UserContent, "Current step: step-2")
	assert.Contains(t, call.UserContent, "Build me a todo app.")
	assert.Contains(t, call.SystemPrompt, "Design the schema.")
}

func TestExecuteBuildModeExplicitPlain(t *testing.T) {
	gen := newMockGenerator(scriptedReply{Output: "1. Scaffold\n2. Storage\n3. Routes"})
	eng := New(newStubStore(basicTool("builder")), gen)

	res, err := eng.Execute(context.Background(), "builder", api.ExecuteRequest{
		Input:        "Build me a todo app.",
		Mode:         "build",
		OutputFormat: "plain",
	})
	require.NoError(t, err)

	assert.Equal(t, FormatPlain, res.OutputFormat)
	assert.Equal(t, "1. Scaffold\n2. Storage\n3. Routes", res.Output)
	assert.NotContains(t, gen.call(0).SystemPrompt, `"nextSteps"`)
}

func TestExecuteBuildModeRepairBoundary(t *testing.T) {
	gen := newMockGenerator(
		scriptedReply{Output: `{"stepId": `},
		scriptedReply{Output: `also broken`},
	)
	eng := New(newStubStore(basicTool("builder")), gen)

	_, err := eng.Execute(context.Background(), "builder", api.ExecuteRequest{
		Input: "Build me a todo app.",
		Mode:  "build",
	})

	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, 2, gen.callCount())
}

func TestExecuteNormalizesRawConfig(t *testing.T) {
	// A raw config with an out-of-range temperature and a dangling schema
	// hint goes through normalization before execution.
	cfg := catalog.ToolConfig{
		Slug:           "sloppy",
		SystemPrompt:   "You answer questions about gardening in plain language.",
		Temperature:    9.9,
		Capabilities:   []catalog.Capability{catalog.CapabilityTextInput},
		JSONSchemaHint: "should be stripped",
	}
	gen := newMockGenerator(scriptedReply{Output: "plant tomatoes in spring"})
	eng := New(newStubStore(cfg), gen)

	res, err := eng.Execute(context.Background(), "sloppy", api.ExecuteRequest{Input: "when to plant tomatoes?"})
	require.NoError(t, err)

	assert.Equal(t, FormatPlain, res.OutputFormat)
	// Clamped to the default, not the raw 9.9.
	assert.Less(t, gen.call(0).Temperature, 1.5)
}

func TestExecuteRepairUpstreamFailure(t *testing.T) {
	gen := newMockGenerator(
		scriptedReply{Output: "{broken"},
		scriptedReply{Err: errStubUpstream},
	)
	eng := New(newStubStore(structuredTool("kpi-extractor", `{"metrics": []}`)), gen)

	_, err := eng.Execute(context.Background(), "kpi-extractor", api.ExecuteRequest{
		Input:        "report",
		OutputFormat: "json",
	})
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "repair", upstream.Phase)
}

func TestUpstreamErrorUnwrap(t *testing.T) {
	inner := errors.New("socket closed")
	err := &UpstreamError{Phase: "finalize", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "finalize")
}
