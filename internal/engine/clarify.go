package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/dileep-u-k/toolforge/internal/catalog"
)

// maxClarifyQuestions bounds how many follow-up questions a clarify round
// may return to the caller.
const maxClarifyQuestions = 6

// clarifySchemaHint is the fixed contract for the clarify decision call.
const clarifySchemaHint = `{"needClarification": true|false, "questions": ["..."]}`

// clarifyDecision is the parsed output of the clarify call.
type clarifyDecision struct {
	NeedClarification bool     `json:"needClarification"`
	Questions         []string `json:"questions"`
}

// clarifyState captures where a request sits in the clarification
// protocol. There is no stored state machine: the state is re-derived on
// every call from the capability set, the mode and the answers field.
type clarifyState int

const (
	// clarifyNotApplicable: capability absent, mode is not auto, or build
	// mode. The request proceeds straight to finalize.
	clarifyNotApplicable clarifyState = iota
	// clarifyAwaitingDecision: the clarify call must run and may
	// short-circuit the request with questions.
	clarifyAwaitingDecision
	// clarifyAnswersSupplied: the caller answered a previous round; the
	// question-asking call is skipped and the answers feed finalize.
	clarifyAnswersSupplied
)

// classifyClarify derives the clarification state for one request.
func classifyClarify(cfg catalog.ToolConfig, mode Mode, answers []string) clarifyState {
	if mode != ModeAuto || !cfg.HasCapability(catalog.CapabilityClarifyFirst) {
		return clarifyNotApplicable
	}
	if len(answers) > 0 {
		return clarifyAnswersSupplied
	}
	return clarifyAwaitingDecision
}

// runClarify executes the pre-flight question-asking call and returns the
// questions to surface (nil when the request should proceed to finalize)
// together with the number of upstream calls consumed.
//
// Parse failures here are recovered locally: one repair attempt with the
// fixed clarify schema hint, and on total failure the decision defaults
// to "no clarification needed". Failing the whole request over a
// clarify-only formatting hiccup would cost more availability than the
// occasional skipped question round.
func (e *Engine) runClarify(ctx context.Context, cfg catalog.ToolConfig, lens *Lens, input string) ([]string, int, error) {
	systemPrompt := assembleClarifyPrompt(cfg, lens)
	raw, err := e.generator.Generate(ctx, systemPrompt, input, cfg.Temperature)
	calls := 1
	if err != nil {
		return nil, calls, &UpstreamError{Phase: "clarify", Err: err}
	}

	var decision clarifyDecision
	cleaned := stripCodeFence(raw)
	if jsonErr := json.Unmarshal([]byte(cleaned), &decision); jsonErr != nil {
		repaired, repairErr := e.repairJSON(ctx, cleaned, clarifySchemaHint)
		calls++
		if repairErr != nil {
			return nil, calls, repairErr
		}
		if jsonErr = json.Unmarshal([]byte(repaired), &decision); jsonErr != nil {
			log.Printf("Clarify decision unparseable after repair, proceeding without questions: %v", jsonErr)
			return nil, calls, nil
		}
	}

	if !decision.NeedClarification {
		return nil, calls, nil
	}
	questions := sanitizeQuestions(decision.Questions)
	if len(questions) == 0 {
		return nil, calls, nil
	}
	return questions, calls, nil
}

// sanitizeQuestions drops blank entries and truncates to the bound.
func sanitizeQuestions(questions []string) []string {
	out := make([]string, 0, len(questions))
	for _, q := range questions {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		out = append(out, q)
		if len(out) == maxClarifyQuestions {
			break
		}
	}
	return out
}

// prependAnswers folds the caller's clarify answers into the finalize
// user content. Answers are ground truth: each is numbered against its
// question ordinal so the model can line them up with what it asked.
func prependAnswers(input string, answers []string) string {
	var b strings.Builder
	b.WriteString("The user answered the follow-up questions as follows:\n")
	for i, a := range answers {
		fmt.Fprintf(&b, "Answer to question %d: %s\n", i+1, a)
	}
	b.WriteString("\n")
	b.WriteString(input)
	return b.String()
}
