package engine

// Build mode turns the engine into a step-wise planning oracle: each
// response answers the current step and proposes the next steps'
// instruction prompts, so a caller can walk an implicit plan graph one
// call at a time. The engine holds no graph state; sequencing is entirely
// the caller's job.

// Deliverable types a build step may produce. The set is closed; the
// schema hint spells it out for the model.
const (
	DeliverableFiles   = "files"
	DeliverableDB      = "db"
	DeliverableRoutes  = "routes"
	DeliverablePrompts = "prompts"
	DeliverablePlan    = "plan"
)

// buildSchemaHint is the fixed output contract for build-mode responses.
// It feeds the same validator and repairer as every other structured
// output.
const buildSchemaHint = `{"stepId": "...", "title": "...", "summary": "...", ` +
	`"assumptions": ["..."], "openQuestions": ["..."], ` +
	`"deliverables": [{"type": "files|db|routes|prompts|plan", "items": [...]}], ` +
	`"nextSteps": [{"id": "...", "title": "...", "prompt": "..."}]}`

// BuildStep is the machine-consumable shape of one build-mode response.
// Validation of the generated output stays syntactic; these types exist
// so callers (and tests) can decode a validated response without
// re-declaring the contract.
type BuildStep struct {
	StepID        string             `json:"stepId"`
	Title         string             `json:"title"`
	Summary       string             `json:"summary"`
	Assumptions   []string           `json:"assumptions"`
	OpenQuestions []string           `json:"openQuestions"`
	Deliverables  []BuildDeliverable `json:"deliverables"`
	NextSteps     []BuildNextStep    `json:"nextSteps"`
}

// BuildDeliverable is one concrete artifact group within a step.
type BuildDeliverable struct {
	Type  string `json:"type"`
	Items []any  `json:"items"`
}

// BuildNextStep is a proposed follow-up: re-invoking the engine with its
// ID as buildStepId and its Prompt as buildPrompt walks the plan forward.
type BuildNextStep struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Prompt string `json:"prompt"`
}
