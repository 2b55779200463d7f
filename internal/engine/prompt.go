package engine

import (
	"fmt"
	"strings"

	"github.com/dileep-u-k/toolforge/internal/catalog"
)

// sectionSeparator joins the layers of a system prompt. Every assembly
// path goes through composeSections so the layering order stays the only
// thing each mode-specific function has to get right.
const sectionSeparator = "\n\n"

// composeSections concatenates the non-empty sections in order.
func composeSections(sections ...string) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		if strings.TrimSpace(s) != "" {
			parts = append(parts, strings.TrimSpace(s))
		}
	}
	return strings.Join(parts, sectionSeparator)
}

// Lens is a user-selected refinement layered onto the base prompt without
// replacing it.
type Lens struct {
	Label  string
	Prompt string
}

// lensSection renders the focus-lens block. A lens referenced without
// instruction text still gets a section: the label is passed through as
// loose guidance rather than dropped.
func lensSection(lens *Lens) string {
	switch {
	case lens == nil, lens.Label == "" && lens.Prompt == "":
		return ""
	case lens.Label == "":
		return lens.Prompt
	case lens.Prompt == "":
		return fmt.Sprintf("Focus: %s\nNo detailed instructions were provided for this focus. "+
			"Treat the label as loose guidance for tone and emphasis.", lens.Label)
	default:
		return fmt.Sprintf("Focus: %s\n%s", lens.Label, lens.Prompt)
	}
}

// structuredDirective mandates JSON-only output and embeds the schema
// hint verbatim. Emitted only when the effective output format is json.
func structuredDirective(schemaHint string) string {
	return fmt.Sprintf("Respond with a single valid JSON value and nothing else: no prose "+
		"before or after it and no markdown code fences.\n"+
		"Expected shape: %s\n"+
		"If the input does not contain a fact the shape asks for, use null or an "+
		"empty value instead of inventing one.", schemaHint)
}

// buildCoreDirective is the mode core for build mode. It replaces the
// tool's base identity prompt entirely.
const buildCoreDirective = "You are an incremental build planner. Decompose the user's goal " +
	"and deliver the smallest useful next increment: concrete enough to act on immediately, " +
	"small enough to finish in one sitting. Besides the current deliverable, propose the " +
	"follow-up steps a caller could run next, each with its own instruction prompt."

// assembleClarifyPrompt builds the system prompt for the pre-flight
// question-asking call. The clarify decision contract is itself a
// structured output, so the fixed clarify schema hint is always appended.
func assembleClarifyPrompt(cfg catalog.ToolConfig, lens *Lens) string {
	return composeSections(
		cfg.ClarifyPrompt,
		lensSection(lens),
		structuredDirective(clarifySchemaHint),
	)
}

// assembleFinalizePrompt builds the system prompt for the artifact
// generation call. Layer order is fixed: base identity, lens, finalize
// addendum, structured directive (json only).
func assembleFinalizePrompt(cfg catalog.ToolConfig, lens *Lens, format string) string {
	structured := ""
	if format == catalog.FormatJSON {
		structured = structuredDirective(cfg.JSONSchemaHint)
	}
	return composeSections(
		cfg.SystemPrompt,
		lensSection(lens),
		cfg.FinalizePrompt,
		structured,
	)
}

// assembleBuildPrompt builds the system prompt for a build-mode call. The
// per-step instruction takes the addendum slot; the plan schema hint is
// appended unless the caller explicitly asked for plain output.
func assembleBuildPrompt(lens *Lens, buildPrompt, format string) string {
	structured := ""
	if format == catalog.FormatJSON {
		structured = structuredDirective(buildSchemaHint)
	}
	return composeSections(
		buildCoreDirective,
		lensSection(lens),
		buildPrompt,
		structured,
	)
}
