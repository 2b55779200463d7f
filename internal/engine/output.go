package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// repairSystemPrompt instructs the model to emit only corrected JSON. The
// repair call runs at temperature 0: given the same broken text it should
// produce the same fix.
const repairSystemPrompt = "You repair malformed JSON. You will receive text that was supposed " +
	"to be a single valid JSON value but is not. Output the corrected JSON and absolutely " +
	"nothing else: no explanation, no apology, no markdown code fences."

// stripCodeFence removes a markdown code fence wrapping the whole text,
// including an optional language tag on the opening fence. Generation
// services add these wrappers habitually even when told not to.
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	withoutOpen := strings.TrimPrefix(trimmed, "```")
	if idx := strings.IndexByte(withoutOpen, '\n'); idx >= 0 {
		// Drop the language tag line ("json", "yaml", or empty).
		withoutOpen = withoutOpen[idx+1:]
	} else {
		// Single-line fence: ```{"a":1}```
		withoutOpen = strings.TrimSuffix(withoutOpen, "```")
		return strings.TrimSpace(withoutOpen)
	}
	withoutOpen = strings.TrimSpace(withoutOpen)
	withoutOpen = strings.TrimSuffix(withoutOpen, "```")
	return strings.TrimSpace(withoutOpen)
}

// repairJSON issues the single bounded repair call for broken structured
// output and returns the repaired text. The caller re-validates; this
// function only guarantees that exactly one upstream call was made.
func (e *Engine) repairJSON(ctx context.Context, broken, schemaHint string) (string, error) {
	userContent := fmt.Sprintf("Expected shape: %s\n\nBroken text:\n%s", schemaHint, broken)
	repaired, err := e.generator.Generate(ctx, repairSystemPrompt, userContent, 0)
	if err != nil {
		return "", &UpstreamError{Phase: "repair", Err: err}
	}
	return stripCodeFence(repaired), nil
}

// enforceFormat applies the syntactic output contract to generated text.
//
// Plain output is returned unchanged apart from fence stripping. JSON
// output must parse strictly; on failure exactly one repair call is made,
// and if the repaired text still fails to parse the whole request fails
// with a FormatError carrying a truncated excerpt. This is a hard
// boundary: at most two upstream calls ever occur on this path.
//
// The repaired flag reports whether the repair call ran, regardless of
// whether it succeeded.
func (e *Engine) enforceFormat(ctx context.Context, text, format, schemaHint string) (out string, repaired bool, err error) {
	cleaned := stripCodeFence(text)
	if format != FormatJSON {
		return cleaned, false, nil
	}

	if json.Valid([]byte(cleaned)) {
		return cleaned, false, nil
	}

	fixed, err := e.repairJSON(ctx, cleaned, schemaHint)
	if err != nil {
		return "", true, err
	}
	if json.Valid([]byte(fixed)) {
		return fixed, true, nil
	}
	return "", true, &FormatError{Excerpt: excerpt(text)}
}
