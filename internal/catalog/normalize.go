package catalog

import "fmt"

const (
	// defaultTemperature is applied when a record carries no usable
	// temperature of its own.
	defaultTemperature = 0.45

	// minInstructionLength is the floor below which a clarify, finalize
	// or schema-hint text is treated as effectively absent and replaced
	// by its generic fallback.
	minInstructionLength = 20
)

// Generic fallback instructions. Each is comfortably above the length
// floor so that normalization stays idempotent.
const (
	fallbackClarifyPrompt = "Before answering, decide whether the request is specific enough to act on. " +
		"If it is not, ask the user a handful of short, concrete follow-up questions."

	fallbackFinalizePrompt = "Produce the final result now. Incorporate any answers the user has " +
		"provided and do not ask further questions."

	fallbackSchemaHint = "A single JSON object whose keys follow directly from the user's request."
)

// Normalize coerces a raw tool configuration into the canonical shape the
// execution engine consumes. It is a pure value transformation and is
// idempotent: normalizing an already-normalized configuration returns an
// identical value.
//
// The rules, in order:
//   - capabilities are intersected with the recognized set, deduplicated
//     and defaulted to [text-input] when nothing survives;
//   - fields whose governing capability is absent are stripped;
//   - legacy presets ({label, input}) are rewritten into lens presets;
//   - the output-format default is coerced to exactly "plain" or "json";
//   - clarify/finalize/schema-hint texts below the length floor are
//     replaced with generic fallbacks;
//   - the temperature is clamped into (0, 1].
func Normalize(cfg ToolConfig) ToolConfig {
	cfg.Capabilities = normalizeCapabilities(cfg.Capabilities)

	if cfg.Temperature <= 0 || cfg.Temperature > 1 {
		cfg.Temperature = defaultTemperature
	}

	if cfg.HasCapability(CapabilityPresets) {
		cfg.Presets = normalizePresets(cfg.Presets)
	} else {
		cfg.Presets = nil
	}

	if cfg.HasCapability(CapabilityStructuredOutput) {
		if cfg.DefaultOutputFormat != FormatJSON {
			cfg.DefaultOutputFormat = FormatPlain
		}
		if len(cfg.JSONSchemaHint) < minInstructionLength {
			cfg.JSONSchemaHint = fallbackSchemaHint
		}
	} else {
		cfg.DefaultOutputFormat = ""
		cfg.JSONSchemaHint = ""
	}

	if cfg.HasCapability(CapabilityClarifyFirst) {
		if len(cfg.ClarifyPrompt) < minInstructionLength {
			cfg.ClarifyPrompt = fallbackClarifyPrompt
		}
		if len(cfg.FinalizePrompt) < minInstructionLength {
			cfg.FinalizePrompt = fallbackFinalizePrompt
		}
	} else {
		cfg.ClarifyPrompt = ""
		cfg.FinalizePrompt = ""
	}

	return cfg
}

// normalizeCapabilities keeps recognized entries in their original order,
// drops duplicates, and falls back to the minimal baseline capability
// when the result would be empty.
func normalizeCapabilities(caps []Capability) []Capability {
	seen := make(map[Capability]bool, len(caps))
	out := make([]Capability, 0, len(caps))
	for _, c := range caps {
		if !c.Recognized() || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	if len(out) == 0 {
		out = append(out, CapabilityTextInput)
	}
	return out
}

// normalizePresets coerces every preset into the lens shape. A legacy
// preset carries an example Input instead of an instruction Prompt; it is
// rewritten into a lens whose prompt references the original example, and
// the legacy field is cleared so a second pass is a no-op.
func normalizePresets(presets []Preset) []Preset {
	if len(presets) == 0 {
		return nil
	}
	out := make([]Preset, 0, len(presets))
	for _, p := range presets {
		if p.Prompt == "" && p.Input != "" {
			p.Prompt = fmt.Sprintf("Respond in the spirit of this example request: %q. "+
				"Match its scope and level of detail.", p.Input)
		}
		p.Input = ""
		out = append(out, p)
	}
	return out
}
