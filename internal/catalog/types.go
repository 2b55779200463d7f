// Package catalog owns the declarative tool configuration model: the
// ToolConfig record, the recognized capability set, the read-only YAML
// store that supplies raw records, and the normalizer that coerces a raw
// record into the canonical shape the execution engine consumes.
package catalog

// Capability is a recognized feature flag on a tool configuration.
// Capabilities act as a runtime dispatcher: optional engine behavior
// (clarification, structured output, presets) is gated on their presence
// rather than on configuration subtypes.
type Capability string

const (
	CapabilityTextInput        Capability = "text-input"
	CapabilityFileUpload       Capability = "file-upload"
	CapabilityPresets          Capability = "presets"
	CapabilityStructuredOutput Capability = "structured-output"
	CapabilityClarifyFirst     Capability = "clarify-first"
	CapabilitySavedHistory     Capability = "saved-history"
)

// recognizedCapabilities is the closed set the normalizer intersects
// against. Entries outside this set are dropped silently.
var recognizedCapabilities = map[Capability]bool{
	CapabilityTextInput:        true,
	CapabilityFileUpload:       true,
	CapabilityPresets:          true,
	CapabilityStructuredOutput: true,
	CapabilityClarifyFirst:     true,
	CapabilitySavedHistory:     true,
}

// Recognized reports whether c belongs to the closed capability set.
func (c Capability) Recognized() bool {
	return recognizedCapabilities[c]
}

// Output format values a tool configuration or request may carry.
const (
	FormatPlain = "plain"
	FormatJSON  = "json"
)

// Preset is a user-selectable refinement on a tool. Two shapes exist in
// the wild: the legacy form carries an example Input, the lens form
// carries an instruction Prompt (plus an optional UI Hint). The
// normalizer coerces every preset into the lens form.
type Preset struct {
	Label  string `yaml:"label" json:"label"`
	Input  string `yaml:"input,omitempty" json:"input,omitempty"`
	Prompt string `yaml:"prompt,omitempty" json:"prompt,omitempty"`
	Hint   string `yaml:"hint,omitempty" json:"hint,omitempty"`
}

// ToolConfig is one declarative tool record. It is owned by the
// configuration store and is read-only to the execution engine; the
// engine works on a normalized copy, never on the stored record.
type ToolConfig struct {
	Slug        string `yaml:"slug" json:"slug"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`

	// InputLabel and OutputLabel are display strings for the catalog UI.
	InputLabel  string `yaml:"inputLabel,omitempty" json:"inputLabel,omitempty"`
	OutputLabel string `yaml:"outputLabel,omitempty" json:"outputLabel,omitempty"`

	// SystemPrompt is the tool's base identity prompt, the core of every
	// finalize-phase system prompt.
	SystemPrompt string `yaml:"systemPrompt" json:"systemPrompt"`

	// Temperature controls generation randomness, 0.0-1.0. Zero or
	// out-of-range values are normalized to the 0.45 default.
	Temperature float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`

	Capabilities []Capability `yaml:"capabilities" json:"capabilities"`
	Presets      []Preset     `yaml:"presets,omitempty" json:"presets,omitempty"`

	// DefaultOutputFormat and JSONSchemaHint are meaningful only when the
	// structured-output capability is present.
	DefaultOutputFormat string `yaml:"defaultOutputFormat,omitempty" json:"defaultOutputFormat,omitempty"`
	JSONSchemaHint      string `yaml:"jsonSchemaHint,omitempty" json:"jsonSchemaHint,omitempty"`

	// ClarifyPrompt and FinalizePrompt are meaningful only when the
	// clarify-first capability is present.
	ClarifyPrompt  string `yaml:"clarifyPrompt,omitempty" json:"clarifyPrompt,omitempty"`
	FinalizePrompt string `yaml:"finalizePrompt,omitempty" json:"finalizePrompt,omitempty"`
}

// HasCapability reports whether the configuration carries the given flag.
func (c *ToolConfig) HasCapability(cap Capability) bool {
	for _, have := range c.Capabilities {
		if have == cap {
			return true
		}
	}
	return false
}
