package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dileep-u-k/toolforge/internal/catalog"
)

// recordedCall captures one upstream generation call made by the engine.
type recordedCall struct {
	SystemPrompt string
	UserContent  string
	Temperature  float64
}

// scriptedReply is what the mock generator returns for one call.
type scriptedReply struct {
	Output string
	Err    error
}

// mockGenerator replays a fixed script of replies and records every call.
// A call beyond the script fails the request loudly so a test that
// triggers more upstream calls than expected cannot pass by accident.
type mockGenerator struct {
	mu     sync.Mutex
	script []scriptedReply
	calls  []recordedCall
}

func newMockGenerator(replies ...scriptedReply) *mockGenerator {
	return &mockGenerator{script: replies}
}

func (m *mockGenerator) Generate(_ context.Context, systemPrompt, userContent string, temperature float64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := len(m.calls)
	m.calls = append(m.calls, recordedCall{systemPrompt, userContent, temperature})
	if idx >= len(m.script) {
		return "", fmt.Errorf("unexpected generation call #%d", idx+1)
	}
	reply := m.script[idx]
	return reply.Output, reply.Err
}

func (m *mockGenerator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockGenerator) call(i int) recordedCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[i]
}

// stubStore serves raw configurations from a map.
type stubStore struct {
	tools map[string]catalog.ToolConfig
}

func newStubStore(cfgs ...catalog.ToolConfig) *stubStore {
	s := &stubStore{tools: make(map[string]catalog.ToolConfig, len(cfgs))}
	for _, cfg := range cfgs {
		s.tools[cfg.Slug] = cfg
	}
	return s
}

func (s *stubStore) Get(slug string) (catalog.ToolConfig, error) {
	cfg, ok := s.tools[slug]
	if !ok {
		return catalog.ToolConfig{}, fmt.Errorf("%w: %s", catalog.ErrToolNotFound, slug)
	}
	return cfg, nil
}

func (s *stubStore) List() []catalog.ToolConfig {
	out := make([]catalog.ToolConfig, 0, len(s.tools))
	for _, cfg := range s.tools {
		out = append(out, cfg)
	}
	return out
}

var errStubUpstream = errors.New("stub upstream failure")

// basicTool is a minimal free-text tool.
func basicTool(slug string) catalog.ToolConfig {
	return catalog.ToolConfig{
		Slug:         slug,
		Title:        "Basic Tool",
		SystemPrompt: "You are a helpful writing assistant with a specific job.",
		Temperature:  0.5,
		Capabilities: []catalog.Capability{catalog.CapabilityTextInput},
	}
}

// clarifyTool carries the clarify-first capability with substantive
// clarify and finalize instructions.
func clarifyTool(slug string) catalog.ToolConfig {
	cfg := basicTool(slug)
	cfg.Capabilities = append(cfg.Capabilities, catalog.CapabilityClarifyFirst)
	cfg.ClarifyPrompt = "Check whether the request names its audience and deadline before answering."
	cfg.FinalizePrompt = "Write the final artifact now without asking anything further."
	return cfg
}

// structuredTool carries the structured-output capability and a schema hint.
func structuredTool(slug, hint string) catalog.ToolConfig {
	cfg := basicTool(slug)
	cfg.Capabilities = append(cfg.Capabilities, catalog.CapabilityStructuredOutput)
	cfg.DefaultOutputFormat = catalog.FormatPlain
	cfg.JSONSchemaHint = hint
	return cfg
}
