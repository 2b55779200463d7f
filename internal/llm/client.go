// Package llm contains the clients for the upstream text-generation
// service. The execution engine depends only on the Generator interface;
// the concrete provider is chosen once at startup in the composition root.
package llm

import "context"

// Generator is the single collaborator contract the engine consumes: one
// blocking generation call per invocation. The engine issues between one
// and three of these per request depending on the clarify and repair
// paths, always sequentially.
//
// Implementations must be safe for concurrent use; the engine itself is
// stateless and may serve arbitrarily many requests in parallel.
type Generator interface {
	// Generate sends a system prompt and user content to the model and
	// returns the generated text. Temperature is in [0, 1]; the repair
	// path passes 0 to make the follow-up call deterministic.
	Generate(ctx context.Context, systemPrompt, userContent string, temperature float64) (string, error)
}
