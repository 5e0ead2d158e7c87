// Package llm defines the narrow interface the generative tier uses to talk
// to a remote text-generation service. Concrete clients live in subpackages.
package llm

import "context"

// Request is a single-shot completion request.
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Provider is the interface for any generative backend. Complete returns the
// model's free-text output; each call is bounded by the caller's context.
type Provider interface {
	Complete(ctx context.Context, req *Request) (string, error)
}
