// Package llmclient defines the client contract the candidate generator
// calls, so it can be driven by an injected implementation (a real HTTP
// client in production, a scripted fake in tests) without depending on a
// concrete transport. The timeout controller (pkg/timeoutctl) does not use
// this contract; it streams over HTTP itself.
package llmclient

import "context"

// Request is one generation call: a prompt pair plus sampling parameters.
type Request struct {
	SystemPrompt string
	Prompt       string
	Temperature  float64
	Seed         int64
}

// Client is the minimal surface the generator needs: a single non-streaming
// call returning the full completion text. Streaming goes through
// pkg/timeoutctl.Controller, which talks to the backend over HTTP directly
// rather than through this interface.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}
