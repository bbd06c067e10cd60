// Package client issues single inference requests against a local
// serving process. Two transports are supported: the Ollama-style
// HTTP API and the NATS request/reply convention used by aigoflow
// inference workers.
package client

import "context"

// Querier sends one prompt to a model and returns the raw textual
// payload of the response, surrounding whitespace trimmed. It never
// retries; repeat policy belongs to the caller.
type Querier interface {
	Query(ctx context.Context, model, prompt string) (string, error)
	Close() error
}
