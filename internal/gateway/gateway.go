// Package gateway defines the interface for Bureau's network entry points.
package gateway

import "context"

// Gateway is a long-running entry point such as the HTTP API.
type Gateway interface {
	// Start launches the gateway and blocks until it exits or the context
	// is canceled. Returns an error only on failure.
	Start(ctx context.Context) error

	// Stop performs graceful shutdown. The context carries a deadline
	// for the grace period. In-flight requests should drain before returning.
	Stop(ctx context.Context) error
}
