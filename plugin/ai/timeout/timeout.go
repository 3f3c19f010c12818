// Package timeout defines centralized timeout constants for AI operations.
package timeout

import "time"

const (
	// ResolveTimeout bounds a whole phrase resolution, retries included.
	ResolveTimeout = 15 * time.Second

	// LLMRequestTimeout bounds a single chat completion request.
	LLMRequestTimeout = 10 * time.Second

	// ShutdownTimeout is how long the server waits for in-flight requests on exit.
	ShutdownTimeout = 5 * time.Second

	// MaxPhraseLength is the longest phrase sent to a resolver.
	MaxPhraseLength = 200

	// MaxTruncateLength is the maximum length for truncating strings in logs.
	MaxTruncateLength = 50
)
