// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - Unexported errors (err*): Use for internal package errors
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Enrichment errors.
var (
	// ErrEmptyEmbedding indicates a backend returned a vector with no components.
	ErrEmptyEmbedding = errors.New("empty embedding")

	// ErrItemPanic indicates processing of a single item panicked and was recovered.
	ErrItemPanic = errors.New("item processing panicked")
)

// Notification errors.
var (
	// ErrNoTransport indicates no notification transport is configured.
	ErrNoTransport = errors.New("no notification transport configured")

	// ErrMalformedReply indicates a transport answered without a usable message handle.
	ErrMalformedReply = errors.New("malformed transport reply")

	// ErrUnknownHandle indicates a message handle cannot be routed to any transport.
	ErrUnknownHandle = errors.New("unknown message handle")

	// ErrTransportStatus indicates a transport answered with a non-success status.
	ErrTransportStatus = errors.New("unexpected transport status")
)

// Storage errors.
var (
	// ErrDatabaseUnavailable indicates the pool could not be established.
	ErrDatabaseUnavailable = errors.New("database unavailable")
)
