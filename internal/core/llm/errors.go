package llm

import (
	"errors"
	"fmt"
	"time"
)

// FailureKind classifies a backend failure.
type FailureKind string

const (
	FailureTransport FailureKind = "transport"
	FailureProtocol  FailureKind = "protocol"
	FailureJob       FailureKind = "job"
	FailureTimeout   FailureKind = "timeout"
)

const maxErrorBodyLen = 280

// ErrParse is returned by the JSON extractor when model text holds no usable object.
// It is recovered by the heuristic scorer and never leaves GenerateTags.
var ErrParse = errors.New("model output is not a JSON object")

type kinded interface {
	Kind() FailureKind
}

// TransportError is a non-success status or a failed connection.
type TransportError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("%s: status=%d body=%s", e.Op, e.Status, truncateBody(e.Body))
}

func (e *TransportError) Unwrap() error     { return e.Err }
func (e *TransportError) Kind() FailureKind { return FailureTransport }

// ProtocolError is a malformed or schema-violating response body.
type ProtocolError struct {
	Op     string
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Reason, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *ProtocolError) Unwrap() error     { return e.Err }
func (e *ProtocolError) Kind() FailureKind { return FailureProtocol }

// JobFailure means a queued job reached a failed or cancelled terminal status.
type JobFailure struct {
	JobID   string
	Status  string
	Message string
}

func (e *JobFailure) Error() string {
	return fmt.Sprintf("job %s %s: %s", e.JobID, e.Status, e.Message)
}

func (e *JobFailure) Kind() FailureKind { return FailureJob }

// TimeoutError means a queued job did not finish within the polling budget.
type TimeoutError struct {
	JobID   string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("job %s timeout after %s", e.JobID, e.Timeout)
}

func (e *TimeoutError) Kind() FailureKind { return FailureTimeout }

// Failure is the typed failure variant of an Outcome.
type Failure struct {
	Kind    FailureKind
	Backend BackendKind
	Err     error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s backend %s failure: %v", f.Backend, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Outcome is either a value or a typed failure.
type Outcome[T any] struct {
	Value   T
	Failure *Failure
}

// OK reports whether the outcome carries a value.
func (o Outcome[T]) OK() bool { return o.Failure == nil }

func succeed[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v}
}

func fail[T any](backend BackendKind, err error) Outcome[T] {
	return Outcome[T]{Failure: &Failure{Kind: KindOf(err), Backend: backend, Err: err}}
}

// KindOf returns the failure kind carried by err. Unclassified errors count as transport failures.
func KindOf(err error) FailureKind {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}

	return FailureTransport
}

func truncateBody(body string) string {
	if len(body) <= maxErrorBodyLen {
		return body
	}

	return body[:maxErrorBodyLen]
}
