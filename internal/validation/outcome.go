// Package validation implements the admission-control gates and the pipeline
// composing them. Each gate returns an Outcome rather than a bare bool so
// callers can tell a confirmed denial apart from "could not determine,
// defaulting to X".
package validation

import "fmt"

// OutcomeKind classifies a gate's answer.
type OutcomeKind string

const (
	// OutcomeAllowed is a confirmed pass.
	OutcomeAllowed OutcomeKind = "allowed"
	// OutcomeDenied is a confirmed deny; Reason explains why.
	OutcomeDenied OutcomeKind = "denied"
	// OutcomeUnknown means the gate could not determine an answer (API or
	// payload failure). The pipeline resolves it via the gate's FailurePolicy.
	OutcomeUnknown OutcomeKind = "unknown"
)

// FailurePolicy states how an Unknown outcome resolves.
type FailurePolicy string

const (
	FailOpen   FailurePolicy = "fail-open"
	FailClosed FailurePolicy = "fail-closed"
)

// Outcome is one gate's decision plus audit detail.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
	Err    error

	// Permission is recorded by the authorization gate when access was granted
	// by repository permission.
	Permission string
	// MatchedLabels records which configured labels were present, for audit.
	MatchedLabels []string
}

func Allow() Outcome {
	return Outcome{Kind: OutcomeAllowed}
}

func Deny(format string, args ...any) Outcome {
	return Outcome{Kind: OutcomeDenied, Reason: fmt.Sprintf(format, args...)}
}

func Unknown(err error) Outcome {
	return Outcome{Kind: OutcomeUnknown, Err: err}
}

// Resolve collapses the outcome to allow/deny under the given policy.
func (o Outcome) Resolve(policy FailurePolicy) bool {
	switch o.Kind {
	case OutcomeAllowed:
		return true
	case OutcomeDenied:
		return false
	default:
		return policy == FailOpen
	}
}
