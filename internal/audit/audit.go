// Package audit records one event per application submission. Events carry
// outcome metadata only; applicant field values never enter the trail.
package audit

import (
	"context"
	"time"
)

// Action names what happened to a submission.
type Action string

const (
	ActionApplicationDecided Action = "application_decided"
	ActionApplicationFailed  Action = "application_failed"
)

// Source is the entry point that produced the submission.
type Source string

const (
	SourceAPI  Source = "api"
	SourceForm Source = "form"
)

// Event is emitted from the submission service. Keep it transport-agnostic so
// every sink can encode it the same way.
type Event struct {
	ID        string    `json:"id"`
	Action    Action    `json:"action"`
	Source    Source    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
	Device    string    `json:"device,omitempty"`

	// Decided submissions
	Outcome          string `json:"outcome,omitempty"`
	ApplicationToken string `json:"application_token,omitempty"`
	EvaluationToken  string `json:"evaluation_token,omitempty"`

	// Failed submissions
	ErrorCategory  string `json:"error_category,omitempty"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`

	FieldCount int `json:"field_count"`
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
