// Package submission forwards applicant records to the provider's evaluation
// endpoint and reports the decision.
package submission

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"idintake/internal/application"
	"idintake/internal/audit"
	"idintake/internal/decision"
	"idintake/internal/decision/metrics"
	"idintake/internal/provider"
	"idintake/internal/schema"
	"idintake/pkg/requestcontext"
)

// Evaluator is the provider capability this service needs.
type Evaluator interface {
	Configured() bool
	Evaluate(ctx context.Context, payload []byte) (json.RawMessage, error)
}

// Auditor receives one event per submission attempt.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Request is one submission. Schema is the active schema when the caller has
// one (the form); when nil the record is forwarded as received.
type Request struct {
	Record *application.Record
	Schema *schema.Map
	Source audit.Source
}

// Decision is the provider's answer. Raw is the response body, unmodified.
type Decision struct {
	Raw     json.RawMessage
	Result  decision.Result
	Outcome decision.Outcome
}

type Service struct {
	evaluator Evaluator
	auditor   Auditor
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewService wires a Service. auditor and m may be nil.
func NewService(evaluator Evaluator, auditor Auditor, logger *slog.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		evaluator: evaluator,
		auditor:   auditor,
		logger:    logger,
		metrics:   m,
	}
}

// Configured reports whether provider credentials are present.
func (s *Service) Configured() bool {
	return s.evaluator.Configured()
}

// Submit sends the record for evaluation. Errors are *provider.Error values,
// so callers can recover the category and upstream status.
func (s *Service) Submit(ctx context.Context, req Request) (*Decision, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveSubmitLatency(time.Since(start)) }()

	record := req.Record
	if record == nil {
		record = application.NewRecord()
	}
	requestID := requestcontext.RequestID(ctx)

	if req.Schema != nil {
		if unknown := record.Complete(req.Schema); len(unknown) > 0 {
			s.logger.WarnContext(ctx, "application has fields outside the active schema",
				"request_id", requestID,
				"fields", unknown,
			)
		}
	}
	s.logReceived(ctx, requestID, record)

	payload, err := json.Marshal(record)
	if err != nil {
		return nil, s.fail(ctx, req, record, &provider.Error{
			Category: provider.ErrorBadData, Op: "evaluations", Message: "encode application", Err: err,
		})
	}

	raw, err := s.evaluator.Evaluate(ctx, payload)
	if err != nil {
		return nil, s.fail(ctx, req, record, err)
	}

	// Any 2xx body is a decision. What cannot be read shows as unknown.
	var decodeProblem string
	result, err := decision.ParseResult(raw)
	if err != nil {
		decodeProblem = string(provider.ErrorBadData)
		s.logger.WarnContext(ctx, "decision response partially read",
			"request_id", requestID,
			"error", err,
		)
	}
	outcome := result.Outcome()

	s.logger.InfoContext(ctx, "application decided",
		"request_id", requestID,
		"outcome", outcome.Raw,
		"outcome_kind", outcome.Kind.String(),
		"outcome_reasons", result.Summary.OutcomeReasons,
		"application_token", result.ApplicationToken,
		"evaluation_token", result.EvaluationToken,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	s.metrics.IncrementOutcome(outcome.Kind.String(), string(req.Source))
	s.emit(ctx, audit.Event{
		Action:           audit.ActionApplicationDecided,
		Source:           req.Source,
		RequestID:        requestID,
		Device:           requestcontext.Device(ctx),
		Outcome:          outcome.Kind.String(),
		ApplicationToken: result.ApplicationToken,
		EvaluationToken:  result.EvaluationToken,
		ErrorCategory:    decodeProblem,
		FieldCount:       record.Len(),
	})

	return &Decision{Raw: raw, Result: result, Outcome: outcome}, nil
}

func (s *Service) fail(ctx context.Context, req Request, record *application.Record, err error) error {
	category := provider.Category(err)
	status := provider.StatusCode(err)
	requestID := requestcontext.RequestID(ctx)

	s.logger.ErrorContext(ctx, "application submission failed",
		"request_id", requestID,
		"category", category,
		"upstream_status", status,
		"error", err,
	)
	s.metrics.IncrementFailure(string(category))
	s.emit(ctx, audit.Event{
		Action:         audit.ActionApplicationFailed,
		Source:         req.Source,
		RequestID:      requestID,
		Device:         requestcontext.Device(ctx),
		ErrorCategory:  string(category),
		UpstreamStatus: status,
		FieldCount:     record.Len(),
	})
	return err
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit event not recorded",
			"action", event.Action,
			"error", err,
		)
	}
}

// logReceived logs field names and presence flags. Values are never logged.
func (s *Service) logReceived(ctx context.Context, requestID string, record *application.Record) {
	populated := 0
	ssnProvided := false
	for _, f := range record.Fields() {
		if f.Value == "" {
			continue
		}
		populated++
		if strings.Contains(f.Name, "ssn") {
			ssnProvided = true
		}
	}
	s.logger.InfoContext(ctx, "application received",
		"request_id", requestID,
		"fields", record.Names(),
		"populated", populated,
		"ssn_provided", ssnProvided,
		"credentials_configured", s.evaluator.Configured(),
	)
}
