// Package logstore writes audit events to a structured logger. It is the
// default sink when no external store is configured.
package logstore

import (
	"context"
	"log/slog"

	"idintake/internal/audit"
)

type Store struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{logger: logger.With("component", "audit")}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	attrs := []slog.Attr{
		slog.String("event_id", event.ID),
		slog.String("action", string(event.Action)),
		slog.String("source", string(event.Source)),
		slog.Time("timestamp", event.Timestamp),
		slog.Int("field_count", event.FieldCount),
	}
	if event.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", event.RequestID))
	}
	if event.Device != "" {
		attrs = append(attrs, slog.String("device", event.Device))
	}
	switch event.Action {
	case audit.ActionApplicationDecided:
		attrs = append(attrs,
			slog.String("outcome", event.Outcome),
			slog.String("application_token", event.ApplicationToken),
			slog.String("evaluation_token", event.EvaluationToken),
		)
	case audit.ActionApplicationFailed:
		attrs = append(attrs,
			slog.String("error_category", event.ErrorCategory),
			slog.Int("upstream_status", event.UpstreamStatus),
		)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "audit event", attrs...)
	return nil
}
