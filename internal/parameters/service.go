// Package parameters proxies the provider's parameter schema.
package parameters

import (
	"context"
	"encoding/json"
	"log/slog"

	"idintake/pkg/platform/orderedjson"
)

// Fetcher is the provider capability this service needs.
type Fetcher interface {
	Configured() bool
	Parameters(ctx context.Context) (json.RawMessage, error)
}

// Service fetches the parameter schema on behalf of the API and the form.
type Service struct {
	fetcher Fetcher
	logger  *slog.Logger
}

// NewService wires a Service to its provider.
func NewService(fetcher Fetcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{fetcher: fetcher, logger: logger}
}

// Configured reports whether provider credentials are present.
func (s *Service) Configured() bool {
	return s.fetcher.Configured()
}

// Fetch returns the provider schema document unmodified.
func (s *Service) Fetch(ctx context.Context) (json.RawMessage, error) {
	s.logger.DebugContext(ctx, "fetching provider parameters",
		"credentials_configured", s.fetcher.Configured(),
	)
	body, err := s.fetcher.Parameters(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "provider parameters fetched", "field_count", countMembers(body))
	return body, nil
}

// countMembers returns the number of top-level members, or -1 for a non-object.
func countMembers(body json.RawMessage) int {
	n := 0
	if err := orderedjson.EachMember(body, func(string, json.RawMessage) error {
		n++
		return nil
	}); err != nil {
		return -1
	}
	return n
}
