package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"idintake/internal/provider"
	"idintake/pkg/platform/httputil"
	"idintake/pkg/requestcontext"
)

const (
	msgCredentialsMissing = "API credentials not configured"
	msgFetchFailed        = "Failed to fetch parameters"
)

// Service defines the interface for parameter schema operations.
type Service interface {
	Configured() bool
	Fetch(ctx context.Context) (json.RawMessage, error)
}

// Handler exposes the provider parameter schema over HTTP.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a parameters handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the parameters endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/parameters", h.HandleGetParameters)
}

// HandleGetParameters handles GET /api/parameters. The upstream body is
// relayed verbatim; every failure collapses into one 500 message.
func (h *Handler) HandleGetParameters(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if !h.service.Configured() {
		h.logger.ErrorContext(ctx, "provider credentials not configured",
			"request_id", requestID,
		)
		httputil.WriteMessage(w, http.StatusInternalServerError, msgCredentialsMissing)
		return
	}

	body, err := h.service.Fetch(ctx)
	if err != nil {
		if provider.IsConfiguration(err) {
			httputil.WriteMessage(w, http.StatusInternalServerError, msgCredentialsMissing)
			return
		}
		h.logger.ErrorContext(ctx, "failed to fetch parameters",
			"request_id", requestID,
			"category", provider.Category(err),
			"upstream_status", provider.StatusCode(err),
			"error", err,
		)
		httputil.WriteMessage(w, http.StatusInternalServerError, msgFetchFailed)
		return
	}

	httputil.WriteRawJSON(w, http.StatusOK, body)
}
