package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"idintake/internal/application"
	"idintake/internal/audit"
	"idintake/internal/provider"
	"idintake/internal/submission"
	"idintake/pkg/platform/httputil"
	"idintake/pkg/requestcontext"
)

const (
	msgCredentialsMissing = "API credentials not configured"
	msgProcessFailed      = "Failed to process application"

	maxBodyBytes = 1 << 20
)

// Service defines the interface for application submission.
type Service interface {
	Configured() bool
	Submit(ctx context.Context, req submission.Request) (*submission.Decision, error)
}

// Handler exposes application submission over HTTP.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a submission handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the submission endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/submit-application", h.HandleSubmitApplication)
}

// HandleSubmitApplication handles POST /api/submit-application. Credentials
// are checked before the body is read. A body that is not a JSON object is a
// local processing failure (500). A non-2xx upstream status is returned to
// the caller unchanged; any 2xx body is relayed verbatim.
func (h *Handler) HandleSubmitApplication(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if !h.service.Configured() {
		h.logger.ErrorContext(ctx, "provider credentials not configured",
			"request_id", requestID,
		)
		httputil.WriteMessage(w, http.StatusInternalServerError, msgCredentialsMissing)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.logger.WarnContext(ctx, "failed to read application body",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteMessage(w, http.StatusInternalServerError, msgProcessFailed)
		return
	}
	record := application.NewRecord()
	if err := record.UnmarshalJSON(body); err != nil {
		h.logger.WarnContext(ctx, "invalid application body",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteMessage(w, http.StatusInternalServerError, msgProcessFailed)
		return
	}

	dec, err := h.service.Submit(ctx, submission.Request{
		Record: record,
		Source: audit.SourceAPI,
	})
	if err != nil {
		switch {
		case provider.IsConfiguration(err):
			httputil.WriteMessage(w, http.StatusInternalServerError, msgCredentialsMissing)
		case provider.StatusCode(err) != 0:
			httputil.WriteMessage(w, provider.StatusCode(err), msgProcessFailed)
		default:
			httputil.WriteMessage(w, http.StatusInternalServerError, msgProcessFailed)
		}
		return
	}

	httputil.WriteRawJSON(w, http.StatusOK, dec.Raw)
}
