package form

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"idintake/internal/application"
	"idintake/internal/audit"
	"idintake/internal/form/metrics"
	"idintake/internal/submission"
	dErrors "idintake/pkg/domain-errors"
	"idintake/pkg/platform/httputil"
	"idintake/pkg/requestcontext"
)

// MsgSubmitFailed is shown when a submission produced no decision.
const MsgSubmitFailed = "Failed to submit application. Please try again."

// Reserved inputs carry page state. The leading underscore keeps them apart
// from schema field names.
const (
	inputAction = "_action"
	inputOrigin = "_origin"

	actionSubmit = "submit"
	actionReset  = "reset"

	maxFormBytes = 1 << 20
)

// Submitter sends an applicant record for evaluation.
type Submitter interface {
	Submit(ctx context.Context, req submission.Request) (*submission.Decision, error)
}

// Handler serves the intake form.
type Handler struct {
	resolver  *Resolver
	submitter Submitter
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// New constructs a form handler with its dependencies.
func New(resolver *Resolver, submitter Submitter, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		resolver:  resolver,
		submitter: submitter,
		logger:    logger,
		metrics:   m,
	}
}

// Register mounts the form and its assets on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.HandleForm)
	r.Post("/", h.HandleAction)
	r.Handle("/assets/*", AssetsHandler())
}

// HandleForm handles GET /: resolve the schema and render an empty form.
func (h *Handler) HandleForm(w http.ResponseWriter, r *http.Request) {
	res := h.resolver.Resolve(r.Context())
	h.renderForm(w, r, http.StatusOK, res, InitialRecord(res.Schema), "")
}

// HandleAction handles POST /. _action=submit validates and submits the
// posted record; _action=reset returns to the form with the carried record.
func (h *Handler) HandleAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid form body"))
		return
	}

	res := h.resolver.ForOrigin(ctx, Origin(r.PostForm.Get(inputOrigin)))
	rec := RecordFromForm(res.Schema, r.PostForm)

	switch action := r.PostForm.Get(inputAction); action {
	case actionReset:
		h.renderForm(w, r, http.StatusOK, res, rec, "")
	case actionSubmit, "":
		h.submit(w, r, res, rec)
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unknown form action"))
	}
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, res Resolution, rec *application.Record) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if err := Validate(res.Schema, rec); err != nil {
		h.metrics.IncValidationFailure()
		var de *dErrors.Error
		msg := err.Error()
		if errors.As(err, &de) {
			msg = de.Message
		}
		h.logger.InfoContext(ctx, "application blocked by validation",
			"request_id", requestID,
			"reason", msg,
		)
		h.renderForm(w, r, http.StatusUnprocessableEntity, res, rec, msg)
		return
	}

	dec, err := h.submitter.Submit(ctx, submission.Request{
		Record: rec,
		Schema: res.Schema,
		Source: audit.SourceForm,
	})
	if err != nil {
		h.renderForm(w, r, http.StatusBadGateway, res, rec, MsgSubmitFailed)
		return
	}

	view := NewOutcomeView(dec.Result)
	h.render(w, r, http.StatusOK, Page{
		Phase:   PhaseShowingOutcome,
		Origin:  res.Origin,
		Outcome: &view,
		Hidden:  rec.Fields(),
	})
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, res Resolution, rec *application.Record, errMsg string) {
	h.render(w, r, status, Page{
		Phase:  PhaseAwaitingSubmission,
		Origin: res.Origin,
		Groups: GroupControls(res.Schema, rec),
		Error:  errMsg,
	})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page Page) {
	buf, err := executePage(page)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render form",
			"request_id", requestcontext.RequestID(r.Context()),
			"phase", page.Phase,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "render failed"))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
