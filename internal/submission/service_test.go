package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idintake/internal/application"
	"idintake/internal/audit"
	"idintake/internal/audit/store/memory"
	"idintake/internal/decision"
	"idintake/internal/decision/metrics"
	"idintake/internal/provider"
	"idintake/internal/schema"
	"idintake/pkg/requestcontext"
)

type stubEvaluator struct {
	configured bool
	response   json.RawMessage
	err        error
	payloads   []string
}

func (e *stubEvaluator) Configured() bool { return e.configured }

func (e *stubEvaluator) Evaluate(_ context.Context, payload []byte) (json.RawMessage, error) {
	e.payloads = append(e.payloads, string(payload))
	return e.response, e.err
}

type auditRecorder struct {
	store *memory.InMemoryStore
}

func (a auditRecorder) Emit(ctx context.Context, e audit.Event) error {
	return a.store.Append(ctx, e)
}

func record(pairs ...string) *application.Record {
	rec := application.NewRecord()
	for i := 0; i+1 < len(pairs); i += 2 {
		rec.Set(pairs[i], pairs[i+1])
	}
	return rec
}

func newService(ev Evaluator) (*Service, *memory.InMemoryStore, *metrics.Metrics, *bytes.Buffer) {
	store := memory.NewInMemoryStore()
	m := metrics.New(prometheus.NewRegistry())
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	return NewService(ev, auditRecorder{store}, logger, m), store, m, &logs
}

func TestSubmitDecided(t *testing.T) {
	ev := &stubEvaluator{
		configured: true,
		response:   json.RawMessage(`{"summary":{"outcome":"Deny","outcome_reasons":["Sandbox persona"]},"application_token":"A-1","evaluation_token":"E-1"}`),
	}
	svc, store, m, logs := newService(ev)
	ctx := requestcontext.WithRequestID(context.Background(), "req-1")
	ctx = requestcontext.WithDevice(ctx, "Chrome on macOS")

	dec, err := svc.Submit(ctx, Request{
		Record: record("name_first", "Ada", "name_last", "Deny", "document_ssn", "123456789"),
		Source: audit.SourceAPI,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"name_first":"Ada","name_last":"Deny","document_ssn":"123456789"}`, ev.payloads[0])
	assert.Equal(t, decision.KindDenied, dec.Outcome.Kind)
	assert.Equal(t, "A-1", dec.Result.ApplicationToken)
	assert.JSONEq(t, string(ev.response), string(dec.Raw))

	events, _ := store.ListAll(ctx)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionApplicationDecided, events[0].Action)
	assert.Equal(t, "denied", events[0].Outcome)
	assert.Equal(t, "A-1", events[0].ApplicationToken)
	assert.Equal(t, "E-1", events[0].EvaluationToken)
	assert.Equal(t, "req-1", events[0].RequestID)
	assert.Equal(t, "Chrome on macOS", events[0].Device)
	assert.Equal(t, 3, events[0].FieldCount)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.DecisionOutcome.WithLabelValues("denied", "api")))

	assert.NotContains(t, logs.String(), "123456789", "values must never be logged")
	assert.NotContains(t, logs.String(), "Ada")
	assert.Contains(t, logs.String(), `"ssn_provided":true`)
}

func TestSubmitCompletesAgainstActiveSchema(t *testing.T) {
	ev := &stubEvaluator{configured: true, response: json.RawMessage(`{"summary":{"outcome":"Approved"},"application_token":"A-2"}`)}
	svc, _, _, logs := newService(ev)

	active := schema.NewMap(
		schema.Field{Name: "name_first", Type: "string"},
		schema.Field{Name: "name_last", Type: "string"},
	)
	_, err := svc.Submit(context.Background(), Request{
		Record: record("name_first", "Ada", "promo", "X"),
		Schema: active,
		Source: audit.SourceForm,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"name_first":"Ada","promo":"X","name_last":""}`, ev.payloads[0])
	assert.Contains(t, logs.String(), "application has fields outside the active schema")
}

func TestSubmitFailures(t *testing.T) {
	tests := []struct {
		name         string
		evaluator    *stubEvaluator
		wantCategory provider.ErrorCategory
		wantStatus   int
	}{
		{
			name:         "upstream status",
			evaluator:    &stubEvaluator{configured: true, err: &provider.Error{Category: provider.ErrorUpstream, Op: "evaluations", Status: http.StatusUnprocessableEntity}},
			wantCategory: provider.ErrorUpstream,
			wantStatus:   http.StatusUnprocessableEntity,
		},
		{
			name:         "missing credentials",
			evaluator:    &stubEvaluator{err: &provider.Error{Category: provider.ErrorConfiguration, Op: "evaluations", Err: provider.ErrNotConfigured}},
			wantCategory: provider.ErrorConfiguration,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, m, _ := newService(tt.evaluator)

			dec, err := svc.Submit(context.Background(), Request{Record: record("name_last", "Lovelace"), Source: audit.SourceForm})
			require.Error(t, err)
			assert.Nil(t, dec)
			assert.Equal(t, tt.wantCategory, provider.Category(err))
			assert.Equal(t, tt.wantStatus, provider.StatusCode(err))

			events, _ := store.ListByAction(context.Background(), audit.ActionApplicationFailed)
			require.Len(t, events, 1)
			assert.Equal(t, string(tt.wantCategory), events[0].ErrorCategory)
			assert.Equal(t, tt.wantStatus, events[0].UpstreamStatus)
			assert.Equal(t, float64(1), testutil.ToFloat64(m.SubmissionFailures.WithLabelValues(string(tt.wantCategory))))
		})
	}
}

func TestSubmitAcceptsUnreadableDecisions(t *testing.T) {
	tests := []struct {
		name        string
		response    string
		wantKind    decision.Kind
		wantToken   string
		wantProblem string
	}{
		{"reason objects", `{"summary":{"outcome":"Deny","outcome_reasons":[{"code":"R1"}]},"application_token":"A-1"}`, decision.KindDenied, "A-1", "bad_data"},
		{"numeric token", `{"summary":{"outcome":"Approved"},"application_token":12345}`, decision.KindApproved, "12345", ""},
		{"array body", `["not","an","object"]`, decision.KindUnknown, "", "bad_data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := &stubEvaluator{configured: true, response: json.RawMessage(tt.response)}
			svc, store, m, logs := newService(ev)

			dec, err := svc.Submit(context.Background(), Request{Record: record("name_last", "Lovelace"), Source: audit.SourceAPI})
			require.NoError(t, err)
			assert.Equal(t, tt.response, string(dec.Raw))
			assert.Equal(t, tt.wantKind, dec.Outcome.Kind)
			assert.Equal(t, tt.wantToken, dec.Result.ApplicationToken)

			events, _ := store.ListByAction(context.Background(), audit.ActionApplicationDecided)
			require.Len(t, events, 1)
			assert.Equal(t, tt.wantProblem, events[0].ErrorCategory)
			assert.Zero(t, testutil.ToFloat64(m.SubmissionFailures.WithLabelValues(string(provider.ErrorBadData))))
			if tt.wantProblem != "" {
				assert.Contains(t, logs.String(), "decision response partially read")
			}
		})
	}
}

func TestSubmitWithoutAuditor(t *testing.T) {
	ev := &stubEvaluator{configured: true, response: json.RawMessage(`{"summary":{"outcome":"Approved"}}`)}
	svc := NewService(ev, nil, nil, nil)

	dec, err := svc.Submit(context.Background(), Request{Record: record("a", "b")})
	require.NoError(t, err)
	assert.Equal(t, decision.KindApproved, dec.Outcome.Kind)
}
