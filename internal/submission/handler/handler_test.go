package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"idintake/internal/audit"
	"idintake/internal/provider"
	"idintake/internal/submission"
	"idintake/internal/submission/handler/mocks"
	"idintake/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/submission-mocks.go -package=mocks Service
type SubmissionHandlerSuite struct {
	suite.Suite
}

func TestSubmissionHandlerSuite(t *testing.T) {
	suite.Run(t, new(SubmissionHandlerSuite))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(t *testing.T) (chi.Router, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)

	r := chi.NewRouter()
	New(mockService, discardLogger()).Register(r)
	return r, mockService
}

func post(t *testing.T, r http.Handler, body string) *httptest.ResponseRecorder {
	return testutil.DoRequest(r, testutil.NewRequestWithBody(t, http.MethodPost, "/api/submit-application", body))
}

func (s *SubmissionHandlerSuite) TestRelaysDecisionVerbatim() {
	router, mockService := newTestRouter(s.T())
	raw := json.RawMessage(`{"status_code":201,"summary":{"outcome":"Approved"},"application_token":"A-1"}`)
	mockService.EXPECT().Configured().Return(true)
	mockService.EXPECT().Submit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req submission.Request) (*submission.Decision, error) {
			s.Equal(audit.SourceAPI, req.Source)
			s.Nil(req.Schema)
			s.Equal([]string{"name_first", "zip"}, req.Record.Names())
			s.Equal("10001", req.Record.Get("zip"))
			return &submission.Decision{Raw: raw}, nil
		})

	rec := post(s.T(), router, `{"name_first":"Ada","zip":10001}`)

	testutil.AssertStatusOK(s.T(), rec)
	s.Equal(string(raw), rec.Body.String())
}

func (s *SubmissionHandlerSuite) TestMissingCredentialsSkipsBodyAndCall() {
	router, mockService := newTestRouter(s.T())
	mockService.EXPECT().Configured().Return(false)
	mockService.EXPECT().Submit(gomock.Any(), gomock.Any()).Times(0)

	rec := post(s.T(), router, `not even json`)

	testutil.AssertStatusAndError(s.T(), rec, http.StatusInternalServerError, "API credentials not configured")
}

func (s *SubmissionHandlerSuite) TestMalformedBody() {
	for name, body := range map[string]string{
		"not json": `{"name_first":`,
		"array":    `["Ada"]`,
		"empty":    ``,
	} {
		s.Run(name, func() {
			router, mockService := newTestRouter(s.T())
			mockService.EXPECT().Configured().Return(true)
			mockService.EXPECT().Submit(gomock.Any(), gomock.Any()).Times(0)

			rec := post(s.T(), router, body)

			testutil.AssertStatusAndError(s.T(), rec, http.StatusInternalServerError, "Failed to process application")
		})
	}
}

func (s *SubmissionHandlerSuite) TestFailureStatusMapping() {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"upstream 422 keeps status", &provider.Error{Category: provider.ErrorUpstream, Status: http.StatusUnprocessableEntity}, http.StatusUnprocessableEntity, "Failed to process application"},
		{"upstream 401 keeps status", &provider.Error{Category: provider.ErrorUpstream, Status: http.StatusUnauthorized}, http.StatusUnauthorized, "Failed to process application"},
		{"transport is 500", &provider.Error{Category: provider.ErrorTransport, Err: errors.New("timeout")}, http.StatusInternalServerError, "Failed to process application"},
		{"bad data is 500", &provider.Error{Category: provider.ErrorBadData}, http.StatusInternalServerError, "Failed to process application"},
		{"configuration", &provider.Error{Category: provider.ErrorConfiguration}, http.StatusInternalServerError, "API credentials not configured"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			router, mockService := newTestRouter(s.T())
			mockService.EXPECT().Configured().Return(true)
			mockService.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(nil, tt.err)

			rec := post(s.T(), router, `{"name_last":"Lovelace"}`)

			testutil.AssertStatusAndError(s.T(), rec, tt.wantStatus, tt.wantMsg)
		})
	}
}

func newEndToEndRouter(t *testing.T, upstreamURL string, creds provider.Credentials) chi.Router {
	t.Helper()
	client := provider.New(upstreamURL, creds, provider.WithLogger(discardLogger()))
	svc := submission.NewService(client, nil, discardLogger(), nil)
	r := chi.NewRouter()
	New(svc, discardLogger()).Register(r)
	return r
}

func TestSubmitEndToEnd(t *testing.T) {
	t.Run("missing secret makes no upstream call", func(t *testing.T) {
		var calls atomic.Int32
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		}))
		defer upstream.Close()

		r := newEndToEndRouter(t, upstream.URL, provider.Credentials{Token: "t"})
		rec := post(t, r, `{"name_first":"Ada"}`)

		testutil.AssertStatusAndError(t, rec, http.StatusInternalServerError, "API credentials not configured")
		assert.Zero(t, calls.Load())
	})

	t.Run("upstream 422 is returned as 422", func(t *testing.T) {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"error":"invalid ssn"}`))
		}))
		defer upstream.Close()

		r := newEndToEndRouter(t, upstream.URL, provider.Credentials{Token: "t", Secret: "s"})
		rec := post(t, r, `{"document_ssn":"12"}`)

		testutil.AssertStatusAndError(t, rec, http.StatusUnprocessableEntity, "Failed to process application")
	})

	t.Run("request values are forwarded as received", func(t *testing.T) {
		const body = `{"name_first":"Ada","zip":10001,"opt_in":true,"address":{"city":"NYC"},"note":null}`
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			assert.Equal(t, body, string(got))
			_, _ = w.Write([]byte(`{"summary":{"outcome":"Approved"},"application_token":"A-6"}`))
		}))
		defer upstream.Close()

		r := newEndToEndRouter(t, upstream.URL, provider.Credentials{Token: "t", Secret: "s"})
		rec := post(t, r, body)

		require.Equal(t, http.StatusOK, rec.Code)
	})

	for name, decision := range map[string]string{
		"reason objects": `{"summary":{"outcome":"Deny","outcome_reasons":[{"code":"R1","description":"Sandbox"}]},"application_token":"A-7"}`,
		"numeric token":  `{"summary":{"outcome":"Approved"},"application_token":12345}`,
		"array body":     `[{"summary":{"outcome":"Approved"}}]`,
	} {
		t.Run("relays decision with "+name, func(t *testing.T) {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(decision))
			}))
			defer upstream.Close()

			r := newEndToEndRouter(t, upstream.URL, provider.Credentials{Token: "t", Secret: "s"})
			rec := post(t, r, `{"name_first":"Ada"}`)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, decision, rec.Body.String())
		})
	}

	t.Run("success relays upstream body", func(t *testing.T) {
		const decision = `{"summary":{"outcome":"Manual Review","outcome_reasons":[]},"application_token":"A-5","evaluation_token":"E-5"}`
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			assert.Equal(t, `{"name_first":"Ada","name_last":"Lovelace"}`, string(body))
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(decision))
		}))
		defer upstream.Close()

		r := newEndToEndRouter(t, upstream.URL, provider.Credentials{Token: "t", Secret: "s"})
		rec := post(t, r, `{"name_first":"Ada","name_last":"Lovelace"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, decision, rec.Body.String())
	})
}
