package form

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"idintake/internal/form/metrics"
	"idintake/internal/form/mocks"
)

//go:generate mockgen -source=resolver.go -destination=mocks/resolver-mocks.go -package=mocks SchemaSource

const providerSchema = `{
	"name_first": {"type": "string", "required": true, "description": "First Name"},
	"address_country": {"type": "string", "required": false},
	"phone_number": {"type": "string", "required": false, "description": "Phone"}
}`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newResolver(t *testing.T) (*Resolver, *mocks.MockSchemaSource, *metrics.Metrics) {
	t.Helper()
	ctrl := gomock.NewController(t)
	source := mocks.NewMockSchemaSource(ctrl)
	m := metrics.New(prometheus.NewRegistry())
	return NewResolver(source, discardLogger(), m), source, m
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantOrigin Origin
		wantReason string
	}{
		{"usable provider schema", providerSchema, nil, OriginProvider, reasonNone},
		{"fetch failure", "", errors.New("upstream 503"), OriginFallback, reasonFetchFailed},
		{"empty schema", `{}`, nil, OriginFallback, reasonDegraded},
		{"no descriptions", `{"name_first":{"type":"string"},"name_last":{"type":"string"}}`, nil, OriginFallback, reasonDegraded},
		{"not an object", `["name_first"]`, nil, OriginFallback, reasonInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, source, m := newResolver(t)
			source.EXPECT().Fetch(gomock.Any()).Return(json.RawMessage(tt.body), tt.err)

			res := r.Resolve(context.Background())

			assert.Equal(t, tt.wantOrigin, res.Origin)
			assert.Equal(t, float64(1), testutil.ToFloat64(m.SchemaResolutions.WithLabelValues(string(tt.wantOrigin), tt.wantReason)))
			if tt.wantOrigin == OriginFallback {
				assert.True(t, res.Schema.Has("address_country_code"))
				assert.Equal(t, 11, res.Schema.Len())
			} else {
				assert.Equal(t, []string{"name_first", "address_country", "phone_number"}, res.Schema.Names())
			}
		})
	}
}

func TestResolveCollapsesConcurrentCalls(t *testing.T) {
	r, source, _ := newResolver(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	source.EXPECT().Fetch(gomock.Any()).Times(1).DoAndReturn(func(context.Context) (json.RawMessage, error) {
		close(entered)
		<-release
		return json.RawMessage(providerSchema), nil
	})

	const callers = 8
	results := make([]Resolution, callers)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = r.Resolve(context.Background())
	}()
	<-entered
	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Resolve(context.Background())
		}(i)
	}
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, res := range results {
		require.NotNil(t, res.Schema)
		assert.Equal(t, OriginProvider, res.Origin)
	}
}

func TestResolveSurvivesCallerCancellation(t *testing.T) {
	r, source, _ := newResolver(t)
	source.EXPECT().Fetch(gomock.Any()).DoAndReturn(func(ctx context.Context) (json.RawMessage, error) {
		assert.NoError(t, ctx.Err())
		return json.RawMessage(providerSchema), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, OriginProvider, r.Resolve(ctx).Origin)
}

func TestForOriginFallbackSkipsFetch(t *testing.T) {
	r, source, _ := newResolver(t)
	source.EXPECT().Fetch(gomock.Any()).Times(0)

	res := r.ForOrigin(context.Background(), OriginFallback)

	assert.Equal(t, OriginFallback, res.Origin)
	assert.Equal(t, 11, res.Schema.Len())
}
