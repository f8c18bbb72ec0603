package parameters

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	configured bool
	body       json.RawMessage
	err        error
	calls      int
}

func (f *stubFetcher) Configured() bool { return f.configured }

func (f *stubFetcher) Parameters(context.Context) (json.RawMessage, error) {
	f.calls++
	return f.body, f.err
}

func TestServiceFetch(t *testing.T) {
	t.Run("returns body unmodified", func(t *testing.T) {
		f := &stubFetcher{configured: true, body: json.RawMessage(`{"b":{},"a":{}}`)}
		body, err := NewService(f, nil).Fetch(context.Background())
		require.NoError(t, err)
		assert.Equal(t, `{"b":{},"a":{}}`, string(body))
	})

	t.Run("propagates fetch errors", func(t *testing.T) {
		f := &stubFetcher{configured: true, err: errors.New("boom")}
		_, err := NewService(f, nil).Fetch(context.Background())
		assert.EqualError(t, err, "boom")
	})

	t.Run("configured delegates to fetcher", func(t *testing.T) {
		assert.False(t, NewService(&stubFetcher{}, nil).Configured())
		assert.True(t, NewService(&stubFetcher{configured: true}, nil).Configured())
	})
}

func TestCountMembers(t *testing.T) {
	assert.Equal(t, 2, countMembers(json.RawMessage(`{"a":1,"b":{}}`)))
	assert.Equal(t, 0, countMembers(json.RawMessage(`{}`)))
	assert.Equal(t, -1, countMembers(json.RawMessage(`[1,2]`)))
}
