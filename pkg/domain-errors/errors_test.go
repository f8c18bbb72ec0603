package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeMatching(t *testing.T) {
	t.Run("wrapped errors keep their code", func(t *testing.T) {
		cause := errors.New("dial tcp: refused")
		err := fmt.Errorf("fetch: %w", Wrap(cause, CodeTransport, "provider unreachable"))

		assert.True(t, HasCode(err, CodeTransport))
		assert.Equal(t, CodeTransport, CodeOf(err))
		assert.ErrorIs(t, err, cause)
	})

	t.Run("errors.Is compares by code", func(t *testing.T) {
		err := New(CodeValidation, "DOB format must be YYYY-MM-DD")

		assert.ErrorIs(t, err, New(CodeValidation, ""))
		assert.NotErrorIs(t, err, New(CodeBadRequest, ""))
	})

	t.Run("plain errors default to internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
	})
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(CodeBadRequest))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(CodeValidation))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(CodeUpstream))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(CodeConfiguration))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(Code("unknown")))
}
