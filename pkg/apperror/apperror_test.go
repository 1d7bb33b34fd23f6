package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", NewInvalidInput("bad", nil), http.StatusBadRequest},
		{"not found", NewNotFound("route", "/x"), http.StatusNotFound},
		{"configuration", NewConfiguration("missing key"), http.StatusInternalServerError},
		{"unauthorized", NewUnauthorized("nope"), http.StatusUnauthorized},
		{"rate limited", NewRateLimited("slow down"), http.StatusTooManyRequests},
		{"unavailable", NewUpstreamUnavailable("down", nil), http.StatusInternalServerError},
		{"upstream propagates status", NewUpstream(http.StatusTeapot, "short and stout"), http.StatusTeapot},
		{"wrapped app error", fmt.Errorf("ctx: %w", NewInvalidInput("bad", nil)), http.StatusBadRequest},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ToHTTPStatus(tc.err))
		})
	}
}

func TestToJSON(t *testing.T) {
	withDetails := NewUpstream(http.StatusBadGateway, "upstream body").ToJSON()
	assert.Equal(t, "Upstream request failed with status 502", withDetails["error"])
	assert.Equal(t, "upstream body", withDetails["details"])

	withoutDetails := NewInvalidInput("Query is required", nil).ToJSON()
	assert.Equal(t, "Query is required", withoutDetails["error"])
	assert.NotContains(t, withoutDetails, "details")
}

func TestErrorsIs(t *testing.T) {
	err := NewUpstream(http.StatusInternalServerError, "")
	assert.True(t, errors.Is(err, ErrUpstream))
	assert.False(t, errors.Is(err, ErrUpstreamUnavailable))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(err))
	assert.Equal(t, 0, StatusOf(errors.New("plain")))
}

func TestWithoutDetails(t *testing.T) {
	original := NewUpstream(http.StatusBadRequest, "upstream body")

	stripped := WithoutDetails(original)
	assert.True(t, errors.Is(stripped, ErrUpstream))
	assert.Equal(t, http.StatusBadRequest, ToHTTPStatus(stripped))

	var appErr *AppError
	assert.ErrorAs(t, stripped, &appErr)
	assert.NotContains(t, appErr.ToJSON(), "details")
	assert.Equal(t, "upstream body", original.Details)

	plain := errors.New("boom")
	assert.Equal(t, plain, WithoutDetails(plain))
}
