package externalapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"quote_backend/internal/shared/failure"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestTransportError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		reason failure.Reason
	}{
		{"deadline", fmt.Errorf("Get: %w", context.DeadlineExceeded), failure.ReasonTimeout},
		{"net timeout", timeoutErr{}, failure.ReasonTimeout},
		{"connection refused", errors.New("dial tcp: connection refused"), failure.ReasonNetwork},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := TransportError("twelvedata", tt.err)
			assert.ErrorIs(t, err, failure.ErrNetwork)
			assert.Equal(t, tt.reason, failure.ReasonOf(err))
		})
	}
}

func TestStatusError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		is     error
		reason failure.Reason
	}{
		{http.StatusTooManyRequests, failure.ErrUpstreamData, failure.ReasonRateLimited},
		{http.StatusNotFound, failure.ErrUpstreamData, failure.ReasonUnknownSymbol},
		{http.StatusGatewayTimeout, failure.ErrNetwork, failure.ReasonTimeout},
		{http.StatusInternalServerError, failure.ErrUpstreamData, failure.ReasonUpstreamStatus},
		{http.StatusUnauthorized, failure.ErrUpstreamData, failure.ReasonUpstreamStatus},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			t.Parallel()

			err := StatusError("coingecko", tt.status)
			assert.ErrorIs(t, err, tt.is)
			assert.Equal(t, tt.reason, failure.ReasonOf(err))
		})
	}

	assert.NoError(t, StatusError("coingecko", http.StatusOK))
}

func TestDecodeError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, failure.ReasonMalformed, failure.ReasonOf(DecodeError("x", errors.New("unexpected EOF"))))
	assert.Equal(t, failure.ReasonTimeout, failure.ReasonOf(DecodeError("x", context.DeadlineExceeded)))
}
