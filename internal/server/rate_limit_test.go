package server

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/picklepickle/picklepay/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLimiter struct {
	mock.Mock
}

func (m *mockLimiter) Allow(ctx context.Context, provider, clientIP string) (*ratelimit.Result, error) {
	args := m.Called(ctx, provider, clientIP)
	res, _ := args.Get(0).(*ratelimit.Result)
	return res, args.Error(1)
}

func TestWebhookRateLimitRejects(t *testing.T) {
	s := newTestServer(t)
	limiter := &mockLimiter{}
	limiter.On("Allow", mock.Anything, "momo", mock.AnythingOfType("string")).
		Return(&ratelimit.Result{Allowed: false, Limit: 5, RetryAfter: 1500 * time.Millisecond}, nil).Once()
	s.limiter = limiter

	rec := doJSON(t, s, http.MethodPost, "/webhooks/momo", []byte(`{}`))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limited", decodeError(t, rec).Type)
	limiter.AssertExpectations(t)
}

func TestWebhookRateLimitAdmits(t *testing.T) {
	s := newTestServer(t)
	limiter := &mockLimiter{}
	limiter.On("Allow", mock.Anything, "paypal", mock.AnythingOfType("string")).
		Return(&ratelimit.Result{Allowed: true, Limit: 5, Remaining: 4}, nil).Once()
	s.limiter = limiter

	rec := doJSON(t, s, http.MethodPost, "/webhooks/paypal", []byte(`{}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	limiter.AssertExpectations(t)
}

func TestWebhookRateLimitFailsOpen(t *testing.T) {
	s := newTestServer(t)
	limiter := &mockLimiter{}
	limiter.On("Allow", mock.Anything, "paypal", mock.AnythingOfType("string")).
		Return(nil, errors.New("redis down")).Once()
	s.limiter = limiter

	rec := doJSON(t, s, http.MethodPost, "/webhooks/paypal", []byte(`{}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimitedMapsTo429(t *testing.T) {
	status, payload := mapError(ErrRateLimited)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "rate_limited", payload.Type)
}
