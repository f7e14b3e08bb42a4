package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	sessionDID string
	sessionErr error
	didAuthOK  bool
}

func (s stubVerifier) VerifySession(token string) (string, error) {
	return s.sessionDID, s.sessionErr
}

func (s stubVerifier) VerifyDIDAuth(did, signature, nonce string) (bool, error) {
	return s.didAuthOK, nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthBearerTokenResolvesIdentity(t *testing.T) {
	v := stubVerifier{sessionDID: "did:key:abc"}
	handler := Auth(v, true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "did:key:abc", IdentityFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/nodes/x", nil)
	req.Header.Set("Authorization", "Bearer faketoken")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRequiredRejectsMissingCredential(t *testing.T) {
	v := stubVerifier{sessionErr: errors.New("no session"), didAuthOK: false}
	handler := Auth(v, true)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/nodes/x", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthXAgentDIDIsWeaklyAttributed(t *testing.T) {
	v := stubVerifier{}
	handler := Auth(v, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "did:key:weak", IdentityFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/nodes/x", nil)
	req.Header.Set("X-Agent-DID", "did:key:weak")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestNegotiateRejectsUnacceptableMediaType(t *testing.T) {
	handler := Negotiate(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/catalog", nil)
	req.Header.Set("Accept", "text/plain")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotAcceptable, rec.Code)
}

func TestNegotiateSetsResponseHeaders(t *testing.T) {
	handler := Negotiate(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/catalog", nil)
	req.Header.Set("Accept", "application/ld+json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, "application/ld+json", rec.Header().Get("Content-Type"))
	require.NotEmpty(t, rec.Header().Get("X-HyprCAT-Version"))
}

func TestRateLimiterAllowsWithinWindowAndBlocksOverBurst(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxCallsPerMinute: 2, BurstSize: 2})

	ok1, _ := rl.Allow("did:key:x:1.2.3.4")
	ok2, _ := rl.Allow("did:key:x:1.2.3.4")
	ok3, _ := rl.Allow("did:key:x:1.2.3.4")

	require.True(t, ok1)
	require.True(t, ok2)
	require.False(t, ok3)
}

func TestRateLimiterMiddlewareReturns429WithRetryAfter(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxCallsPerMinute: 1, BurstSize: 1})
	handler := rl.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/catalog", nil)
	req.RemoteAddr = "5.5.5.5:1111"

	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, req)
	require.Equal(t, http.StatusOK, rec1.Code)

	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req)
	require.Equal(t, http.StatusTooManyRequests, rec2.Code)
	require.Equal(t, "60", rec2.Header().Get("Retry-After"))
}
