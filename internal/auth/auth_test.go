package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func do(h http.Handler, method, token string) int {
	req := httptest.NewRequest(method, "/api/v1/queue", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestHashAndCheck(t *testing.T) {
	hash, err := HashKey("s3cret")
	require.NoError(t, err)
	assert.True(t, CheckKey("s3cret", hash))
	assert.False(t, CheckKey("nope", hash))
}

func TestGuard_Disabled(t *testing.T) {
	g, err := NewGuard("", nil)
	require.NoError(t, err)
	assert.False(t, g.Enabled())
	assert.Equal(t, http.StatusNoContent, do(g.RequireKey(okHandler()), http.MethodPost, ""))
}

func TestGuard_RequireKey(t *testing.T) {
	g, err := NewGuard("s3cret", nil)
	require.NoError(t, err)
	h := g.RequireKey(okHandler())

	assert.Equal(t, http.StatusNoContent, do(h, http.MethodGet, ""))
	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodPost, ""))
	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodDelete, "wrong"))
	assert.Equal(t, http.StatusNoContent, do(h, http.MethodPut, "s3cret"))
}

func TestGuard_Lockout(t *testing.T) {
	g, err := NewGuard("s3cret", NewLockout(2, time.Minute))
	require.NoError(t, err)
	h := g.RequireKey(okHandler())

	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodPost, "a"))
	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodPost, "b"))
	assert.Equal(t, http.StatusTooManyRequests, do(h, http.MethodPost, "s3cret"))
}

func TestLockout_Window(t *testing.T) {
	l := NewLockout(2, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Fail("ip")
	l.Fail("ip")
	assert.True(t, l.Blocked("ip"))

	now = now.Add(2 * time.Minute)
	assert.False(t, l.Blocked("ip"))

	l.Fail("ip")
	l.Reset("ip")
	assert.False(t, l.Blocked("ip"))

	l.Fail("other")
	now = now.Add(2 * time.Minute)
	l.CleanOld()
	assert.Empty(t, l.failures)

	var nilL *Lockout
	assert.False(t, nilL.Blocked("x"))
	nilL.Fail("x")
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, BearerToken(r))
	r.Header.Set("Authorization", "bearer  abc ")
	assert.Equal(t, "abc", BearerToken(r))
	r.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", ClientIP(r))
}
