package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	token, userID, err := svc.Issue()
	require.NoError(t, err)
	assert.Contains(t, userID, "anon-")

	subject, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, userID, subject)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, _, err := NewService("secret-a", time.Hour).Issue()
	require.NoError(t, err)

	_, err = NewService("secret-b", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := NewService("test-secret", time.Minute)
	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, _, err := svc.Issue()
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssueWithoutSecret(t *testing.T) {
	_, _, err := NewService("", time.Hour).Issue()
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestMiddlewareResolvesBearerToken(t *testing.T) {
	svc := NewService("test-secret", time.Hour)
	token, userID, err := svc.Issue()
	require.NoError(t, err)

	var got string
	handler := svc.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, userID, got)
}

func TestMiddlewareAcceptsQueryToken(t *testing.T) {
	svc := NewService("test-secret", time.Hour)
	token, userID, err := svc.Issue()
	require.NoError(t, err)

	var got string
	handler := svc.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/stream?token="+token, nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, userID, got)
}

func TestMiddlewarePassesThroughUnauthenticated(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	var ok bool
	handler := svc.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok = UserIDFromContext(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
}

func TestContextResolver(t *testing.T) {
	r := ContextResolver{}

	userID, err := r.Resolve(WithUserID(t.Context(), "user-1"))
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	userID, err = r.Resolve(t.Context())
	require.NoError(t, err)
	assert.Empty(t, userID)
}
