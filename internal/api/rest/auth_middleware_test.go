package rest

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuth(t *testing.T) *AuthMiddleware {
	t.Helper()
	return NewAuthMiddleware(&AuthConfig{
		Secret:      []byte("test-signing-key"),
		Issuer:      "recomarket",
		TokenExpiry: time.Hour,
	})
}

func TestTokenRoundtrip(t *testing.T) {
	auth := newTestAuth(t)
	userID := uuid.New()

	token, err := auth.GenerateToken(userID, RoleWholesaler)
	require.NoError(t, err)

	claims, err := auth.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, RoleWholesaler, claims.Role)
	assert.Equal(t, "recomarket", claims.Issuer)
}

func TestParseTokenRejections(t *testing.T) {
	auth := newTestAuth(t)

	t.Run("garbage token", func(t *testing.T) {
		_, err := auth.ParseToken("not.a.token")
		assert.Error(t, err)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other := NewAuthMiddleware(&AuthConfig{
			Secret:      []byte("different-key"),
			Issuer:      "recomarket",
			TokenExpiry: time.Hour,
		})
		token, err := other.GenerateToken(uuid.New(), RoleSeller)
		require.NoError(t, err)

		_, err = auth.ParseToken(token)
		assert.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewAuthMiddleware(&AuthConfig{
			Secret:      []byte("test-signing-key"),
			Issuer:      "someone-else",
			TokenExpiry: time.Hour,
		})
		token, err := other.GenerateToken(uuid.New(), RoleSeller)
		require.NoError(t, err)

		_, err = auth.ParseToken(token)
		assert.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := NewAuthMiddleware(&AuthConfig{
			Secret:      []byte("test-signing-key"),
			Issuer:      "recomarket",
			TokenExpiry: -time.Minute,
		})
		token, err := expired.GenerateToken(uuid.New(), RoleSeller)
		require.NoError(t, err)

		_, err = auth.ParseToken(token)
		assert.Error(t, err)
	})

	t.Run("nil user id", func(t *testing.T) {
		token, err := auth.GenerateToken(uuid.Nil, RoleSeller)
		require.NoError(t, err)

		_, err = auth.ParseToken(token)
		assert.Error(t, err)
	})
}

func TestAuthMiddleware(t *testing.T) {
	auth := newTestAuth(t)
	userID := uuid.New()

	var gotUserID uuid.UUID
	var gotRole string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserIDFromContext(r.Context())
		gotRole = UserRoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := auth.Middleware()(next)

	t.Run("valid bearer token loads identity", func(t *testing.T) {
		token, err := auth.GenerateToken(userID, RoleSeller)
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/v1/sell-requests", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		handler.ServeHTTP(rec, r)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, userID, gotUserID)
		assert.Equal(t, RoleSeller, gotRole)
	})

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/v1/sell-requests", nil)
		handler.ServeHTTP(rec, r)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
	})

	t.Run("malformed header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/v1/sell-requests", nil)
		r.Header.Set("Authorization", "Token abc")
		handler.ServeHTTP(rec, r)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bad token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/v1/sell-requests", nil)
		r.Header.Set("Authorization", "Bearer nonsense")
		handler.ServeHTTP(rec, r)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("public endpoints skip auth", func(t *testing.T) {
		for _, path := range []string{"/health", "/healthz", "/metrics"} {
			rec := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, path, nil)
			handler.ServeHTTP(rec, r)
			assert.Equal(t, http.StatusOK, rec.Code, path)
		}
	})
}
