package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"gearbook/internal/config"
	"gearbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		Enabled: true,
		Header:  "x-api-key",
		Keys: []config.APIKey{
			{Key: "student-key", SubjectID: "student-1", Role: "student", Name: "alice"},
			{Key: "staff-key", SubjectID: "staff-1", Role: "staff", Name: "lab desk"},
		},
	}
}

func echoIdentity(t *testing.T, captured *models.Identity) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		require.True(t, ok)
		*captured = id
		w.WriteHeader(http.StatusOK)
	})
}

func TestHTTPAuth(t *testing.T) {
	rl := config.RateLimitConfig{RPS: 100, Burst: 100}

	t.Run("ValidKey", func(t *testing.T) {
		var id models.Identity
		auth := NewHTTPAuth(testAuthConfig(), rl)
		handler := auth.Wrap(echoIdentity(t, &id))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/equipment", nil)
		req.Header.Set("x-api-key", "staff-key")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "staff-1", id.ID)
		assert.Equal(t, models.RoleStaff, id.Role)
	})

	t.Run("MissingKey", func(t *testing.T) {
		auth := NewHTTPAuth(testAuthConfig(), rl)
		handler := auth.Wrap(http.NotFoundHandler())

		req := httptest.NewRequest(http.MethodGet, "/api/v1/equipment", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("UnknownKey", func(t *testing.T) {
		auth := NewHTTPAuth(testAuthConfig(), rl)
		handler := auth.Wrap(http.NotFoundHandler())

		req := httptest.NewRequest(http.MethodGet, "/api/v1/equipment", nil)
		req.Header.Set("x-api-key", "wrong-key")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("HealthBypassesAuth", func(t *testing.T) {
		auth := NewHTTPAuth(testAuthConfig(), rl)
		var called bool
		handler := auth.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))

		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.True(t, called)
	})

	t.Run("DisabledAuthRunsAsAdmin", func(t *testing.T) {
		var id models.Identity
		auth := NewHTTPAuth(config.AuthConfig{Enabled: false}, rl)
		handler := auth.Wrap(echoIdentity(t, &id))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/equipment", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, models.RoleAdmin, id.Role)
	})

	t.Run("RateLimitPerKey", func(t *testing.T) {
		auth := NewHTTPAuth(testAuthConfig(), config.RateLimitConfig{RPS: 0, Burst: 2})
		handler := auth.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		send := func(key string) int {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/equipment", nil)
			req.Header.Set("x-api-key", key)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			return rec.Code
		}

		assert.Equal(t, http.StatusOK, send("student-key"))
		assert.Equal(t, http.StatusOK, send("student-key"))
		// Burst exhausted for this key.
		assert.Equal(t, http.StatusTooManyRequests, send("student-key"))
		// Other keys keep their own budget.
		assert.Equal(t, http.StatusOK, send("staff-key"))
	})
}
