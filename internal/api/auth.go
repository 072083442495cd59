package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"gearbook/internal/config"
	"gearbook/internal/models"
)

type identityKey struct{}

// IdentityFromContext returns the authenticated caller attached by HTTPAuth.
func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(models.Identity)
	return id, ok
}

// HTTPAuth resolves a static API key into the caller identity the core
// operates on, and rate-limits per key. Token issuance and verification
// live outside this service.
type HTTPAuth struct {
	cfg     config.AuthConfig
	clients map[string]config.APIKey
	limiter *rateLimiter
}

func NewHTTPAuth(cfg config.AuthConfig, rl config.RateLimitConfig) *HTTPAuth {
	m := make(map[string]config.APIKey, len(cfg.Keys))
	for _, k := range cfg.Keys {
		m[k.Key] = k
	}
	return &HTTPAuth{cfg: cfg, clients: m, limiter: newRateLimiter(rl)}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		if !a.cfg.Enabled {
			// Dev mode only: everything runs as an unrestricted admin.
			ctx := context.WithValue(r.Context(), identityKey{}, models.Identity{ID: "anonymous", Role: models.RoleAdmin})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		identity, key, err := a.authenticate(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		if !a.limiter.allow(key) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		ctx := context.WithValue(r.Context(), identityKey{}, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *HTTPAuth) authenticate(r *http.Request) (models.Identity, string, error) {
	header := strings.TrimSpace(strings.ToLower(a.cfg.Header))
	if header == "" {
		header = "x-api-key"
	}

	apiKey := strings.TrimSpace(r.Header.Get(header))
	if apiKey == "" {
		return models.Identity{}, "", errMissingAPIKey
	}

	client, ok := a.clients[apiKey]
	if !ok || subtle.ConstantTimeCompare([]byte(client.Key), []byte(apiKey)) != 1 {
		return models.Identity{}, "", errInvalidAPIKey
	}

	return models.Identity{ID: client.SubjectID, Role: models.Role(client.Role)}, apiKey, nil
}
