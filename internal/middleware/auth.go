package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const identityContextKey contextKey = "hyprcat-identity"

// SessionVerifier is the subset of identity.Service auth middleware
// needs, kept as an interface so this package doesn't import identity
// directly (avoids an import cycle with internal/api's wiring).
type SessionVerifier interface {
	VerifySession(token string) (did string, err error)
	VerifyDIDAuth(did, signature, nonce string) (bool, error)
}

// Auth resolves the caller's identity in precedence
// order: Authorization: Bearer, then Authorization: DID-Auth, then the
// weakly-attributed X-Agent-DID header. When requireAuth is true and no
// identity resolves, the wrapped handler is never called.
func Auth(verifier SessionVerifier, requireAuth bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			did, authenticated := resolveIdentity(r, verifier)

			if requireAuth && !authenticated {
				WriteError(w, r, http.StatusUnauthorized, "unauthorized", "no valid credential presented", "/auth/challenge")
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey, did)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveIdentity(r *http.Request, verifier SessionVerifier) (did string, authenticated bool) {
	header := r.Header.Get("Authorization")

	if strings.HasPrefix(header, "Bearer ") {
		token := strings.TrimPrefix(header, "Bearer ")
		if d, err := verifier.VerifySession(token); err == nil {
			return d, true
		}
	}

	if strings.HasPrefix(header, "DID-Auth ") {
		params := parseDIDAuthParams(strings.TrimPrefix(header, "DID-Auth "))
		if ok, err := verifier.VerifyDIDAuth(params["did"], params["sig"], params["nonce"]); err == nil && ok {
			return params["did"], true
		}
	}

	if agentDID := r.Header.Get("X-Agent-DID"); agentDID != "" {
		return agentDID, false
	}

	return "", false
}

func parseDIDAuthParams(raw string) map[string]string {
	out := make(map[string]string)
	parts := strings.Split(raw, ";")
	if len(parts) > 0 {
		out["did"] = strings.TrimSpace(parts[0])
	}
	for _, p := range parts[1:] {
		kv := strings.SplitN(strings.TrimSpace(p), "=", 2)
		if len(kv) == 2 {
			out[kv[0]] = kv[1]
		}
	}
	return out
}

// IdentityFromContext returns the DID resolved by Auth for r's context,
// or "" if none resolved.
func IdentityFromContext(ctx context.Context) string {
	did, _ := ctx.Value(identityContextKey).(string)
	return did
}
