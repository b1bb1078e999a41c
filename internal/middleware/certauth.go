// Package middleware provides HTTP middlewares for authentication and logging.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/atinyakov/GophTodo/internal/certgen"
	"github.com/atinyakov/GophTodo/internal/models"
)

type ctxKey string

const identityKey ctxKey = "identity"

// RegisterPath is served without a client certificate so new callers can obtain one.
const RegisterPath = "/api/register"

// CertAuth enforces mutual TLS authentication.
//
// Every request except RegisterPath must carry a verified client
// certificate. The caller identity derived from that certificate is stored
// in the request context and used downstream as the todo owner.
func CertAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == RegisterPath {
			next.ServeHTTP(w, r)
			return
		}
		if r.TLS == nil || len(r.TLS.PeerCertificates) == 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":   "unauthorized",
				"message": "no client certificate provided",
			})
			return
		}
		id := certgen.IdentityFromCertificate(r.TLS.PeerCertificates[0])
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// GetIdentityFromContext returns the caller identity stored by CertAuth.
// ok is false when the request was not authenticated.
func GetIdentityFromContext(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey).(models.Identity)
	return id, ok
}
