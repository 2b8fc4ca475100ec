package middleware

import (
	"context"
	"net/http"
	"net/mail"
	"strings"
)

const ownerKey contextKey = "owner_email"

// Owner resolves the acting account from the X-Owner-Email header and rejects
// requests that carry none. Identity verification happens upstream at the
// gateway; this service only scopes data access by the forwarded account.
func Owner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email := strings.TrimSpace(r.Header.Get("X-Owner-Email"))
		if email == "" {
			http.Error(w, "missing owner", http.StatusUnauthorized)
			return
		}
		if _, err := mail.ParseAddress(email); err != nil {
			http.Error(w, "invalid owner", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), ownerKey, strings.ToLower(email))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OwnerFromContext returns the acting account set by Owner, or "".
func OwnerFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ownerKey).(string); ok {
		return v
	}
	return ""
}
