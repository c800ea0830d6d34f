package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/teamvault/teamvault/internal/files"
)

type contextKey string

const (
	identityKey  contextKey = "identity"
	requestIDKey contextKey = "request_id"
)

// Trusted headers set by the auth collaborator in front of this service.
const (
	headerUserID = "X-Auth-User-Id"
	headerEmail  = "X-Auth-Email"
)

// ResolveIdentity picks up the caller identity resolved by the external auth
// collaborator. No identity means the caller is anonymous, not rejected.
func ResolveIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if rawID := r.Header.Get(headerUserID); rawID != "" {
			if userID, err := strconv.ParseInt(rawID, 10, 64); err == nil {
				ident := &files.Identity{UserID: userID, Email: r.Header.Get(headerEmail)}
				r = r.WithContext(context.WithValue(r.Context(), identityKey, ident))
			}
		}
		next.ServeHTTP(rw, r)
	})
}

// IdentityFrom returns the caller identity, or nil for anonymous callers.
func IdentityFrom(ctx context.Context) *files.Identity {
	ident, _ := ctx.Value(identityKey).(*files.Identity)
	return ident
}

// RequestID tags every request with an id for log correlation.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		rw.Header().Set("X-Request-Id", id)
		next.ServeHTTP(rw, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
