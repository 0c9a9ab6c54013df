package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// UserHeader selects the owner in single-user mode.
const UserHeader = "X-Rapport-User"

type ctxKey struct{}

// Identity is the resolved caller.
type Identity struct {
	OwnerID string
	Email   string
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IdentityFrom returns the identity stored by Middleware.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// OwnerFrom returns the owner id stored by Middleware, or "".
func OwnerFrom(ctx context.Context) string {
	id, _ := IdentityFrom(ctx)
	return id.OwnerID
}

// Middleware resolves the caller's identity. With a non-nil validator the
// Authorization bearer token is required. With a nil validator the request's
// X-Rapport-User header is used, falling back to devOwner.
func Middleware(v *Validator, devOwner string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id Identity
			if v == nil {
				id.OwnerID = strings.TrimSpace(r.Header.Get(UserHeader))
				if id.OwnerID == "" {
					id.OwnerID = devOwner
				}
			} else {
				claims, err := v.Validate(r.Header.Get("Authorization"))
				if err != nil {
					msg := "invalid token"
					switch {
					case errors.Is(err, ErrMissingToken):
						msg = "missing token"
					case errors.Is(err, ErrExpiredToken):
						msg = "token expired"
					}
					http.Error(w, `{"error":"`+msg+`"}`, http.StatusUnauthorized)
					return
				}
				id = Identity{OwnerID: claims.UserID, Email: claims.Email}
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
