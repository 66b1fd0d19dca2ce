package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dom/vidshare-backend/internal/domain"
	"github.com/dom/vidshare-backend/internal/service"
	"github.com/dom/vidshare-backend/internal/token"
	"github.com/rs/zerolog/hlog"
)

type contextKey string

const identityKey contextKey = "identity"

type IdentityState int

const (
	// Anonymous requests carry no access token.
	Anonymous IdentityState = iota
	Authenticated
	// Invalid requests carry a token that is expired, forged or belongs to a
	// user that no longer exists.
	Invalid
)

type Identity struct {
	State IdentityState
	User  *domain.UserProjection
}

// UserResolver maps an access token to its user.
type UserResolver interface {
	ResolveUser(ctx context.Context, accessToken string) (*domain.UserProjection, error)
}

// Authenticate resolves the caller on every request and stores the Identity
// in the request context. The access token is read from cookieName, falling
// back to an Authorization bearer header.
func Authenticate(resolver UserResolver, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := Identity{State: Anonymous}

			if raw := accessToken(r, cookieName); raw != "" {
				user, err := resolver.ResolveUser(r.Context(), raw)
				switch {
				case err == nil:
					identity = Identity{State: Authenticated, User: user}
				case errors.Is(err, token.ErrInvalidToken), errors.Is(err, service.ErrUserNotFound):
					identity = Identity{State: Invalid}
				default:
					hlog.FromRequest(r).Error().Err(err).Msg("failed to resolve access token")
					writeMessage(w, http.StatusInternalServerError, "Internal server error")
					return
				}
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func accessToken(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// RequireAuth rejects every request that is not Authenticated.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFrom(r.Context()).State != Authenticated {
			writeMessage(w, http.StatusUnauthorized, "Unauthenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func IdentityFrom(ctx context.Context) Identity {
	identity, ok := ctx.Value(identityKey).(Identity)
	if !ok {
		return Identity{State: Anonymous}
	}
	return identity
}

// Viewer returns the caller on routes open to anonymous users. An Invalid
// identity is treated as anonymous there.
func Viewer(ctx context.Context) *domain.UserProjection {
	identity := IdentityFrom(ctx)
	if identity.State != Authenticated {
		return nil
	}
	return identity.User
}

// CurrentUser returns the caller on routes behind RequireAuth.
func CurrentUser(ctx context.Context) (*domain.UserProjection, bool) {
	user := Viewer(ctx)
	return user, user != nil
}
