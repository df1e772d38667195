package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"colorold/internal/domain"
	"colorold/internal/i18n"
)

// Identity attaches the caller's identity to the request. A valid HS256
// bearer token makes the caller authenticated under its subject; without a
// token the caller is a guest keyed by client IP. An invalid token is
// rejected so a stale session is not silently downgraded to guest.
func Identity(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := domain.Identity{Key: ClientIP(r)}
			if token := bearerToken(r); token != "" && len(secret) > 0 {
				subject, err := verifyToken(token, secret)
				if err != nil {
					writeError(w, http.StatusUnauthorized, "unauthorized", i18n.T(LocaleFromContext(r.Context()), i18n.KeySignInRequired))
					return
				}
				id = domain.Identity{Key: subject, Authenticated: true}
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the caller identity, or a guest in the
// unknown bucket when none was attached.
func IdentityFromContext(ctx context.Context) domain.Identity {
	if v, ok := ctx.Value(identityKey).(domain.Identity); ok {
		return v
	}
	return domain.Identity{Key: UnknownIP}
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func verifyToken(token string, secret []byte) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}
