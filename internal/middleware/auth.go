package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Decentr-net/sharehub/internal/api"
	"github.com/Decentr-net/sharehub/internal/service"
)

type identityKey struct{}

// AuthRequired rejects requests without valid bearer token and puts identity into context.
func AuthRequired(s service.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearer(r.Header.Get("Authorization"))
			if !ok {
				api.WriteError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			identity, err := s.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, service.ErrUnauthorized) {
					api.WriteError(w, http.StatusUnauthorized, "invalid token")
					return
				}
				api.WriteInternalErrorf(r.Context(), w, "failed to authenticate: %s", err.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// WithIdentity ...
func WithIdentity(ctx context.Context, i *service.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, i)
}

// GetIdentity returns identity put by AuthRequired.
func GetIdentity(ctx context.Context) (*service.Identity, bool) {
	i, ok := ctx.Value(identityKey{}).(*service.Identity)
	return i, ok && i != nil
}

func bearer(header string) (string, bool) {
	const prefix = "bearer "

	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}

	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
