package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/billifyhq/billify-backend/api/responses"
	"github.com/billifyhq/billify-backend/pkg/config"
	pkgerrors "github.com/billifyhq/billify-backend/pkg/errors"
	"github.com/billifyhq/billify-backend/pkg/logger"
)

// Auth validates the static service bearer token on every request.
func Auth(cfg config.APIConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			if subtle.ConstantTimeCompare([]byte(token), []byte(cfg.Token)) != 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
