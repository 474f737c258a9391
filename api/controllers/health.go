package controllers

import (
	"net/http"

	"github.com/billifyhq/billify-backend/api/responses"
	"github.com/billifyhq/billify-backend/pkg/config"
	pkgerrors "github.com/billifyhq/billify-backend/pkg/errors"
	"github.com/billifyhq/billify-backend/pkg/kv"
	"github.com/billifyhq/billify-backend/pkg/logger"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Billify-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the record store; the API cannot serve without it.
func HealthReady(cfg *config.Config, logg *logger.Logger, store *kv.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Billify-Env", cfg.App.Env)

		if store != nil {
			if err := store.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record store unavailable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
