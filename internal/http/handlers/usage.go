package handlers

import (
	"net/http"

	"colorold/internal/i18n"
	"colorold/internal/middleware"
)

// Usage handles GET /v1/usage and reports the caller's allowance for the
// current period.
func (a *App) Usage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	locale := middleware.LocaleFromContext(ctx)
	key, err := a.Quota.Key(middleware.IdentityFromContext(ctx))
	if err != nil {
		a.error(w, http.StatusUnauthorized, "unauthorized", i18n.T(locale, i18n.KeySignInRequired))
		return
	}
	usage, err := a.Quota.Remaining(ctx, key)
	if err != nil {
		a.Logger.Error().Err(err).Str("identity", key).Msg("usage lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", i18n.T(locale, i18n.KeyInternalServerError))
		return
	}
	a.json(w, http.StatusOK, usage)
}
