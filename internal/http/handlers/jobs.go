package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"colorold/internal/domain"
	"colorold/internal/i18n"
	"colorold/internal/middleware"
	"colorold/internal/providers/replicate"
	"colorold/internal/quota"
)

type submitRequest struct {
	ImageURL string `json:"imageUrl"`
}

type submitResponse struct {
	ID     string           `json:"id"`
	Status domain.JobStatus `json:"status"`
}

// SubmitJob handles POST /v1/{operation}. The caller's allowance is checked
// before the upstream call and consumed only after the provider accepted
// the job.
func (a *App) SubmitJob(operation string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		locale := middleware.LocaleFromContext(ctx)

		model, ok := a.Models[operation]
		if !ok || a.Predictor == nil || !a.Predictor.HasCredentials() {
			a.error(w, http.StatusInternalServerError, domain.CodeServiceNotConfigured, i18n.T(locale, i18n.KeyServiceNotConfigured))
			return
		}

		var req submitRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			a.error(w, http.StatusBadRequest, domain.CodeInvalidPayload, i18n.T(locale, i18n.KeyInvalidPayload))
			return
		}
		imageURL := strings.TrimSpace(req.ImageURL)
		if imageURL == "" {
			a.error(w, http.StatusBadRequest, domain.CodeImageURLRequired, i18n.T(locale, i18n.KeyImageURLRequired))
			return
		}
		if !fetchableURL(imageURL) {
			a.error(w, http.StatusBadRequest, i18n.KeyImageURLFormatError, i18n.T(locale, i18n.KeyImageURLFormatError))
			return
		}

		key, ok := a.admit(w, r)
		if !ok {
			return
		}

		job, err := a.Predictor.CreatePrediction(ctx, model, imageURL)
		if err != nil {
			a.Logger.Error().Err(err).Str("request_id", middleware.RequestIDFromContext(ctx)).Str("operation", operation).Msg("create prediction failed")
			a.upstreamError(w, r, err, i18n.KeyProcessingFailed)
			return
		}
		if err := a.Quota.RecordUse(ctx, key); err != nil {
			a.Logger.Error().Err(err).Str("identity", key).Msg("record usage failed")
		}
		a.Logger.Info().Str("job_id", job.ID).Str("operation", operation).Str("identity", key).Msg("job submitted")
		a.json(w, http.StatusCreated, submitResponse{ID: job.ID, Status: job.Status})
	}
}

// JobStatus handles GET /v1/{operation}/{id}.
func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	locale := middleware.LocaleFromContext(ctx)
	if a.Predictor == nil || !a.Predictor.HasCredentials() {
		a.error(w, http.StatusInternalServerError, domain.CodeServiceNotConfigured, i18n.T(locale, i18n.KeyServiceNotConfigured))
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		a.error(w, http.StatusBadRequest, domain.CodeJobIDRequired, i18n.T(locale, i18n.KeyJobIDRequired))
		return
	}
	job, err := a.Predictor.GetPrediction(ctx, id)
	if err != nil {
		a.Logger.Warn().Err(err).Str("job_id", id).Msg("get prediction failed")
		a.upstreamError(w, r, err, i18n.KeyGetStatusFailed)
		return
	}
	a.json(w, http.StatusOK, job)
}

// admit resolves the caller's quota key and rejects exhausted callers.
func (a *App) admit(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx := r.Context()
	locale := middleware.LocaleFromContext(ctx)
	key, err := a.Quota.Key(middleware.IdentityFromContext(ctx))
	if err != nil {
		a.error(w, http.StatusUnauthorized, "unauthorized", i18n.T(locale, i18n.KeySignInRequired))
		return "", false
	}
	ok, err := a.Quota.CanUse(ctx, key)
	if err != nil {
		a.Logger.Error().Err(err).Str("identity", key).Msg("quota check failed")
		a.error(w, http.StatusInternalServerError, "internal", i18n.T(locale, i18n.KeyInternalServerError))
		return "", false
	}
	if !ok {
		msgKey := i18n.KeyDailyLimitReached
		if a.Quota.Period() == quota.PeriodMonth {
			msgKey = i18n.KeyMonthlyLimitReached
		}
		a.error(w, http.StatusTooManyRequests, "quota_exceeded", i18n.T(locale, msgKey))
		return "", false
	}
	return key, true
}

// upstreamError renders a provider failure. fallback is the message key for
// failures without a more specific reading.
func (a *App) upstreamError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	locale := middleware.LocaleFromContext(r.Context())
	var ue *domain.UpstreamError
	switch {
	case errors.Is(err, replicate.ErrMissingAPIToken):
		a.error(w, http.StatusInternalServerError, domain.CodeServiceNotConfigured, i18n.T(locale, i18n.KeyServiceNotConfigured))
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", i18n.T(locale, i18n.KeyTaskNotFound))
	case errors.Is(err, domain.ErrValidation):
		code := domain.ValidationCode(err)
		a.error(w, http.StatusBadRequest, code, i18n.T(locale, code))
	case errors.As(err, &ue):
		key := i18n.FailureKey(ue.Message)
		if key == i18n.KeyProcessingFailed {
			key = fallback
		}
		a.error(w, http.StatusBadGateway, "upstream_error", i18n.T(locale, key))
	default:
		a.error(w, http.StatusBadGateway, "upstream_error", i18n.T(locale, fallback))
	}
}

// fetchableURL accepts http(s) URLs and inline data: URLs.
func fetchableURL(raw string) bool {
	if strings.HasPrefix(raw, "data:image/") {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
