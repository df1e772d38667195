package restore

import (
	"context"
	"errors"

	"colorold/internal/domain"
	"colorold/internal/i18n"
)

// message turns a typed error into the text shown to the user. fallback
// names the key used for upstream and protocol failures in the current phase.
func (o *Orchestrator) message(err error, fallback string) string {
	if fallback == "" {
		fallback = i18n.KeyProcessingFailed
	}
	var jobErr *JobError
	switch {
	case errors.Is(err, ErrBusy):
		return i18n.T(o.locale, i18n.KeyBusy)
	case errors.As(err, &jobErr):
		if jobErr.Status == domain.JobStatusCanceled {
			return i18n.T(o.locale, i18n.KeyProcessingCanceled)
		}
		return i18n.Failure(o.locale, jobErr.Reason)
	case errors.Is(err, domain.ErrQuotaExceeded):
		if o.monthlyQuota {
			return i18n.T(o.locale, i18n.KeyMonthlyLimitReached)
		}
		return i18n.T(o.locale, i18n.KeyDailyLimitReached)
	case errors.Is(err, domain.ErrUnauthorized):
		return i18n.T(o.locale, i18n.KeySignInRequired)
	case errors.Is(err, domain.ErrValidation):
		switch code := domain.ValidationCode(err); code {
		case domain.CodeFileTooLarge:
			return i18n.T(o.locale, i18n.KeyFileTooLarge, o.maxBytes>>20)
		case "":
			return i18n.T(o.locale, i18n.KeyInvalidPayload)
		default:
			return i18n.T(o.locale, code)
		}
	case errors.Is(err, domain.ErrTimeout):
		return i18n.T(o.locale, i18n.KeyTimeout)
	case errors.Is(err, domain.ErrNotFound):
		return i18n.T(o.locale, i18n.KeyTaskNotFound)
	case errors.Is(err, context.Canceled):
		return i18n.T(o.locale, i18n.KeyProcessingCanceled)
	case errors.Is(err, domain.ErrUpstream), errors.Is(err, domain.ErrProtocol):
		return i18n.T(o.locale, fallback)
	default:
		return i18n.T(o.locale, i18n.KeyNetworkError)
	}
}
