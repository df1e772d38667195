package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrUpstream      = errors.New("upstream failure")
	ErrProtocol      = errors.New("protocol error")
	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrTimeout       = errors.New("timed out")
	ErrUnauthorized  = errors.New("unauthorized")
)

// Validation codes double as i18n message keys.
const (
	CodeImageURLRequired     = "imageUrlRequired"
	CodeJobIDRequired        = "predictionIdRequired"
	CodeUnsupportedFormat    = "imageFormatNotSupported"
	CodeFileTooLarge         = "fileTooLarge"
	CodeFileEmpty            = "fileEmpty"
	CodeInvalidPayload       = "invalidPayload"
	CodeServiceNotConfigured = "aiServiceNotConfigured"
)

// ValidationError reports caller-supplied input that is structurally wrong.
type ValidationError struct {
	Code   string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return "validation: " + e.Code
	}
	return fmt.Sprintf("validation: %s: %s", e.Code, e.Detail)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError builds a ValidationError with an optional formatted detail.
func NewValidationError(code, format string, args ...any) error {
	detail := format
	if len(args) > 0 {
		detail = fmt.Sprintf(format, args...)
	}
	return &ValidationError{Code: code, Detail: detail}
}

// UpstreamError carries a non-success response from the inference or storage provider.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		return fmt.Sprintf("upstream status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, msg)
}

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// ValidationCode extracts the code of a wrapped ValidationError, if any.
func ValidationCode(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code
	}
	return ""
}
