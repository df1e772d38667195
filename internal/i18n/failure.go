package i18n

import "strings"

// FailureKey classifies a free-text failure reported by the inference
// provider. The provider gives no structured reason, so this is the one
// place that inspects its wording.
func FailureKey(upstream string) string {
	text := strings.ToLower(upstream)
	switch {
	case strings.Contains(text, "nsfw"):
		return KeyContentRejected
	case strings.Contains(text, "url") && (strings.Contains(text, "invalid") || strings.Contains(text, "fetch") || strings.Contains(text, "download")):
		return KeyImageURLFormatError
	case strings.Contains(text, "format") || strings.Contains(text, "cannot identify image") || strings.Contains(text, "decode"):
		return KeyUnsupportedFormat
	default:
		return KeyProcessingFailed
	}
}

// Failure renders a localized failure message, keeping the provider's own
// text as detail.
func Failure(locale, upstream string) string {
	msg := T(locale, FailureKey(upstream))
	if detail := strings.TrimSpace(upstream); detail != "" {
		msg += ": " + detail
	}
	return msg
}
