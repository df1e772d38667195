// Package i18n holds the user-facing message catalog. Components below the
// orchestrator and HTTP handlers never render text themselves; they return
// typed errors that are mapped to one of these keys.
package i18n

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

const (
	KeyDailyLimitReached    = "dailyLimitReached"
	KeyMonthlyLimitReached  = "monthlyLimitReached"
	KeySignInRequired       = "signInRequired"
	KeyImageURLRequired     = "imageUrlRequired"
	KeyServiceNotConfigured = "aiServiceNotConfigured"
	KeyProcessingFailed     = "processingFailed"
	KeyProcessingCanceled   = "processingCanceled"
	KeyContentRejected      = "contentRejected"
	KeyImageURLFormatError  = "imageUrlFormatError"
	KeyUnsupportedFormat    = "imageFormatNotSupported"
	KeyFileTooLarge         = "fileTooLarge"
	KeyFileEmpty            = "fileEmpty"
	KeyInvalidPayload       = "invalidPayload"
	KeyInternalServerError  = "internalServerError"
	KeyJobIDRequired        = "predictionIdRequired"
	KeyGetStatusFailed      = "getStatusFailed"
	KeyTaskNotFound         = "taskNotFound"
	KeyUploadFailed         = "uploadFailed"
	KeyNetworkError         = "networkError"
	KeyTimeout              = "timeout"
	KeyDownloadFailed       = "downloadFailed"
	KeyBusy                 = "busy"
	KeyTooManyRequests      = "tooManyRequests"
)

var supported = []language.Tag{language.English, language.Chinese}

var matcher = language.NewMatcher(supported)

var messages = map[string]map[string]string{
	"en": {
		KeyDailyLimitReached:    "Daily usage limit reached, please try again tomorrow",
		KeyMonthlyLimitReached:  "Monthly usage limit reached, please upgrade or wait until next month",
		KeySignInRequired:       "Please sign in to restore photos",
		KeyImageURLRequired:     "Image URL is required",
		KeyServiceNotConfigured: "AI service not configured, please check environment variables",
		KeyProcessingFailed:     "Processing failed, please check image format and try again",
		KeyProcessingCanceled:   "Processing was canceled, please try again",
		KeyContentRejected:      "The image was rejected by the content filter",
		KeyImageURLFormatError:  "Image URL format error, please re-upload the image",
		KeyUnsupportedFormat:    "Image format not supported, please use JPG or PNG format",
		KeyFileTooLarge:         "Image must be smaller than %d MB",
		KeyFileEmpty:            "The selected file is empty",
		KeyInvalidPayload:       "Invalid request payload",
		KeyInternalServerError:  "Internal server error, please try again later",
		KeyJobIDRequired:        "Prediction ID is required",
		KeyGetStatusFailed:      "Failed to get processing status, please try again",
		KeyTaskNotFound:         "Processing task not found or expired",
		KeyUploadFailed:         "Upload failed, please try again",
		KeyNetworkError:         "Network error, please try again",
		KeyTimeout:              "Processing took too long, try a smaller or simpler image",
		KeyDownloadFailed:       "Download failed, please try again",
		KeyBusy:                 "A photo is already being processed",
		KeyTooManyRequests:      "Too many requests, please slow down",
	},
	"zh": {
		KeyDailyLimitReached:    "每日使用次数已达上限，请明天再试",
		KeyMonthlyLimitReached:  "本月使用次数已达上限，请升级或下月再试",
		KeySignInRequired:       "请先登录后再修复照片",
		KeyImageURLRequired:     "图片URL是必需的",
		KeyServiceNotConfigured: "AI服务未配置，请检查环境变量",
		KeyProcessingFailed:     "处理失败，请检查图片格式后重试",
		KeyProcessingCanceled:   "处理已取消，请重试",
		KeyContentRejected:      "图片未通过内容审核",
		KeyImageURLFormatError:  "图片URL格式错误，请重新上传图片",
		KeyUnsupportedFormat:    "图片格式不支持，请使用 JPG 或 PNG 格式",
		KeyFileTooLarge:         "图片大小不能超过 %dMB",
		KeyFileEmpty:            "所选文件为空",
		KeyInvalidPayload:       "请求格式错误",
		KeyInternalServerError:  "服务器内部错误，请稍后重试",
		KeyJobIDRequired:        "预测ID是必需的",
		KeyGetStatusFailed:      "获取处理状态失败，请重试",
		KeyTaskNotFound:         "处理任务不存在或已过期",
		KeyUploadFailed:         "上传失败，请重试",
		KeyNetworkError:         "网络错误，请重试",
		KeyTimeout:              "处理超时，请尝试更小或更简单的图片",
		KeyDownloadFailed:       "下载失败，请重试",
		KeyBusy:                 "已有照片正在处理中",
		KeyTooManyRequests:      "请求过于频繁，请稍后再试",
	},
}

// T returns the message for key in locale, formatting args into it. Unknown
// locales fall back to English and unknown keys are returned verbatim.
func T(locale, key string, args ...any) string {
	table, ok := messages[Normalize(locale)]
	if !ok {
		table = messages["en"]
	}
	msg, ok := table[key]
	if !ok {
		msg, ok = messages["en"][key]
		if !ok {
			return key
		}
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}

// Normalize maps an arbitrary language tag onto a supported catalog locale.
func Normalize(locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return "en"
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return "en"
	}
	return base(tag)
}

// Match picks the best supported locale for an Accept-Language header value.
// The boolean is false when the header expressed no usable preference.
func Match(acceptLanguage string) (string, bool) {
	if strings.TrimSpace(acceptLanguage) == "" {
		return "", false
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return "", false
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return "", false
	}
	return base(supported[idx]), true
}

// ForCountry maps an ISO country code to a catalog locale.
func ForCountry(country string) string {
	switch strings.ToUpper(strings.TrimSpace(country)) {
	case "CN", "TW", "HK", "MO", "SG":
		return "zh"
	default:
		return "en"
	}
}

func base(tag language.Tag) string {
	b, _ := tag.Base()
	if b.String() == "zh" {
		return "zh"
	}
	return "en"
}
