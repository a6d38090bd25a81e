package logger

import (
	"net/http"
	"net/url"
	"strings"
)

var sensitiveKeys = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"key",
	"sign",
	"hash",
	"mac",
	"authorization",
}

func isSensitive(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, s := range sensitiveKeys {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}

// cookie 整体隐藏，不保留后缀
var fullyMaskedHeaders = []string{
	"cookie",
	"set-cookie",
}

func isFullyMasked(header string) bool {
	for _, h := range fullyMaskedHeaders {
		if strings.EqualFold(header, h) {
			return true
		}
	}
	return false
}

func maskLast4(value string) string {
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}

// MaskHeaders returns a copy of headers with sensitive fields masked.
func MaskHeaders(headers http.Header) map[string]string {
	masked := make(map[string]string, len(headers))
	for key, values := range headers {
		joined := strings.Join(values, ",")
		if isFullyMasked(key) {
			masked[key] = "****"
			continue
		}
		if isSensitive(key) {
			masked[key] = maskLast4(joined)
			continue
		}
		masked[key] = joined
	}
	return masked
}

// MaskValues masks url form/query values.
func MaskValues(values url.Values) map[string]string {
	masked := make(map[string]string, len(values))
	for key, vals := range values {
		joined := strings.Join(vals, ",")
		if isSensitive(key) {
			masked[key] = maskLast4(joined)
			continue
		}
		masked[key] = joined
	}
	return masked
}

// MaskJSON masks sensitive keys recursively, including objects nested in arrays.
func MaskJSON(input map[string]any) map[string]any {
	if input == nil {
		return nil
	}
	out := make(map[string]any, len(input))
	for key, value := range input {
		if isSensitive(key) {
			out[key] = maskScalar(value)
			continue
		}
		out[key] = maskNested(value)
	}
	return out
}

func maskNested(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return MaskJSON(v)
	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = maskNested(item)
		}
		return items
	default:
		return v
	}
}

func maskScalar(value any) string {
	if s, ok := value.(string); ok {
		return maskLast4(s)
	}
	return "****"
}
