package logger

import (
	"log/slog"
	"strings"
)

// Keys naming key material. Values are partially masked so operators can
// still tell two keys apart.
var maskedKeyPatterns = []string{
	"public_key",
	"publickey",
	"pubkey",
}

// Keys whose values are never logged.
var redactedKeyPatterns = []string{
	"password",
	"secret",
	"private_key",
	"credential",
}

const redactedValue = "***REDACTED***"

func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}

	if a.Value.Kind() != slog.KindString {
		return a
	}
	val := a.Value.String()
	if val == "" {
		return a
	}

	key := strings.ToLower(a.Key)
	if matchesAny(key, redactedKeyPatterns) {
		return slog.String(a.Key, redactedValue)
	}
	if matchesAny(key, maskedKeyPatterns) {
		return slog.String(a.Key, RedactString(val))
	}
	return a
}

func matchesAny(key string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(key, p) {
			return true
		}
	}
	return false
}

// RedactString masks a value, keeping the first and last three
// characters when it is long enough.
func RedactString(value string) string {
	if len(value) <= 8 {
		return "***"
	}
	return value[:3] + "..." + value[len(value)-3:]
}

// IsSensitiveKey reports whether an attribute key is masked or redacted.
func IsSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	return matchesAny(key, maskedKeyPatterns) || matchesAny(key, redactedKeyPatterns)
}
