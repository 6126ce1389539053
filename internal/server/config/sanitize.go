package config

import "strings"

// Sanitize returns a copy of the config with sensitive fields masked
// for logging.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg

	if sanitized.Server.PublicKey != "" {
		sanitized.Server.PublicKey = maskSecret(sanitized.Server.PublicKey)
	}

	return &sanitized
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
