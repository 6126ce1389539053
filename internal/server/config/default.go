package config

import "github.com/yndnr/micropay-go/internal/core/domain"

// Default configuration values.
const (
	DefaultAddr      = "0.0.0.0:8888"
	DefaultPublicKey = "SERVER_PUBLIC_KEY_PLACEHOLDER"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Addr:           DefaultAddr,
			PublicKey:      DefaultPublicKey,
			InitialBalance: domain.DefaultInitialBalance,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
