package config

import "time"

// ServerConfig is the root configuration for micropay-server.
type ServerConfig struct {
	Server  ServerSection  `koanf:"server"`
	Metrics MetricsSection `koanf:"metrics"`
	Journal JournalSection `koanf:"journal"`
	Log     LogSection     `koanf:"log"`
}

// ServerSection configures the directory server.
type ServerSection struct {
	Addr           string `koanf:"addr"`
	PublicKey      string `koanf:"public_key"`
	InitialBalance int64  `koanf:"initial_balance"`

	// RateLimit is the number of request lines per second allowed per
	// client IP. Zero disables limiting.
	RateLimit int `koanf:"rate_limit"`

	// IdleTimeout closes connections that send nothing for this long.
	// Zero keeps them open indefinitely.
	IdleTimeout time.Duration `koanf:"idle_timeout"`
}

// MetricsSection configures the Prometheus endpoint.
type MetricsSection struct {
	// Addr is the listen address for /metrics. Empty disables it.
	Addr string `koanf:"addr"`
}

// JournalSection configures the transaction journal.
type JournalSection struct {
	// Dir is the badger directory. Empty (and InMemory false) disables
	// the journal.
	Dir      string `koanf:"dir"`
	InMemory bool   `koanf:"in_memory"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
