package config

import (
	"time"

	"github.com/yndnr/micropay-go/internal/client"
	"github.com/yndnr/micropay-go/internal/core/domain"
)

// ClientConfig is the configuration for micropay-client.
type ClientConfig struct {
	Server   ServerSection   `koanf:"server" json:"server" yaml:"server"`
	Listen   ListenSection   `koanf:"listen" json:"listen" yaml:"listen"`
	Transfer TransferSection `koanf:"transfer" json:"transfer" yaml:"transfer"`
	Output   OutputSection   `koanf:"output" json:"output" yaml:"output"`
	Log      LogSection      `koanf:"log" json:"log" yaml:"log"`
}

// ServerSection locates the directory server.
type ServerSection struct {
	Addr string `koanf:"addr" json:"addr" yaml:"addr"`
}

// ListenSection configures the peer listener.
type ListenSection struct {
	Addr string `koanf:"addr" json:"addr" yaml:"addr"`
	// AdvertisePort overrides the port sent at login, for clients behind
	// port forwarding. Zero advertises the bound port.
	AdvertisePort int `koanf:"advertise_port" json:"advertise_port" yaml:"advertise_port"`
}

// TransferSection tunes outgoing transfers.
type TransferSection struct {
	RefreshDelay time.Duration `koanf:"refresh_delay" json:"refresh_delay" yaml:"refresh_delay"`
	Timeout      time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout"`
}

// OutputSection selects the result format.
type OutputSection struct {
	Format string `koanf:"format" json:"format" yaml:"format"`
}

// LogSection configures client logging.
type LogSection struct {
	Level  string `koanf:"level" json:"level" yaml:"level"`
	Format string `koanf:"format" json:"format" yaml:"format"`
}

// Default returns the default client configuration.
func Default() *ClientConfig {
	return &ClientConfig{
		Server: ServerSection{Addr: "127.0.0.1:8888"},
		Listen: ListenSection{Addr: "0.0.0.0:0"},
		Transfer: TransferSection{
			RefreshDelay: 500 * time.Millisecond,
			Timeout:      10 * time.Second,
		},
		Output: OutputSection{Format: "table"},
		Log:    LogSection{Level: "warn", Format: "text"},
	}
}

// WalletConfig returns the wallet settings.
func (c *ClientConfig) WalletConfig() client.Config {
	return client.Config{
		ServerAddr:    c.Server.Addr,
		ListenAddr:    c.Listen.Addr,
		AdvertisePort: c.Listen.AdvertisePort,
		RefreshDelay:  c.Transfer.RefreshDelay,
	}
}

// Verify checks values that flags and env cannot be trusted to get right.
func Verify(cfg *ClientConfig) error {
	if cfg.Server.Addr == "" {
		return domain.ErrInvalidArgument.WithDetails("server.addr is required")
	}
	if cfg.Listen.Addr == "" {
		return domain.ErrInvalidArgument.WithDetails("listen.addr is required")
	}
	if cfg.Listen.AdvertisePort != 0 {
		if err := domain.ValidatePort(cfg.Listen.AdvertisePort); err != nil {
			return err
		}
	}
	if cfg.Transfer.RefreshDelay < 0 || cfg.Transfer.Timeout < 0 {
		return domain.ErrInvalidArgument.WithDetails("transfer durations must not be negative")
	}
	return nil
}
