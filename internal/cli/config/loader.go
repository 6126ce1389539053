package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/yndnr/micropay-go/internal/infra/confloader"
)

// EnvPrefix is the environment variable prefix for client settings:
// MICROPAY_CLIENT_SERVER_ADDR -> server.addr.
const EnvPrefix = "MICROPAY_CLIENT_"

// DefaultConfigPath returns the default client config file path.
func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".micropay", "client.yaml")
	}
	return filepath.Join(homeDir, ".micropay", "client.yaml")
}

// Load builds the client configuration. An empty path reads the default
// file when it exists; an explicit path must exist. overrides use koanf
// dot keys and win over every other source.
func Load(path string, overrides map[string]any) (*ClientConfig, error) {
	if path == "" {
		if p := DefaultConfigPath(); fileExists(p) {
			path = p
		}
	}

	cfg := Default()
	loader := confloader.NewLoader(
		confloader.WithEnvPrefix(EnvPrefix),
		confloader.WithConfigFile(path),
		confloader.WithOverrides(overrides),
	)
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	if err := Verify(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML with owner-only permissions.
func Save(cfg *ClientConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
