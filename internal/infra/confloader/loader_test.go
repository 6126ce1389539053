package confloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testConfig struct {
	Server struct {
		Addr           string        `koanf:"addr"`
		PublicKey      string        `koanf:"public_key"`
		InitialBalance int64         `koanf:"initial_balance"`
		IdleTimeout    time.Duration `koanf:"idle_timeout"`
	} `koanf:"server"`
	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoader_LoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: "127.0.0.1:9000"
  initial_balance: 500
  idle_timeout: "30s"
log:
  level: debug
`)

	var cfg testConfig
	if err := NewLoader(WithConfigFile(path)).Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Addr = %q, want 127.0.0.1:9000", cfg.Server.Addr)
	}
	if cfg.Server.InitialBalance != 500 {
		t.Errorf("InitialBalance = %d, want 500", cfg.Server.InitialBalance)
	}
	if cfg.Server.IdleTimeout != 30*time.Second {
		t.Errorf("IdleTimeout = %v, want 30s", cfg.Server.IdleTimeout)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoader_LoadFile_Missing(t *testing.T) {
	l := NewLoader(WithConfigFile(filepath.Join(t.TempDir(), "absent.yaml")))
	var cfg testConfig
	if err := l.Load(&cfg); err == nil {
		t.Error("Load() should fail for a missing file")
	}
}

func TestLoader_LoadEnv_KeyMapping(t *testing.T) {
	t.Setenv("MICROPAY_SERVER_PUBLIC_KEY", "pk-from-env")
	t.Setenv("MICROPAY_LOG_LEVEL", "warn")

	var cfg testConfig
	if err := NewLoader().Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.PublicKey != "pk-from-env" {
		t.Errorf("PublicKey = %q, want pk-from-env", cfg.Server.PublicKey)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Level = %q, want warn", cfg.Log.Level)
	}
}

func TestLoader_CustomPrefix(t *testing.T) {
	t.Setenv("MICROPAY_CLIENT_SERVER_ADDR", "10.0.0.1:8888")
	t.Setenv("MICROPAY_SERVER_ADDR", "ignored:1")

	l := NewLoader(WithEnvPrefix("MICROPAY_CLIENT_"))
	if err := l.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}

	if got := l.GetString("server.addr"); got != "10.0.0.1:8888" {
		t.Errorf("server.addr = %q, want 10.0.0.1:8888", got)
	}
}

func TestLoader_Priority(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: "from-file:1"
  public_key: "file-key"
  initial_balance: 100
`)
	t.Setenv("MICROPAY_SERVER_ADDR", "from-env:2")
	t.Setenv("MICROPAY_SERVER_PUBLIC_KEY", "env-key")

	l := NewLoader(
		WithConfigFile(path),
		WithOverrides(map[string]any{"server.addr": "from-flag:3"}),
	)

	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"override beats env", cfg.Server.Addr, "from-flag:3"},
		{"env beats file", cfg.Server.PublicKey, "env-key"},
		{"file only", cfg.Server.InitialBalance, int64(100)},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoader_PreservesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: "127.0.0.1:1234"
`)

	var cfg testConfig
	cfg.Server.InitialBalance = 10000
	cfg.Log.Level = "info"

	if err := NewLoader(WithConfigFile(path)).Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:1234" {
		t.Errorf("Addr = %q, want 127.0.0.1:1234", cfg.Server.Addr)
	}
	if cfg.Server.InitialBalance != 10000 {
		t.Errorf("InitialBalance = %d, want default 10000", cfg.Server.InitialBalance)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Level = %q, want default info", cfg.Log.Level)
	}
}

func TestLoader_LoadMap(t *testing.T) {
	l := NewLoader()
	if err := l.LoadMap(map[string]any{
		"server.addr":            "localhost:3000",
		"server.initial_balance": 42,
	}); err != nil {
		t.Fatalf("LoadMap() error = %v", err)
	}

	if got := l.GetString("server.addr"); got != "localhost:3000" {
		t.Errorf("server.addr = %q, want localhost:3000", got)
	}
	if got := l.GetInt("server.initial_balance"); got != 42 {
		t.Errorf("server.initial_balance = %d, want 42", got)
	}
}

func TestMapProvider_ReadBytes(t *testing.T) {
	if _, err := mapProvider(nil).ReadBytes(); err != ErrReadBytesNotSupported {
		t.Errorf("ReadBytes() error = %v, want ErrReadBytesNotSupported", err)
	}
}
