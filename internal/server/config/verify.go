package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
var validFormats = map[string]bool{"json": true, "text": true}

// Verify validates the configuration. It creates the journal directory
// when one is configured.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if cfg.Metrics.Addr != "" {
		if err := verifyAddr("metrics.addr", cfg.Metrics.Addr); err != nil {
			return err
		}
		if cfg.Metrics.Addr == cfg.Server.Addr {
			return errors.New("metrics.addr must differ from server.addr")
		}
	}
	if err := verifyJournal(&cfg.Journal); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyServer(cfg *ServerSection) error {
	if err := verifyAddr("server.addr", cfg.Addr); err != nil {
		return err
	}
	if cfg.PublicKey == "" {
		return errors.New("server.public_key is required")
	}
	if strings.ContainsAny(cfg.PublicKey, "\r\n") {
		return errors.New("server.public_key must be a single line")
	}
	if cfg.InitialBalance < 0 {
		return errors.New("server.initial_balance must not be negative")
	}
	if cfg.RateLimit < 0 {
		return errors.New("server.rate_limit must not be negative")
	}
	if cfg.IdleTimeout < 0 {
		return errors.New("server.idle_timeout must not be negative")
	}
	return nil
}

func verifyAddr(key, addr string) error {
	if addr == "" {
		return fmt.Errorf("%s is required", key)
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("%s: invalid port %q", key, port)
	}
	return nil
}

func verifyJournal(cfg *JournalSection) error {
	if cfg.InMemory || cfg.Dir == "" {
		return nil
	}
	if err := os.MkdirAll(cfg.Dir, 0750); err != nil {
		return errors.New("cannot create journal directory: " + err.Error())
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if !validLevels[strings.ToLower(cfg.Level)] {
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Level)
	}
	if !validFormats[strings.ToLower(cfg.Format)] {
		return fmt.Errorf("log.format %q is not json or text", cfg.Format)
	}
	return nil
}
