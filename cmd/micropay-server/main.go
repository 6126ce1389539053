// Command micropay-server runs the directory server: accounts, logins,
// online directory and settlement of reported transfers.
//
// Usage:
//
//	micropay-server [-config FILE] [-addr HOST:PORT]
//
// Settings come from the config file, then MICROPAY_* environment
// variables, then flags.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/yndnr/micropay-go/internal/core/service"
	"github.com/yndnr/micropay-go/internal/infra/buildinfo"
	"github.com/yndnr/micropay-go/internal/infra/confloader"
	"github.com/yndnr/micropay-go/internal/infra/shutdown"
	"github.com/yndnr/micropay-go/internal/server/config"
	"github.com/yndnr/micropay-go/internal/server/directoryserver"
	"github.com/yndnr/micropay-go/internal/storage"
	"github.com/yndnr/micropay-go/internal/telemetry/logger"
	"github.com/yndnr/micropay-go/internal/telemetry/metric"
)

const (
	shutdownTimeout        = 30 * time.Second
	journalMetricsInterval = 30 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "path to configuration file")
		addr        = flag.String("addr", "", "listen address, overrides server.addr")
		showVersion = flag.Bool("version", false, "show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(buildinfo.String("micropay-server"))
		return nil
	}

	overrides := map[string]any{}
	if *addr != "" {
		overrides["server.addr"] = *addr
	}
	cfg, err := loadConfig(*configFile, overrides)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	slog.SetDefault(log)

	info := buildinfo.Get()
	log.Info("starting micropay-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", *configFile)
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	shutdownHandler := shutdown.NewHandler(shutdownTimeout, log)
	metrics := metric.Global()

	journalCfg := storage.DefaultJournalConfig(cfg.Journal.Dir)
	journalCfg.InMemory = cfg.Journal.InMemory
	journal, err := storage.Open(journalCfg, log)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	if bj, ok := journal.(*storage.BadgerJournal); ok {
		bj.RegisterMetrics(metrics.Registerer(), journalMetricsInterval)
	}
	shutdownHandler.OnShutdown("journal", func(context.Context) error {
		return journal.Close()
	})

	registry := service.NewRegistry(service.RegistryConfig{
		PublicKey:      cfg.Server.PublicKey,
		InitialBalance: cfg.Server.InitialBalance,
	}, service.WithJournal(journal), service.WithLogger(log))
	if err := metrics.WatchAccounts(registry); err != nil {
		return fmt.Errorf("register account metrics: %w", err)
	}

	if cfg.Metrics.Addr != "" {
		metricsServer := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           metricsMux(metrics),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info("metrics listening", "addr", cfg.Metrics.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server error", "error", err)
			}
		}()
		shutdownHandler.OnShutdown("metrics", metricsServer.Shutdown)
	}

	server := directoryserver.New(&directoryserver.Config{
		Address:     cfg.Server.Addr,
		RateLimit:   cfg.Server.RateLimit,
		IdleTimeout: cfg.Server.IdleTimeout,
	}, registry, log, directoryserver.WithMetrics(metrics))

	ctx := context.Background()
	if err := server.Start(ctx); err != nil {
		_ = journal.Close()
		return fmt.Errorf("start directory server: %w", err)
	}
	shutdownHandler.OnShutdown("directory", server.Shutdown)

	if *configFile != "" {
		watcher, err := watchConfig(*configFile, overrides, log)
		if err != nil {
			log.Warn("config watch disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown("config watcher", func(context.Context) error {
				return watcher.Stop()
			})
		}
	}

	log.Info("server started, press Ctrl+C to stop", "addr", server.Addr().String())
	if err := shutdownHandler.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig loads defaults, file, environment and flag overrides, then
// validates the result.
func loadConfig(configFile string, overrides map[string]any) (*config.ServerConfig, error) {
	cfg := config.Default()

	loader := confloader.NewLoader(
		confloader.WithConfigFile(configFile),
		confloader.WithOverrides(overrides),
	)
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// watchConfig reloads the config file on change and applies the log
// level. Other settings need a restart.
func watchConfig(configFile string, overrides map[string]any, log *slog.Logger) (*confloader.Watcher, error) {
	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := watcher.Watch(configFile); err != nil {
		_ = watcher.Stop()
		return nil, err
	}

	watcher.OnChange(func(path string) {
		cfg, err := loadConfig(configFile, overrides)
		if err != nil {
			log.Warn("config reload rejected", "file", path, "error", err)
			return
		}
		if !strings.EqualFold(cfg.Log.Level, logger.GetLevel()) {
			logger.SetLevel(cfg.Log.Level)
			log.Info("log level changed", "level", cfg.Log.Level)
		}
	})
	watcher.StartAsync()
	return watcher, nil
}

func metricsMux(m *metric.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}
