package command

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/micropay-go/internal/cli/config"
	"github.com/yndnr/micropay-go/internal/cli/output"
	"github.com/yndnr/micropay-go/internal/infra/buildinfo"
	"github.com/yndnr/micropay-go/internal/telemetry/logger"
)

const envKey = "env"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:           "micropay-client",
		Usage:          "P2P micropayment wallet",
		Version:        buildinfo.Get().Version,
		Flags:          globalFlags(),
		DefaultCommand: "shell",
		Commands: []*cli.Command{
			ShellCommand(),
			RegisterCommand(),
			BalanceCommand(),
			TransferCommand(),
			PeersCommand(),
			ConfigCommand(),
		},
		Before: setup,
	}
}

// globalFlags returns the global CLI flags. Unset flags leave the config
// file and MICROPAY_CLIENT_* values alone.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "directory server address (host:port)",
		},
		&cli.StringFlag{
			Name:    "listen",
			Aliases: []string{"l"},
			Usage:   "peer listener address (host:port, port 0 picks one)",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "config file (default ~/.micropay/client.yaml)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "log debug output to stderr",
		},
	}
}

// Env is what every command needs, built once in Before.
type Env struct {
	ConfigPath string
	Config     *config.ClientConfig
	Logger     *slog.Logger
	Formatter  output.Formatter
}

func setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"), flagOverrides(c))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: c.App.ErrWriter,
	})
	if err != nil {
		return err
	}

	path := c.String("config")
	if path == "" {
		path = config.DefaultConfigPath()
	}
	c.App.Metadata[envKey] = &Env{
		ConfigPath: path,
		Config:     cfg,
		Logger:     log,
		Formatter:  output.NewFormatter(format),
	}
	return nil
}

// flagOverrides maps explicitly set global flags to config keys.
func flagOverrides(c *cli.Context) map[string]any {
	overrides := make(map[string]any)
	if c.IsSet("server") {
		overrides["server.addr"] = c.String("server")
	}
	if c.IsSet("listen") {
		overrides["listen.addr"] = c.String("listen")
	}
	if c.IsSet("output") {
		overrides["output.format"] = c.String("output")
	}
	if c.Bool("verbose") {
		overrides["log.level"] = "debug"
	}
	return overrides
}

// GetEnv returns the environment built by Before.
func GetEnv(c *cli.Context) *Env {
	if env, ok := c.App.Metadata[envKey].(*Env); ok {
		return env
	}
	return nil
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
