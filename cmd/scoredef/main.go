// Command scoredef drives definition sessions outside of an instrumented
// program: it simulates multi-rank measurements, inspects archives and
// prints the effective configuration.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/hupe1980/scoredef"
	"github.com/hupe1980/scoredef/config"
)

var version = "dev"

func newApp() *cli.App {
	return &cli.App{
		Name:    "scoredef",
		Usage:   "Measurement definition interning and unification",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "ini file with the measurement configuration",
				EnvVars: []string{config.EnvPrefix + "CONFIG"},
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "log as JSON",
			},
		},
		Commands: []*cli.Command{
			CmdSimulate,
			CmdInspect,
			CmdConfig,
		},
	}
}

// loadConfig reads the config file named by --config, or the defaults, and
// applies the environment on top.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	if c.IsSet("backend") {
		cfg.Archive.Backend = c.String("backend")
	}
	if c.IsSet("path") {
		cfg.Archive.Path = c.String("path")
	}
	return cfg, cfg.Validate()
}

func newLogger(c *cli.Context, cfg config.Config) *scoredef.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	if c.Bool("json") {
		return scoredef.NewJSONLogger(level)
	}
	return scoredef.NewTextLogger(level)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "scoredef: %v\n", err)
		cancel()
		os.Exit(1) //nolint:gocritic // cancel ran above
	}
}
