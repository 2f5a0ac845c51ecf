package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// CmdConfig prints the effective configuration.
var CmdConfig = &cli.Command{
	Name:   "config",
	Usage:  "Print the configuration after file and environment overrides",
	Action: runConfig,
	Flags:  archiveFlags(),
}

func runConfig(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	out := c.App.Writer
	_, _ = fmt.Fprintln(out, cfg)
	_, _ = fmt.Fprintf(out, "handle checks: %t\n", cfg.HandleChecks)
	if cfg.Archive.Backend != "" && cfg.Archive.Backend != "none" {
		_, _ = fmt.Fprintf(out, "archive: %s path=%q bucket=%q prefix=%q workers=%d\n",
			cfg.Archive.Backend, cfg.Archive.Path, cfg.Archive.Bucket, cfg.Archive.Prefix, cfg.Archive.Workers)
	}
	return nil
}
