package main

import (
	"github.com/urfave/cli/v2"
)

// archiveFlags override the archive section of the configuration.
func archiveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "backend",
			Usage: "archive backend: none, memory, local, minio or s3",
		},
		&cli.StringFlag{
			Name:    "path",
			Aliases: []string{"p"},
			Usage:   "directory of the local archive backend",
		},
	}
}
