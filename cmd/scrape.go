/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func scrapeCmd() *cli.Command {
	return &cli.Command{
		Name:      "scrape",
		Usage:     "Print the feed for a work to stdout",
		ArgsUsage: "<work-id>",
		Flags:     commonFlags(),
		Description: `Builds the RSS feed for a single work and prints it to stdout.

Prints all log messages to stderr.`,
		Action: func(ctx *cli.Context) error {
			// Keep stdout for the feed itself
			log.SetOutput(os.Stderr)

			if ctx.NArg() != 1 {
				return cli.Exit("expected exactly one work id", 2)
			}

			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			payload, err := newPipeline(cfg).Run(ctx.Context, ctx.Args().First())
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(os.Stdout, string(payload))
			return err
		},
	}
}
