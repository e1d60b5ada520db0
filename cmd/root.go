/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"ao3rss/archive"
	"ao3rss/config"
	"ao3rss/feeds"
	"ao3rss/pipeline"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "ao3rss",
		Usage: "RSS feeds for works on Archive of Our Own",
		Description: `Serves an RSS 2.0 feed for a single work on Archive of Our Own,
		with one item per chapter.

		Large works can take a long time to fetch. While the feed is being
		built the server streams XML comments so readers do not time out.

		Flags can generally be set via environment variables, e.g.:

		--config => AO3RSS_CONFIG=ao3rss.toml
		--listen => AO3RSS_LISTEN=127.0.0.1:3336
		`,
		Commands: []*cli.Command{
			serveCmd(),
			scrapeCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

// commonFlags are shared by every command that builds feeds
func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a TOML config file",
			EnvVars: []string{"AO3RSS_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (trace, debug, info, warn, error)",
			EnvVars: []string{"AO3RSS_LOG_LEVEL"},
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Usage:   "Timeout for fetching a work page",
			EnvVars: []string{"AO3RSS_TIMEOUT"},
		},
	}
}

// loadConfig reads the config file, if any, and applies flags on top of it
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := ctx.String("config"); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if ctx.IsSet("log-level") {
		cfg.Log.Level = ctx.String("log-level")
	}
	if ctx.IsSet("timeout") {
		cfg.Archive.Timeout = ctx.Duration("timeout")
	}
	if ctx.IsSet("listen") {
		cfg.Server.Listen = ctx.String("listen")
	}
	if ctx.IsSet("keepalive-interval") {
		cfg.Stream.KeepAliveInterval = ctx.Duration("keepalive-interval")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := setupLogging(cfg.Log); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(cfg config.LogConfig) error {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	log.SetLevel(level)

	if cfg.JSON {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}

func newPipeline(cfg *config.Config) *pipeline.Pipeline {
	fetcher := archive.NewFetcher(archive.Options{
		BaseURL:   cfg.Archive.BaseURL,
		Timeout:   cfg.Archive.Timeout,
		UserAgent: cfg.Archive.UserAgent,
	})
	assembler := feeds.NewAssembler(feeds.AssemblerConfig{
		BaseURL:   cfg.Archive.BaseURL,
		Generator: cfg.Feed.Generator,
		Sanitize:  cfg.Feed.Sanitize,
	})
	return pipeline.New(fetcher, assembler)
}
