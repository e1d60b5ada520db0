/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"ao3rss/server"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve work feeds over HTTP",
		Description: `Starts the HTTP server.

		GET /work/<id> returns the RSS feed for the work with that id.
		Prometheus metrics are served on /metrics.`,
		Flags: append(commonFlags(),
			&cli.StringFlag{
				Name:    "listen",
				Aliases: []string{"l"},
				Usage:   "Address to listen on",
				EnvVars: []string{"AO3RSS_LISTEN"},
			},
			&cli.DurationFlag{
				Name:    "keepalive-interval",
				Usage:   "Interval between keep-alive comments while a feed is built",
				EnvVars: []string{"AO3RSS_KEEPALIVE_INTERVAL"},
			},
		),
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			app := server.Server(&server.ServerConfig{
				Runner:            newPipeline(cfg),
				KeepAliveInterval: cfg.Stream.KeepAliveInterval,
				KeepAlive:         server.KeepAliveEnabled,
			})

			// Graceful shutdown
			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

			go func() {
				<-sigs
				log.Info("Gracefully shutting down...")
				if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
					log.WithFields(log.Fields{
						"error": err,
					}).Error("Server did not shut down cleanly")
				}
			}()

			log.WithFields(log.Fields{
				"listen":    cfg.Server.Listen,
				"keepalive": server.KeepAliveEnabled,
				"interval":  cfg.Stream.KeepAliveInterval,
			}).Info("Starting server")

			return app.Listen(cfg.Server.Listen)
		},
	}
}
