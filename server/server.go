package server

import (
	"bufio"
	"context"
	"time"

	"ao3rss/archive"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

const rssContentType = "application/rss+xml; charset=utf-8"

// Runner builds the rendered feed for a work id
type Runner interface {
	Run(ctx context.Context, workID string) ([]byte, error)
}

type ServerConfig struct {

	// Builds feeds on request
	Runner Runner

	// How long to wait between keep-alive markers, and how long to hold
	// the response before committing to a streamed 200
	KeepAliveInterval time.Duration

	// When false every response waits for the finished feed
	KeepAlive bool
}

// Returns a fiber.App instance serving work feeds
func Server(config *ServerConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// Middleware to track the latency of each request. Streamed bodies are
	// written after the handler returns and are not included.
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"status":  c.Response().StatusCode(),
			"latency": time.Since(start),
		}).Info("Request")
		return err
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,HEAD",
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	handler := &workHandler{
		runner:    config.Runner,
		interval:  config.KeepAliveInterval,
		keepAlive: config.KeepAlive,
	}
	app.Get("/work/:id", handler.serve)

	return app
}

type workHandler struct {
	runner    Runner
	interval  time.Duration
	keepAlive bool
}

func (h *workHandler) serve(c *fiber.Ctx) error {
	// Params point into the request buffer, which fasthttp reuses
	workID := utils.CopyString(c.Params("id"))

	logger := log.WithFields(log.Fields{
		"work":      workID,
		"stream":    uuid.New().String(),
		"requestid": c.GetRespHeader(fiber.HeaderXRequestID),
	})

	if err := archive.ValidateWorkID(workID); err != nil {
		return respond(c, logger, result{err: err})
	}

	// The pipeline outlives this handler when streaming, so it cannot use
	// the fasthttp request context
	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan result, 1)

	go func() {
		payload, err := h.runner.Run(ctx, workID)
		results <- result{payload: payload, err: err}
	}()

	if !h.keepAlive {
		defer cancel()
		return respond(c, logger, <-results)
	}

	s := newStream(h.interval, logger)
	if res, ok := s.await(results); ok {
		cancel()
		return respond(c, logger, res)
	}

	logger.Info("Feed not ready, streaming keep-alives")

	c.Status(fiber.StatusOK)
	c.Set(fiber.HeaderContentType, rssContentType)
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		s.run(w, results)
	}))

	return nil
}

// respond sends a complete, unstreamed response
func respond(c *fiber.Ctx, logger *log.Entry, res result) error {
	recordOutcome(res.err)

	if res.err != nil {
		status, kind := classify(res.err)
		logger.WithFields(log.Fields{
			"status": status,
			"kind":   kind,
			"error":  res.err,
		}).Warn("Feed request failed")
		return c.Status(status).SendString(kind + ": " + res.err.Error())
	}

	c.Set(fiber.HeaderContentType, rssContentType)
	return c.Status(fiber.StatusOK).Send(res.payload)
}
