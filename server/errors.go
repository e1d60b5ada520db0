package server

import (
	"context"
	"errors"

	"ao3rss/archive"
	"ao3rss/feeds"
	"ao3rss/scraper"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ao3rss_requests_total",
	Help: "Feed requests by outcome",
}, []string{"outcome"})

// classify maps a pipeline error to the HTTP status reported before any
// body byte is written, plus a short label used in logs and metrics.
func classify(err error) (int, string) {
	var invalidID *archive.InvalidIDError
	var fetchErr *archive.FetchError
	var parseErr *scraper.ParseError
	var renderErr *feeds.RenderError

	switch {
	case errors.As(err, &invalidID):
		return fiber.StatusBadRequest, "invalid_id"
	case errors.As(err, &fetchErr):
		switch fetchErr.Kind {
		case archive.NotFound:
			return fiber.StatusNotFound, "not_found"
		case archive.Forbidden:
			return fiber.StatusForbidden, "forbidden"
		case archive.Unavailable:
			return fiber.StatusServiceUnavailable, "unavailable"
		default:
			return fiber.StatusBadGateway, "upstream_status"
		}
	case errors.As(err, &parseErr):
		return fiber.StatusInternalServerError, "parse_error"
	case errors.As(err, &renderErr):
		return fiber.StatusInternalServerError, "render_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusServiceUnavailable, "cancelled"
	default:
		return fiber.StatusInternalServerError, "internal"
	}
}

func recordOutcome(err error) {
	if err == nil {
		requestsTotal.WithLabelValues("ok").Inc()
		return
	}
	_, kind := classify(err)
	requestsTotal.WithLabelValues(kind).Inc()
}
