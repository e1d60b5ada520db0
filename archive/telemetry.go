package archive

import (
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("ao3rss/archive")

var (
	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ao3rss_fetch_duration_seconds",
		Help:    "Duration of work page fetches from the archive",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms up to ~51s
	})

	fetchResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ao3rss_fetch_responses_total",
		Help: "Archive responses by status code, 0 for transport errors",
	}, []string{"status"})
)

func instrumentResty(client *resty.Client) {
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		ctx, _ := tracer.Start(req.Context(), req.Method)
		req.SetContext(ctx)
		return nil
	})
	client.OnAfterResponse(onAfterResponse)
	client.OnError(onError)
}

func onAfterResponse(_ *resty.Client, res *resty.Response) error {
	span := trace.SpanFromContext(res.Request.Context())
	defer span.End()

	span.SetName(fmt.Sprintf("http %s", res.Request.Method))
	span.SetAttributes(
		attribute.String("http.url", res.Request.URL),
		attribute.Int("http.status_code", res.StatusCode()),
		attribute.Int("http.response_size", len(res.Body())),
	)
	if !res.IsSuccess() {
		span.SetStatus(codes.Error, res.Status())
	}

	fetchDuration.Observe(res.Time().Seconds())
	fetchResponses.WithLabelValues(strconv.Itoa(res.StatusCode())).Inc()
	return nil
}

func onError(req *resty.Request, err error) {
	span := trace.SpanFromContext(req.Context())
	defer span.End()

	span.SetName(fmt.Sprintf("http %s", req.Method))
	span.SetAttributes(attribute.String("http.url", req.URL))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	fetchResponses.WithLabelValues("0").Inc()
}
