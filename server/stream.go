package server

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"ao3rss/feeds"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

// KeepAliveMarker is written while the feed is being built. It is an XML
// comment in the document prolog, so feed parsers never see it as content.
var KeepAliveMarker = []byte("<!-- keepalive -->\n")

var (
	keepAliveTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ao3rss_keepalive_ticks_total",
		Help: "Keep-alive markers written to streamed responses",
	})

	streamDisconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ao3rss_stream_disconnects_total",
		Help: "Streamed responses abandoned because the client went away",
	})
)

type streamState int

const (
	stateIdle streamState = iota
	stateStreaming
	stateSucceeded
	stateFailed
	stateClosed
)

func (s streamState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateStreaming:
		return "streaming"
	case stateSucceeded:
		return "succeeded"
	case stateFailed:
		return "failed"
	case stateClosed:
		return "closed"
	default:
		return fmt.Sprintf("streamState(%d)", int(s))
	}
}

// result is what the pipeline goroutine hands to the writer
type result struct {
	payload []byte
	err     error
}

type flushWriter interface {
	io.Writer
	Flush() error
}

// stream owns one response body. Once run starts it is the only writer:
// keep-alive ticks and the final result are both handled by its select
// loop, so a tick can never interleave with the payload.
type stream struct {
	interval time.Duration
	state    streamState
	ticks    int
	logger   *log.Entry
}

func newStream(interval time.Duration, logger *log.Entry) *stream {
	return &stream{
		interval: interval,
		state:    stateIdle,
		logger:   logger,
	}
}

// await waits up to one interval for the pipeline. When it reports false
// nothing has been written yet and the caller should commit to streaming.
func (s *stream) await(results <-chan result) (result, bool) {
	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	select {
	case res := <-results:
		return res, true
	case <-timer.C:
		return result{}, false
	}
}

// run writes the response body until the pipeline finishes or the client
// disconnects. It reports whether the full response was delivered.
func (s *stream) run(w flushWriter, results <-chan result) bool {
	s.transition(stateStreaming)
	defer s.transition(stateClosed)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if err := s.write(w, feeds.XMLDeclaration, []byte("\n"), KeepAliveMarker); err != nil {
		s.disconnected(err)
		return false
	}
	s.ticks++

	for {
		select {
		case <-ticker.C:
			if err := s.write(w, KeepAliveMarker); err != nil {
				s.disconnected(err)
				return false
			}
			s.ticks++
			keepAliveTicks.Inc()

		case res := <-results:
			ticker.Stop()

			if res.err != nil {
				s.transition(stateFailed)
				recordOutcome(res.err)
				if err := s.write(w, inBandError(res.err)); err != nil {
					s.disconnected(err)
					return false
				}
				return true
			}

			s.transition(stateSucceeded)
			recordOutcome(nil)
			if err := s.write(w, bytes.TrimPrefix(res.payload, feeds.XMLDeclaration)); err != nil {
				s.disconnected(err)
				return false
			}
			return true
		}
	}
}

func (s *stream) write(w flushWriter, chunks ...[]byte) error {
	for _, chunk := range chunks {
		if _, err := w.Write(chunk); err != nil {
			return err
		}
	}
	return w.Flush()
}

func (s *stream) disconnected(err error) {
	streamDisconnects.Inc()
	s.logger.WithFields(log.Fields{
		"state": s.state,
		"ticks": s.ticks,
		"error": err,
	}).Warn("Client went away, abandoning feed")
}

func (s *stream) transition(to streamState) {
	s.logger.WithFields(log.Fields{
		"from":  s.state,
		"to":    to,
		"ticks": s.ticks,
	}).Debug("Stream state change")
	s.state = to
}

// inBandError terminates a stream whose status line was already sent. No
// root element follows it, so readers reject the document instead of
// treating it as an empty feed.
func inBandError(err error) []byte {
	status, kind := classify(err)
	msg := err.Error()
	for strings.Contains(msg, "--") {
		msg = strings.ReplaceAll(msg, "--", "- -")
	}
	msg = strings.TrimSuffix(msg, "-")
	return []byte(fmt.Sprintf("<!-- ao3rss-error: %d %s: %s -->\n", status, kind, msg))
}
