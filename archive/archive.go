// Package archive fetches full-work pages from the Archive of Our Own
package archive

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

var workIDPattern = regexp.MustCompile(`^[1-9][0-9]{0,18}$`)

// ValidateWorkID reports whether id has the shape of an archive work id
func ValidateWorkID(id string) error {
	if !workIDPattern.MatchString(id) {
		return &InvalidIDError{ID: id}
	}
	return nil
}

// Options configures a Fetcher
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Fetcher retrieves the full-work view of a work. It makes exactly one
// request per call and never retries.
type Fetcher struct {
	baseURL string
	http    *resty.Client
}

func NewFetcher(opts Options) *Fetcher {
	baseURL := strings.TrimSuffix(opts.BaseURL, "/")

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(opts.Timeout)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))
	if opts.UserAgent != "" {
		client.SetHeader("user-agent", opts.UserAgent)
	}

	instrumentResty(client)

	return &Fetcher{
		baseURL: baseURL,
		http:    client,
	}
}

// WorkURL is the canonical link of a work, without any view parameters
func (f *Fetcher) WorkURL(workID string) string {
	return WorkURL(f.baseURL, workID)
}

// WorkURL builds the canonical link of a work on the archive at baseURL
func WorkURL(baseURL, workID string) string {
	return strings.TrimSuffix(baseURL, "/") + "/works/" + workID
}

// Fetch returns the raw HTML of the full-work view of workID
func (f *Fetcher) Fetch(ctx context.Context, workID string) ([]byte, error) {
	if err := ValidateWorkID(workID); err != nil {
		return nil, err
	}

	res, err := f.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"view_adult":     "true",
			"view_full_work": "true",
		}).
		Get("/works/" + workID)
	if err != nil {
		return nil, &FetchError{Kind: Unavailable, WorkID: workID, Err: err}
	}

	if redirectedToLogin(res) {
		return nil, &FetchError{
			Kind:       Forbidden,
			WorkID:     workID,
			StatusCode: res.StatusCode(),
			Err:        errors.New("work is restricted to logged in users"),
		}
	}

	if !res.IsSuccess() {
		return nil, &FetchError{
			Kind:       kindForStatus(res.StatusCode()),
			WorkID:     workID,
			StatusCode: res.StatusCode(),
		}
	}

	log.WithFields(log.Fields{
		"work":    workID,
		"bytes":   len(res.Body()),
		"latency": res.Time(),
	}).Debug("Fetched work page")

	return res.Body(), nil
}

// Restricted works redirect anonymous visitors to the login page
func redirectedToLogin(res *resty.Response) bool {
	if res.RawResponse == nil || res.RawResponse.Request == nil {
		return false
	}
	return strings.HasPrefix(res.RawResponse.Request.URL.Path, "/users/login")
}

func kindForStatus(status int) FetchErrorKind {
	switch status {
	case http.StatusNotFound, http.StatusGone:
		return NotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return Forbidden
	case http.StatusTooManyRequests, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return Unavailable
	default:
		return UnexpectedStatus
	}
}
