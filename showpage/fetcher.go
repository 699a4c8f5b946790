// Package showpage downloads the radio show's web page.
package showpage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/garry/showsync/logging"
	"github.com/garry/showsync/pause"
)

const (
	// DefaultTimeout bounds a single GET, retries included separately
	DefaultTimeout = 15 * time.Second

	// MaxAttempts is the total number of GETs made before giving up on a transient status
	MaxAttempts = 3

	// RetryBackoff is multiplied by the attempt number to get the pause before the next attempt
	RetryBackoff = 500 * time.Millisecond

	acceptLanguage = "en-US,en;q=0.9,de;q=0.8"
	maxErrorBody   = 512
)

// transientStatuses are retried; every other non-2xx status fails immediately
var transientStatuses = []int{
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// ErrFetch is matched by every *FetchError
var ErrFetch = errors.New("show page fetch failed")

// FetchError reports the last response seen when the page could not be fetched
type FetchError struct {
	URL        string
	StatusCode int
	Attempts   int
	Body       string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: status %d after %d attempt(s): %s", e.URL, e.StatusCode, e.Attempts, e.Body)
}

// Is lets errors.Is(err, ErrFetch) match
func (e *FetchError) Is(target error) bool {
	return target == ErrFetch
}

// sleep is replaced in tests
var sleep = pause.Sleep

// Fetcher retrieves the show page with an identifying user agent
type Fetcher struct {
	httpClient *http.Client
	url        string
	userAgent  string
	logger     *log.Logger
}

// NewFetcher creates a new Fetcher for url. A nil httpClient gets DefaultTimeout.
func NewFetcher(url, userAgent string, httpClient *http.Client, logger *log.Logger) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Fetcher{
		httpClient: httpClient,
		url:        url,
		userAgent:  userAgent,
		logger:     logging.OrDiscard(logger),
	}
}

// URL returns the page address
func (f *Fetcher) URL() string {
	return f.url
}

// Fetch GETs the page, retrying throttling and server errors with a linear backoff
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	if f.url == "" {
		return nil, fmt.Errorf("show URL cannot be empty")
	}

	var last *FetchError
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		body, status, err := f.get(ctx)
		if err != nil {
			return nil, err
		}

		if status >= 200 && status < 300 {
			f.logger.Debug("fetched show page", "url", f.url, "bytes", len(body), "attempt", attempt)
			return body, nil
		}

		last = &FetchError{
			URL:        f.url,
			StatusCode: status,
			Attempts:   attempt,
			Body:       truncate(string(body), maxErrorBody),
		}

		if !slices.Contains(transientStatuses, status) {
			return nil, last
		}

		if attempt < MaxAttempts {
			wait := RetryBackoff * time.Duration(attempt)
			f.logger.Warn("show page unavailable, retrying", "status", status, "attempt", attempt, "wait", wait)
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
		}
	}

	return nil, last
}

// get performs a single request and returns the body whatever the status
func (f *Fetcher) get(ctx context.Context) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept-Language", acceptLanguage)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, resp.StatusCode, nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}
