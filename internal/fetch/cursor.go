// Package fetch iterates chapter pages against a remote source. Pages are
// addressed by an incrementing index appended to a base URL; the end of the
// sequence is discovered by probing, never enumerated.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// ErrEndOfPages signals normal exhaustion of the page sequence. It is not a
// failure: the probe reported the next page absent, the probe itself could
// not be issued, or the configured page ceiling was reached.
var ErrEndOfPages = errors.New("end of pages")

// ErrPageSkipped signals that a single page could not be fetched. The cursor
// has already advanced; the caller should pull the next page.
var ErrPageSkipped = errors.New("page skipped")

// DefaultDelay is the minimum politeness interval between successive pages.
const DefaultDelay = 300 * time.Millisecond

// userAgent mimics a browser; some chapter hosts reject default Go clients.
const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

const maxBodyBytes = 8 << 20

// Page is one fetched chapter: its index and the raw markup payload.
type Page struct {
	Index int
	Body  string
}

// Options configures a Cursor.
type Options struct {
	// BaseURL is the chapter URL prefix; page i lives at "{BaseURL}_{i}.html".
	BaseURL string
	// StartPage is the first index to probe.
	StartPage int
	// MaxPages, when positive, bounds how many indices the cursor will probe.
	MaxPages int
	// Delay is the minimum interval between successive pages. Zero means
	// DefaultDelay; negative disables the wait.
	Delay time.Duration
	// Retries is the number of additional GET attempts after a transient
	// fetch failure before the page is skipped. Zero matches the upstream
	// skip-without-retry behavior.
	Retries int
	// Client overrides the HTTP client (tests).
	Client *http.Client
}

// Cursor walks page indices in order, yielding one page per call to Next.
// It is not safe for concurrent use; each run owns its own cursor.
type Cursor struct {
	opts    Options
	client  *http.Client
	limiter *rate.Limiter
	log     *slog.Logger

	next   int
	probed int
	done   bool
}

// NewCursor creates a cursor starting at opts.StartPage.
func NewCursor(opts Options, log *slog.Logger) *Cursor {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	delay := opts.Delay
	if delay == 0 {
		delay = DefaultDelay
	}
	var limiter *rate.Limiter
	if delay > 0 {
		limiter = rate.NewLimiter(rate.Every(delay), 1)
	}
	return &Cursor{
		opts:    opts,
		client:  client,
		limiter: limiter,
		log:     log,
		next:    opts.StartPage,
	}
}

// PageURL returns the URL for a page index.
func (c *Cursor) PageURL(index int) string {
	return fmt.Sprintf("%s_%d.html", c.opts.BaseURL, index)
}

// Next yields the next page in the sequence. It returns ErrEndOfPages when
// the sequence is exhausted (terminal: later calls keep returning it) and an
// error wrapping ErrPageSkipped when exactly this page failed and the caller
// should continue with the following index.
func (c *Cursor) Next(ctx context.Context) (Page, error) {
	if c.done {
		return Page{}, ErrEndOfPages
	}
	if c.opts.MaxPages > 0 && c.probed >= c.opts.MaxPages {
		c.done = true
		c.log.Info("page ceiling reached", "pages", c.probed)
		return Page{}, ErrEndOfPages
	}

	index := c.next
	c.next++
	c.probed++

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.done = true
			return Page{}, ErrEndOfPages
		}
	}

	url := c.PageURL(index)

	ok, err := c.probe(ctx, url)
	if err != nil {
		// The probe is the only end-of-sequence signal the source offers,
		// so a probe that cannot be answered is treated as exhaustion
		// rather than retried forever.
		c.done = true
		c.log.Info("probe failed, ending sequence", "page", index, "error", err)
		return Page{}, ErrEndOfPages
	}
	if !ok {
		c.done = true
		c.log.Info("page not found, ending sequence", "page", index)
		return Page{}, ErrEndOfPages
	}

	body, err := c.get(ctx, url)
	if err != nil {
		c.log.Warn("fetch failed, skipping page", "page", index, "error", err)
		return Page{}, fmt.Errorf("page %d: %w: %v", index, ErrPageSkipped, err)
	}

	return Page{Index: index, Body: body}, nil
}

// probe issues a lightweight existence check. It reports (false, nil) when
// the page is authoritatively absent and an error when the probe itself
// failed or returned an error status.
func (c *Cursor) probe(ctx context.Context, url string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false, fmt.Errorf("create probe request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("probe: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= 400:
		return false, fmt.Errorf("probe status %d", resp.StatusCode)
	}
	return true, nil
}

// get fetches the full page body, retrying transient failures up to the
// configured count.
func (c *Cursor) get(ctx context.Context, url string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.opts.Retries; attempt++ {
		if attempt > 0 {
			c.log.Warn("retrying fetch", "url", url, "attempt", attempt, "error", lastErr)
			select {
			case <-time.After(Backoff(attempt - 1)):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		body, err := c.getOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !isTransient(err) {
			break
		}
	}
	return "", lastErr
}

func (c *Cursor) getOnce(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &transientError{err: fmt.Errorf("get: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("get status %d", resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", &transientError{err: err}
		}
		return "", err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}
