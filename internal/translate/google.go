package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

// defaultEndpoint is the unauthenticated Google translation web endpoint.
const defaultEndpoint = "https://translate.googleapis.com/translate_a/single"

// GoogleClient translates text via the Google web endpoint.
type GoogleClient struct {
	endpoint   string
	httpClient *http.Client

	// Stats aggregates call latencies and outcomes; may be shared across runs.
	Stats *Stats
}

// NewGoogleClient creates a client against the public endpoint. A non-empty
// endpoint overrides it (tests).
func NewGoogleClient(endpoint string) *GoogleClient {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &GoogleClient{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		Stats: NewStats(time.Hour),
	}
}

// Translate submits one chunk for translation. sourceLang may be "auto".
func (c *GoogleClient) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	start := time.Now()
	out, err := c.translate(ctx, text, sourceLang, targetLang)
	c.Stats.Record(time.Since(start).Milliseconds(), utf8.RuneCountInString(text), err == nil)
	return out, err
}

func (c *GoogleClient) translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if sourceLang == "" {
		sourceLang = "auto"
	}

	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", sourceLang)
	q.Set("tl", targetLang)
	q.Set("dt", "t")

	// The text goes in the POST body; chunk-sized requests overflow a URL.
	form := url.Values{}
	form.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"?"+q.Encode(), strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	out, err := parseResponse(body)
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", fmt.Errorf("empty translation")
	}
	return out, nil
}

// parseResponse decodes the endpoint's nested-array payload:
// [[["translated","original",...],...],...]. The translation is the
// concatenation of the first element of each segment.
func parseResponse(body []byte) (string, error) {
	var outer []json.RawMessage
	if err := json.Unmarshal(body, &outer); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(outer) == 0 {
		return "", fmt.Errorf("empty response")
	}

	var segments []json.RawMessage
	if err := json.Unmarshal(outer[0], &segments); err != nil {
		return "", fmt.Errorf("decode segments: %w", err)
	}

	var sb strings.Builder
	for _, raw := range segments {
		var seg []json.RawMessage
		if err := json.Unmarshal(raw, &seg); err != nil || len(seg) == 0 {
			continue
		}
		var piece string
		if err := json.Unmarshal(seg[0], &piece); err != nil {
			continue
		}
		sb.WriteString(piece)
	}
	return sb.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Close releases resources.
func (c *GoogleClient) Close() {
	c.httpClient.CloseIdleConnections()
}
