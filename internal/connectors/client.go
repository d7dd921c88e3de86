package connectors

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	jsoniter "github.com/json-iterator/go"

	"peerdata/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StatusError is a non-2xx response that was not retried, or exhausted its retries.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status=%d body=%s", e.URL, e.Status, e.Body)
}

// Client is the HTTP client shared by the collectors: a rate limiter plus a
// bounded retry loop on transport errors and 429/5xx answers.
type Client struct {
	httpClient  *http.Client
	limiter     *RateLimiter
	maxAttempts int
	backoff     time.Duration
	userAgent   string
}

func NewClient(httpClient *http.Client, requestsPerSecond, maxAttempts int) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Client{
		httpClient:  httpClient,
		limiter:     NewRateLimiter(requestsPerSecond),
		maxAttempts: maxAttempts,
		backoff:     250 * time.Millisecond,
		userAgent:   "peerdata/1.0",
	}
}

func NewClientFromConfig(cfg config.Config) *Client {
	return NewClient(
		&http.Client{Timeout: time.Duration(cfg.HTTPTimeoutMs) * time.Millisecond},
		cfg.HTTPRateLimitRPS,
		cfg.HTTPMaxAttempts,
	)
}

func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.limiter.WaitTurn(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			statusErr := &StatusError{URL: url, Status: resp.StatusCode, Body: truncate(string(body), 200)}
			if isRetryableStatus(resp.StatusCode) && attempt < c.maxAttempts {
				lastErr = statusErr
				backoff := c.backoff*time.Duration(1<<(attempt-1)) + time.Duration(rand.Intn(100))*time.Millisecond
				if err := sleep(ctx, backoff); err != nil {
					return nil, err
				}
				continue
			}
			return nil, statusErr
		}
		return body, nil
	}

	if lastErr == nil {
		lastErr = errors.New("request failed")
	}
	return nil, fmt.Errorf("GET %s after %d attempts: %w", url, c.maxAttempts, lastErr)
}

// GetJSON decodes a JSON response into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	body, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

func (c *Client) GetDocument(ctx context.Context, url string) (*goquery.Document, error) {
	body, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(bytes.NewReader(body))
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
