// Package reader provides a client for the markdown reader service that
// renders business websites headlessly and returns their content.
package reader

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/resilience"
)

// Client defines the reader service operations.
type Client interface {
	// Scrape fetches a URL through the reader service and returns its
	// rendered markdown plus the links found on the page.
	Scrape(ctx context.Context, targetURL string) (*ScrapeResponse, error)
}

// ScrapeResponse is the parsed reader API response.
type ScrapeResponse struct {
	Code int        `json:"code"`
	Data ScrapeData `json:"data"`
}

// ScrapeData holds the rendered content of one page.
type ScrapeData struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
	Links   []Link `json:"links"`
}

// Link is one anchor found on a scraped page.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// scrapeRetryDelays is the waiting schedule between attempts, giving
// len+1 total attempts.
var scrapeRetryDelays = []time.Duration{3 * time.Second, 6 * time.Second}

// Option configures the reader client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRequestsPerMinute caps the outbound request rate.
func WithRequestsPerMinute(rpm int) Option {
	return func(c *httpClient) {
		if rpm > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1)
		}
	}
}

// WithRetrySchedule overrides the delay before each retry. The number of
// attempts is len(delays)+1.
func WithRetrySchedule(delays ...time.Duration) Option {
	return func(c *httpClient) {
		if len(delays) > 0 {
			c.retryDelays = delays
		}
	}
}

type httpClient struct {
	apiKey      string
	baseURL     string
	http        *http.Client
	limiter     *rate.Limiter
	retryDelays []time.Duration
}

// NewClient creates a new reader service client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:      apiKey,
		baseURL:     "https://r.jina.ai",
		retryDelays: scrapeRetryDelays,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Scrape(ctx context.Context, targetURL string) (*ScrapeResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "reader: rate limit wait")
		}
	}

	reqURL := fmt.Sprintf("%s/%s", c.baseURL, targetURL)

	onRetry := resilience.RetryLogger("reader", "scrape")

	var result ScrapeResponse
	var lastErr error
	for attempt := 0; attempt <= len(c.retryDelays); attempt++ {
		lastErr = c.doScrape(ctx, reqURL, &result)
		if lastErr == nil {
			return &result, nil
		}
		if ctx.Err() != nil || !resilience.IsTransient(lastErr) {
			return nil, lastErr
		}
		if attempt >= len(c.retryDelays) {
			break
		}

		onRetry(attempt+1, lastErr)
		timer := time.NewTimer(c.retryDelays[attempt])
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, lastErr
		case <-timer.C:
		}
	}
	return nil, lastErr
}

func (c *httpClient) doScrape(ctx context.Context, reqURL string, out *ScrapeResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return eris.Wrap(err, "reader: create request")
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Return-Format", "markdown")
	req.Header.Set("X-With-Links-Summary", "true")

	resp, err := c.http.Do(req)
	if err != nil {
		return resilience.NewTransientError(eris.Wrap(err, "reader: request"), 0)
	}
	defer resp.Body.Close()

	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return resilience.NewTransientError(eris.Errorf("reader: status %d", resp.StatusCode), resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("reader: unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return eris.Wrap(err, "reader: decode response")
	}
	return nil
}
