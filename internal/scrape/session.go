// Package scrape runs the page fetching for one onboarding job. Each job
// gets its own Session so a slow or hostile site only trips its own breaker,
// never a shared one.
package scrape

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/model"
	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/resilience"
	"github.com/rehberim360/yapay-zeka-chatbot-sub000/pkg/reader"
)

// Config controls per-session pacing.
type Config struct {
	// MinDelay and MaxDelay bound the randomized pause between page
	// requests. Defaults: 3s and 5s.
	MinDelay time.Duration
	MaxDelay time.Duration
}

// Session fetches pages for a single job through the reader service. It
// paces consecutive requests and stops hitting a site once the breaker
// opens. Sessions must be Closed on every exit path.
type Session struct {
	reader   reader.Client
	breaker  *resilience.CircuitBreaker
	minDelay time.Duration
	maxDelay time.Duration

	mu      sync.Mutex
	scraped int
	failed  int
	closed  bool
}

// NewSession creates a session over the given reader client.
func NewSession(client reader.Client, cfg Config) *Session {
	if cfg.MinDelay <= 0 {
		cfg.MinDelay = 3 * time.Second
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay + 2*time.Second
	}

	return &Session{
		reader:   client,
		minDelay: cfg.MinDelay,
		maxDelay: cfg.MaxDelay,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: 3,
			ResetTimeout:     60 * time.Second,
			OnStateChange: func(from, to resilience.CircuitState) {
				zap.L().Warn("scrape: circuit state changed",
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		}),
	}
}

// ScrapePage fetches one URL and returns its rendered content. Blocked or
// challenge pages are reported as errors, not returned as content.
func (s *Session) ScrapePage(ctx context.Context, targetURL string) (*model.ScrapedPage, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, eris.New("scrape: session closed")
	}
	s.mu.Unlock()

	resp, err := resilience.ExecuteVal(ctx, s.breaker, func(ctx context.Context) (*reader.ScrapeResponse, error) {
		resp, err := s.reader.Scrape(ctx, targetURL)
		if err != nil {
			return nil, err
		}
		if blocked, blockType := DetectBlock(resp.Data.Content); blocked {
			return nil, eris.Errorf("scrape: page blocked (%s): %s", blockType, targetURL)
		}
		return resp, nil
	})
	if err != nil {
		s.mu.Lock()
		s.failed++
		s.mu.Unlock()
		return nil, err
	}

	page := &model.ScrapedPage{
		URL:      resp.Data.URL,
		Title:    resp.Data.Title,
		Markdown: resp.Data.Content,
		Links:    make([]string, 0, len(resp.Data.Links)),
	}
	if page.URL == "" {
		page.URL = targetURL
	}
	for _, link := range resp.Data.Links {
		if link.Href != "" {
			page.Links = append(page.Links, link.Href)
		}
	}

	s.mu.Lock()
	s.scraped++
	s.mu.Unlock()

	zap.L().Debug("scrape: page fetched",
		zap.String("url", page.URL),
		zap.Int("content_chars", len(page.Markdown)),
		zap.Int("links", len(page.Links)),
	)
	return page, nil
}

// Pace sleeps a randomized interval between consecutive page requests so the
// target site never sees a burst. Returns early on context cancellation.
func (s *Session) Pace(ctx context.Context) error {
	delay := s.minDelay
	if spread := s.maxDelay - s.minDelay; spread > 0 {
		delay += time.Duration(rand.Int64N(int64(spread)))
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// BreakerOpen reports whether the session's breaker is rejecting requests.
func (s *Session) BreakerOpen() bool {
	return s.breaker.State() == resilience.CircuitOpen
}

// Close releases the session. Further ScrapePage calls fail. Close is safe
// to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true

	zap.L().Info("scrape: session closed",
		zap.Int("pages_scraped", s.scraped),
		zap.Int("pages_failed", s.failed),
	)
}
