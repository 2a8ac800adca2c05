// Package extract wraps the language model behind typed extraction
// operations for the onboarding phases. Each operation is a single logical
// model call; the phase relies on the caller for any larger retry discipline.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/model"
	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/resilience"
	"github.com/rehberim360/yapay-zeka-chatbot-sub000/pkg/anthropic"
)

// Client defines the extraction operations the onboarding phases need.
type Client interface {
	// Discover analyzes a homepage and proposes which pages to scrape next.
	// It never extracts offerings.
	Discover(ctx context.Context, homepageMarkdown string, links []string) (*model.DiscoveryResult, error)

	// ExtractFromPages pulls offerings, company info corrections and
	// knowledge base content out of the scraped pages in one call.
	ExtractFromPages(ctx context.Context, homepageMarkdown string, sector model.SectorAnalysis, info model.CompanyInfo, pages []model.ScrapedPage) (*Result, error)

	// EnrichWithDetails merges detail page content into already extracted
	// offerings. Offerings without a matching detail page pass through
	// unchanged.
	EnrichWithDetails(ctx context.Context, offerings []model.Offering, detailPages []model.ScrapedPage, sector model.SectorAnalysis) ([]model.Offering, error)
}

// Result is the output of ExtractFromPages.
type Result struct {
	Offerings           []model.Offering
	CompanyInfoUpdates  *model.CompanyInfo
	KnowledgeBase       []model.KnowledgeBaseItem
	DetailLinks         []string
	NeedsDetailScraping bool
}

// MalformedOutputError marks model output that could not be decoded. The
// phase treats it as fatal rather than retrying a deterministic failure.
type MalformedOutputError struct {
	Operation string
	Err       error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("extract: %s returned malformed output: %v", e.Operation, e.Err)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }

// Config carries the model parameters for extraction calls.
type Config struct {
	Model             string
	MaxTokens         int64
	MaxSuggestedPages int
}

type aiClient struct {
	ai  anthropic.Client
	cfg Config
}

// NewClient creates an extraction client over the given model client.
func NewClient(ai anthropic.Client, cfg Config) Client {
	if cfg.MaxSuggestedPages <= 0 {
		cfg.MaxSuggestedPages = 10
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 8192
	}
	return &aiClient{ai: ai, cfg: cfg}
}

func (c *aiClient) Discover(ctx context.Context, homepageMarkdown string, links []string) (*model.DiscoveryResult, error) {
	start := time.Now()

	content := truncate(homepageMarkdown, maxHomepageChars)
	if len(links) > maxLinks {
		links = links[:maxLinks]
	}
	linksJSON, _ := json.MarshalIndent(links, "", "  ")

	prompt := fmt.Sprintf(discoveryPrompt,
		c.cfg.MaxSuggestedPages,
		c.cfg.MaxSuggestedPages,
		content,
		string(linksJSON),
	)

	resp, err := c.createMessage(ctx, discoverySystemText, prompt)
	if err != nil {
		return nil, err
	}
	resp.Usage.LogCost(c.cfg.Model, string(model.PhaseDiscovery))

	var wire discoveryWire
	if err := json.Unmarshal([]byte(cleanJSON(extractText(resp))), &wire); err != nil {
		return nil, &MalformedOutputError{Operation: "discover", Err: err}
	}

	result := wire.toModel()
	if len(result.SuggestedPages) > c.cfg.MaxSuggestedPages {
		zap.L().Warn("extract: suggested pages over limit, truncating",
			zap.Int("suggested", len(result.SuggestedPages)),
			zap.Int("limit", c.cfg.MaxSuggestedPages),
		)
		result.SuggestedPages = result.SuggestedPages[:c.cfg.MaxSuggestedPages]
	}

	zap.L().Info("extract: discovery complete",
		zap.String("sector", result.SectorAnalysis.Sector),
		zap.String("bot_purpose", string(result.SectorAnalysis.BotPurpose)),
		zap.Int("suggested_pages", len(result.SuggestedPages)),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func (c *aiClient) ExtractFromPages(ctx context.Context, homepageMarkdown string, sector model.SectorAnalysis, info model.CompanyInfo, pages []model.ScrapedPage) (*Result, error) {
	start := time.Now()

	sectorJSON, _ := json.MarshalIndent(sector, "", "  ")
	infoJSON, _ := json.MarshalIndent(info, "", "  ")

	prompt := fmt.Sprintf(extractionPrompt,
		string(sectorJSON),
		string(infoJSON),
		truncate(homepageMarkdown, maxContextChars),
		len(pages),
		buildPagesContent(pages),
		sectorMetaExamples(string(sector.BusinessType)),
	)

	resp, err := c.createMessage(ctx, extractionSystemText, prompt)
	if err != nil {
		return nil, err
	}
	resp.Usage.LogCost(c.cfg.Model, string(model.PhasePagesScraping))

	var wire extractionWire
	if err := json.Unmarshal([]byte(cleanJSON(extractText(resp))), &wire); err != nil {
		return nil, &MalformedOutputError{Operation: "extraction", Err: err}
	}

	result := wire.toResult(pageTypesByURL(pages))
	zap.L().Info("extract: page extraction complete",
		zap.Int("offerings", len(result.Offerings)),
		zap.Int("knowledge_base", len(result.KnowledgeBase)),
		zap.Int("detail_links", len(result.DetailLinks)),
		zap.Bool("needs_detail_scraping", result.NeedsDetailScraping),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func (c *aiClient) EnrichWithDetails(ctx context.Context, offerings []model.Offering, detailPages []model.ScrapedPage, sector model.SectorAnalysis) ([]model.Offering, error) {
	if len(offerings) == 0 || len(detailPages) == 0 {
		return offerings, nil
	}
	start := time.Now()

	offeringsJSON, _ := json.MarshalIndent(offeringsToWire(offerings), "", "  ")

	prompt := fmt.Sprintf(enrichmentPrompt,
		sector.Sector,
		orNA(sector.SubSector),
		string(sector.BusinessType),
		string(offeringsJSON),
		len(detailPages),
		buildPagesContent(detailPages),
		sectorMetaExamples(string(sector.BusinessType)),
	)

	resp, err := c.createMessage(ctx, enrichmentSystemText, prompt)
	if err != nil {
		return nil, err
	}
	resp.Usage.LogCost(c.cfg.Model, string(model.PhasePagesScraping))

	var wire enrichmentWire
	if err := json.Unmarshal([]byte(cleanJSON(extractText(resp))), &wire); err != nil {
		return nil, &MalformedOutputError{Operation: "enrichment", Err: err}
	}

	enriched := wire.toOfferings(pageTypesByURL(detailPages))
	if len(enriched) == 0 {
		// A detail pass that loses every offering is worse than no pass.
		zap.L().Warn("extract: enrichment returned no offerings, keeping originals")
		return offerings, nil
	}

	zap.L().Info("extract: detail enrichment complete",
		zap.Int("offerings_in", len(offerings)),
		zap.Int("offerings_out", len(enriched)),
		zap.Duration("duration", time.Since(start)),
	)
	return enriched, nil
}

// createMessage sends one prompt with retry on any transport or API error.
// Decoding failures are handled by the callers, not retried here.
func (c *aiClient) createMessage(ctx context.Context, systemText, prompt string) (*anthropic.MessageResponse, error) {
	cfg := resilience.DefaultRetryConfig()
	cfg.ShouldRetry = func(error) bool { return true }
	cfg.OnRetry = resilience.RetryLogger("anthropic", "create_message")

	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return c.ai.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     c.cfg.Model,
			MaxTokens: c.cfg.MaxTokens,
			System:    anthropic.BuildCachedSystemBlocks(systemText),
			Messages: []anthropic.Message{
				{Role: "user", Content: prompt},
			},
		})
	})
}

// buildPagesContent renders scraped pages into one prompt block, each page
// capped and followed by a sample of its links.
func buildPagesContent(pages []model.ScrapedPage) string {
	var b strings.Builder
	for i, page := range pages {
		fmt.Fprintf(&b, "\n=== SAYFA %d: %s (%s) ===\n", i+1, page.URL, page.Type)
		b.WriteString(truncate(page.Markdown, maxPageChars))
		if len(page.Links) > 0 {
			links := page.Links
			if len(links) > maxPageLinks {
				links = links[:maxPageLinks]
			}
			linksJSON, _ := json.Marshal(links)
			b.WriteString("\n\nMEVCUT LİNKLER:\n")
			b.Write(linksJSON)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func pageTypesByURL(pages []model.ScrapedPage) map[string]model.PageType {
	types := make(map[string]model.PageType, len(pages))
	for _, p := range pages {
		types[strings.ToLower(strings.TrimSpace(p.URL))] = p.Type
	}
	return types
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n\n[İçerik kısaltıldı...]"
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// extractText concatenates all text content blocks from a message response.
func extractText(resp *anthropic.MessageResponse) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, block := range resp.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// cleanJSON attempts to extract a JSON object from text that may contain
// markdown code fences or other wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Find first { and last }.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
