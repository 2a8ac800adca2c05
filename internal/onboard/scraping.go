package onboard

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/model"
	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/scrape"
)

// minPageContentChars flags pages that scraped "successfully" but returned
// nearly nothing, which usually means a render failure upstream.
const minPageContentChars = 50

// runPagesScraping fetches the user-selected pages sequentially, runs one
// extraction call over everything, optionally scrapes detail links the
// extractor asked for, and deduplicates the resulting offerings. A page
// that fails to scrape is recorded and skipped; only scrape-session or
// extraction failures abort the phase.
func (e *Engine) runPagesScraping(ctx context.Context, job *model.Job) (*model.PagesScrapingResult, error) {
	discovery := job.PhaseData.Discovery
	if discovery == nil {
		return nil, eris.New("onboard: pages scraping requires discovery output")
	}

	log := zap.L().With(zap.String("job_id", job.ID))

	selection := job.PhaseData.PageSelection
	if selection == nil || selection.Skipped || len(selection.SelectedPages) == 0 {
		log.Info("onboard: no pages selected, skipping scraping")
		return &model.PagesScrapingResult{
			Offerings:      []model.Offering{},
			ProcessedPages: []string{},
		}, nil
	}

	sess := e.newSession()
	defer sess.Close()

	result := &model.PagesScrapingResult{ProcessedPages: []string{}}
	var scraped []model.ScrapedPage

	for i, page := range selection.SelectedPages {
		pageURL, err := resolveURL(job.URL, page.URL)
		if err != nil {
			log.Warn("onboard: unresolvable page url", zap.String("page_url", page.URL), zap.Error(err))
			result.FailedPages = append(result.FailedPages, model.FailedPage{URL: page.URL, Error: err.Error()})
			continue
		}

		if i > 0 {
			if err := sess.Pace(ctx); err != nil {
				return nil, err
			}
		}

		sp, err := sess.ScrapePage(ctx, pageURL)
		if err != nil {
			log.Warn("onboard: page scrape failed", zap.String("page_url", pageURL), zap.Error(err))
			result.FailedPages = append(result.FailedPages, model.FailedPage{URL: pageURL, Error: err.Error()})
			continue
		}
		if len(sp.Markdown) < minPageContentChars {
			log.Warn("onboard: page content suspiciously short",
				zap.String("page_url", pageURL),
				zap.Int("chars", len(sp.Markdown)),
			)
		}

		sp.Type = page.Type
		scraped = append(scraped, *sp)
		result.ProcessedPages = append(result.ProcessedPages, pageURL)
	}

	extractRes, err := e.extractor.ExtractFromPages(ctx, discovery.HomepageMarkdown, discovery.SectorAnalysis, discovery.CompanyInfo, scraped)
	if err != nil {
		return nil, err
	}

	offerings := extractRes.Offerings
	result.KnowledgeBase = extractRes.KnowledgeBase
	result.CompanyInfoUpdates = extractRes.CompanyInfoUpdates

	if extractRes.NeedsDetailScraping && len(extractRes.DetailLinks) > 0 {
		detailPages, failed := e.scrapeDetailPages(ctx, sess, job.URL, extractRes.DetailLinks, result.ProcessedPages)
		result.FailedPages = append(result.FailedPages, failed...)

		if len(detailPages) > 0 {
			enriched, enrichErr := e.extractor.EnrichWithDetails(ctx, offerings, detailPages, discovery.SectorAnalysis)
			if enrichErr != nil {
				// Enrichment adds detail on top of valid offerings; losing
				// the additions is better than failing the whole phase.
				log.Warn("onboard: detail enrichment failed, keeping base offerings", zap.Error(enrichErr))
			} else {
				offerings = enriched
			}
			for _, dp := range detailPages {
				result.ProcessedPages = append(result.ProcessedPages, dp.URL)
			}
		}
	}

	result.Offerings = MergeOfferings(offerings)

	log.Info("onboard: pages scraping finished",
		zap.Int("processed", len(result.ProcessedPages)),
		zap.Int("failed", len(result.FailedPages)),
		zap.Int("offerings", len(result.Offerings)),
	)
	return result, nil
}

// scrapeDetailPages fetches detail links the extractor asked for, skipping
// any URL already processed this phase. Comparison is case-insensitive and
// whitespace-trimmed so "/Fiyatlar " does not get fetched twice.
func (e *Engine) scrapeDetailPages(ctx context.Context, sess *scrape.Session, baseURL string, links, processed []string) ([]model.ScrapedPage, []model.FailedPage) {
	log := zap.L()

	seen := make(map[string]bool, len(processed))
	for _, p := range processed {
		seen[normalizeURL(p)] = true
	}

	var pages []model.ScrapedPage
	var failed []model.FailedPage

	for _, link := range links {
		if len(pages) >= e.cfg.MaxDetailPages {
			log.Info("onboard: detail page cap reached", zap.Int("max", e.cfg.MaxDetailPages))
			break
		}

		detailURL, err := resolveURL(baseURL, link)
		if err != nil {
			failed = append(failed, model.FailedPage{URL: link, Error: err.Error()})
			continue
		}
		if key := normalizeURL(detailURL); seen[key] {
			continue
		} else {
			seen[key] = true
		}

		if err := sess.Pace(ctx); err != nil {
			return pages, failed
		}
		sp, err := sess.ScrapePage(ctx, detailURL)
		if err != nil {
			log.Warn("onboard: detail page scrape failed", zap.String("page_url", detailURL), zap.Error(err))
			failed = append(failed, model.FailedPage{URL: detailURL, Error: err.Error()})
			continue
		}

		sp.Type = model.PageServiceDetail
		pages = append(pages, *sp)
	}

	return pages, failed
}

func normalizeURL(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// resolveURL makes a possibly-relative link absolute against the job URL
// and rejects non-web schemes.
func resolveURL(baseURL, ref string) (string, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", eris.Wrapf(err, "onboard: parse base url %q", baseURL)
	}
	resolved, err := base.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", eris.Wrapf(err, "onboard: parse page url %q", ref)
	}
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", eris.Errorf("onboard: unsupported url scheme %q", resolved.Scheme)
	}
	return resolved.String(), nil
}
