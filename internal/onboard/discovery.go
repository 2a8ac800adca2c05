package onboard

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/model"
)

// runDiscovery scrapes the job's homepage once and runs the combined
// classification and page-suggestion extraction over it. The homepage
// markdown rides along in the result so the scraping phase does not fetch
// it again.
func (e *Engine) runDiscovery(ctx context.Context, job *model.Job) (*model.DiscoveryResult, error) {
	sess := e.newSession()
	defer sess.Close()

	page, err := sess.ScrapePage(ctx, job.URL)
	if err != nil {
		return nil, eris.Wrap(err, "onboard: scrape homepage")
	}

	result, err := e.extractor.Discover(ctx, page.Markdown, page.Links)
	if err != nil {
		return nil, err
	}

	// The extractor already caps suggestions; re-check here so a cap change
	// there cannot widen what gets persisted.
	if max := e.cfg.MaxSuggestedPages; len(result.SuggestedPages) > max {
		zap.L().Warn("onboard: truncating suggested pages",
			zap.String("job_id", job.ID),
			zap.Int("suggested", len(result.SuggestedPages)),
			zap.Int("max", max),
		)
		result.SuggestedPages = result.SuggestedPages[:max]
	}

	result.HomepageMarkdown = page.Markdown
	return result, nil
}
