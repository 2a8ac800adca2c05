package onboard

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/model"
)

// runCompletion assembles the final chatbot configuration. Missing
// preconditions are hard errors: retrying cannot conjure a company review
// or an offering selection that was never submitted.
func (e *Engine) runCompletion(ctx context.Context, job *model.Job) (*model.CompletionData, error) {
	pd := job.PhaseData
	if pd.Discovery == nil {
		return nil, eris.New("onboard: completion requires discovery output")
	}
	if pd.CompanyReview == nil {
		return nil, eris.New("onboard: completion requires reviewed company info")
	}
	if pd.OfferingSelection == nil {
		return nil, eris.New("onboard: completion requires an offering selection")
	}

	// Company info precedence: discovery, then scraping-phase corrections,
	// then the user's review as the final word.
	info := pd.Discovery.CompanyInfo
	if pd.PagesScraping != nil && pd.PagesScraping.CompanyInfoUpdates != nil {
		info = info.Merge(*pd.PagesScraping.CompanyInfoUpdates)
	}
	info = info.Merge(pd.CompanyReview.CompanyInfo)
	if info.Website == "" {
		info.Website = job.URL
	}

	selected := pd.OfferingSelection.SelectedOfferings

	var kb []model.KnowledgeBaseItem
	if pd.PagesScraping != nil {
		kb = pd.PagesScraping.KnowledgeBase
	}

	prompt := e.prompts.Build(PromptInput{
		Sector:        pd.Discovery.SectorAnalysis,
		Company:       info,
		Offerings:     selected,
		KnowledgeBase: kb,
	})

	tenant := model.Tenant{
		Name:         info.Name,
		Sector:       info.Sector,
		Website:      info.Website,
		SystemPrompt: prompt,
		CompanyInfo:  info,
	}
	if job.TenantID != nil {
		tenant.ID = *job.TenantID
	}

	saved, err := e.store.UpsertTenant(ctx, tenant)
	if err != nil {
		return nil, eris.Wrap(err, "onboard: upsert tenant")
	}
	if job.TenantID == nil {
		if err := e.store.SetJobTenant(ctx, job.ID, saved.ID); err != nil {
			return nil, eris.Wrap(err, "onboard: link tenant to job")
		}
	}

	if _, err := e.store.SaveOfferings(ctx, saved.ID, selected); err != nil {
		return nil, eris.Wrap(err, "onboard: save offerings")
	}

	zap.L().Info("onboard: completion finished",
		zap.String("job_id", job.ID),
		zap.String("tenant_id", saved.ID),
		zap.Int("offerings", len(selected)),
	)

	return &model.CompletionData{
		TenantID:       saved.ID,
		SystemPrompt:   prompt,
		TotalOfferings: len(selected),
		CompletedAt:    time.Now().UTC(),
	}, nil
}
