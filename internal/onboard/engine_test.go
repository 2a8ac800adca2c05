package onboard

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/extract"
	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/model"
)

const homepageMarkdown = `# Salon Elit Güzellik Merkezi

Kadıköy'ün kalbinde profesyonel güzellik hizmetleri. Saç kesimi, cilt bakımı,
lazer epilasyon ve daha fazlası için online randevu alın.`

func TestStartOnboarding_RunsDiscoveryInBackground(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.reader.On("Scrape", mock.Anything, "https://salonelit.example.com").
		Return(readerPage("Salon Elit", homepageMarkdown), nil)
	env.extractor.On("Discover", mock.Anything, homepageMarkdown, mock.Anything).
		Return(sampleDiscovery(model.SuggestedPage{URL: "/hizmetler", Type: model.PageServiceListing, Priority: model.PriorityCritical}), nil)

	job, err := env.engine.StartOnboarding(ctx, "https://salonelit.example.com", "user-1", nil)
	require.NoError(t, err)
	assert.Equal(t, model.PhaseDiscovery, job.CurrentPhase)
	assert.Equal(t, model.JobStatusInProgress, job.Status)

	assert.Eventually(t, func() bool {
		got, err := env.store.GetJob(ctx, job.ID)
		return err == nil && got.CurrentPhase == model.PhasePageSelection
	}, 5*time.Second, 10*time.Millisecond)

	got, err := env.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PhaseData.Discovery)
	assert.Equal(t, homepageMarkdown, got.PhaseData.Discovery.HomepageMarkdown)
	assert.Len(t, got.PhaseData.Discovery.SuggestedPages, 1)
}

func TestExecutePhase_DiscoveryCapsSuggestedPages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pages := make([]model.SuggestedPage, 14)
	for i := range pages {
		pages[i] = model.SuggestedPage{URL: "/sayfa-" + string(rune('a'+i)), Type: model.PageServiceListing}
	}
	env.reader.On("Scrape", mock.Anything, mock.Anything).
		Return(readerPage("Salon Elit", homepageMarkdown), nil)
	env.extractor.On("Discover", mock.Anything, mock.Anything, mock.Anything).
		Return(sampleDiscovery(pages...), nil)

	job, err := env.store.CreateJob(ctx, "https://salonelit.example.com", "user-1", nil)
	require.NoError(t, err)

	got, err := env.engine.ExecutePhase(ctx, job.ID, model.PhaseDiscovery)
	require.NoError(t, err)
	require.NotNil(t, got.PhaseData.Discovery)
	require.Len(t, got.PhaseData.Discovery.SuggestedPages, 10)
	assert.Equal(t, "/sayfa-a", got.PhaseData.Discovery.SuggestedPages[0].URL)
	assert.Equal(t, "/sayfa-j", got.PhaseData.Discovery.SuggestedPages[9].URL)
}

func TestExecutePhase_GatedPhasesDoNotAdvance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	job, err := env.store.CreateJob(ctx, "https://salonelit.example.com", "user-1", nil)
	require.NoError(t, err)
	require.NoError(t, env.store.UpdateJobPhase(ctx, job.ID, model.PhasePageSelection, job.PhaseData))

	got, err := env.engine.ExecutePhase(ctx, job.ID, model.PhasePageSelection)
	require.NoError(t, err)
	assert.Equal(t, model.PhasePageSelection, got.CurrentPhase)

	require.NoError(t, env.store.UpdateJobPhase(ctx, job.ID, model.PhaseWaitingApproval, job.PhaseData))
	got, err = env.engine.ExecutePhase(ctx, job.ID, model.PhaseWaitingApproval)
	require.NoError(t, err)
	assert.Equal(t, model.PhaseWaitingApproval, got.CurrentPhase)

	env.extractor.AssertNotCalled(t, "Discover", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecutePhase_FailureMarksJobFailed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.reader.On("Scrape", mock.Anything, mock.Anything).
		Return(nil, eris.New("reader: unexpected status 404"))

	job, err := env.store.CreateJob(ctx, "https://salonelit.example.com", "user-1", nil)
	require.NoError(t, err)

	_, err = env.engine.ExecutePhase(ctx, job.ID, model.PhaseDiscovery)
	require.Error(t, err)

	got, err := env.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, got.Status)
	assert.Equal(t, model.PhaseDiscovery, got.CurrentPhase)
	require.NotEmpty(t, got.ErrorLog)
	last := got.ErrorLog[len(got.ErrorLog)-1]
	assert.Equal(t, model.PhaseDiscovery, last.Phase)
	assert.Equal(t, job.ID, last.Context.JobID)
}

func TestResumeOnboarding_RerunsFailedPhase(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.reader.On("Scrape", mock.Anything, mock.Anything).
		Return(readerPage("Salon Elit", homepageMarkdown), nil)
	env.extractor.On("Discover", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, eris.New("anthropic: create message: overloaded")).Once()
	env.extractor.On("Discover", mock.Anything, mock.Anything, mock.Anything).
		Return(sampleDiscovery(), nil).Once()

	job, err := env.store.CreateJob(ctx, "https://salonelit.example.com", "user-1", nil)
	require.NoError(t, err)

	_, err = env.engine.ExecutePhase(ctx, job.ID, model.PhaseDiscovery)
	require.Error(t, err)

	got, err := env.engine.ResumeOnboarding(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PhasePageSelection, got.CurrentPhase)

	fresh, err := env.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusInProgress, fresh.Status)
	// the first failure stays on the log after a successful resume
	assert.NotEmpty(t, fresh.ErrorLog)
}

func TestResumeOnboarding_CompletedJobIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	job, err := env.store.CreateJob(ctx, "https://salonelit.example.com", "user-1", nil)
	require.NoError(t, err)
	require.NoError(t, env.store.UpdateJobStatus(ctx, job.ID, model.JobStatusCompleted))

	got, err := env.engine.ResumeOnboarding(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
	env.reader.AssertNotCalled(t, "Scrape", mock.Anything, mock.Anything)
}

func preparePagesScrapingJob(t *testing.T, env *testEnv, pages ...model.SuggestedPage) *model.Job {
	t.Helper()
	ctx := context.Background()

	job, err := env.store.CreateJob(ctx, "https://salonelit.example.com", "user-1", nil)
	require.NoError(t, err)

	_, err = env.engine.SavePhaseData(ctx, job.ID, model.PhaseDiscovery, sampleDiscovery(pages...))
	require.NoError(t, err)
	got, err := env.engine.SavePhaseData(ctx, job.ID, model.PhasePageSelection, &model.PageSelectionData{SelectedPages: pages})
	require.NoError(t, err)
	require.Equal(t, model.PhasePagesScraping, got.CurrentPhase)
	return got
}

func TestPagesScraping_HappyPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	job := preparePagesScrapingJob(t, env,
		model.SuggestedPage{URL: "/hizmetler", Type: model.PageServiceListing},
	)

	env.reader.On("Scrape", mock.Anything, "https://salonelit.example.com/hizmetler").
		Return(readerPage("Hizmetler", "## Hizmetlerimiz\n\n- Saç Kesimi 450 TL\n- Cilt Bakımı 800 TL"), nil)
	env.extractor.On("ExtractFromPages", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&extract.Result{
			Offerings: []model.Offering{
				{Name: "Saç Kesimi", Type: model.OfferingService, SourcePageType: model.PageServiceListing},
				{Name: "saç kesimi", Type: model.OfferingService, Description: "Yıkama ve fön dahil profesyonel saç kesimi", SourcePageType: model.PageServiceListing},
			},
		}, nil)

	got, err := env.engine.ExecutePhase(ctx, job.ID, model.PhasePagesScraping)
	require.NoError(t, err)
	assert.Equal(t, model.PhaseWaitingApproval, got.CurrentPhase)

	result := got.PhaseData.PagesScraping
	require.NotNil(t, result)
	assert.Equal(t, []string{"https://salonelit.example.com/hizmetler"}, result.ProcessedPages)
	assert.Empty(t, result.FailedPages)
	// duplicates collapse to the more complete record
	require.Len(t, result.Offerings, 1)
	assert.NotEmpty(t, result.Offerings[0].Description)
}

func TestPagesScraping_PartialFailureDoesNotFailPhase(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	job := preparePagesScrapingJob(t, env,
		model.SuggestedPage{URL: "/hizmetler", Type: model.PageServiceListing},
		model.SuggestedPage{URL: "/fiyatlar", Type: model.PagePricing},
		model.SuggestedPage{URL: "/hakkimizda", Type: model.PageAbout},
	)

	env.reader.On("Scrape", mock.Anything, "https://salonelit.example.com/hizmetler").
		Return(readerPage("Hizmetler", "## Hizmetlerimiz\n\nSaç kesimi, cilt bakımı ve epilasyon hizmetleri."), nil)
	env.reader.On("Scrape", mock.Anything, "https://salonelit.example.com/fiyatlar").
		Return(nil, eris.New("reader: unexpected status 500"))
	env.reader.On("Scrape", mock.Anything, "https://salonelit.example.com/hakkimizda").
		Return(readerPage("Hakkımızda", "2010 yılından beri Kadıköy'de hizmet veren güzellik merkezi."), nil)
	env.extractor.On("ExtractFromPages", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&extract.Result{Offerings: []model.Offering{{Name: "Saç Kesimi", Type: model.OfferingService}}}, nil)

	got, err := env.engine.ExecutePhase(ctx, job.ID, model.PhasePagesScraping)
	require.NoError(t, err)

	result := got.PhaseData.PagesScraping
	require.NotNil(t, result)
	require.Len(t, result.FailedPages, 1)
	assert.Equal(t, "https://salonelit.example.com/fiyatlar", result.FailedPages[0].URL)
	assert.Equal(t, []string{
		"https://salonelit.example.com/hizmetler",
		"https://salonelit.example.com/hakkimizda",
	}, result.ProcessedPages)

	fresh, err := env.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusInProgress, fresh.Status)
}

func TestPagesScraping_SkipsAlreadyProcessedDetailLinks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	job := preparePagesScrapingJob(t, env,
		model.SuggestedPage{URL: "/hizmetler", Type: model.PageServiceListing},
	)

	env.reader.On("Scrape", mock.Anything, "https://salonelit.example.com/hizmetler").
		Return(readerPage("Hizmetler", "## Hizmetlerimiz\n\nSaç kesimi ve lazer epilasyon detayları."), nil).Once()
	env.reader.On("Scrape", mock.Anything, "https://salonelit.example.com/hizmet/lazer").
		Return(readerPage("Lazer Epilasyon", "Alexandrite lazer ile 8 seans tüm vücut epilasyon programı."), nil).Once()

	baseOfferings := []model.Offering{{Name: "Lazer Epilasyon", Type: model.OfferingService}}
	env.extractor.On("ExtractFromPages", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&extract.Result{
			Offerings: baseOfferings,
			// first link is a case/whitespace variant of an already scraped page
			DetailLinks:         []string{" HTTPS://salonelit.example.com/HIZMETLER ", "/hizmet/lazer"},
			NeedsDetailScraping: true,
		}, nil)
	env.extractor.On("EnrichWithDetails", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]model.Offering{{
			Name:        "Lazer Epilasyon",
			Type:        model.OfferingService,
			Description: "Alexandrite lazer ile 8 seans tüm vücut epilasyon programı",
			Price:       floatPtr(12000),
		}}, nil)

	got, err := env.engine.ExecutePhase(ctx, job.ID, model.PhasePagesScraping)
	require.NoError(t, err)

	// the listing page must not be fetched a second time
	env.reader.AssertNumberOfCalls(t, "Scrape", 2)

	result := got.PhaseData.PagesScraping
	require.NotNil(t, result)
	require.Len(t, result.Offerings, 1)
	assert.NotNil(t, result.Offerings[0].Price)
	assert.Contains(t, result.ProcessedPages, "https://salonelit.example.com/hizmet/lazer")
}

func TestPagesScraping_EmptySelectionSkipsExtraction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	job, err := env.store.CreateJob(ctx, "https://salonelit.example.com", "user-1", nil)
	require.NoError(t, err)
	_, err = env.engine.SavePhaseData(ctx, job.ID, model.PhaseDiscovery, sampleDiscovery())
	require.NoError(t, err)
	_, err = env.engine.SavePhaseData(ctx, job.ID, model.PhasePageSelection, &model.PageSelectionData{Skipped: true})
	require.NoError(t, err)

	got, err := env.engine.ExecutePhase(ctx, job.ID, model.PhasePagesScraping)
	require.NoError(t, err)
	assert.Equal(t, model.PhaseWaitingApproval, got.CurrentPhase)
	require.NotNil(t, got.PhaseData.PagesScraping)
	assert.Empty(t, got.PhaseData.PagesScraping.Offerings)

	env.extractor.AssertNotCalled(t, "ExtractFromPages", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	env.reader.AssertNotCalled(t, "Scrape", mock.Anything, mock.Anything)
}

func prepareApprovedJob(t *testing.T, env *testEnv, selected []model.Offering) *model.Job {
	t.Helper()
	ctx := context.Background()

	job, err := env.store.CreateJob(ctx, "https://salonelit.example.com", "user-1", nil)
	require.NoError(t, err)

	_, err = env.engine.SavePhaseData(ctx, job.ID, model.PhaseDiscovery, sampleDiscovery())
	require.NoError(t, err)
	_, err = env.engine.SavePhaseData(ctx, job.ID, model.PhasePageSelection, &model.PageSelectionData{Skipped: true})
	require.NoError(t, err)
	_, err = env.engine.SavePhaseData(ctx, job.ID, model.PhasePagesScraping, &model.PagesScrapingResult{Offerings: selected})
	require.NoError(t, err)

	_, err = env.engine.SavePhaseData(ctx, job.ID, "", &model.CompanyReview{
		CompanyInfo: model.CompanyInfo{Name: "Salon Elit", Phone: "0212 555 44 33"},
		ReviewedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
	got, err := env.engine.SavePhaseData(ctx, job.ID, "", &model.OfferingSelectionData{
		SelectedOfferings: selected,
		TotalExtracted:    len(selected),
	})
	require.NoError(t, err)
	require.Equal(t, model.PhaseWaitingApproval, got.CurrentPhase)
	return got
}

func TestSavePhaseData_RejectsInvalidContactInfo(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	job, err := env.store.CreateJob(ctx, "https://salonelit.example.com", "user-1", nil)
	require.NoError(t, err)

	cases := []model.CompanyInfo{
		{Name: "Salon Elit", Phone: "12345"},
		{Name: "Salon Elit", Email: "salonelit.example.com"},
		{Name: "Salon Elit", WorkingHours: "her gün açık"},
	}
	for _, info := range cases {
		_, err := env.engine.SavePhaseData(ctx, job.ID, "", &model.CompanyReview{CompanyInfo: info})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, "%+v", info)
	}

	// Nothing was persisted by the rejected writes.
	got, err := env.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Nil(t, got.PhaseData.CompanyReview)

	// Valid contacts, and blank ones, pass.
	saved, err := env.engine.SavePhaseData(ctx, job.ID, "", &model.CompanyReview{
		CompanyInfo: model.CompanyInfo{
			Name:         "Salon Elit",
			Phone:        "0212 555 44 33",
			Email:        "info@salonelit.example.com",
			WorkingHours: "09:00-19:00",
		},
	})
	require.NoError(t, err)
	require.NotNil(t, saved.PhaseData.CompanyReview)
}

func TestCompleteOnboarding_HappyPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	selected := []model.Offering{
		{Name: "Saç Kesimi", Type: model.OfferingService, Price: floatPtr(450), Currency: "TRY"},
		{Name: "Cilt Bakımı", Type: model.OfferingService, Price: floatPtr(800), Currency: "TRY"},
	}
	job := prepareApprovedJob(t, env, selected)

	got, err := env.engine.CompleteOnboarding(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, got.Status)

	completion := got.PhaseData.Completion
	require.NotNil(t, completion)
	assert.Equal(t, len(selected), completion.TotalOfferings)
	assert.NotEmpty(t, completion.TenantID)
	assert.Contains(t, completion.SystemPrompt, "Salon Elit")
	assert.Contains(t, completion.SystemPrompt, "Saç Kesimi")

	tenant, err := env.store.GetTenant(ctx, completion.TenantID)
	require.NoError(t, err)
	assert.Equal(t, completion.SystemPrompt, tenant.SystemPrompt)

	offerings, err := env.store.ListOfferings(ctx, completion.TenantID)
	require.NoError(t, err)
	assert.Len(t, offerings, len(selected))

	fresh, err := env.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, fresh.TenantID)
	assert.Equal(t, completion.TenantID, *fresh.TenantID)
}

func TestCompleteOnboarding_MissingReviewFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	job, err := env.store.CreateJob(ctx, "https://salonelit.example.com", "user-1", nil)
	require.NoError(t, err)
	_, err = env.engine.SavePhaseData(ctx, job.ID, model.PhaseDiscovery, sampleDiscovery())
	require.NoError(t, err)
	_, err = env.engine.SavePhaseData(ctx, job.ID, model.PhasePageSelection, &model.PageSelectionData{Skipped: true})
	require.NoError(t, err)
	_, err = env.engine.SavePhaseData(ctx, job.ID, model.PhasePagesScraping, &model.PagesScrapingResult{})
	require.NoError(t, err)

	_, err = env.engine.CompleteOnboarding(ctx, job.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reviewed company info")

	fresh, err := env.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, fresh.Status)
}

func TestCompleteOnboarding_BeforeApprovalRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	job, err := env.store.CreateJob(ctx, "https://salonelit.example.com", "user-1", nil)
	require.NoError(t, err)

	_, err = env.engine.CompleteOnboarding(ctx, job.ID)
	require.Error(t, err)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSavePhaseData_PhaseOrdering(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	job, err := env.store.CreateJob(ctx, "https://salonelit.example.com", "user-1", nil)
	require.NoError(t, err)

	steps := []struct {
		phase model.Phase
		data  any
		next  model.Phase
	}{
		{model.PhaseDiscovery, sampleDiscovery(), model.PhasePageSelection},
		{model.PhasePageSelection, &model.PageSelectionData{Skipped: true}, model.PhasePagesScraping},
		{model.PhasePagesScraping, &model.PagesScrapingResult{}, model.PhaseWaitingApproval},
	}
	for _, step := range steps {
		got, err := env.engine.SavePhaseData(ctx, job.ID, step.phase, step.data)
		require.NoError(t, err)
		assert.Equal(t, step.next, got.CurrentPhase)
	}

	// auxiliary writes never advance
	got, err := env.engine.SavePhaseData(ctx, job.ID, "", &model.CompanyReview{CompanyInfo: model.CompanyInfo{Name: "Salon Elit"}})
	require.NoError(t, err)
	assert.Equal(t, model.PhaseWaitingApproval, got.CurrentPhase)

	// saving for a phase the job is no longer at does not advance either
	got, err = env.engine.SavePhaseData(ctx, job.ID, model.PhaseDiscovery, sampleDiscovery())
	require.NoError(t, err)
	assert.Equal(t, model.PhaseWaitingApproval, got.CurrentPhase)
}

func TestSavePhaseData_RejectsUnknownPayload(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	job, err := env.store.CreateJob(ctx, "https://salonelit.example.com", "user-1", nil)
	require.NoError(t, err)

	_, err = env.engine.SavePhaseData(ctx, job.ID, "", "not a phase payload")
	require.Error(t, err)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestClassifyError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "AI_PARSING", classifyError(&extract.MalformedOutputError{Operation: "discover", Err: eris.New("bad json")}))
	assert.Equal(t, "VALIDATION", classifyError(&ValidationError{Msg: "nope"}))
	assert.Equal(t, "EXECUTION", classifyError(eris.New("boom")))
}
