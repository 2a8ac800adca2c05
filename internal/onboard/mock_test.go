package onboard

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/extract"
	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/model"
	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/store"
	"github.com/rehberim360/yapay-zeka-chatbot-sub000/pkg/reader"
)

type mockReader struct {
	mock.Mock
}

func (m *mockReader) Scrape(ctx context.Context, targetURL string) (*reader.ScrapeResponse, error) {
	args := m.Called(ctx, targetURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reader.ScrapeResponse), args.Error(1)
}

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Discover(ctx context.Context, homepageMarkdown string, links []string) (*model.DiscoveryResult, error) {
	args := m.Called(ctx, homepageMarkdown, links)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DiscoveryResult), args.Error(1)
}

func (m *mockExtractor) ExtractFromPages(ctx context.Context, homepageMarkdown string, sector model.SectorAnalysis, info model.CompanyInfo, pages []model.ScrapedPage) (*extract.Result, error) {
	args := m.Called(ctx, homepageMarkdown, sector, info, pages)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*extract.Result), args.Error(1)
}

func (m *mockExtractor) EnrichWithDetails(ctx context.Context, offerings []model.Offering, detailPages []model.ScrapedPage, sector model.SectorAnalysis) ([]model.Offering, error) {
	args := m.Called(ctx, offerings, detailPages, sector)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Offering), args.Error(1)
}

// readerPage builds a scrape response with enough content to pass the
// short-page check.
func readerPage(title, content string, links ...reader.Link) *reader.ScrapeResponse {
	return &reader.ScrapeResponse{
		Code: 200,
		Data: reader.ScrapeData{
			Title:   title,
			Content: content,
			Links:   links,
		},
	}
}

type testEnv struct {
	engine    *Engine
	store     *store.SQLiteStore
	reader    *mockReader
	extractor *mockExtractor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "onboard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	rd := &mockReader{}
	ex := &mockExtractor{}
	eng := NewEngine(st, rd, ex, nil, Config{
		MaxSuggestedPages: 10,
		MaxDetailPages:    5,
		ScrapeMinDelay:    time.Millisecond,
		ScrapeMaxDelay:    2 * time.Millisecond,
	})

	return &testEnv{engine: eng, store: st, reader: rd, extractor: ex}
}

func sampleDiscovery(pages ...model.SuggestedPage) *model.DiscoveryResult {
	return &model.DiscoveryResult{
		SectorAnalysis: model.SectorAnalysis{
			Sector:           "Güzellik ve Bakım",
			SubSector:        "Güzellik Salonu",
			BusinessType:     model.BusinessBeauty,
			BotPurpose:       model.PurposeAppointment,
			CriticalDataType: model.DataServices,
		},
		CompanyInfo: model.CompanyInfo{
			Name:     "Salon Elit",
			Sector:   "Güzellik ve Bakım",
			Language: "Türkçe",
			Phone:    "0212 555 44 33",
		},
		SuggestedPages: pages,
	}
}
