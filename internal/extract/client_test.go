package extract

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/model"
)

func newTestClient(ai *mockAIClient) Client {
	return NewClient(ai, Config{
		Model:             "claude-haiku-4-5-20251001",
		MaxTokens:         4096,
		MaxSuggestedPages: 10,
	})
}

const discoveryResponse = `{
  "sector_analysis": {
    "sector": "Güzellik",
    "sub_sector": "Kuaför",
    "business_type": "BEAUTY",
    "bot_purpose": "APPOINTMENT",
    "critical_data_type": "SERVICES",
    "bot_personality": "Samimi ve Profesyonel",
    "expected_user_intent": ["Randevu almak", "Fiyat sormak"],
    "recommended_features": ["Randevu hatırlatma"]
  },
  "company_info": {
    "name": "Salon Elit",
    "sector": "Güzellik",
    "description": "Kadıköy'de kuaför salonu.",
    "detected_language": "tr",
    "tone_of_voice": "Samimi",
    "phone": "+90 216 123 45 67",
    "social_media": {"instagram": "https://instagram.com/salonelit"},
    "website": "https://salonelit.example.com"
  },
  "suggested_pages": [
    {"url": "https://salonelit.example.com/hizmetler", "type": "SERVICE_LISTING", "priority": "CRITICAL", "reason": "Ana hizmet listesi", "auto_select": true},
    {"url": "https://salonelit.example.com/fiyatlar", "type": "PRICING_PAGE", "priority": "HIGH", "auto_select": true},
    {"url": "https://salonelit.example.com/iletisim", "type": "CONTACT_PAGE", "priority": "MEDIUM", "auto_select": false}
  ]
}`

func TestDiscover_ParsesResult(t *testing.T) {
	ai := new(mockAIClient)
	ai.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse(discoveryResponse), nil)

	client := newTestClient(ai)
	result, err := client.Discover(context.Background(), "# Salon Elit\n\nKadıköy'ün kuaförü.", []string{"https://salonelit.example.com/hizmetler"})

	require.NoError(t, err)
	assert.Equal(t, model.BusinessBeauty, result.SectorAnalysis.BusinessType)
	assert.Equal(t, model.PurposeAppointment, result.SectorAnalysis.BotPurpose)
	assert.Equal(t, model.DataServices, result.SectorAnalysis.CriticalDataType)
	assert.Equal(t, "Salon Elit", result.CompanyInfo.Name)
	assert.Equal(t, "tr", result.CompanyInfo.Language)
	assert.Equal(t, "Samimi", result.CompanyInfo.Tone)
	require.Len(t, result.SuggestedPages, 3)
	assert.Equal(t, model.PageServiceListing, result.SuggestedPages[0].Type)
	assert.Equal(t, model.PriorityCritical, result.SuggestedPages[0].Priority)
	assert.True(t, result.SuggestedPages[0].AutoSelect)

	ai.AssertExpectations(t)
}

func TestDiscover_StripsCodeFences(t *testing.T) {
	ai := new(mockAIClient)
	fenced := "```json\n" + discoveryResponse + "\n```"
	ai.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse(fenced), nil)

	client := newTestClient(ai)
	result, err := client.Discover(context.Background(), "content", nil)

	require.NoError(t, err)
	assert.Equal(t, "Salon Elit", result.CompanyInfo.Name)
}

func TestDiscover_TruncatesSuggestedPagesOverLimit(t *testing.T) {
	pages := ""
	for i := 0; i < 15; i++ {
		if i > 0 {
			pages += ","
		}
		pages += fmt.Sprintf(`{"url": "https://site.example.com/p%d", "type": "SERVICE_DETAIL", "priority": "HIGH", "auto_select": true}`, i)
	}
	resp := fmt.Sprintf(`{"sector_analysis": {"sector": "Spor", "business_type": "FITNESS", "bot_purpose": "APPOINTMENT", "critical_data_type": "SERVICES"}, "company_info": {"name": "Gym"}, "suggested_pages": [%s]}`, pages)

	ai := new(mockAIClient)
	ai.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse(resp), nil)

	client := newTestClient(ai)
	result, err := client.Discover(context.Background(), "content", nil)

	require.NoError(t, err)
	assert.Len(t, result.SuggestedPages, 10)
	// Order preserved: first ten survive.
	assert.Equal(t, "https://site.example.com/p0", result.SuggestedPages[0].URL)
	assert.Equal(t, "https://site.example.com/p9", result.SuggestedPages[9].URL)
}

func TestDiscover_MalformedOutput(t *testing.T) {
	ai := new(mockAIClient)
	ai.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse("I could not analyze this site."), nil)

	client := newTestClient(ai)
	_, err := client.Discover(context.Background(), "content", nil)

	require.Error(t, err)
	var malformed *MalformedOutputError
	assert.ErrorAs(t, err, &malformed)
	assert.Equal(t, "discover", malformed.Operation)
}

func TestDiscover_APIError(t *testing.T) {
	ai := new(mockAIClient)
	ai.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("api unavailable"))

	client := newTestClient(ai)
	_, err := client.Discover(context.Background(), "content", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "api unavailable")
}

const extractionResponse = `{
  "company_info_updates": {
    "phone": "+90 216 987 65 43",
    "working_hours": "Hafta içi 09:00-19:00"
  },
  "offerings": [
    {
      "name": "Saç Kesimi",
      "description": "Yıkama ve fön dahil profesyonel saç kesimi.",
      "type": "SERVICE",
      "price": 500,
      "currency": "TRY",
      "duration_min": 45,
      "category": "Saç",
      "source_url": "https://salonelit.example.com/hizmetler",
      "detail_link": "https://salonelit.example.com/hizmetler/sac-kesimi",
      "confidence_level": "HIGH",
      "meta_info": {
        "stylist": "Ayşe",
        "gender": "Unisex",
        "appointment_required": null
      }
    },
    {
      "name": "Manikür",
      "type": "SERVICE",
      "price": null,
      "source_url": "https://salonelit.example.com/fiyatlar",
      "confidence_level": "MEDIUM",
      "meta_info": {}
    }
  ],
  "offering_detail_links": [
    "https://salonelit.example.com/hizmetler/sac-kesimi",
    "https://salonelit.example.com/Hizmetler/SAC-KESIMI"
  ],
  "needs_detail_scraping": true,
  "knowledge_base": [
    {"category": "CONTACT", "title": "İletişim", "content": "Kadıköy şubesi, hafta içi 09:00-19:00.", "source_url": "https://salonelit.example.com/iletisim"}
  ]
}`

func scrapedFixture() []model.ScrapedPage {
	return []model.ScrapedPage{
		{URL: "https://salonelit.example.com/hizmetler", Markdown: "## Hizmetler", Type: model.PageServiceListing},
		{URL: "https://salonelit.example.com/fiyatlar", Markdown: "## Fiyatlar", Type: model.PagePricing},
	}
}

func TestExtractFromPages_ParsesResult(t *testing.T) {
	ai := new(mockAIClient)
	ai.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse(extractionResponse), nil)

	client := newTestClient(ai)
	result, err := client.ExtractFromPages(context.Background(), "# Ana sayfa", model.SectorAnalysis{Sector: "Güzellik", BusinessType: model.BusinessBeauty}, model.CompanyInfo{Name: "Salon Elit"}, scrapedFixture())

	require.NoError(t, err)
	require.Len(t, result.Offerings, 2)

	first := result.Offerings[0]
	assert.Equal(t, "Saç Kesimi", first.Name)
	require.NotNil(t, first.Price)
	assert.Equal(t, 500.0, *first.Price)
	require.NotNil(t, first.DurationMin)
	assert.Equal(t, 45, *first.DurationMin)
	assert.Equal(t, model.PageServiceListing, first.SourcePageType)
	assert.Equal(t, model.ConfidenceHigh, first.Confidence)

	// Explicit null survives as a present key with nil value.
	assert.True(t, first.MetaInfo.HasAttribute("appointment_required"))
	assert.Nil(t, first.MetaInfo["appointment_required"])
	assert.Equal(t, "Ayşe", first.MetaInfo["stylist"])

	second := result.Offerings[1]
	assert.Nil(t, second.Price)
	assert.Equal(t, model.PagePricing, second.SourcePageType)

	// The batch's attribute shape is shared: keys the model only reported
	// for the first offering show up as explicit nils on the second.
	assert.True(t, second.MetaInfo.HasAttribute("stylist"))
	assert.Nil(t, second.MetaInfo["stylist"])

	require.NotNil(t, result.CompanyInfoUpdates)
	assert.Equal(t, "+90 216 987 65 43", result.CompanyInfoUpdates.Phone)
	assert.Empty(t, result.CompanyInfoUpdates.Name)

	require.Len(t, result.KnowledgeBase, 1)
	assert.Equal(t, model.KBContact, result.KnowledgeBase[0].Category)

	// Case-insensitive dedupe keeps one detail link.
	require.Len(t, result.DetailLinks, 1)
	assert.True(t, result.NeedsDetailScraping)
}

func TestExtractFromPages_NoDetailLinksClearsFlag(t *testing.T) {
	resp := `{"offerings": [], "offering_detail_links": [], "needs_detail_scraping": true, "knowledge_base": []}`
	ai := new(mockAIClient)
	ai.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse(resp), nil)

	client := newTestClient(ai)
	result, err := client.ExtractFromPages(context.Background(), "", model.SectorAnalysis{}, model.CompanyInfo{}, scrapedFixture())

	require.NoError(t, err)
	assert.False(t, result.NeedsDetailScraping)
}

func TestExtractFromPages_SkipsNamelessOfferings(t *testing.T) {
	resp := `{"offerings": [{"name": "  ", "type": "SERVICE"}, {"name": "Cilt Bakımı", "type": "SERVICE"}]}`
	ai := new(mockAIClient)
	ai.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse(resp), nil)

	client := newTestClient(ai)
	result, err := client.ExtractFromPages(context.Background(), "", model.SectorAnalysis{}, model.CompanyInfo{}, nil)

	require.NoError(t, err)
	require.Len(t, result.Offerings, 1)
	assert.Equal(t, "Cilt Bakımı", result.Offerings[0].Name)
}

func TestExtractFromPages_MalformedOutput(t *testing.T) {
	ai := new(mockAIClient)
	ai.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse("{\"offerings\": [truncated"), nil)

	client := newTestClient(ai)
	_, err := client.ExtractFromPages(context.Background(), "", model.SectorAnalysis{}, model.CompanyInfo{}, nil)

	var malformed *MalformedOutputError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "extraction", malformed.Operation)
}

func TestEnrichWithDetails_MergesDetailData(t *testing.T) {
	price := 1200.0
	resp := `{
  "enriched_offerings": [
    {
      "name": "Lazer Epilasyon",
      "description": "Tüm vücut lazer epilasyon, Alexandrite cihazı ile.",
      "type": "SERVICE",
      "price": 1200,
      "currency": "TRY",
      "duration_min": 60,
      "source_url": "https://salonelit.example.com/hizmetler/lazer",
      "confidence_level": "HIGH",
      "meta_info": {"device": "Alexandrite", "session_count": 8}
    }
  ]
}`
	ai := new(mockAIClient)
	ai.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse(resp), nil)

	client := newTestClient(ai)
	offerings := []model.Offering{{Name: "Lazer Epilasyon", Type: model.OfferingService, Confidence: model.ConfidenceLow}}
	detailPages := []model.ScrapedPage{{URL: "https://salonelit.example.com/hizmetler/lazer", Markdown: "## Lazer", Type: model.PageServiceDetail}}

	enriched, err := client.EnrichWithDetails(context.Background(), offerings, detailPages, model.SectorAnalysis{Sector: "Güzellik", BusinessType: model.BusinessBeauty})

	require.NoError(t, err)
	require.Len(t, enriched, 1)
	assert.Equal(t, price, *enriched[0].Price)
	assert.Equal(t, model.ConfidenceHigh, enriched[0].Confidence)
	assert.Equal(t, model.PageServiceDetail, enriched[0].SourcePageType)
	assert.Equal(t, float64(8), enriched[0].MetaInfo["session_count"])
}

func TestEnrichWithDetails_NoPagesPassthrough(t *testing.T) {
	ai := new(mockAIClient)
	client := newTestClient(ai)

	offerings := []model.Offering{{Name: "Manikür", Type: model.OfferingService}}
	enriched, err := client.EnrichWithDetails(context.Background(), offerings, nil, model.SectorAnalysis{})

	require.NoError(t, err)
	assert.Equal(t, offerings, enriched)
	ai.AssertNotCalled(t, "CreateMessage")
}

func TestEnrichWithDetails_EmptyResultKeepsOriginals(t *testing.T) {
	ai := new(mockAIClient)
	ai.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse(`{"enriched_offerings": []}`), nil)

	client := newTestClient(ai)
	offerings := []model.Offering{{Name: "Manikür", Type: model.OfferingService}}
	detailPages := []model.ScrapedPage{{URL: "https://x.example.com/d", Markdown: "d"}}

	enriched, err := client.EnrichWithDetails(context.Background(), offerings, detailPages, model.SectorAnalysis{})

	require.NoError(t, err)
	assert.Equal(t, offerings, enriched)
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"prose wrapping", "Here is the result:\n{\"a\": 1}\nDone.", `{"a": 1}`},
		{"whitespace", "  {\"a\": 1}  ", `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanJSON(tt.in))
		})
	}
}

func TestDedupeLinks(t *testing.T) {
	links := []string{
		"https://a.example.com/x",
		"  https://a.example.com/x  ",
		"https://A.example.com/X",
		"",
		"https://b.example.com/y",
	}
	assert.Equal(t, []string{"https://a.example.com/x", "https://b.example.com/y"}, dedupeLinks(links))
}
