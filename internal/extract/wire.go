package extract

import (
	"strings"

	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/model"
)

// Wire types mirror the snake_case JSON contract the prompts ask the model
// for. They are decoded leniently and converted into the domain types.

type discoveryWire struct {
	SectorAnalysis sectorWire      `json:"sector_analysis"`
	CompanyInfo    companyWire     `json:"company_info"`
	SuggestedPages []suggestedWire `json:"suggested_pages"`
}

type sectorWire struct {
	Sector              string   `json:"sector"`
	SubSector           string   `json:"sub_sector"`
	BusinessType        string   `json:"business_type"`
	BotPurpose          string   `json:"bot_purpose"`
	CriticalDataType    string   `json:"critical_data_type"`
	BotPersonality      string   `json:"bot_personality"`
	ExpectedUserIntent  []string `json:"expected_user_intent"`
	RecommendedFeatures []string `json:"recommended_features"`
}

type companyWire struct {
	Name             string            `json:"name"`
	Sector           string            `json:"sector"`
	SubSector        string            `json:"sub_sector"`
	Description      string            `json:"description"`
	DetectedLanguage string            `json:"detected_language"`
	ToneOfVoice      string            `json:"tone_of_voice"`
	Phone            string            `json:"phone"`
	Email            string            `json:"email"`
	Address          string            `json:"address"`
	WorkingHours     string            `json:"working_hours"`
	SocialMedia      map[string]string `json:"social_media"`
	Website          string            `json:"website"`
}

type suggestedWire struct {
	URL          string `json:"url"`
	Type         string `json:"type"`
	Priority     string `json:"priority"`
	Reason       string `json:"reason"`
	ExpectedData string `json:"expected_data"`
	AutoSelect   bool   `json:"auto_select"`
}

type offeringWire struct {
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	Type            string         `json:"type"`
	Price           *float64       `json:"price"`
	Currency        string         `json:"currency"`
	DurationMin     *int           `json:"duration_min"`
	Category        string         `json:"category"`
	SourceURL       string         `json:"source_url"`
	DetailLink      string         `json:"detail_link,omitempty"`
	ConfidenceLevel string         `json:"confidence_level"`
	MetaInfo        map[string]any `json:"meta_info"`
}

type knowledgeWire struct {
	Category  string `json:"category"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	SourceURL string `json:"source_url"`
}

type extractionWire struct {
	CompanyInfoUpdates  *companyWire    `json:"company_info_updates"`
	Offerings           []offeringWire  `json:"offerings"`
	OfferingDetailLinks []string        `json:"offering_detail_links"`
	NeedsDetailScraping bool            `json:"needs_detail_scraping"`
	KnowledgeBase       []knowledgeWire `json:"knowledge_base"`
}

type enrichmentWire struct {
	EnrichedOfferings []offeringWire `json:"enriched_offerings"`
}

func (w discoveryWire) toModel() *model.DiscoveryResult {
	pages := make([]model.SuggestedPage, 0, len(w.SuggestedPages))
	for _, p := range w.SuggestedPages {
		if p.URL == "" {
			continue
		}
		pages = append(pages, model.SuggestedPage{
			URL:          p.URL,
			Type:         model.PageType(p.Type),
			Priority:     model.PagePriority(p.Priority),
			Reason:       p.Reason,
			ExpectedData: p.ExpectedData,
			AutoSelect:   p.AutoSelect,
		})
	}

	return &model.DiscoveryResult{
		SectorAnalysis: model.SectorAnalysis{
			Sector:              w.SectorAnalysis.Sector,
			SubSector:           w.SectorAnalysis.SubSector,
			BusinessType:        model.BusinessType(w.SectorAnalysis.BusinessType),
			BotPurpose:          model.BotPurpose(w.SectorAnalysis.BotPurpose),
			CriticalDataType:    model.CriticalDataType(w.SectorAnalysis.CriticalDataType),
			BotPersonality:      w.SectorAnalysis.BotPersonality,
			ExpectedUserIntents: w.SectorAnalysis.ExpectedUserIntent,
			RecommendedFeatures: w.SectorAnalysis.RecommendedFeatures,
		},
		CompanyInfo:    w.CompanyInfo.toModel(),
		SuggestedPages: pages,
	}
}

func (w companyWire) toModel() model.CompanyInfo {
	return model.CompanyInfo{
		Name:         w.Name,
		Sector:       w.Sector,
		SubSector:    w.SubSector,
		Description:  w.Description,
		Language:     w.DetectedLanguage,
		Tone:         w.ToneOfVoice,
		Phone:        w.Phone,
		Email:        w.Email,
		Address:      w.Address,
		WorkingHours: w.WorkingHours,
		Website:      w.Website,
		SocialMedia:  w.SocialMedia,
	}
}

func (w extractionWire) toResult(pageTypes map[string]model.PageType) *Result {
	result := &Result{
		Offerings:           wireToOfferings(w.Offerings, pageTypes),
		KnowledgeBase:       make([]model.KnowledgeBaseItem, 0, len(w.KnowledgeBase)),
		DetailLinks:         dedupeLinks(w.OfferingDetailLinks),
		NeedsDetailScraping: w.NeedsDetailScraping,
	}

	if w.CompanyInfoUpdates != nil {
		info := w.CompanyInfoUpdates.toModel()
		result.CompanyInfoUpdates = &info
	}

	for _, kb := range w.KnowledgeBase {
		if kb.Title == "" && kb.Content == "" {
			continue
		}
		result.KnowledgeBase = append(result.KnowledgeBase, model.KnowledgeBaseItem{
			Category:  model.KnowledgeBaseCategory(kb.Category),
			Title:     kb.Title,
			Content:   kb.Content,
			SourceURL: kb.SourceURL,
		})
	}

	if len(result.DetailLinks) == 0 {
		result.NeedsDetailScraping = false
	}
	return result
}

func (w enrichmentWire) toOfferings(pageTypes map[string]model.PageType) []model.Offering {
	return wireToOfferings(w.EnrichedOfferings, pageTypes)
}

func wireToOfferings(wires []offeringWire, pageTypes map[string]model.PageType) []model.Offering {
	out := make([]model.Offering, 0, len(wires))
	for _, o := range wires {
		if strings.TrimSpace(o.Name) == "" {
			continue
		}
		offering := model.Offering{
			Name:        o.Name,
			Type:        model.OfferingType(o.Type),
			Description: o.Description,
			Price:       o.Price,
			Currency:    o.Currency,
			DurationMin: o.DurationMin,
			Category:    o.Category,
			SourceURL:   o.SourceURL,
			Confidence:  model.ConfidenceLevel(o.ConfidenceLevel),
			MetaInfo:    model.MetaInfo(o.MetaInfo),
		}
		if t, ok := pageTypes[strings.ToLower(strings.TrimSpace(o.SourceURL))]; ok {
			offering.SourcePageType = t
		}
		if offering.Type == "" {
			offering.Type = model.OfferingService
		}
		out = append(out, offering)
	}
	return normalizeMetaShape(out)
}

// normalizeMetaShape gives every offering in a batch the union of meta_info
// keys seen across the batch, filling gaps with explicit nils. A key that is
// null means "applies to this domain, not found on the site"; a model that
// omitted the key for one offering must not make that offering look
// un-inspected.
func normalizeMetaShape(offerings []model.Offering) []model.Offering {
	keys := make(map[string]struct{})
	for _, o := range offerings {
		for k := range o.MetaInfo {
			if strings.HasPrefix(k, "_") {
				continue
			}
			keys[k] = struct{}{}
		}
	}
	if len(keys) == 0 {
		return offerings
	}
	expected := make([]string, 0, len(keys))
	for k := range keys {
		expected = append(expected, k)
	}
	for i := range offerings {
		offerings[i].MetaInfo = offerings[i].MetaInfo.NormalizeAttributes(expected)
	}
	return offerings
}

// offeringsToWire renders existing offerings back into the wire shape for
// the enrichment prompt, so the model sees the same schema it must return.
func offeringsToWire(offerings []model.Offering) []offeringWire {
	out := make([]offeringWire, 0, len(offerings))
	for _, o := range offerings {
		out = append(out, offeringWire{
			Name:            o.Name,
			Description:     o.Description,
			Type:            string(o.Type),
			Price:           o.Price,
			Currency:        o.Currency,
			DurationMin:     o.DurationMin,
			Category:        o.Category,
			SourceURL:       o.SourceURL,
			ConfidenceLevel: string(o.Confidence),
			MetaInfo:        map[string]any(o.MetaInfo),
		})
	}
	return out
}

// dedupeLinks removes duplicate detail links case-insensitively while
// keeping first-seen order.
func dedupeLinks(links []string) []string {
	seen := make(map[string]struct{}, len(links))
	out := make([]string, 0, len(links))
	for _, link := range links {
		link = strings.TrimSpace(link)
		if link == "" {
			continue
		}
		key := strings.ToLower(link)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, link)
	}
	return out
}
