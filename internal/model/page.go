package model

// PageType classifies what kind of content a site page holds.
type PageType string

const (
	PageServiceListing PageType = "SERVICE_LISTING"
	PageServiceDetail  PageType = "SERVICE_DETAIL"
	PageProductListing PageType = "PRODUCT_LISTING"
	PageProductDetail  PageType = "PRODUCT_DETAIL"
	PageMenu           PageType = "MENU_PAGE"
	PagePricing        PageType = "PRICING_PAGE"
	PageContact        PageType = "CONTACT_PAGE"
	PageAbout          PageType = "ABOUT_PAGE"
	PageFAQ            PageType = "FAQ_PAGE"
	PageHome           PageType = "HOME_PAGE"
)

// PagePriority grades how important a suggested page is for extraction.
type PagePriority string

const (
	PriorityCritical PagePriority = "CRITICAL"
	PriorityHigh     PagePriority = "HIGH"
	PriorityMedium   PagePriority = "MEDIUM"
	PriorityLow      PagePriority = "LOW"
)

// SourceSpecificity ranks page types by how authoritative their offering
// data is: a dedicated detail page beats a listing, which beats everything
// else.
func (t PageType) SourceSpecificity() int {
	switch t {
	case PageServiceDetail, PageProductDetail:
		return 2
	case PageServiceListing, PageProductListing, PageMenu, PagePricing:
		return 1
	default:
		return 0
	}
}

// SuggestedPage is one page the discovery phase proposes for scraping.
type SuggestedPage struct {
	URL          string       `json:"url"`
	Type         PageType     `json:"type"`
	Priority     PagePriority `json:"priority"`
	Reason       string       `json:"reason,omitempty"`
	ExpectedData string       `json:"expectedData,omitempty"`
	AutoSelect   bool         `json:"autoSelect"`
}

// ScrapedPage is the fetched content of one page.
type ScrapedPage struct {
	URL      string   `json:"url"`
	Title    string   `json:"title,omitempty"`
	Markdown string   `json:"markdown"`
	Type     PageType `json:"type,omitempty"`
	Links    []string `json:"links,omitempty"`
}

// FailedPage records a page that could not be scraped. The failure is kept
// alongside successful results instead of aborting the phase.
type FailedPage struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// KnowledgeBaseCategory buckets supporting content for the chatbot.
type KnowledgeBaseCategory string

const (
	KBFAQ     KnowledgeBaseCategory = "FAQ"
	KBAbout   KnowledgeBaseCategory = "ABOUT"
	KBContact KnowledgeBaseCategory = "CONTACT"
	KBTeam    KnowledgeBaseCategory = "TEAM"
	KBPolicy  KnowledgeBaseCategory = "POLICY"
	KBOther   KnowledgeBaseCategory = "OTHER"
)

// KnowledgeBaseItem is a piece of non-offering site content worth keeping
// for the chatbot to answer from.
type KnowledgeBaseItem struct {
	Category  KnowledgeBaseCategory `json:"category"`
	Title     string                `json:"title"`
	Content   string                `json:"content"`
	SourceURL string                `json:"sourceUrl,omitempty"`
}
