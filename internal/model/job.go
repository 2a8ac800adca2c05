package model

import "time"

// Phase identifies a step of the onboarding flow.
type Phase string

const (
	PhaseDiscovery       Phase = "DISCOVERY"
	PhasePageSelection   Phase = "PAGE_SELECTION"
	PhasePagesScraping   Phase = "PAGES_SCRAPING"
	PhaseWaitingApproval Phase = "WAITING_APPROVAL"
	PhaseCompletion      Phase = "COMPLETION"
)

// PhaseOrder is the canonical progression of onboarding phases.
var PhaseOrder = []Phase{
	PhaseDiscovery,
	PhasePageSelection,
	PhasePagesScraping,
	PhaseWaitingApproval,
	PhaseCompletion,
}

// NextPhase returns the phase following p, or false when p is the last
// phase or unknown.
func NextPhase(p Phase) (Phase, bool) {
	for i, cur := range PhaseOrder {
		if cur == p {
			if i+1 < len(PhaseOrder) {
				return PhaseOrder[i+1], true
			}
			return "", false
		}
	}
	return "", false
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	for _, cur := range PhaseOrder {
		if cur == p {
			return true
		}
	}
	return false
}

// JobStatus is the lifecycle state of an onboarding job.
type JobStatus string

const (
	JobStatusInProgress JobStatus = "IN_PROGRESS"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// Job is a single onboarding run for one business website.
type Job struct {
	ID           string          `json:"id"`
	TenantID     *string         `json:"tenantId,omitempty"`
	UserID       string          `json:"userId"`
	URL          string          `json:"url"`
	CurrentPhase Phase           `json:"currentPhase"`
	PhaseData    PhaseData       `json:"phaseData"`
	Status       JobStatus       `json:"status"`
	ErrorLog     []ErrorLogEntry `json:"errorLog,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// ErrorLogEntry records one failure observed while running a phase.
// Entries are append-only; a resumed job keeps its full failure history.
type ErrorLogEntry struct {
	Timestamp time.Time    `json:"timestamp"`
	Phase     Phase        `json:"phase"`
	ErrorType string       `json:"errorType"`
	Message   string       `json:"message"`
	Context   ErrorContext `json:"context"`
}

// ErrorContext carries identifying detail alongside an error entry.
type ErrorContext struct {
	JobID string `json:"jobId"`
	URL   string `json:"url,omitempty"`
}

// PhaseData accumulates the output of each completed phase. Fields are only
// ever set, never cleared; a populated field survives retries and resumes.
// The review and selection fields are written by external approval, not by a
// phase handler.
type PhaseData struct {
	Discovery         *DiscoveryResult       `json:"DISCOVERY,omitempty"`
	PageSelection     *PageSelectionData     `json:"PAGE_SELECTION,omitempty"`
	PagesScraping     *PagesScrapingResult   `json:"PAGES_SCRAPING,omitempty"`
	CompanyReview     *CompanyReview         `json:"COMPANY_REVIEW,omitempty"`
	OfferingSelection *OfferingSelectionData `json:"OFFERING_SELECTION,omitempty"`
	Completion        *CompletionData        `json:"COMPLETION,omitempty"`
}

// DiscoveryResult is the output of the discovery phase.
type DiscoveryResult struct {
	SectorAnalysis   SectorAnalysis  `json:"sectorAnalysis"`
	CompanyInfo      CompanyInfo     `json:"companyInfo"`
	SuggestedPages   []SuggestedPage `json:"suggestedPages"`
	HomepageMarkdown string          `json:"homepageMarkdown,omitempty"`
}

// PageSelectionData records which suggested pages the user chose to scrape.
type PageSelectionData struct {
	SelectedPages []SuggestedPage `json:"selectedPages"`
	Skipped       bool            `json:"skipped,omitempty"`
}

// PagesScrapingResult is the output of the pages-scraping phase.
type PagesScrapingResult struct {
	Offerings          []Offering          `json:"offerings"`
	CompanyInfoUpdates *CompanyInfo        `json:"companyInfoUpdates,omitempty"`
	KnowledgeBase      []KnowledgeBaseItem `json:"knowledgeBase,omitempty"`
	ProcessedPages     []string            `json:"processedPages"`
	FailedPages        []FailedPage        `json:"failedPages,omitempty"`
}

// CompanyReview holds the user-corrected company profile.
type CompanyReview struct {
	CompanyInfo CompanyInfo `json:"companyInfo"`
	ReviewedAt  time.Time   `json:"reviewedAt,omitempty"`
}

// OfferingSelectionData records which extracted offerings the user approved.
type OfferingSelectionData struct {
	SelectedOfferings []Offering `json:"selectedOfferings"`
	TotalExtracted    int        `json:"totalExtracted"`
}

// CompletionData summarizes a finished onboarding.
type CompletionData struct {
	TenantID       string    `json:"tenantId"`
	SystemPrompt   string    `json:"systemPrompt"`
	TotalOfferings int       `json:"totalOfferings"`
	CompletedAt    time.Time `json:"completedAt"`
}
