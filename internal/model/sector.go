package model

// BusinessType is the coarse classification of the business behind a site.
type BusinessType string

const (
	BusinessHealthcare    BusinessType = "HEALTHCARE"
	BusinessFood          BusinessType = "FOOD"
	BusinessRealEstate    BusinessType = "REAL_ESTATE"
	BusinessLegal         BusinessType = "LEGAL"
	BusinessBeauty        BusinessType = "BEAUTY"
	BusinessEducation     BusinessType = "EDUCATION"
	BusinessRetail        BusinessType = "RETAIL"
	BusinessService       BusinessType = "SERVICE"
	BusinessAutomotive    BusinessType = "AUTOMOTIVE"
	BusinessFinance       BusinessType = "FINANCE"
	BusinessHospitality   BusinessType = "HOSPITALITY"
	BusinessFitness       BusinessType = "FITNESS"
	BusinessEntertainment BusinessType = "ENTERTAINMENT"
	BusinessOther         BusinessType = "OTHER"
)

// BotPurpose is the primary action the chatbot should drive for this business.
type BotPurpose string

const (
	PurposeAppointment BotPurpose = "APPOINTMENT"
	PurposeReservation BotPurpose = "RESERVATION"
	PurposeBooking     BotPurpose = "BOOKING"
	PurposeOrder       BotPurpose = "ORDER"
	PurposeLead        BotPurpose = "LEAD"
	PurposeInfo        BotPurpose = "INFO"
	PurposeSupport     BotPurpose = "SUPPORT"
)

// CriticalDataType names the offering category that matters most for the bot.
type CriticalDataType string

const (
	DataServices  CriticalDataType = "SERVICES"
	DataProducts  CriticalDataType = "PRODUCTS"
	DataMenu      CriticalDataType = "MENU"
	DataPortfolio CriticalDataType = "PORTFOLIO"
)

// ConfidenceLevel grades how certain an extracted value is.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "LOW"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceHigh   ConfidenceLevel = "HIGH"
)

// SectorAnalysis is the model's read of what kind of business a site belongs
// to and what its chatbot should be optimized for.
type SectorAnalysis struct {
	Sector              string           `json:"sector"`
	SubSector           string           `json:"subSector,omitempty"`
	BusinessType        BusinessType     `json:"businessType"`
	BotPurpose          BotPurpose       `json:"botPurpose"`
	CriticalDataType    CriticalDataType `json:"criticalDataType"`
	BotPersonality      string           `json:"botPersonality,omitempty"`
	ExpectedUserIntents []string         `json:"expectedUserIntents,omitempty"`
	RecommendedFeatures []string         `json:"recommendedFeatures,omitempty"`
	Confidence          ConfidenceLevel  `json:"confidence,omitempty"`
}
