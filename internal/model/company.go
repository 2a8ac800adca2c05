package model

// CompanyInfo is the business profile assembled across phases. Discovery
// fills what the homepage shows; the scraping phase supplies corrections and
// gaps; the user's review is the final word.
type CompanyInfo struct {
	Name         string            `json:"name,omitempty"`
	Sector       string            `json:"sector,omitempty"`
	SubSector    string            `json:"subSector,omitempty"`
	Description  string            `json:"description,omitempty"`
	Language     string            `json:"language,omitempty"`
	Tone         string            `json:"tone,omitempty"`
	Phone        string            `json:"phone,omitempty"`
	Email        string            `json:"email,omitempty"`
	Address      string            `json:"address,omitempty"`
	WorkingHours string            `json:"workingHours,omitempty"`
	Website      string            `json:"website,omitempty"`
	SocialMedia  map[string]string `json:"socialMedia,omitempty"`
}

// Merge returns a copy of c with every non-empty field of updates applied on
// top. Later phases therefore win field by field, and an update that omits a
// field never erases what an earlier phase found.
func (c CompanyInfo) Merge(updates CompanyInfo) CompanyInfo {
	out := c
	if updates.Name != "" {
		out.Name = updates.Name
	}
	if updates.Sector != "" {
		out.Sector = updates.Sector
	}
	if updates.SubSector != "" {
		out.SubSector = updates.SubSector
	}
	if updates.Description != "" {
		out.Description = updates.Description
	}
	if updates.Language != "" {
		out.Language = updates.Language
	}
	if updates.Tone != "" {
		out.Tone = updates.Tone
	}
	if updates.Phone != "" {
		out.Phone = updates.Phone
	}
	if updates.Email != "" {
		out.Email = updates.Email
	}
	if updates.Address != "" {
		out.Address = updates.Address
	}
	if updates.WorkingHours != "" {
		out.WorkingHours = updates.WorkingHours
	}
	if updates.Website != "" {
		out.Website = updates.Website
	}
	if len(updates.SocialMedia) > 0 {
		merged := make(map[string]string, len(c.SocialMedia)+len(updates.SocialMedia))
		for k, v := range c.SocialMedia {
			merged[k] = v
		}
		for k, v := range updates.SocialMedia {
			merged[k] = v
		}
		out.SocialMedia = merged
	}
	return out
}

// Tenant is the provisioned chatbot account a completed onboarding feeds.
type Tenant struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Sector       string      `json:"sector,omitempty"`
	Website      string      `json:"website,omitempty"`
	SystemPrompt string      `json:"systemPrompt,omitempty"`
	CompanyInfo  CompanyInfo `json:"companyInfo"`
}
