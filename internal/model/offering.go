package model

import (
	"regexp"
	"time"
)

// OfferingType distinguishes services from products.
type OfferingType string

const (
	OfferingService OfferingType = "SERVICE"
	OfferingProduct OfferingType = "PRODUCT"
)

// customFieldsKey is the reserved meta_info key holding field provenance.
const customFieldsKey = "_custom_fields"

// Offering is a single service or product extracted from a business site.
type Offering struct {
	ID             string          `json:"id,omitempty"`
	TenantID       string          `json:"tenantId,omitempty"`
	Name           string          `json:"name"`
	Type           OfferingType    `json:"type"`
	Description    string          `json:"description,omitempty"`
	Price          *float64        `json:"price,omitempty"`
	Currency       string          `json:"currency,omitempty"`
	DurationMin    *int            `json:"durationMin,omitempty"`
	Category       string          `json:"category,omitempty"`
	ImageURL       string          `json:"imageUrl,omitempty"`
	SourceURL      string          `json:"sourceUrl,omitempty"`
	SourcePageType PageType        `json:"sourcePageType,omitempty"`
	Confidence     ConfidenceLevel `json:"confidence,omitempty"`
	MetaInfo       MetaInfo        `json:"metaInfo,omitempty"`
	CreatedAt      time.Time       `json:"createdAt,omitempty"`
	UpdatedAt      time.Time       `json:"updatedAt,omitempty"`
}

// MetaInfo is the open attribute bag on an offering. A key present with a
// nil value means the attribute applies to this domain but was not found on
// the site; an absent key carries no such claim.
type MetaInfo map[string]any

// CustomFieldMetadata records who added a meta_info key and when. The list
// lives under the reserved _custom_fields key.
type CustomFieldMetadata struct {
	Key       string    `json:"key"`
	Label     string    `json:"label"`
	Type      string    `json:"type"`
	AddedBy   string    `json:"added_by"` // "ai" or "user"
	AddedAt   time.Time `json:"added_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// customKeyRe constrains user-supplied meta_info keys.
var customKeyRe = regexp.MustCompile(`^[a-z0-9_]{1,50}$`)

// ValidCustomFieldKey reports whether key may be used for a custom meta_info
// attribute. Reserved keys are never valid.
func ValidCustomFieldKey(key string) bool {
	if key == customFieldsKey {
		return false
	}
	return customKeyRe.MatchString(key)
}

// CustomFields returns the provenance list stored in meta_info, tolerating
// both typed entries and the generic map shape produced by JSON decoding.
func (m MetaInfo) CustomFields() []CustomFieldMetadata {
	raw, ok := m[customFieldsKey]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []CustomFieldMetadata:
		return v
	case []any:
		out := make([]CustomFieldMetadata, 0, len(v))
		for _, item := range v {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			cf := CustomFieldMetadata{}
			if s, ok := entry["key"].(string); ok {
				cf.Key = s
			}
			if s, ok := entry["label"].(string); ok {
				cf.Label = s
			}
			if s, ok := entry["type"].(string); ok {
				cf.Type = s
			}
			if s, ok := entry["added_by"].(string); ok {
				cf.AddedBy = s
			}
			if s, ok := entry["added_at"].(string); ok {
				if t, err := time.Parse(time.RFC3339, s); err == nil {
					cf.AddedAt = t
				}
			}
			if s, ok := entry["updated_at"].(string); ok {
				if t, err := time.Parse(time.RFC3339, s); err == nil {
					cf.UpdatedAt = t
				}
			}
			out = append(out, cf)
		}
		return out
	}
	return nil
}

// SetCustomFields replaces the provenance list.
func (m MetaInfo) SetCustomFields(fields []CustomFieldMetadata) {
	m[customFieldsKey] = fields
}

// HasAttribute reports whether key exists in the bag, including keys that
// were recorded with an explicit nil value.
func (m MetaInfo) HasAttribute(key string) bool {
	_, ok := m[key]
	return ok
}

// NormalizeAttributes inserts an explicit nil for every expected attribute
// the bag is missing, so downstream consumers can tell "not found" apart
// from "never looked".
func (m MetaInfo) NormalizeAttributes(expected []string) MetaInfo {
	if m == nil {
		m = MetaInfo{}
	}
	for _, key := range expected {
		if _, ok := m[key]; !ok {
			m[key] = nil
		}
	}
	return m
}

// attributeCount counts meta_info entries carrying real values.
func (m MetaInfo) attributeCount() int {
	n := 0
	for k, v := range m {
		if k == customFieldsKey || v == nil {
			continue
		}
		n++
	}
	return n
}

// CompletenessScore ranks how much usable detail an offering carries. Used
// to pick the winner among same-named duplicates.
func (o Offering) CompletenessScore() int {
	score := 0
	if o.Name != "" {
		score++
	}
	if len(o.Description) > 10 {
		score += 2
	}
	if o.Price != nil {
		score += 2
	}
	if o.Category != "" {
		score++
	}
	if o.MetaInfo.attributeCount() > 0 {
		score += 2
	}
	if o.ImageURL != "" {
		score++
	}
	return score
}
