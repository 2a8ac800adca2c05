package onboard

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/model"
)

// ValidationError marks a rejected user mutation. The API layer maps it to a
// 400 instead of a 500.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// CustomFieldInput is a user-supplied meta_info attribute.
type CustomFieldInput struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type,omitempty"`
	Value any    `json:"value"`
}

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

// sanitizeValue strips HTML from string values, including strings nested in
// arrays. Non-string values pass through.
func sanitizeValue(v any) any {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(htmlTagRe.ReplaceAllString(val, ""))
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = sanitizeValue(item)
		}
		return out
	default:
		return v
	}
}

// AddCustomField attaches a new user-defined attribute to a stored offering.
// The key must be unused; collisions with AI-discovered attributes are
// rejected rather than overwritten.
func (e *Engine) AddCustomField(ctx context.Context, offeringID string, in CustomFieldInput) (*model.Offering, error) {
	if !model.ValidCustomFieldKey(in.Key) {
		return nil, validationErrorf("invalid field key %q: must match ^[a-z0-9_]{1,50}$", in.Key)
	}
	if strings.TrimSpace(in.Label) == "" {
		return nil, validationErrorf("field label is required")
	}

	offering, err := e.store.GetOffering(ctx, offeringID)
	if err != nil {
		return nil, eris.Wrap(err, "onboard: load offering")
	}
	if offering.MetaInfo == nil {
		offering.MetaInfo = model.MetaInfo{}
	}
	if offering.MetaInfo.HasAttribute(in.Key) {
		return nil, validationErrorf("field %q already exists on this offering", in.Key)
	}

	now := time.Now().UTC()
	offering.MetaInfo[in.Key] = sanitizeValue(in.Value)
	offering.MetaInfo.SetCustomFields(append(offering.MetaInfo.CustomFields(), model.CustomFieldMetadata{
		Key:       in.Key,
		Label:     strings.TrimSpace(in.Label),
		Type:      in.Type,
		AddedBy:   "user",
		AddedAt:   now,
		UpdatedAt: now,
	}))

	if err := e.store.UpdateOfferingMeta(ctx, offeringID, offering.MetaInfo); err != nil {
		return nil, eris.Wrap(err, "onboard: save offering meta")
	}
	return offering, nil
}

// UpdateCustomField replaces the value of an existing meta_info attribute.
// Both AI-discovered and user-added attributes can be updated.
func (e *Engine) UpdateCustomField(ctx context.Context, offeringID, key string, value any) (*model.Offering, error) {
	if !model.ValidCustomFieldKey(key) {
		return nil, validationErrorf("invalid field key %q", key)
	}

	offering, err := e.store.GetOffering(ctx, offeringID)
	if err != nil {
		return nil, eris.Wrap(err, "onboard: load offering")
	}
	if !offering.MetaInfo.HasAttribute(key) {
		return nil, validationErrorf("field %q does not exist on this offering", key)
	}

	offering.MetaInfo[key] = sanitizeValue(value)

	fields := offering.MetaInfo.CustomFields()
	for i := range fields {
		if fields[i].Key == key {
			fields[i].UpdatedAt = time.Now().UTC()
			offering.MetaInfo.SetCustomFields(fields)
			break
		}
	}

	if err := e.store.UpdateOfferingMeta(ctx, offeringID, offering.MetaInfo); err != nil {
		return nil, eris.Wrap(err, "onboard: save offering meta")
	}
	return offering, nil
}

// RemoveCustomField deletes a user-added attribute. AI-discovered attributes
// cannot be removed this way; they carry the null-for-missing contract.
func (e *Engine) RemoveCustomField(ctx context.Context, offeringID, key string) (*model.Offering, error) {
	offering, err := e.store.GetOffering(ctx, offeringID)
	if err != nil {
		return nil, eris.Wrap(err, "onboard: load offering")
	}
	if !offering.MetaInfo.HasAttribute(key) {
		return nil, validationErrorf("field %q does not exist on this offering", key)
	}

	fields := offering.MetaInfo.CustomFields()
	idx := -1
	for i, f := range fields {
		if f.Key == key && f.AddedBy == "user" {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, validationErrorf("field %q was discovered by extraction and cannot be removed", key)
	}

	delete(offering.MetaInfo, key)
	offering.MetaInfo.SetCustomFields(append(fields[:idx], fields[idx+1:]...))

	if err := e.store.UpdateOfferingMeta(ctx, offeringID, offering.MetaInfo); err != nil {
		return nil, eris.Wrap(err, "onboard: save offering meta")
	}
	return offering, nil
}
