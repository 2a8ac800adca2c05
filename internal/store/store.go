package store

import (
	"context"

	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/model"
)

// JobFilter specifies criteria for listing onboarding jobs.
type JobFilter struct {
	Status model.JobStatus `json:"status,omitempty"`
	UserID string          `json:"user_id,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for onboarding jobs, tenants and
// offerings.
type Store interface {
	// Jobs
	CreateJob(ctx context.Context, url, userID string, tenantID *string) (*model.Job, error)
	GetJob(ctx context.Context, jobID string) (*model.Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error)
	UpdateJobPhase(ctx context.Context, jobID string, phase model.Phase, data model.PhaseData) error
	UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus) error
	AppendJobError(ctx context.Context, jobID string, entry model.ErrorLogEntry) error
	SetJobTenant(ctx context.Context, jobID, tenantID string) error

	// Tenants
	UpsertTenant(ctx context.Context, tenant model.Tenant) (*model.Tenant, error)
	GetTenant(ctx context.Context, tenantID string) (*model.Tenant, error)

	// Offerings. SaveOfferings replaces the tenant's offerings wholesale,
	// so a re-run after a partial failure cannot duplicate rows.
	SaveOfferings(ctx context.Context, tenantID string, offerings []model.Offering) ([]model.Offering, error)
	ListOfferings(ctx context.Context, tenantID string) ([]model.Offering, error)
	GetOffering(ctx context.Context, offeringID string) (*model.Offering, error)
	UpdateOfferingMeta(ctx context.Context, offeringID string, meta model.MetaInfo) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
