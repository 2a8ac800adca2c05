// Package onboard runs the multi-phase onboarding flow that turns a business
// website into a deployable chatbot configuration. Phases advance in a fixed
// order; two of them pause for external approval and only move forward when
// the approval surface writes its decision back.
package onboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/extract"
	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/model"
	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/resilience"
	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/scrape"
	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/store"
	"github.com/rehberim360/yapay-zeka-chatbot-sub000/pkg/reader"
)

// Config bounds the engine's scraping and suggestion behavior.
type Config struct {
	MaxSuggestedPages int
	MaxDetailPages    int
	ScrapeMinDelay    time.Duration
	ScrapeMaxDelay    time.Duration
}

const (
	defaultMaxSuggestedPages = 10
	defaultMaxDetailPages    = 5
)

// Engine sequences onboarding phases for jobs. It knows how to order and
// persist phases; the per-phase business logic lives in the phase handlers.
type Engine struct {
	store     store.Store
	reader    reader.Client
	extractor extract.Client
	prompts   *PromptBuilder
	cfg       Config
}

// NewEngine wires the engine with its collaborators.
func NewEngine(st store.Store, rd reader.Client, ex extract.Client, prompts *PromptBuilder, cfg Config) *Engine {
	if cfg.MaxSuggestedPages <= 0 {
		cfg.MaxSuggestedPages = defaultMaxSuggestedPages
	}
	if cfg.MaxDetailPages <= 0 {
		cfg.MaxDetailPages = defaultMaxDetailPages
	}
	if prompts == nil {
		prompts = NewPromptBuilder(DefaultPersonaTemplate())
	}
	return &Engine{store: st, reader: rd, extractor: ex, prompts: prompts, cfg: cfg}
}

// newSession opens a fresh scrape session scoped to one phase execution.
// Handlers must Close it on every exit path.
func (e *Engine) newSession() *scrape.Session {
	return scrape.NewSession(e.reader, scrape.Config{
		MinDelay: e.cfg.ScrapeMinDelay,
		MaxDelay: e.cfg.ScrapeMaxDelay,
	})
}

// StartOnboarding creates a job and kicks off discovery in the background.
// The returned job is immediately pollable via GetJobStatus; discovery
// failures are recorded on the job's error log, not surfaced here.
func (e *Engine) StartOnboarding(ctx context.Context, url, userID string, tenantID *string) (*model.Job, error) {
	job, err := e.store.CreateJob(ctx, url, userID, tenantID)
	if err != nil {
		return nil, eris.Wrap(err, "onboard: create job")
	}

	log := zap.L().With(zap.String("job_id", job.ID), zap.String("url", url))
	log.Info("onboard: job created, starting discovery")

	bg := context.WithoutCancel(ctx)
	go func() {
		if _, err := e.ExecutePhase(bg, job.ID, model.PhaseDiscovery); err != nil {
			log.Error("onboard: background discovery failed", zap.Error(err))
		}
	}()

	return job, nil
}

// ExecutePhase runs the handler for one phase of a job. On success the
// handler's output is persisted and the job advances; on failure the error
// is appended to the job's log, the job is marked FAILED and the error
// returned. The externally gated phases return the current job untouched.
func (e *Engine) ExecutePhase(ctx context.Context, jobID string, phase model.Phase) (*model.Job, error) {
	if !phase.Valid() {
		return nil, eris.Errorf("onboard: unknown phase %q", phase)
	}
	job, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, eris.Wrap(err, "onboard: load job")
	}

	log := zap.L().With(zap.String("job_id", jobID), zap.String("phase", string(phase)))
	start := time.Now()

	var phaseErr error
	switch phase {
	case model.PhaseDiscovery:
		var out *model.DiscoveryResult
		if out, phaseErr = e.runDiscovery(ctx, job); phaseErr == nil {
			job, phaseErr = e.SavePhaseData(ctx, jobID, phase, out)
		}

	case model.PhasePageSelection, model.PhaseWaitingApproval:
		// Gated on external input; the approval surface advances the job.
		log.Info("onboard: phase awaits external input")
		return job, nil

	case model.PhasePagesScraping:
		var out *model.PagesScrapingResult
		if out, phaseErr = e.runPagesScraping(ctx, job); phaseErr == nil {
			job, phaseErr = e.SavePhaseData(ctx, jobID, phase, out)
		}

	case model.PhaseCompletion:
		var out *model.CompletionData
		if out, phaseErr = e.runCompletion(ctx, job); phaseErr == nil {
			job, phaseErr = e.SavePhaseData(ctx, jobID, phase, out)
		}
		if phaseErr == nil {
			if phaseErr = e.store.UpdateJobStatus(ctx, jobID, model.JobStatusCompleted); phaseErr == nil {
				job.Status = model.JobStatusCompleted
			}
		}
	}

	duration := time.Since(start).Milliseconds()
	if phaseErr != nil {
		log.Error("onboard: phase failed",
			zap.Int64("duration_ms", duration),
			zap.Error(phaseErr),
		)
		e.recordFailure(ctx, job, phase, phaseErr)
		return nil, phaseErr
	}

	log.Info("onboard: phase complete", zap.Int64("duration_ms", duration))
	return job, nil
}

// ResumeOnboarding re-runs the current phase of a stalled or failed job.
// Handlers are safe to re-run; a completed job is a no-op.
func (e *Engine) ResumeOnboarding(ctx context.Context, jobID string) (*model.Job, error) {
	job, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, eris.Wrap(err, "onboard: load job")
	}
	if job.Status == model.JobStatusCompleted {
		zap.L().Info("onboard: job already completed, nothing to resume", zap.String("job_id", jobID))
		return job, nil
	}
	if job.Status == model.JobStatusFailed {
		if err := e.store.UpdateJobStatus(ctx, jobID, model.JobStatusInProgress); err != nil {
			return nil, eris.Wrap(err, "onboard: reset job status")
		}
	}
	return e.ExecutePhase(ctx, jobID, job.CurrentPhase)
}

// CompleteOnboarding moves a job past the approval gate and runs the
// completion phase. The completion handler enforces its own preconditions.
func (e *Engine) CompleteOnboarding(ctx context.Context, jobID string) (*model.Job, error) {
	job, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, eris.Wrap(err, "onboard: load job")
	}
	if job.Status == model.JobStatusCompleted {
		return job, nil
	}
	switch job.CurrentPhase {
	case model.PhaseWaitingApproval:
		if err := e.store.UpdateJobPhase(ctx, jobID, model.PhaseCompletion, job.PhaseData); err != nil {
			return nil, eris.Wrap(err, "onboard: advance to completion")
		}
	case model.PhaseCompletion:
		// already past the gate, re-run the handler
	default:
		return nil, validationErrorf("job is at %s and not ready for completion", job.CurrentPhase)
	}
	return e.ExecutePhase(ctx, jobID, model.PhaseCompletion)
}

// GetJobStatus returns the job's current phase, status, accumulated phase
// data and error log.
func (e *Engine) GetJobStatus(ctx context.Context, jobID string) (*model.Job, error) {
	job, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, eris.Wrap(err, "onboard: load job")
	}
	return job, nil
}

// ListJobs returns jobs matching the filter.
func (e *Engine) ListJobs(ctx context.Context, filter store.JobFilter) ([]model.Job, error) {
	return e.store.ListJobs(ctx, filter)
}

// GetOffering returns a stored offering by id.
func (e *Engine) GetOffering(ctx context.Context, offeringID string) (*model.Offering, error) {
	return e.store.GetOffering(ctx, offeringID)
}

// SavePhaseData merges data into the job's phase data under its slot and
// persists it. When phase names the job's current phase, the job advances to
// the next phase in order; pass an empty phase for auxiliary writes (company
// review, offering selection) that must not advance the job. The
// read-modify-write is retried so a completed phase's output is not lost to
// a transient store failure.
func (e *Engine) SavePhaseData(ctx context.Context, jobID string, phase model.Phase, data any) (*model.Job, error) {
	cfg := resilience.FixedRetryConfig(3, time.Second)
	cfg.ShouldRetry = func(err error) bool {
		var verr *ValidationError
		return !errors.As(err, &verr)
	}
	cfg.OnRetry = resilience.RetryLogger("store", "save_phase_data")

	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (*model.Job, error) {
		job, err := e.store.GetJob(ctx, jobID)
		if err != nil {
			return nil, eris.Wrap(err, "onboard: load job")
		}
		if err := applyPhaseData(&job.PhaseData, data); err != nil {
			return nil, err
		}

		next := job.CurrentPhase
		if phase.Valid() && phase == job.CurrentPhase {
			if n, ok := model.NextPhase(phase); ok {
				next = n
			}
		}
		if err := e.store.UpdateJobPhase(ctx, jobID, next, job.PhaseData); err != nil {
			return nil, eris.Wrap(err, "onboard: persist phase data")
		}
		job.CurrentPhase = next
		return job, nil
	})
}

// applyPhaseData routes a phase output into its slot. Slots only ever fill
// or get replaced; nothing clears them.
func applyPhaseData(pd *model.PhaseData, data any) error {
	switch v := data.(type) {
	case *model.DiscoveryResult:
		pd.Discovery = v
	case *model.PageSelectionData:
		pd.PageSelection = v
	case *model.PagesScrapingResult:
		pd.PagesScraping = v
	case *model.CompanyReview:
		if err := validateContactInfo(v.CompanyInfo); err != nil {
			return err
		}
		pd.CompanyReview = v
	case *model.OfferingSelectionData:
		pd.OfferingSelection = v
	case *model.CompletionData:
		pd.Completion = v
	default:
		return &ValidationError{Msg: fmt.Sprintf("unsupported phase data type %T", data)}
	}
	return nil
}

// validateContactInfo rejects malformed user-corrected contact fields before
// they are persisted. Blank fields pass; a review may legitimately leave a
// contact channel empty.
func validateContactInfo(info model.CompanyInfo) error {
	if info.Phone != "" && !model.ValidPhone(info.Phone) {
		return validationErrorf("invalid phone number: %s", info.Phone)
	}
	if info.Email != "" && !model.ValidEmail(info.Email) {
		return validationErrorf("invalid email address: %s", info.Email)
	}
	if info.WorkingHours != "" && !model.ValidWorkingHours(info.WorkingHours) {
		return validationErrorf("invalid working hours: %s", info.WorkingHours)
	}
	return nil
}

// recordFailure appends the error to the job log and marks the job FAILED.
// Bookkeeping failures are logged, never allowed to mask the phase error.
func (e *Engine) recordFailure(ctx context.Context, job *model.Job, phase model.Phase, phaseErr error) {
	log := zap.L().With(zap.String("job_id", job.ID), zap.String("phase", string(phase)))

	entry := model.ErrorLogEntry{
		Timestamp: time.Now().UTC(),
		Phase:     phase,
		ErrorType: classifyError(phaseErr),
		Message:   phaseErr.Error(),
		Context:   model.ErrorContext{JobID: job.ID, URL: job.URL},
	}
	if err := e.store.AppendJobError(ctx, job.ID, entry); err != nil {
		log.Warn("onboard: failed to append error log", zap.Error(err))
	}
	if err := e.store.UpdateJobStatus(ctx, job.ID, model.JobStatusFailed); err != nil {
		log.Warn("onboard: failed to mark job failed", zap.Error(err))
	}
}

// classifyError tags a phase failure for the error log.
func classifyError(err error) string {
	var malformed *extract.MalformedOutputError
	var validation *ValidationError
	switch {
	case errors.As(err, &malformed):
		return "AI_PARSING"
	case errors.As(err, &validation):
		return "VALIDATION"
	case errors.Is(err, resilience.ErrCircuitOpen):
		return "SCRAPE_BLOCKED"
	case resilience.IsTransient(err):
		return "TRANSIENT"
	default:
		return "EXECUTION"
	}
}
