// Package api exposes the onboarding engine over HTTP. It is a thin layer:
// request decoding, error mapping and background kicks live here, all
// business rules stay in the engine.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/model"
	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/onboard"
	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/store"
)

// Server holds the HTTP handlers.
type Server struct {
	engine *onboard.Engine
}

// NewServer creates the API server around an engine.
func NewServer(engine *onboard.Engine) *Server {
	return &Server{engine: engine}
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/onboarding", func(r chi.Router) {
		r.Post("/start", s.handleStart)
		r.Get("/", s.handleListJobs)
		r.Route("/{jobID}", func(r chi.Router) {
			r.Get("/", s.handleGetJob)
			r.Post("/resume", s.handleResume)
			r.Post("/approve", s.handleApprove)
			r.Post("/complete", s.handleComplete)
		})
	})

	r.Route("/api/offerings/{offeringID}", func(r chi.Router) {
		r.Get("/", s.handleGetOffering)
		r.Post("/fields", s.handleAddField)
		r.Put("/fields/{key}", s.handleUpdateField)
		r.Delete("/fields/{key}", s.handleRemoveField)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type startRequest struct {
	URL      string  `json:"url"`
	UserID   string  `json:"userId"`
	TenantID *string `json:"tenantId,omitempty"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	job, err := s.engine.StartOnboarding(r.Context(), req.URL, req.UserID, req.TenantID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.engine.GetJobStatus(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	filter := store.JobFilter{
		Status: model.JobStatus(r.URL.Query().Get("status")),
		UserID: r.URL.Query().Get("userId"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			filter.Limit = n
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			filter.Offset = n
		}
	}

	jobs, err := s.engine.ListJobs(r.Context(), filter)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs, "count": len(jobs)})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, err := s.engine.GetJobStatus(r.Context(), jobID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	// Resuming can run a full scrape+extract cycle; do it off-request.
	bg := context.WithoutCancel(r.Context())
	go func() {
		if _, err := s.engine.ResumeOnboarding(bg, jobID); err != nil {
			zap.L().Error("api: resume failed", zap.String("job_id", jobID), zap.Error(err))
		}
	}()

	writeJSON(w, http.StatusAccepted, job)
}

// approveRequest feeds an external decision back into the job. Kind selects
// which slot the payload fills.
type approveRequest struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var (
		job *model.Job
		err error
	)
	switch req.Kind {
	case "PAGE_SELECTION":
		var sel model.PageSelectionData
		if err := json.Unmarshal(req.Data, &sel); err != nil {
			writeError(w, http.StatusBadRequest, "invalid page selection payload")
			return
		}
		job, err = s.engine.SavePhaseData(r.Context(), jobID, model.PhasePageSelection, &sel)
		if err == nil && job.CurrentPhase == model.PhasePagesScraping {
			bg := context.WithoutCancel(r.Context())
			go func() {
				if _, err := s.engine.ExecutePhase(bg, jobID, model.PhasePagesScraping); err != nil {
					zap.L().Error("api: pages scraping failed", zap.String("job_id", jobID), zap.Error(err))
				}
			}()
		}

	case "COMPANY_REVIEW":
		var review model.CompanyReview
		if err := json.Unmarshal(req.Data, &review); err != nil {
			writeError(w, http.StatusBadRequest, "invalid company review payload")
			return
		}
		job, err = s.engine.SavePhaseData(r.Context(), jobID, "", &review)

	case "OFFERING_SELECTION":
		var sel model.OfferingSelectionData
		if err := json.Unmarshal(req.Data, &sel); err != nil {
			writeError(w, http.StatusBadRequest, "invalid offering selection payload")
			return
		}
		job, err = s.engine.SavePhaseData(r.Context(), jobID, "", &sel)

	default:
		writeError(w, http.StatusBadRequest, "kind must be PAGE_SELECTION, COMPANY_REVIEW or OFFERING_SELECTION")
		return
	}

	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	job, err := s.engine.CompleteOnboarding(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleGetOffering(w http.ResponseWriter, r *http.Request) {
	offering, err := s.engine.GetOffering(r.Context(), chi.URLParam(r, "offeringID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, offering)
}

func (s *Server) handleAddField(w http.ResponseWriter, r *http.Request) {
	var in onboard.CustomFieldInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	offering, err := s.engine.AddCustomField(r.Context(), chi.URLParam(r, "offeringID"), in)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, offering)
}

type updateFieldRequest struct {
	Value any `json:"value"`
}

func (s *Server) handleUpdateField(w http.ResponseWriter, r *http.Request) {
	var req updateFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	offering, err := s.engine.UpdateCustomField(r.Context(), chi.URLParam(r, "offeringID"), chi.URLParam(r, "key"), req.Value)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, offering)
}

func (s *Server) handleRemoveField(w http.ResponseWriter, r *http.Request) {
	offering, err := s.engine.RemoveCustomField(r.Context(), chi.URLParam(r, "offeringID"), chi.URLParam(r, "key"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, offering)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeEngineError maps engine errors onto HTTP statuses. Store lookups
// report missing entities in their message; everything else is a 500.
func writeEngineError(w http.ResponseWriter, err error) {
	var verr *onboard.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Msg)
	case strings.Contains(err.Error(), "not found"):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		zap.L().Error("api: request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
