package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-bulkgen/internal/api/shared"
	"github.com/phrazzld/scry-bulkgen/internal/platform/logger"
	"github.com/phrazzld/scry-bulkgen/internal/service"
)

// JobHandler exposes the job control plane over HTTP.
type JobHandler struct {
	jobs      service.JobService
	validator *validator.Validate
	logger    *slog.Logger
}

// NewJobHandler creates a JobHandler.
func NewJobHandler(jobs service.JobService, logger *slog.Logger) *JobHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobHandler{
		jobs:      jobs,
		validator: validator.New(),
		logger:    logger.With("component", "job_handler"),
	}
}

// Routes mounts the job endpoints on r.
func (h *JobHandler) Routes(r chi.Router) {
	r.Post("/", h.StartJob)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.GetJobStatus)
		r.Post("/pause", h.PauseJob)
		r.Post("/resume", h.ResumeJob)
		r.Post("/cancel", h.CancelJob)
		r.Post("/recover", h.RecoverJob)
	})
}

// StartJob handles POST /api/jobs. The job runs asynchronously, so a
// successful start answers 202 Accepted.
func (h *JobHandler) StartJob(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req StartJobRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	job, err := h.jobs.Start(r.Context(), req.Units, req.ItemsPerUnit)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Info("job started via API",
		slog.String("job_id", job.ID.String()),
		slog.Int("unit_count", job.TotalUnits()),
		slog.Int("items_per_unit", job.ItemsPerUnit))

	shared.RespondWithJSON(w, r, http.StatusAccepted, jobToResponse(job))
}

// GetJobStatus handles GET /api/jobs/{id}.
func (h *JobHandler) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID, ok := handlePathUUID(w, r, "id")
	if !ok {
		return
	}

	report, err := h.jobs.Status(r.Context(), jobID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, report)
}

// PauseJob handles POST /api/jobs/{id}/pause.
func (h *JobHandler) PauseJob(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, "pause", h.jobs.Pause)
}

// ResumeJob handles POST /api/jobs/{id}/resume.
func (h *JobHandler) ResumeJob(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, "resume", h.jobs.Resume)
}

// CancelJob handles POST /api/jobs/{id}/cancel.
func (h *JobHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, "cancel", h.jobs.Cancel)
}

// RecoverJob handles POST /api/jobs/{id}/recover. The force query
// parameter skips the staleness check.
func (h *JobHandler) RecoverJob(w http.ResponseWriter, r *http.Request) {
	force := false
	if raw := r.URL.Query().Get("force"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid force parameter", err)
			return
		}
		force = parsed
	}

	h.control(w, r, "recover", func(ctx context.Context, jobID uuid.UUID) error {
		return h.jobs.Recover(ctx, jobID, force)
	})
}

func (h *JobHandler) control(
	w http.ResponseWriter,
	r *http.Request,
	action string,
	fn func(ctx context.Context, jobID uuid.UUID) error,
) {
	jobID, ok := handlePathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := fn(r.Context(), jobID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Info("job control request accepted",
		slog.String("job_id", jobID.String()),
		slog.String("action", action))

	shared.RespondWithJSON(w, r, http.StatusAccepted, ControlResponse{JobID: jobID, Action: action})
}
