package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-bulkgen/internal/domain"
)

// StartJobRequest is the payload of POST /api/jobs.
type StartJobRequest struct {
	Units        []string `json:"units"          validate:"required,min=1,dive,required"`
	ItemsPerUnit int      `json:"items_per_unit" validate:"required,gt=0"`
}

// JobResponse describes a job right after it was created.
type JobResponse struct {
	JobID        uuid.UUID        `json:"job_id"`
	Status       domain.JobStatus `json:"status"`
	TotalUnits   int              `json:"total_units"`
	ItemsPerUnit int              `json:"items_per_unit"`
	CreatedAt    time.Time        `json:"created_at"`
}

// ControlResponse acknowledges a pause, resume, cancel or recover request.
type ControlResponse struct {
	JobID  uuid.UUID `json:"job_id"`
	Action string    `json:"action"`
}

func jobToResponse(job *domain.Job) JobResponse {
	return JobResponse{
		JobID:        job.ID,
		Status:       job.Status,
		TotalUnits:   job.TotalUnits(),
		ItemsPerUnit: job.ItemsPerUnit,
		CreatedAt:    job.CreatedAt,
	}
}
