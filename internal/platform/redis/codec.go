package redis

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-bulkgen/internal/domain"
	"github.com/phrazzld/scry-bulkgen/internal/store"
)

// Hash fields of a job record
const (
	fieldID               = "id"
	fieldUnits            = "units"
	fieldItemsPerUnit     = "items_per_unit"
	fieldStatus           = "status"
	fieldCurrentUnitIndex = "current_unit_index"
	fieldShouldStop       = "should_stop"
	fieldIsPaused         = "is_paused"
	fieldTotalGenerated   = "total_generated"
	fieldTotalSaved       = "total_saved"
	fieldTotalFailed      = "total_failed"
	fieldLastError        = "last_error"
	fieldCreatedAt        = "created_at"
	fieldUpdatedAt        = "updated_at"
	fieldStartedAt        = "started_at"
	fieldCompletedAt      = "completed_at"
)

func encodeJob(job *domain.Job) (map[string]any, error) {
	units, err := json.Marshal(job.Units)
	if err != nil {
		return nil, fmt.Errorf("failed to encode units: %w", err)
	}

	fields := map[string]any{
		fieldID:               job.ID.String(),
		fieldUnits:            string(units),
		fieldItemsPerUnit:     job.ItemsPerUnit,
		fieldStatus:           string(job.Status),
		fieldCurrentUnitIndex: job.CurrentUnitIndex,
		fieldShouldStop:       formatBool(job.ShouldStop),
		fieldIsPaused:         formatBool(job.IsPaused),
		fieldTotalGenerated:   job.TotalGenerated,
		fieldTotalSaved:       job.TotalSaved,
		fieldTotalFailed:      job.TotalFailed,
		fieldLastError:        job.LastError,
		fieldCreatedAt:        formatTime(job.CreatedAt),
		fieldUpdatedAt:        formatTime(job.UpdatedAt),
	}
	if job.StartedAt != nil {
		fields[fieldStartedAt] = formatTime(*job.StartedAt)
	}
	if job.CompletedAt != nil {
		fields[fieldCompletedAt] = formatTime(*job.CompletedAt)
	}
	return fields, nil
}

// encodeUpdate returns the flat field/value list for HSET. updated_at is
// always included.
func encodeUpdate(u store.JobUpdate, now time.Time) []any {
	args := []any{fieldUpdatedAt, formatTime(now)}
	if u.Status != nil {
		args = append(args, fieldStatus, string(*u.Status))
	}
	if u.CurrentUnitIndex != nil {
		args = append(args, fieldCurrentUnitIndex, strconv.Itoa(*u.CurrentUnitIndex))
	}
	if u.ShouldStop != nil {
		args = append(args, fieldShouldStop, formatBool(*u.ShouldStop))
	}
	if u.IsPaused != nil {
		args = append(args, fieldIsPaused, formatBool(*u.IsPaused))
	}
	if u.LastError != nil {
		args = append(args, fieldLastError, *u.LastError)
	}
	if u.StartedAt != nil {
		args = append(args, fieldStartedAt, formatTime(*u.StartedAt))
	}
	if u.CompletedAt != nil {
		args = append(args, fieldCompletedAt, formatTime(*u.CompletedAt))
	}
	return args
}

func decodeJob(fields map[string]string) (*domain.Job, error) {
	var (
		job domain.Job
		err error
	)

	if job.ID, err = uuid.Parse(fields[fieldID]); err != nil {
		return nil, fmt.Errorf("invalid job id: %w", err)
	}
	if err = json.Unmarshal([]byte(fields[fieldUnits]), &job.Units); err != nil {
		return nil, fmt.Errorf("failed to decode units of job %s: %w", job.ID, err)
	}

	ints := []struct {
		field string
		dst   *int
	}{
		{fieldItemsPerUnit, &job.ItemsPerUnit},
		{fieldCurrentUnitIndex, &job.CurrentUnitIndex},
		{fieldTotalGenerated, &job.TotalGenerated},
		{fieldTotalSaved, &job.TotalSaved},
		{fieldTotalFailed, &job.TotalFailed},
	}
	for _, f := range ints {
		if *f.dst, err = parseInt(fields[f.field]); err != nil {
			return nil, fmt.Errorf("invalid %s of job %s: %w", f.field, job.ID, err)
		}
	}

	job.Status = domain.JobStatus(fields[fieldStatus])
	job.ShouldStop = fields[fieldShouldStop] == "1"
	job.IsPaused = fields[fieldIsPaused] == "1"
	job.LastError = fields[fieldLastError]

	if job.CreatedAt, err = parseTime(fields[fieldCreatedAt]); err != nil {
		return nil, fmt.Errorf("invalid created_at of job %s: %w", job.ID, err)
	}
	if job.UpdatedAt, err = parseTime(fields[fieldUpdatedAt]); err != nil {
		return nil, fmt.Errorf("invalid updated_at of job %s: %w", job.ID, err)
	}
	if job.StartedAt, err = parseOptionalTime(fields[fieldStartedAt]); err != nil {
		return nil, fmt.Errorf("invalid started_at of job %s: %w", job.ID, err)
	}
	if job.CompletedAt, err = parseOptionalTime(fields[fieldCompletedAt]); err != nil {
		return nil, fmt.Errorf("invalid completed_at of job %s: %w", job.ID, err)
	}

	return &job, nil
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func parseOptionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseTime(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// score orders the active index by last update, in milliseconds.
func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}
