package job_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/phrazzld/scry-bulkgen/internal/domain"
	"github.com/phrazzld/scry-bulkgen/internal/mocks"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func candidates(unit string, n int) []domain.CandidateItem {
	items := make([]domain.CandidateItem, n)
	for i := range items {
		items[i] = domain.CandidateItem{
			SequenceID: i + 1,
			Text:       fmt.Sprintf("%s fact number %d is long enough to pass the quality gate.", unit, i+1),
		}
	}
	return items
}

func newStoredJob(t *testing.T, jobs *mocks.MemoryJobStore, units []string, itemsPerUnit int) *domain.Job {
	t.Helper()
	job, err := jobs.Create(context.Background(), units, itemsPerUnit)
	require.NoError(t, err)
	return job
}
