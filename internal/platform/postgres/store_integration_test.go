//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/scry-bulkgen/internal/domain"
	"github.com/phrazzld/scry-bulkgen/internal/platform/postgres"
	"github.com/phrazzld/scry-bulkgen/internal/store"
	"github.com/phrazzld/scry-bulkgen/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobLifecycle_Integration(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		jobs := postgres.NewPostgresJobStore(tx, nil)

		job, err := jobs.Create(ctx, []string{"Fitness", "Legal"}, 10)
		require.NoError(t, err)

		require.NoError(t, jobs.Update(ctx, job.ID, store.JobUpdate{
			Status:    store.Ptr(domain.JobStatusProcessing),
			StartedAt: store.Ptr(time.Now().UTC()),
		}))
		require.NoError(t, jobs.IncrementCounters(ctx, job.ID, store.CounterDelta{Generated: 10, Saved: 9, Failed: 1}))
		require.NoError(t, jobs.Update(ctx, job.ID, store.JobUpdate{CurrentUnitIndex: store.Ptr(1)}))

		got, err := jobs.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"Fitness", "Legal"}, got.Units)
		assert.Equal(t, domain.JobStatusProcessing, got.Status)
		assert.Equal(t, 1, got.CurrentUnitIndex)
		assert.Equal(t, 10, got.TotalGenerated)
		assert.Equal(t, 9, got.TotalSaved)
		assert.Equal(t, 1, got.TotalFailed)
		assert.NotNil(t, got.StartedAt)

		active, err := jobs.ListActive(ctx)
		require.NoError(t, err)
		assert.Condition(t, func() bool {
			for _, j := range active {
				if j.ID == job.ID {
					return true
				}
			}
			return false
		})

		stale, err := jobs.ListStale(ctx, time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.NotEmpty(t, stale)
	})
}

func TestConcurrentIncrements_Integration(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)
	ctx := context.Background()
	jobs := postgres.NewPostgresJobStore(db, nil)

	job, err := jobs.Create(ctx, []string{"Concurrency"}, 1)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = db.Exec("DELETE FROM generation_jobs WHERE id = $1", job.ID)
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, jobs.IncrementCounters(ctx, job.ID, store.CounterDelta{Generated: 1, Saved: 1}))
		}()
	}
	wg.Wait()

	got, err := jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, got.TotalGenerated)
	assert.Equal(t, 20, got.TotalSaved)
}

func TestContentStoreRejectsDuplicate_Integration(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		jobs := postgres.NewPostgresJobStore(tx, nil)
		items := postgres.NewPostgresContentStore(tx, nil)

		job, err := jobs.Create(ctx, []string{"Fitness"}, 2)
		require.NoError(t, err)

		text := "Resistance training twice a week measurably slows age related muscle loss."
		first, err := domain.DeriveItem(job.ID, "Fitness", domain.Tier1, text)
		require.NoError(t, err)
		_, err = items.Create(ctx, first)
		require.NoError(t, err)

		// Use a savepoint so the failed insert does not abort the outer transaction.
		_, err = tx.ExecContext(ctx, "SAVEPOINT dup")
		require.NoError(t, err)
		second, err := domain.DeriveItem(job.ID, "Fitness", domain.Tier2, "  "+text)
		require.NoError(t, err)
		_, err = items.Create(ctx, second)
		assert.ErrorIs(t, err, store.ErrRejected)
		assert.ErrorIs(t, err, store.ErrItemExists)
		_, err = tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT dup")
		require.NoError(t, err)
	})
}
