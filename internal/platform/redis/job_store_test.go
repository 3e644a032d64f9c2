package redis_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-bulkgen/internal/domain"
	bulkredis "github.com/phrazzld/scry-bulkgen/internal/platform/redis"
	"github.com/phrazzld/scry-bulkgen/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore connects to REDIS_URL and namespaces keys per test.
func newTestStore(t *testing.T) *bulkredis.RedisJobStore {
	t.Helper()

	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set - skipping redis test")
	}

	rdb, err := bulkredis.NewClient(context.Background(), bulkredis.Config{URL: url})
	require.NoError(t, err)

	prefix := "bulkgen-test-" + uuid.NewString()
	t.Cleanup(func() {
		ctx := context.Background()
		keys, _ := rdb.Keys(ctx, prefix+":*").Result()
		if len(keys) > 0 {
			_ = rdb.Del(ctx, keys...).Err()
		}
		_ = rdb.Close()
	})

	return bulkredis.NewRedisJobStore(rdb, prefix, nil)
}

func TestRedisJobStore_Lifecycle(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	job, err := s.Create(ctx, []string{"Fitness", "Legal"}, 10)
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, job.ID, store.JobUpdate{
		Status:    store.Ptr(domain.JobStatusProcessing),
		StartedAt: store.Ptr(time.Now().UTC()),
	}))
	require.NoError(t, s.IncrementCounters(ctx, job.ID, store.CounterDelta{Generated: 10, Saved: 9, Failed: 1}))
	require.NoError(t, s.Update(ctx, job.ID, store.JobUpdate{CurrentUnitIndex: store.Ptr(1)}))

	got, err := s.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusProcessing, got.Status)
	assert.Equal(t, 1, got.CurrentUnitIndex)
	assert.Equal(t, 10, got.TotalGenerated)
	assert.Equal(t, 9, got.TotalSaved)
	assert.Equal(t, 1, got.TotalFailed)
	assert.NotNil(t, got.StartedAt)

	active, err := s.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)

	require.NoError(t, s.Update(ctx, job.ID, store.JobUpdate{IsPaused: store.Ptr(true)}))
	active, err = s.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	stale, err := s.ListStale(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, stale, 1, "paused jobs are still stale candidates")

	require.NoError(t, s.Update(ctx, job.ID, store.JobUpdate{Status: store.Ptr(domain.JobStatusCompleted)}))
	stale, err = s.ListStale(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestRedisJobStore_MissingJob(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	id := uuid.New()

	_, err := s.Get(ctx, id)
	assert.ErrorIs(t, err, store.ErrJobNotFound)
	assert.ErrorIs(t, s.Update(ctx, id, store.JobUpdate{IsPaused: store.Ptr(true)}), store.ErrJobNotFound)
	assert.ErrorIs(t, s.IncrementCounters(ctx, id, store.CounterDelta{Saved: 1}), store.ErrJobNotFound)
	assert.ErrorIs(t, s.IncrementCounters(ctx, id, store.CounterDelta{Saved: -1}), store.ErrInvalidEntity)
}

func TestRedisJobStore_ConcurrentIncrements(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	job, err := s.Create(ctx, []string{"A"}, 1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.IncrementCounters(ctx, job.ID, store.CounterDelta{Generated: 1, Saved: 1}))
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, got.TotalGenerated)
	assert.Equal(t, 50, got.TotalSaved)
}

func TestNewClient_BadURL(t *testing.T) {
	t.Parallel()

	_, err := bulkredis.NewClient(context.Background(), bulkredis.Config{URL: "not a url"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse redis URL")
}
