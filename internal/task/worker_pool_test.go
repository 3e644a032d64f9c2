package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_ProcessesTasks(t *testing.T) {
	t.Parallel()

	q := NewTaskQueue(10, testLogger())
	pool := NewWorkerPool(q, WorkerPoolConfig{WorkerCount: 3}, testLogger())

	var wg sync.WaitGroup
	wg.Add(5)
	done := make(chan uuid.UUID, 5)
	pool.SetDoneHandler(func(task Task) {
		done <- task.ID()
		wg.Done()
	})
	pool.Start()
	defer pool.Stop()

	want := make(map[uuid.UUID]bool)
	for i := 0; i < 5; i++ {
		task := newFuncTask(nil)
		want[task.ID()] = true
		require.NoError(t, q.Enqueue(task))
	}

	waitOrFail(t, &wg, 2*time.Second)
	close(done)
	for id := range done {
		assert.True(t, want[id])
	}
}

func TestWorkerPool_ErrorsAndPanics(t *testing.T) {
	t.Parallel()

	q := NewTaskQueue(10, testLogger())
	pool := NewWorkerPool(q, WorkerPoolConfig{WorkerCount: 1}, testLogger())

	var (
		mu     sync.Mutex
		errs   []string
		wg     sync.WaitGroup
		doneOK int
	)
	wg.Add(3)
	pool.SetErrorHandler(func(task Task, err error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, err.Error())
	})
	pool.SetDoneHandler(func(task Task) {
		mu.Lock()
		doneOK++
		mu.Unlock()
		wg.Done()
	})
	pool.Start()
	defer pool.Stop()

	require.NoError(t, q.Enqueue(newFuncTask(func(ctx context.Context) error { return errors.New("boom") })))
	require.NoError(t, q.Enqueue(newFuncTask(func(ctx context.Context) error { panic("kaboom") })))
	require.NoError(t, q.Enqueue(newFuncTask(nil)))

	waitOrFail(t, &wg, 2*time.Second)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, doneOK, "worker survives a panicking task")
	require.Len(t, errs, 2)
	assert.Equal(t, "boom", errs[0])
	assert.Contains(t, errs[1], "kaboom")
}

func TestWorkerPool_StopCancelsRunningTask(t *testing.T) {
	t.Parallel()

	q := NewTaskQueue(1, testLogger())
	pool := NewWorkerPool(q, WorkerPoolConfig{}, testLogger())
	pool.Start()

	started := make(chan struct{})
	result := make(chan error, 1)
	require.NoError(t, q.Enqueue(newFuncTask(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		result <- ctx.Err()
		return ctx.Err()
	})))

	<-started
	pool.Stop()

	select {
	case err := <-result:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("task did not observe cancellation")
	}
}

func waitOrFail(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	t.Helper()
	ch := make(chan struct{})
	go func() {
		wg.Wait()
		close(ch)
	}()
	select {
	case <-ch:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for tasks")
	}
}
