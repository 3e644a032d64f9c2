package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-bulkgen/internal/domain"
	"github.com/phrazzld/scry-bulkgen/internal/platform/logger"
	"github.com/phrazzld/scry-bulkgen/internal/store"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces every key written by the store.
const DefaultKeyPrefix = "bulkgen"

// reindex keeps the active index in step with the job hash: terminal jobs
// leave the index, every other job is rescored by its last update.
const reindex = `
local st = redis.call('HGET', KEYS[1], 'status')
if st == 'completed' or st == 'failed' or st == 'cancelled' then
	redis.call('ZREM', KEYS[2], ARGV[1])
else
	redis.call('ZADD', KEYS[2], ARGV[2], ARGV[1])
end
return 1
`

// updateScript applies field/value pairs from ARGV[3] on, only if the job exists.
var updateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return 0 end
redis.call('HSET', KEYS[1], unpack(ARGV, 3))
` + reindex)

// incrementScript adds ARGV[4..6] to the counters and stamps ARGV[3] as
// updated_at, only if the job exists.
var incrementScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return 0 end
redis.call('HINCRBY', KEYS[1], 'total_generated', ARGV[4])
redis.call('HINCRBY', KEYS[1], 'total_saved', ARGV[5])
redis.call('HINCRBY', KEYS[1], 'total_failed', ARGV[6])
redis.call('HSET', KEYS[1], 'updated_at', ARGV[3])
` + reindex)

// RedisJobStore implements store.JobStore with one hash per job and a
// sorted set indexing non-terminal jobs by last update.
type RedisJobStore struct {
	rdb    redis.UniversalClient
	prefix string
	logger *slog.Logger
	now    func() time.Time
}

var _ store.JobStore = (*RedisJobStore)(nil)

// NewRedisJobStore creates a RedisJobStore. An empty prefix selects
// DefaultKeyPrefix.
func NewRedisJobStore(rdb redis.UniversalClient, prefix string, logger *slog.Logger) *RedisJobStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisJobStore{
		rdb:    rdb,
		prefix: prefix,
		logger: logger.With(slog.String("component", "redis_job_store")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *RedisJobStore) jobKey(id uuid.UUID) string {
	return fmt.Sprintf("%s:job:%s", s.prefix, id)
}

func (s *RedisJobStore) indexKey() string {
	return s.prefix + ":jobs:active"
}

// Create writes the job hash and its index entry in one MULTI block.
func (s *RedisJobStore) Create(ctx context.Context, units []string, itemsPerUnit int) (*domain.Job, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	job, err := domain.NewJob(units, itemsPerUnit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	fields, err := encodeJob(job)
	if err != nil {
		return nil, err
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.jobKey(job.ID), fields)
		pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: score(job.UpdatedAt), Member: job.ID.String()})
		return nil
	})
	if err != nil {
		log.Error("failed to create job",
			slog.String("job_id", job.ID.String()),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return job, nil
}

// Get reads the job hash.
func (s *RedisJobStore) Get(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	fields, err := s.rdb.HGetAll(ctx, s.jobKey(id)).Result()
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get job",
			slog.String("job_id", id.String()),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	if len(fields) == 0 {
		return nil, store.ErrJobNotFound
	}
	return decodeJob(fields)
}

// Update writes the set fields of update atomically.
func (s *RedisJobStore) Update(ctx context.Context, id uuid.UUID, update store.JobUpdate) error {
	now := s.now()
	args := append([]any{id.String(), score(now)}, encodeUpdate(update, now)...)

	ok, err := updateScript.Run(ctx, s.rdb, []string{s.jobKey(id), s.indexKey()}, args...).Int()
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update job",
			slog.String("job_id", id.String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to update job: %w", err)
	}
	if ok == 0 {
		return store.ErrJobNotFound
	}
	return nil
}

// IncrementCounters adds delta with HINCRBY inside one script.
func (s *RedisJobStore) IncrementCounters(ctx context.Context, id uuid.UUID, delta store.CounterDelta) error {
	if !delta.Valid() {
		return fmt.Errorf("%w: negative counter delta", store.ErrInvalidEntity)
	}

	now := s.now()
	args := []any{
		id.String(),
		score(now),
		formatTime(now),
		strconv.Itoa(delta.Generated),
		strconv.Itoa(delta.Saved),
		strconv.Itoa(delta.Failed),
	}
	ok, err := incrementScript.Run(ctx, s.rdb, []string{s.jobKey(id), s.indexKey()}, args...).Int()
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to increment job counters",
			slog.String("job_id", id.String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to increment job counters: %w", err)
	}
	if ok == 0 {
		return store.ErrJobNotFound
	}
	return nil
}

// ListStale returns indexed jobs whose last update is before olderThan.
func (s *RedisJobStore) ListStale(ctx context.Context, olderThan time.Time) ([]*domain.Job, error) {
	ids, err := s.rdb.ZRangeByScore(ctx, s.indexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(olderThan.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list stale jobs: %w", err)
	}

	jobs, err := s.load(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := jobs[:0]
	for _, job := range jobs {
		if job.UpdatedAt.Before(olderThan) {
			out = append(out, job)
		}
	}
	return out, nil
}

// ListActive returns indexed jobs that are not paused.
func (s *RedisJobStore) ListActive(ctx context.Context) ([]*domain.Job, error) {
	ids, err := s.rdb.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list active jobs: %w", err)
	}

	jobs, err := s.load(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := jobs[:0]
	for _, job := range jobs {
		if !job.IsPaused {
			out = append(out, job)
		}
	}
	return out, nil
}

// load fetches the hashes of ids in one pipeline. Index entries whose hash
// has gone are skipped; terminal jobs are filtered out.
func (s *RedisJobStore) load(ctx context.Context, ids []string) ([]*domain.Job, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, raw := range ids {
			id, err := uuid.Parse(raw)
			if err != nil {
				return fmt.Errorf("invalid job id %q in index: %w", raw, err)
			}
			cmds[i] = pipe.HGetAll(ctx, s.jobKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load jobs: %w", err)
	}

	jobs := make([]*domain.Job, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			log.Warn("indexed job has no record", slog.String("job_id", ids[i]))
			continue
		}
		job, err := decodeJob(fields)
		if err != nil {
			return nil, err
		}
		if job.Status.IsTerminal() {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
