// Package task schedules job runs onto a fixed pool of background workers.
// It recovers unfinished jobs at startup, re-queues stale jobs on a cron
// schedule and guarantees that a job is executed by at most one worker at a
// time.
package task
