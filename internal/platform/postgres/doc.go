// Package postgres implements the job and content stores on PostgreSQL.
//
// Jobs live in generation_jobs with their units as a JSONB array. Counter
// increments are single UPDATE statements so concurrent writers never lose
// an increment. Accepted items live in generated_items, where a unique index
// on (job_id, unit, content_hash) turns a re-saved item into a rejection
// instead of a duplicate row. The schema is managed with goose migrations
// embedded in the binary.
package postgres
