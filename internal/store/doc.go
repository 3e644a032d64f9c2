// Package store defines the persistence boundaries of the generation engine:
// the JobStore holding job progress and control flags, and the ContentStore
// receiving accepted items. Implementations live under internal/platform.
package store
