// Package job drives bulk generation jobs.
//
// The Orchestrator walks a job's units and batches, the BatchGenerator
// produces candidates, and the PersistenceWorker saves them one by one.
// Every expensive step first asks the ControlPoller, which reads the live
// pause and stop flags from the JobStore. All progress is written back to the
// JobStore as it happens, so a job interrupted at any point resumes from its
// last checkpoint.
package job
