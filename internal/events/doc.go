// Package events provides types and interfaces for an event-driven architecture.
//
// The job service emits lifecycle events without knowing who consumes them;
// the task package registers a handler that schedules job runs. This keeps
// the service free of a direct dependency on the runner.
//
// The primary components are:
// - JobEvent: a lifecycle event of one job
// - EventHandler: interface for components that can handle events
// - EventEmitter: interface for components that can emit events
package events
