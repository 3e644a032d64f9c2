// Package mocks provides centralized mock implementations for testing.
//
// Mocks follow one pattern: a struct with a function field per interface
// method, default behavior when the field is nil, and mutex-guarded call
// tracking for assertions. MemoryJobStore is a complete in-memory JobStore
// with hooks, used wherever a test needs real state transitions.
//
//	provider := &mocks.MockProvider{
//	    GenerateFn: func(ctx context.Context, req generation.Request) (*generation.Response, error) {
//	        return &generation.Response{Text: `{"items":[]}`}, nil
//	    },
//	}
package mocks
