package api

import (
	"context"
	"time"
)

func WithStager(v Stager) func(*ValidatorAPI) {
	return func(impl *ValidatorAPI) {
		impl.stager = v
	}
}

func WithRunner(v Runner) func(*ValidatorAPI) {
	return func(impl *ValidatorAPI) {
		impl.runner = v
	}
}

// WithTimeout sets the linter time budget per request, 0 leaves it to the runner
func WithTimeout(v time.Duration) func(*ValidatorAPI) {
	return func(impl *ValidatorAPI) {
		impl.timeout = v
	}
}

// WithMaxRequestSize caps the size of a request body, 0 disables the limit
func WithMaxRequestSize(v int64) func(*ValidatorAPI) {
	return func(impl *ValidatorAPI) {
		impl.maxRequestSize = v
	}
}

// WithReadinessCheck adds a named check reported by GET /health/ready
func WithReadinessCheck(name string, check func(context.Context) error) func(*ValidatorAPI) {
	return func(impl *ValidatorAPI) {
		impl.readinessChecks[name] = check
	}
}
