// Package runner invokes the external linter against a staged diagram and
// normalises its output into a ValidationResult.
package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/neicnordic/bpmn-validator/internal/commandexecutor"
	"github.com/neicnordic/bpmn-validator/internal/lintconfig"
	"github.com/neicnordic/bpmn-validator/internal/metrics"
	"github.com/neicnordic/bpmn-validator/internal/validationerrors"
	"github.com/neicnordic/bpmn-validator/model"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/semaphore"
)

const DefaultTimeout = 30 * time.Second

// invocation states, logged for every run
const (
	stateRunning               = "running"
	stateCompletedClean        = "completed_clean"
	stateCompletedWithFindings = "completed_with_findings"
	stateTimedOut              = "timed_out"
	stateCrashedNoOutput       = "crashed_no_output"
)

var tracer = otel.Tracer("github.com/neicnordic/bpmn-validator/internal/runner")

type Runner struct {
	commandExecutor commandexecutor.CommandExecutor
	lintConfig      *lintconfig.Writer
	command         string
	args            []string
	timeout         time.Duration
	maxConcurrent   int64

	slots *semaphore.Weighted
}

func NewRunner(options ...func(*Runner)) (*Runner, error) {
	r := &Runner{
		timeout: DefaultTimeout,
	}

	for _, option := range options {
		option(r)
	}

	if r.commandExecutor == nil {
		return nil, errors.New("commandExecutor is required")
	}
	if r.lintConfig == nil {
		return nil, errors.New("lintConfig is required")
	}
	if r.command == "" {
		return nil, errors.New("command is required")
	}
	if r.timeout <= 0 {
		return nil, errors.New("timeout must be positive")
	}
	if r.maxConcurrent < 0 {
		return nil, errors.New("maxConcurrent can not be negative")
	}
	if r.maxConcurrent > 0 {
		r.slots = semaphore.NewWeighted(r.maxConcurrent)
	}

	return r, nil
}

// Timeout returns the default time budget of a run
func (r *Runner) Timeout() time.Duration {
	return r.timeout
}

// Command returns the linter executable
func (r *Runner) Command() string {
	return r.command
}

// Run lints the file at path. A timeout of zero or less uses the runner's
// default budget.
//
// Findings are parsed whenever stdout contains finding lines, even if the linter
// exited non-zero, since that is how it signals that findings exist. A non-zero
// exit without any finding lines is reported as ErrRunnerFailure and an expired
// budget as ErrTimeout.
func (r *Runner) Run(ctx context.Context, path string, timeout time.Duration) (result *model.ValidationResult, err error) {
	if r == nil {
		return nil, validationerrors.ErrRunnerNotInitialized
	}
	if timeout <= 0 {
		timeout = r.timeout
	}

	ctx, span := tracer.Start(ctx, "runner.Run")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.String("validation.status", result.Status),
				attribute.Int("validation.problems", len(result.Problems)),
			)
		}
		span.End()
	}()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}

	if err := r.lintConfig.Ensure(); err != nil {
		metrics.ValidationsTotal.WithLabelValues(metrics.OutcomeConfiguration).Inc()

		return nil, fmt.Errorf("%w: %v", validationerrors.ErrConfiguration, err)
	}

	if r.slots != nil {
		if err := r.slots.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("failed to acquire validation slot: %w", err)
		}
		defer r.slots.Release(1)
	}

	logger := log.WithFields(log.Fields{"path": absPath, "command": r.command})
	logger.Debugf("validation state: %s", stateRunning)

	// Only the timeout stops the linter, a client going away does not
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	start := time.Now()
	args := append(append(make([]string, 0, len(r.args)+1), r.args...), absPath)
	outcome, err := r.commandExecutor.Execute(runCtx, r.lintConfig.Dir(), r.command, args...)
	metrics.ValidationDuration.Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, validationerrors.ErrTimeout):
		logger.Debugf("validation state: %s", stateTimedOut)
		metrics.ValidationsTotal.WithLabelValues(metrics.OutcomeTimeout).Inc()

		return nil, err
	case err != nil:
		logger.Debugf("validation state: %s", stateCrashedNoOutput)
		metrics.ValidationsTotal.WithLabelValues(metrics.OutcomeRunnerFailure).Inc()

		return nil, err
	}

	stdout := string(outcome.Stdout)
	if !outcome.ExitOK && !containsFindings(stdout) {
		logger.Debugf("validation state: %s", stateCrashedNoOutput)
		metrics.ValidationsTotal.WithLabelValues(metrics.OutcomeRunnerFailure).Inc()

		return nil, fmt.Errorf("%w: %s exited with status %d: %s", validationerrors.ErrRunnerFailure, r.command, outcome.ExitCode, firstLine(outcome.Stderr))
	}

	result = newResult(stdout)
	result.Stderr = string(outcome.Stderr)
	result.ExitCode = outcome.ExitCode

	state, outcomeLabel := stateCompletedClean, metrics.OutcomeClean
	if len(result.Problems) > 0 {
		state, outcomeLabel = stateCompletedWithFindings, metrics.OutcomeFindings
	}
	logger.Debugf("validation state: %s", state)
	metrics.ValidationsTotal.WithLabelValues(outcomeLabel).Inc()
	for _, finding := range result.Problems {
		metrics.FindingsTotal.WithLabelValues(finding.Type).Inc()
	}

	return result, nil
}

func newResult(stdout string) *model.ValidationResult {
	findings, summary := ParseOutput(stdout)

	status := model.StatusSuccess
	if len(findings) > 0 {
		status = model.StatusValidationIssues
	}

	return &model.ValidationResult{
		Status:   status,
		Problems: findings,
		Summary:  summary,
		Stdout:   stdout,
	}
}

func firstLine(output []byte) string {
	lines := outputLines(string(output))
	if len(lines) == 0 {
		return "no output"
	}

	return lines[0]
}
