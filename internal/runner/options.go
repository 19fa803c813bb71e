package runner

import (
	"time"

	"github.com/neicnordic/bpmn-validator/internal/commandexecutor"
	"github.com/neicnordic/bpmn-validator/internal/lintconfig"
)

func CommandExecutor(v commandexecutor.CommandExecutor) func(*Runner) {
	return func(r *Runner) {
		r.commandExecutor = v
	}
}

// LintConfig sets the writer of the linter configuration, its directory is the
// working directory of the linter
func LintConfig(v *lintconfig.Writer) func(*Runner) {
	return func(r *Runner) {
		r.lintConfig = v
	}
}

// Command sets the linter executable and the arguments placed before the path
func Command(name string, args ...string) func(*Runner) {
	return func(r *Runner) {
		r.command = name
		r.args = args
	}
}

func Timeout(v time.Duration) func(*Runner) {
	return func(r *Runner) {
		r.timeout = v
	}
}

// MaxConcurrent caps the number of linter processes running at once, 0 means no limit
func MaxConcurrent(v int64) func(*Runner) {
	return func(r *Runner) {
		r.maxConcurrent = v
	}
}
