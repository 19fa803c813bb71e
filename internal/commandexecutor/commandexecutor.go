package commandexecutor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/neicnordic/bpmn-validator/internal/validationerrors"
)

// waitDelay bounds how long Wait blocks on output pipes held open by orphaned
// grandchildren after the process has been killed
const waitDelay = 2 * time.Second

// Outcome is the captured result of a command that ran to completion, whatever
// its exit status
type Outcome struct {
	ExitOK   bool
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// CommandExecutor is an interface to execute commands towards the os
type CommandExecutor interface {
	// Execute runs name with args in dir without involving a shell. A command
	// that exits non-zero is still returned as an Outcome. The returned error
	// wraps ErrTimeout when ctx expired and ErrRunnerFailure when the command
	// could not be run at all.
	Execute(ctx context.Context, dir, name string, args ...string) (*Outcome, error)
}

type OsCommandExecutor struct {
}

func (OsCommandExecutor) Execute(ctx context.Context, dir, name string, args ...string) (*Outcome, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay
	killProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %s did not finish in time", validationerrors.ErrTimeout, name)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	outcome := &Outcome{
		ExitOK:   err == nil,
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return outcome, nil
	case errors.As(err, &exitErr):
		return outcome, nil
	case errors.Is(err, exec.ErrWaitDelay):
		// the process itself exited, only its output pipes were held open
		outcome.ExitOK = cmd.ProcessState.Success()

		return outcome, nil
	default:
		return nil, fmt.Errorf("%w: %v", validationerrors.ErrRunnerFailure, err)
	}
}
