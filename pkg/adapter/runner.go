package adapter

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/arthur-debert/sysup/pkg/errors"
	"github.com/arthur-debert/sysup/pkg/logging"
)

// Result captures one external command invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner executes external package-manager commands. Adapters never
// call os/exec directly, so tests can substitute a fake.
type Runner interface {
	// Run executes a binary with arguments.
	Run(ctx context.Context, name string, args ...string) (Result, error)

	// RunShell executes a shell command line, optionally in dir.
	RunShell(ctx context.Context, dir, command string) (Result, error)

	// LookPath reports where a binary lives, or an error if absent.
	LookPath(name string) (string, error)
}

type execRunner struct{}

// NewRunner returns a Runner backed by os/exec.
func NewRunner() Runner {
	return execRunner{}
}

func (execRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	logging.LogCommand(name, args)
	return runCmd(ctx, exec.CommandContext(ctx, name, args...))
}

func (execRunner) RunShell(ctx context.Context, dir, command string) (Result, error) {
	logging.LogCommand("sh", []string{"-c", command})
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir
	return runCmd(ctx, cmd)
}

func (execRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func runCmd(ctx context.Context, cmd *exec.Cmd) (Result, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	res := Result{
		ExitCode: -1,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if ctx.Err() == context.DeadlineExceeded {
		return res, errors.Wrap(ctx.Err(), errors.ErrTimeout, "command timed out")
	}
	return res, err
}

// StderrTail returns the last n lines of a command's stderr, for
// surfacing the tool's own diagnostics in error details.
func StderrTail(res Result, n int) string {
	lines := strings.Split(strings.TrimRight(res.Stderr, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// commandError builds a structured error carrying the exit code and
// the stderr tail of a failed invocation.
func commandError(err error, code errors.ErrorCode, res Result, what string) error {
	if errors.IsErrorCode(err, errors.ErrTimeout) {
		return errors.Wrap(err, errors.ErrTimeout, what).
			WithDetail("exitCode", res.ExitCode).
			WithDetail("stderr", StderrTail(res, 10))
	}
	return errors.Wrap(err, code, what).
		WithDetail("exitCode", res.ExitCode).
		WithDetail("stderr", StderrTail(res, 10))
}
