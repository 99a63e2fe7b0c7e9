// Package hooks executes named post-install actions attached to
// dependency specs: symlink creation and arbitrary shell commands.
// Hooks are idempotent; re-running a hook converges on the same end
// state instead of failing.
package hooks

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/sysup/pkg/adapter"
	"github.com/arthur-debert/sysup/pkg/errors"
	"github.com/arthur-debert/sysup/pkg/logging"
	"github.com/arthur-debert/sysup/pkg/types"
)

// Executor runs hooks for the installer.
type Executor struct {
	runner adapter.Runner
	home   string
}

// New creates an Executor. home is used to expand ~/ in hook paths.
func New(runner adapter.Runner, home string) *Executor {
	return &Executor{runner: runner, home: home}
}

// Run executes one hook for the named spec.
func (e *Executor) Run(ctx context.Context, specName string, hook types.Hook) error {
	logger := logging.GetLogger("hooks")

	switch hook.Action {
	case types.HookSymlink:
		logger.Debug().
			Str("spec", specName).
			Str("source", hook.Source).
			Str("target", hook.Target).
			Msg("Creating symlink")
		return e.createSymlink(hook.Source, hook.Target)

	case types.HookRun:
		logger.Debug().Str("spec", specName).Str("command", hook.Command).Msg("Running hook command")
		res, err := e.runner.RunShell(ctx, "", hook.Command)
		if err != nil {
			return errors.Wrapf(err, errors.ErrHookExecute,
				"hook command for %q failed", specName).
				WithDetail("exitCode", res.ExitCode).
				WithDetail("stderr", adapter.StderrTail(res, 10))
		}
		return nil
	}

	return errors.Newf(errors.ErrHookExecute, "unknown hook action %q", hook.Action)
}

// createSymlink links target -> source. An existing link pointing at
// the right place is left alone; a wrong link is replaced. A regular
// directory at the target is never removed.
func (e *Executor) createSymlink(source, target string) error {
	source = e.expand(source)
	target = e.expand(target)

	if current, err := os.Readlink(target); err == nil && current == source {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrHookExecute,
			"failed to create parent directory for %s", target)
	}

	if info, err := os.Lstat(target); err == nil {
		if info.IsDir() {
			return errors.Newf(errors.ErrHookExecute,
				"symlink target %s is a directory", target)
		}
		if err := os.Remove(target); err != nil {
			return errors.Wrapf(err, errors.ErrHookExecute,
				"failed to remove existing %s", target)
		}
	}

	if err := os.Symlink(source, target); err != nil {
		return errors.Wrapf(err, errors.ErrHookExecute,
			"failed to create symlink %s -> %s", target, source)
	}
	return nil
}

func (e *Executor) expand(path string) string {
	if strings.HasPrefix(path, "~/") && e.home != "" {
		return filepath.Join(e.home, path[2:])
	}
	return path
}
