package hooks_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/sysup/pkg/adapter"
	sysuperrors "github.com/arthur-debert/sysup/pkg/errors"
	"github.com/arthur-debert/sysup/pkg/hooks"
	"github.com/arthur-debert/sysup/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymlinkHookCreatesLink(t *testing.T) {
	home := t.TempDir()
	source := filepath.Join(home, "opt", "tool", "bin", "tool")
	require.NoError(t, os.MkdirAll(filepath.Dir(source), 0755))
	require.NoError(t, os.WriteFile(source, []byte("#!/bin/sh\n"), 0755))

	e := hooks.New(adapter.NewFakeRunner(), home)
	hook := types.Hook{Action: types.HookSymlink, Source: source, Target: "~/bin/tool"}
	require.NoError(t, e.Run(context.Background(), "tool", hook))

	got, err := os.Readlink(filepath.Join(home, "bin", "tool"))
	require.NoError(t, err)
	assert.Equal(t, source, got)
}

func TestSymlinkHookIsIdempotent(t *testing.T) {
	home := t.TempDir()
	e := hooks.New(adapter.NewFakeRunner(), home)
	hook := types.Hook{Action: types.HookSymlink, Source: "/usr/bin/doxygen", Target: "~/bin/doxygen"}

	require.NoError(t, e.Run(context.Background(), "doxygen", hook))
	require.NoError(t, e.Run(context.Background(), "doxygen", hook))

	got, err := os.Readlink(filepath.Join(home, "bin", "doxygen"))
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/doxygen", got)
}

func TestSymlinkHookReplacesWrongLink(t *testing.T) {
	home := t.TempDir()
	target := filepath.Join(home, "bin", "tool")
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0755))
	require.NoError(t, os.Symlink("/old/place", target))

	e := hooks.New(adapter.NewFakeRunner(), home)
	hook := types.Hook{Action: types.HookSymlink, Source: "/new/place", Target: target}
	require.NoError(t, e.Run(context.Background(), "tool", hook))

	got, err := os.Readlink(target)
	require.NoError(t, err)
	assert.Equal(t, "/new/place", got)
}

func TestSymlinkHookRefusesDirectoryTarget(t *testing.T) {
	home := t.TempDir()
	target := filepath.Join(home, "existing-dir")
	require.NoError(t, os.MkdirAll(target, 0755))

	e := hooks.New(adapter.NewFakeRunner(), home)
	hook := types.Hook{Action: types.HookSymlink, Source: "/x", Target: target}
	err := e.Run(context.Background(), "tool", hook)

	require.Error(t, err)
	assert.True(t, sysuperrors.IsErrorCode(err, sysuperrors.ErrHookExecute))
}

func TestRunHook(t *testing.T) {
	runner := adapter.NewFakeRunner()
	e := hooks.New(runner, t.TempDir())

	hook := types.Hook{Action: types.HookRun, Command: "ldconfig"}
	require.NoError(t, e.Run(context.Background(), "openssl", hook))
	assert.True(t, runner.CalledWith("ldconfig"))
}

func TestRunHookFailureCarriesDetail(t *testing.T) {
	runner := adapter.NewFakeRunner()
	runner.Results["ldconfig"] = adapter.Result{ExitCode: 1, Stderr: "permission denied\n"}
	runner.Errors["ldconfig"] = errors.New("exit status 1")

	e := hooks.New(runner, t.TempDir())
	err := e.Run(context.Background(), "openssl", types.Hook{Action: types.HookRun, Command: "ldconfig"})

	require.Error(t, err)
	assert.True(t, sysuperrors.IsErrorCode(err, sysuperrors.ErrHookExecute))
	assert.Contains(t, sysuperrors.GetErrorDetails(err)["stderr"], "permission denied")
}
