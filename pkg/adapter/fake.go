package adapter

import (
	"context"
	"fmt"
	"strings"
)

// FakeRunner is a Runner for tests. Commands are keyed by their full
// command line ("brew install autoconf", or the raw shell command for
// RunShell). Unknown commands succeed with empty output.
type FakeRunner struct {
	// Results maps a command line to its result.
	Results map[string]Result

	// Errors maps a command line to the error Run returns alongside
	// the result.
	Errors map[string]error

	// Missing marks binaries LookPath cannot find.
	Missing map[string]bool

	// Calls records every invocation in order.
	Calls []string
}

// NewFakeRunner returns an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		Results: make(map[string]Result),
		Errors:  make(map[string]error),
		Missing: make(map[string]bool),
	}
}

func (f *FakeRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	key := strings.Join(append([]string{name}, args...), " ")
	return f.dispatch(key)
}

func (f *FakeRunner) RunShell(ctx context.Context, dir, command string) (Result, error) {
	return f.dispatch(command)
}

func (f *FakeRunner) LookPath(name string) (string, error) {
	if f.Missing[name] {
		return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
	}
	return "/usr/bin/" + name, nil
}

func (f *FakeRunner) dispatch(key string) (Result, error) {
	f.Calls = append(f.Calls, key)
	res, ok := f.Results[key]
	if !ok {
		res = Result{ExitCode: 0}
	}
	return res, f.Errors[key]
}

// CalledWith reports whether any recorded call contains the fragment.
func (f *FakeRunner) CalledWith(fragment string) bool {
	for _, call := range f.Calls {
		if strings.Contains(call, fragment) {
			return true
		}
	}
	return false
}
