// Package adapter abstracts package-manager invocation behind a
// capability interface. Every method is idempotent: calling it twice
// with the same arguments produces the same end state.
package adapter

import (
	"context"

	"github.com/arthur-debert/sysup/pkg/errors"
	"github.com/arthur-debert/sysup/pkg/types"
)

// Adapter is the capability set the installer needs from a package
// manager or install mechanism.
type Adapter interface {
	// Kind names the adapter variant.
	Kind() string

	// IsInstalled reports whether name is present at or above
	// minVersion. It never mutates state and tolerates the manager
	// itself being absent, in which case it reports false.
	IsInstalled(ctx context.Context, spec types.DependencySpec) (bool, error)

	// CurrentVersion returns the installed version of name, or the
	// empty string when it is not installed.
	CurrentVersion(ctx context.Context, name string) (string, error)

	// EnsureManagerPresent installs the underlying manager if it is
	// absent. Installing an already-present manager is a no-op.
	EnsureManagerPresent(ctx context.Context) error

	// Install satisfies the spec through the underlying tool. Errors
	// carry the tool's exit code and stderr tail as details.
	Install(ctx context.Context, spec types.DependencySpec) error

	// UpdateIndex refreshes the manager's package index. The installer
	// calls it at most once per run, before any installs.
	UpdateIndex(ctx context.Context) error
}

// Set holds the adapter variants for one platform profile and
// dispatches on a spec's install strategy.
type Set struct {
	manager  Adapter
	source   Adapter
	download Adapter
}

// NewSet builds the adapter set for a profile. bootstrap maps manager
// names to the command installing the manager itself.
func NewSet(profile types.PlatformProfile, runner Runner, bootstrap map[string]string) (*Set, error) {
	var manager Adapter
	switch profile.PackageManager {
	case types.ManagerHomebrew:
		manager = NewHomebrew(runner, bootstrap[string(types.ManagerHomebrew)])
	case types.ManagerApt:
		manager = NewAptGet(runner)
	default:
		return nil, errors.Newf(errors.ErrUnsupportedPlatform,
			"no adapter for package manager %q", profile.PackageManager)
	}

	return &Set{
		manager:  manager,
		source:   NewSourceBuild(runner),
		download: NewDownloadBinary(runner),
	}, nil
}

// Manager returns the platform's package-manager adapter.
func (s *Set) Manager() Adapter {
	return s.manager
}

// For returns the adapter responsible for a strategy.
func (s *Set) For(strategy types.InstallStrategy) (Adapter, error) {
	switch strategy {
	case types.StrategyPackageManager:
		return s.manager, nil
	case types.StrategySourceBuild:
		return s.source, nil
	case types.StrategyDownloadBinary:
		return s.download, nil
	}
	return nil, errors.Newf(errors.ErrInternal, "no adapter for strategy %q", strategy)
}
