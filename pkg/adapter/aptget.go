package adapter

import (
	"context"
	"strings"

	"github.com/arthur-debert/sysup/pkg/errors"
	"github.com/arthur-debert/sysup/pkg/logging"
	"github.com/arthur-debert/sysup/pkg/types"
)

// AptGet drives apt-get and dpkg-query on Debian-family systems.
type AptGet struct {
	runner Runner
}

// NewAptGet creates the apt adapter.
func NewAptGet(runner Runner) *AptGet {
	return &AptGet{runner: runner}
}

func (a *AptGet) Kind() string {
	return string(types.ManagerApt)
}

func (a *AptGet) IsInstalled(ctx context.Context, spec types.DependencySpec) (bool, error) {
	version, err := a.CurrentVersion(ctx, spec.PackageName())
	if err != nil {
		return false, err
	}
	if version == "" {
		return false, nil
	}
	return versionSatisfies(version, spec.MinVersion), nil
}

func (a *AptGet) CurrentVersion(ctx context.Context, name string) (string, error) {
	if _, err := a.runner.LookPath("dpkg-query"); err != nil {
		return "", nil
	}

	res, err := a.runner.Run(ctx, "dpkg-query", "-W", "-f=${Version}", name)
	if err != nil || res.ExitCode != 0 {
		// dpkg-query exits non-zero for packages it has never seen.
		return "", nil
	}
	return strings.TrimSpace(res.Stdout), nil
}

func (a *AptGet) EnsureManagerPresent(ctx context.Context) error {
	// apt-get ships with the OS; a Debian box without it is broken
	// beyond anything sysup should try to repair.
	if _, err := a.runner.LookPath("apt-get"); err != nil {
		return errors.Wrap(err, errors.ErrManagerInstall, "apt-get not found on a Debian-family system")
	}
	return nil
}

func (a *AptGet) Install(ctx context.Context, spec types.DependencySpec) error {
	logger := logging.GetLogger("adapter.aptget")
	pkg := spec.PackageName()

	logger.Info().Str("package", pkg).Msg("Running apt-get install")
	res, err := a.runner.RunShell(ctx, "",
		"DEBIAN_FRONTEND=noninteractive apt-get install -y "+pkg)
	if err != nil {
		return commandError(err, errors.ErrInstall, res, "apt-get install "+pkg+" failed")
	}
	return nil
}

func (a *AptGet) UpdateIndex(ctx context.Context) error {
	res, err := a.runner.Run(ctx, "apt-get", "update")
	if err != nil {
		return commandError(err, errors.ErrIndexUpdate, res, "apt-get update failed")
	}
	return nil
}
