package adapter

import (
	"context"
	"strings"

	"github.com/arthur-debert/sysup/pkg/errors"
	"github.com/arthur-debert/sysup/pkg/logging"
	"github.com/arthur-debert/sysup/pkg/types"
)

// Homebrew drives the brew command line on macOS.
type Homebrew struct {
	runner    Runner
	bootstrap string
}

// NewHomebrew creates the Homebrew adapter. bootstrap, when set, is
// the shell command that installs Homebrew itself.
func NewHomebrew(runner Runner, bootstrap string) *Homebrew {
	return &Homebrew{runner: runner, bootstrap: bootstrap}
}

func (h *Homebrew) Kind() string {
	return string(types.ManagerHomebrew)
}

func (h *Homebrew) IsInstalled(ctx context.Context, spec types.DependencySpec) (bool, error) {
	version, err := h.CurrentVersion(ctx, spec.PackageName())
	if err != nil {
		return false, err
	}
	if version == "" {
		return false, nil
	}
	return versionSatisfies(version, spec.MinVersion), nil
}

func (h *Homebrew) CurrentVersion(ctx context.Context, name string) (string, error) {
	if _, err := h.runner.LookPath("brew"); err != nil {
		// No brew means nothing brew-installed. Not an error.
		return "", nil
	}

	res, err := h.runner.Run(ctx, "brew", "list", "--versions", name)
	if err != nil || res.ExitCode != 0 {
		// brew exits non-zero for unknown formulae.
		return "", nil
	}

	// Output: "autoconf 2.72". Multiple versions list newest last.
	fields := strings.Fields(strings.TrimSpace(res.Stdout))
	if len(fields) < 2 {
		return "", nil
	}
	return fields[len(fields)-1], nil
}

func (h *Homebrew) EnsureManagerPresent(ctx context.Context) error {
	logger := logging.GetLogger("adapter.homebrew")

	if _, err := h.runner.LookPath("brew"); err == nil {
		return nil
	}
	if h.bootstrap == "" {
		return errors.New(errors.ErrManagerInstall,
			"brew is not installed and no bootstrap.homebrew command is configured")
	}

	logger.Info().Msg("Installing Homebrew")
	res, err := h.runner.RunShell(ctx, "", h.bootstrap)
	if err != nil {
		return commandError(err, errors.ErrManagerInstall, res, "Homebrew bootstrap failed")
	}
	return nil
}

func (h *Homebrew) Install(ctx context.Context, spec types.DependencySpec) error {
	logger := logging.GetLogger("adapter.homebrew")
	pkg := spec.PackageName()

	// Present but below the minimum gets an upgrade, not an install.
	verb := "install"
	if version, err := h.CurrentVersion(ctx, pkg); err == nil && version != "" {
		verb = "upgrade"
	}

	logger.Info().Str("package", pkg).Str("verb", verb).Msg("Running brew")
	res, err := h.runner.Run(ctx, "brew", verb, pkg)
	if err != nil {
		return commandError(err, errors.ErrInstall, res, "brew "+verb+" "+pkg+" failed")
	}
	return nil
}

func (h *Homebrew) UpdateIndex(ctx context.Context) error {
	res, err := h.runner.Run(ctx, "brew", "update")
	if err != nil {
		return commandError(err, errors.ErrIndexUpdate, res, "brew update failed")
	}
	return nil
}
