package adapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/sysup/pkg/errors"
	"github.com/arthur-debert/sysup/pkg/logging"
	"github.com/arthur-debert/sysup/pkg/types"
)

// defaultBuildCommands is the conventional autotools sequence used
// when a source entry does not declare its own.
var defaultBuildCommands = []string{"./configure", "make", "make install"}

// SourceBuild builds dependencies from a source tarball.
type SourceBuild struct {
	runner Runner
}

// NewSourceBuild creates the source-build adapter.
func NewSourceBuild(runner Runner) *SourceBuild {
	return &SourceBuild{runner: runner}
}

func (s *SourceBuild) Kind() string {
	return string(types.StrategySourceBuild)
}

// IsInstalled checks for the tool on PATH and, when a minimum version
// is set, parses `<name> --version` output.
func (s *SourceBuild) IsInstalled(ctx context.Context, spec types.DependencySpec) (bool, error) {
	if _, err := s.runner.LookPath(spec.Name); err != nil {
		return false, nil
	}
	if spec.MinVersion == "" {
		return true, nil
	}
	version, err := s.CurrentVersion(ctx, spec.Name)
	if err != nil {
		return false, err
	}
	return versionSatisfies(version, spec.MinVersion), nil
}

func (s *SourceBuild) CurrentVersion(ctx context.Context, name string) (string, error) {
	if _, err := s.runner.LookPath(name); err != nil {
		return "", nil
	}
	res, err := s.runner.Run(ctx, name, "--version")
	if err != nil || res.ExitCode != 0 {
		return "", nil
	}
	return extractVersion(res.Stdout), nil
}

// EnsureManagerPresent is a no-op: building from source has no
// manager beyond a working shell.
func (s *SourceBuild) EnsureManagerPresent(ctx context.Context) error {
	return nil
}

func (s *SourceBuild) Install(ctx context.Context, spec types.DependencySpec) error {
	logger := logging.GetLogger("adapter.sourcebuild")

	if spec.Source == nil || spec.Source.URL == "" {
		return errors.Newf(errors.ErrInstall,
			"spec %q uses source-build but declares no source.url", spec.Name)
	}

	workDir, err := os.MkdirTemp("", "sysup-build-"+spec.Name+"-")
	if err != nil {
		return errors.Wrap(err, errors.ErrInstall, "failed to create build directory")
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	logger.Info().Str("spec", spec.Name).Str("url", spec.Source.URL).Msg("Fetching source")
	fetch := fmt.Sprintf("curl -fsSL %s | tar -xz --strip-components=1", spec.Source.URL)
	if res, err := s.runner.RunShell(ctx, workDir, fetch); err != nil {
		return commandError(err, errors.ErrInstall, res, "fetching source for "+spec.Name+" failed")
	}

	commands := spec.Source.BuildCommands
	if len(commands) == 0 {
		commands = defaultBuildCommands
	}
	for _, command := range commands {
		logger.Info().Str("spec", spec.Name).Str("command", command).Msg("Build step")
		if res, err := s.runner.RunShell(ctx, workDir, command); err != nil {
			return commandError(err, errors.ErrInstall, res,
				fmt.Sprintf("build step %q for %s failed", command, spec.Name))
		}
	}
	return nil
}

// UpdateIndex is a no-op: there is no index to refresh.
func (s *SourceBuild) UpdateIndex(ctx context.Context) error {
	return nil
}

// DownloadBinary fetches a prebuilt binary to a target path.
type DownloadBinary struct {
	runner Runner
}

// NewDownloadBinary creates the binary-download adapter.
func NewDownloadBinary(runner Runner) *DownloadBinary {
	return &DownloadBinary{runner: runner}
}

func (d *DownloadBinary) Kind() string {
	return string(types.StrategyDownloadBinary)
}

func (d *DownloadBinary) IsInstalled(ctx context.Context, spec types.DependencySpec) (bool, error) {
	if spec.Binary != nil && spec.Binary.Target != "" {
		if _, err := os.Stat(expandHome(spec.Binary.Target)); err == nil {
			return true, nil
		}
		return false, nil
	}
	if _, err := d.runner.LookPath(spec.Name); err != nil {
		return false, nil
	}
	return true, nil
}

func (d *DownloadBinary) CurrentVersion(ctx context.Context, name string) (string, error) {
	res, err := d.runner.Run(ctx, name, "--version")
	if err != nil || res.ExitCode != 0 {
		return "", nil
	}
	return extractVersion(res.Stdout), nil
}

func (d *DownloadBinary) EnsureManagerPresent(ctx context.Context) error {
	return nil
}

func (d *DownloadBinary) Install(ctx context.Context, spec types.DependencySpec) error {
	logger := logging.GetLogger("adapter.download")

	if spec.Binary == nil || spec.Binary.URL == "" || spec.Binary.Target == "" {
		return errors.Newf(errors.ErrInstall,
			"spec %q uses download-binary but declares no binary.url/target", spec.Name)
	}

	target := expandHome(spec.Binary.Target)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.Wrap(err, errors.ErrInstall, "failed to create target directory")
	}

	logger.Info().Str("spec", spec.Name).Str("target", target).Msg("Downloading binary")
	fetch := fmt.Sprintf("curl -fsSLo %s %s && chmod +x %s", target, spec.Binary.URL, target)
	if res, err := d.runner.RunShell(ctx, "", fetch); err != nil {
		return commandError(err, errors.ErrInstall, res, "downloading "+spec.Name+" failed")
	}
	return nil
}

func (d *DownloadBinary) UpdateIndex(ctx context.Context) error {
	return nil
}

// expandHome resolves a leading ~/ against the current home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
