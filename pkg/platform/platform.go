// Package platform detects the host platform profile: OS family, OS
// version, CPU architecture and the package manager that goes with
// them. Detection is a pure read of the host; nothing is mutated.
package platform

import (
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/arthur-debert/sysup/pkg/errors"
	"github.com/arthur-debert/sysup/pkg/logging"
	"github.com/arthur-debert/sysup/pkg/types"
)

// Probe abstracts the host queries detection needs, so tests can
// simulate arbitrary platforms.
type Probe interface {
	GOOS() string
	GOARCH() string
	Command(name string, args ...string) (string, error)
	FileExists(path string) bool
	ReadFile(path string) ([]byte, error)
}

type hostProbe struct{}

// NewHostProbe returns a Probe backed by the real host.
func NewHostProbe() Probe {
	return hostProbe{}
}

func (hostProbe) GOOS() string   { return runtime.GOOS }
func (hostProbe) GOARCH() string { return runtime.GOARCH }

func (hostProbe) Command(name string, args ...string) (string, error) {
	out, err := exec.Command(name, args...).Output()
	return strings.TrimSpace(string(out)), err
}

func (hostProbe) FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (hostProbe) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// IntelBrewPath is where an x86_64 Homebrew lives on macOS. Its
// presence on an arm64 host means a Rosetta-translated installation,
// which poisons every compiled dependency and must stop the run.
const IntelBrewPath = "/usr/local/bin/brew"

// osReleasePath is the standard identification file on Linux.
const osReleasePath = "/etc/os-release"

// Detect identifies the host and returns its immutable profile.
func Detect(probe Probe) (types.PlatformProfile, error) {
	switch probe.GOOS() {
	case "darwin":
		return detectDarwin(probe)
	case "linux":
		return detectDebian(probe)
	}

	return types.PlatformProfile{}, errors.Newf(errors.ErrUnsupportedPlatform,
		"unsupported operating system %q", probe.GOOS())
}

func detectDarwin(probe Probe) (types.PlatformProfile, error) {
	logger := logging.GetLogger("platform")

	version, err := probe.Command("sw_vers", "-productVersion")
	if err != nil || version == "" {
		return types.PlatformProfile{}, errors.Wrap(err, errors.ErrUnsupportedPlatform,
			"could not determine macOS version via sw_vers")
	}

	arch, err := darwinArch(probe)
	if err != nil {
		return types.PlatformProfile{}, err
	}

	// An arm64 Mac with an Intel-prefix Homebrew is a Rosetta
	// installation: everything it builds is translated x86_64. Refuse
	// to provision on top of it.
	if arch == types.ArchARM64 && probe.FileExists(IntelBrewPath) {
		return types.PlatformProfile{}, errors.Newf(errors.ErrConflictingToolchain,
			"found x86_64 Homebrew at %s on an arm64 Mac; uninstall it and use a native arm64 Homebrew", IntelBrewPath)
	}

	profile := types.PlatformProfile{
		OSFamily:       types.OSDarwin,
		OSVersion:      version,
		Arch:           arch,
		PackageManager: types.ManagerHomebrew,
	}
	logger.Debug().Str("profile", profile.String()).Msg("Detected platform")
	return profile, nil
}

// darwinArch resolves the hardware architecture, seeing through
// Rosetta: a translated x86_64 process still runs on arm64 hardware.
func darwinArch(probe Probe) (types.Arch, error) {
	switch probe.GOARCH() {
	case "arm64":
		return types.ArchARM64, nil
	case "amd64":
		if translated, err := probe.Command("sysctl", "-n", "sysctl.proc_translated"); err == nil && translated == "1" {
			return types.ArchARM64, nil
		}
		return types.ArchX8664, nil
	}
	return "", errors.Newf(errors.ErrUnsupportedPlatform,
		"unsupported macOS architecture %q", probe.GOARCH())
}

func detectDebian(probe Probe) (types.PlatformProfile, error) {
	logger := logging.GetLogger("platform")

	data, err := probe.ReadFile(osReleasePath)
	if err != nil {
		return types.PlatformProfile{}, errors.Wrapf(err, errors.ErrUnsupportedPlatform,
			"could not read %s", osReleasePath)
	}

	fields := parseOSRelease(string(data))
	id := fields["ID"]
	like := fields["ID_LIKE"]
	if id != "debian" && id != "ubuntu" && !strings.Contains(like, "debian") {
		return types.PlatformProfile{}, errors.Newf(errors.ErrUnsupportedPlatform,
			"unsupported Linux distribution %q (only Debian-family distributions are supported)", id)
	}

	version := fields["VERSION_ID"]
	if version == "" {
		// Testing/sid images omit VERSION_ID.
		version = "0"
	}

	var arch types.Arch
	switch probe.GOARCH() {
	case "amd64":
		arch = types.ArchX8664
	case "arm64":
		arch = types.ArchARM64
	default:
		return types.PlatformProfile{}, errors.Newf(errors.ErrUnsupportedPlatform,
			"unsupported Linux architecture %q", probe.GOARCH())
	}

	profile := types.PlatformProfile{
		OSFamily:       types.OSDebian,
		OSVersion:      version,
		Arch:           arch,
		PackageManager: types.ManagerApt,
	}
	logger.Debug().Str("profile", profile.String()).Msg("Detected platform")
	return profile, nil
}

// parseOSRelease parses the KEY=VALUE lines of os-release, stripping
// optional quoting.
func parseOSRelease(content string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.Trim(value, `"'`)
		fields[key] = value
	}
	return fields
}
