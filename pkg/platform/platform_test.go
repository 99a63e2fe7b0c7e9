package platform_test

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/arthur-debert/sysup/pkg/errors"
	"github.com/arthur-debert/sysup/pkg/platform"
	"github.com/arthur-debert/sysup/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProbe simulates a host for detection tests.
type fakeProbe struct {
	goos     string
	goarch   string
	commands map[string]string
	files    map[string]bool
	contents map[string]string
}

func (f *fakeProbe) GOOS() string   { return f.goos }
func (f *fakeProbe) GOARCH() string { return f.goarch }

func (f *fakeProbe) Command(name string, args ...string) (string, error) {
	key := strings.Join(append([]string{name}, args...), " ")
	out, ok := f.commands[key]
	if !ok {
		return "", fmt.Errorf("command not found: %s", key)
	}
	return out, nil
}

func (f *fakeProbe) FileExists(path string) bool { return f.files[path] }

func (f *fakeProbe) ReadFile(path string) ([]byte, error) {
	content, ok := f.contents[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return []byte(content), nil
}

func TestDetectDarwinNativeARM(t *testing.T) {
	probe := &fakeProbe{
		goos:   "darwin",
		goarch: "arm64",
		commands: map[string]string{
			"sw_vers -productVersion": "14.5",
		},
		files: map[string]bool{"/opt/homebrew/bin/brew": true},
	}

	profile, err := platform.Detect(probe)
	require.NoError(t, err)

	assert.Equal(t, types.OSDarwin, profile.OSFamily)
	assert.Equal(t, "14.5", profile.OSVersion)
	assert.Equal(t, types.ArchARM64, profile.Arch)
	assert.Equal(t, types.ManagerHomebrew, profile.PackageManager)
}

func TestDetectDarwinIntel(t *testing.T) {
	probe := &fakeProbe{
		goos:   "darwin",
		goarch: "amd64",
		commands: map[string]string{
			"sw_vers -productVersion":        "12.7",
			"sysctl -n sysctl.proc_translated": "0",
		},
		// Intel brew on an Intel Mac is fine.
		files: map[string]bool{platform.IntelBrewPath: true},
	}

	profile, err := platform.Detect(probe)
	require.NoError(t, err)
	assert.Equal(t, types.ArchX8664, profile.Arch)
}

func TestDetectDarwinRosettaBrewRejected(t *testing.T) {
	probe := &fakeProbe{
		goos:   "darwin",
		goarch: "arm64",
		commands: map[string]string{
			"sw_vers -productVersion": "14.5",
		},
		files: map[string]bool{platform.IntelBrewPath: true},
	}

	_, err := platform.Detect(probe)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConflictingToolchain))
}

func TestDetectDarwinTranslatedProcessStillGuards(t *testing.T) {
	// sysup itself running under Rosetta: GOARCH says amd64, but the
	// hardware is arm64 and the Intel brew check must still fire.
	probe := &fakeProbe{
		goos:   "darwin",
		goarch: "amd64",
		commands: map[string]string{
			"sw_vers -productVersion":        "13.2",
			"sysctl -n sysctl.proc_translated": "1",
		},
		files: map[string]bool{platform.IntelBrewPath: true},
	}

	_, err := platform.Detect(probe)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConflictingToolchain))
}

func TestDetectDebian(t *testing.T) {
	probe := &fakeProbe{
		goos:   "linux",
		goarch: "amd64",
		contents: map[string]string{
			"/etc/os-release": "ID=debian\nVERSION_ID=\"12\"\nPRETTY_NAME=\"Debian GNU/Linux 12\"\n",
		},
	}

	profile, err := platform.Detect(probe)
	require.NoError(t, err)

	assert.Equal(t, types.OSDebian, profile.OSFamily)
	assert.Equal(t, "12", profile.OSVersion)
	assert.Equal(t, types.ArchX8664, profile.Arch)
	assert.Equal(t, types.ManagerApt, profile.PackageManager)
}

func TestDetectUbuntuViaIDLike(t *testing.T) {
	probe := &fakeProbe{
		goos:   "linux",
		goarch: "arm64",
		contents: map[string]string{
			"/etc/os-release": "ID=ubuntu\nID_LIKE=debian\nVERSION_ID=\"24.04\"\n",
		},
	}

	profile, err := platform.Detect(probe)
	require.NoError(t, err)
	assert.Equal(t, "24.04", profile.OSVersion)
	assert.Equal(t, types.ArchARM64, profile.Arch)
}

func TestDetectUnsupported(t *testing.T) {
	tests := []struct {
		name  string
		probe *fakeProbe
	}{
		{"windows", &fakeProbe{goos: "windows", goarch: "amd64"}},
		{"fedora", &fakeProbe{
			goos: "linux", goarch: "amd64",
			contents: map[string]string{"/etc/os-release": "ID=fedora\nVERSION_ID=41\n"},
		}},
		{"linux without os-release", &fakeProbe{goos: "linux", goarch: "amd64"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := platform.Detect(tt.probe)
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrUnsupportedPlatform))
		})
	}
}
