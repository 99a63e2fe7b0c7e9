package manifest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/sysup/pkg/errors"
	"github.com/arthur-debert/sysup/pkg/manifest"
	"github.com/arthur-debert/sysup/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadTOML(t *testing.T) {
	path := writeManifest(t, "manifest.toml", `
[[dependency]]
name = "autoconf"
min_version = "2.71"
strategy = "source-build"

[dependency.source]
url = "https://ftp.gnu.org/gnu/autoconf/autoconf-2.71.tar.gz"

[[dependency]]
name = "doxygen"
after = ["autoconf"]

[dependency.platform]
os = "debian"

[[dependency.post_install]]
action = "symlink"
source = "/usr/bin/doxygen"
target = "~/bin/doxygen"
`)

	m, err := manifest.Load(path)
	require.NoError(t, err)
	require.Len(t, m.Dependencies, 2)

	auto := m.Dependencies[0].Spec()
	assert.Equal(t, "autoconf", auto.Name)
	assert.Equal(t, "2.71", auto.MinVersion)
	assert.Equal(t, types.StrategySourceBuild, auto.Strategy)
	require.NotNil(t, auto.Source)

	dox := m.Dependencies[1].Spec()
	assert.Equal(t, types.StrategyPackageManager, dox.Strategy, "empty strategy defaults to package manager")
	assert.Equal(t, []string{"autoconf"}, dox.After)
	require.Len(t, dox.PostInstall, 1)
	assert.Equal(t, types.HookSymlink, dox.PostInstall[0].Action)
}

func TestLoadYAML(t *testing.T) {
	path := writeManifest(t, "manifest.yaml", `
dependencies:
  - name: cmake
    min_version: "3.20"
    platform:
      os: darwin
      arch: arm64
  - name: gdb
    platform:
      os: debian
`)

	m, err := manifest.Load(path)
	require.NoError(t, err)
	require.Len(t, m.Dependencies, 2)
	assert.Equal(t, "cmake", m.Dependencies[0].Name)
	assert.Equal(t, 2, m.Dependencies[0].Platform.Specificity())
}

func TestLoadRejectsInvalidEntries(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errPart string
	}{
		{
			name:    "missing name",
			content: "[[dependency]]\nstrategy = \"package-manager\"\n",
			errPart: "has no name",
		},
		{
			name:    "unknown strategy",
			content: "[[dependency]]\nname = \"x\"\nstrategy = \"wish-really-hard\"\n",
			errPart: "unknown strategy",
		},
		{
			name:    "bad min version",
			content: "[[dependency]]\nname = \"x\"\nmin_version = \"not-a-version\"\n",
			errPart: "invalid min_version",
		},
		{
			name:    "symlink hook without target",
			content: "[[dependency]]\nname = \"x\"\n[[dependency.post_install]]\naction = \"symlink\"\nsource = \"/a\"\n",
			errPart: "needs source and target",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manifest.Load(writeManifest(t, "m.toml", tt.content))
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrManifestInvalid))
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := manifest.Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrManifestLoad))
}

func TestFilterMatches(t *testing.T) {
	debian := types.PlatformProfile{
		OSFamily:  types.OSDebian,
		OSVersion: "12",
		Arch:      types.ArchX8664,
	}
	darwin := types.PlatformProfile{
		OSFamily:  types.OSDarwin,
		OSVersion: "14.5",
		Arch:      types.ArchARM64,
	}

	tests := []struct {
		name    string
		filter  *manifest.Filter
		profile types.PlatformProfile
		want    bool
	}{
		{"nil matches all", nil, debian, true},
		{"os match", &manifest.Filter{OS: "debian"}, debian, true},
		{"os mismatch", &manifest.Filter{OS: "darwin"}, debian, false},
		{"arch mismatch", &manifest.Filter{Arch: "x86_64"}, darwin, false},
		{"min os satisfied", &manifest.Filter{OS: "darwin", MinOSVersion: "13"}, darwin, true},
		{"min os unsatisfied", &manifest.Filter{OS: "darwin", MinOSVersion: "15"}, darwin, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(tt.profile))
		})
	}
}
