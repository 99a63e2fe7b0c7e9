package plan_test

import (
	"testing"

	"github.com/arthur-debert/sysup/pkg/errors"
	"github.com/arthur-debert/sysup/pkg/manifest"
	"github.com/arthur-debert/sysup/pkg/plan"
	"github.com/arthur-debert/sysup/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var debian = types.PlatformProfile{
	OSFamily:       types.OSDebian,
	OSVersion:      "12",
	Arch:           types.ArchX8664,
	PackageManager: types.ManagerApt,
}

var darwin = types.PlatformProfile{
	OSFamily:       types.OSDarwin,
	OSVersion:      "14.5",
	Arch:           types.ArchARM64,
	PackageManager: types.ManagerHomebrew,
}

func names(p types.DependencyPlan) []string {
	out := make([]string, 0, len(p.Specs))
	for _, s := range p.Specs {
		out = append(out, s.Name)
	}
	return out
}

func TestBuildKeepsDeclarationOrder(t *testing.T) {
	m := &manifest.Manifest{Dependencies: []manifest.Entry{
		{Name: "autoconf", MinVersion: "2.71", Strategy: "source-build"},
		{Name: "doxygen"},
		{Name: "cmake"},
	}}

	p, err := plan.Build(m, debian)
	require.NoError(t, err)
	assert.Equal(t, []string{"autoconf", "doxygen", "cmake"}, names(p))
}

func TestBuildFiltersByPlatform(t *testing.T) {
	m := &manifest.Manifest{Dependencies: []manifest.Entry{
		{Name: "doxygen"},
		{Name: "coreutils", Platform: &manifest.Filter{OS: "darwin"}},
		{Name: "build-essential", Platform: &manifest.Filter{OS: "debian"}},
	}}

	p, err := plan.Build(m, debian)
	require.NoError(t, err)
	assert.Equal(t, []string{"doxygen", "build-essential"}, names(p))

	p, err = plan.Build(m, darwin)
	require.NoError(t, err)
	assert.Equal(t, []string{"doxygen", "coreutils"}, names(p))
}

func TestBuildMoreSpecificEntryWins(t *testing.T) {
	m := &manifest.Manifest{Dependencies: []manifest.Entry{
		{Name: "gcc", Strategy: "package-manager"},
		{Name: "gcc", Strategy: "source-build", Platform: &manifest.Filter{OS: "debian"},
			Source: &manifest.SourceEntry{URL: "https://example.com/gcc.tar.gz"}},
	}}

	p, err := plan.Build(m, debian)
	require.NoError(t, err)
	require.Len(t, p.Specs, 1)
	assert.Equal(t, types.StrategySourceBuild, p.Specs[0].Strategy,
		"the platform-filtered entry overrides the generic one")

	// On darwin only the generic entry applies.
	p, err = plan.Build(m, darwin)
	require.NoError(t, err)
	require.Len(t, p.Specs, 1)
	assert.Equal(t, types.StrategyPackageManager, p.Specs[0].Strategy)
}

func TestBuildConflictingStrategies(t *testing.T) {
	m := &manifest.Manifest{Dependencies: []manifest.Entry{
		{Name: "foo", Strategy: "package-manager"},
		{Name: "foo", Strategy: "source-build",
			Source: &manifest.SourceEntry{URL: "https://example.com/foo.tar.gz"}},
	}}

	_, err := plan.Build(m, debian)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConflictingSpec))
}

func TestBuildMergesEqualDuplicates(t *testing.T) {
	m := &manifest.Manifest{Dependencies: []manifest.Entry{
		{Name: "cmake", MinVersion: "3.20"},
		{Name: "cmake", MinVersion: "3.25", After: []string{"gcc"}},
		{Name: "gcc"},
	}}

	p, err := plan.Build(m, debian)
	require.NoError(t, err)

	spec, ok := p.Lookup("cmake")
	require.True(t, ok)
	assert.Equal(t, "3.25", spec.MinVersion, "the higher minimum wins")
	assert.Equal(t, []string{"gcc"}, spec.After)
}

func TestBuildHonorsAfterConstraints(t *testing.T) {
	m := &manifest.Manifest{Dependencies: []manifest.Entry{
		{Name: "doxygen", After: []string{"build-essential"}},
		{Name: "autoconf", After: []string{"build-essential"}},
		{Name: "build-essential"},
	}}

	p, err := plan.Build(m, debian)
	require.NoError(t, err)

	got := names(p)
	require.Len(t, got, 3)
	assert.Equal(t, "build-essential", got[0])
	assert.Equal(t, []string{"doxygen", "autoconf"}, got[1:],
		"declaration order is preserved among unconstrained peers")
}

func TestBuildCycleDetection(t *testing.T) {
	m := &manifest.Manifest{Dependencies: []manifest.Entry{
		{Name: "a", After: []string{"b"}},
		{Name: "b", After: []string{"c"}},
		{Name: "c", After: []string{"a"}},
	}}

	_, err := plan.Build(m, debian)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCyclicDependency))
}

func TestBuildSelfCycle(t *testing.T) {
	m := &manifest.Manifest{Dependencies: []manifest.Entry{
		{Name: "a", After: []string{"a"}},
	}}

	_, err := plan.Build(m, debian)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCyclicDependency))
}

func TestBuildUnknownAfterReference(t *testing.T) {
	m := &manifest.Manifest{Dependencies: []manifest.Entry{
		{Name: "a", After: []string{"ghost"}},
	}}

	_, err := plan.Build(m, debian)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrUnknownDependency))
}

func TestBuildAfterFilteredOutDependency(t *testing.T) {
	// The constraint target exists in the manifest but is filtered out
	// on this platform; the plan must reject the dangling reference.
	m := &manifest.Manifest{Dependencies: []manifest.Entry{
		{Name: "xcode-tools", Platform: &manifest.Filter{OS: "darwin"}},
		{Name: "doxygen", After: []string{"xcode-tools"}},
	}}

	_, err := plan.Build(m, debian)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrUnknownDependency))
}
