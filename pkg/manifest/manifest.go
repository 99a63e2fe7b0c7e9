// Package manifest loads and validates the declarative dependency
// manifest. Manifests are TOML by default; a .yaml/.yml extension
// selects the YAML form with the same structure.
package manifest

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/sysup/pkg/errors"
	"github.com/arthur-debert/sysup/pkg/logging"
	"github.com/arthur-debert/sysup/pkg/types"
)

// Filter restricts a manifest entry to a subset of platforms. Zero
// fields match everything.
type Filter struct {
	OS           string `toml:"os" yaml:"os"`
	MinOSVersion string `toml:"min_os_version" yaml:"min_os_version"`
	Arch         string `toml:"arch" yaml:"arch"`
}

// Specificity counts how many filter fields are set. The plan builder
// keeps the most specific entry when names collide.
func (f *Filter) Specificity() int {
	if f == nil {
		return 0
	}
	n := 0
	if f.OS != "" {
		n++
	}
	if f.MinOSVersion != "" {
		n++
	}
	if f.Arch != "" {
		n++
	}
	return n
}

// Matches reports whether the filter admits the given profile.
func (f *Filter) Matches(profile types.PlatformProfile) bool {
	if f == nil {
		return true
	}
	if f.OS != "" && f.OS != string(profile.OSFamily) {
		return false
	}
	if f.Arch != "" && f.Arch != string(profile.Arch) {
		return false
	}
	if f.MinOSVersion != "" {
		minVer, err := semver.NewVersion(f.MinOSVersion)
		if err != nil {
			return false
		}
		hostVer, err := semver.NewVersion(profile.OSVersion)
		if err != nil {
			return false
		}
		if hostVer.LessThan(minVer) {
			return false
		}
	}
	return true
}

// Export is one environment variable an entry wants exported.
type Export struct {
	Key   string `toml:"key" yaml:"key"`
	Value string `toml:"value" yaml:"value"`
}

// HookEntry is a declarative post-install action.
type HookEntry struct {
	Action  string `toml:"action" yaml:"action"`
	Source  string `toml:"source" yaml:"source"`
	Target  string `toml:"target" yaml:"target"`
	Command string `toml:"command" yaml:"command"`
}

// SourceEntry configures a source build.
type SourceEntry struct {
	URL           string   `toml:"url" yaml:"url"`
	BuildCommands []string `toml:"build_commands" yaml:"build_commands"`
}

// BinaryEntry configures a binary download.
type BinaryEntry struct {
	URL    string `toml:"url" yaml:"url"`
	Target string `toml:"target" yaml:"target"`
}

// Entry is one dependency declaration in the manifest.
type Entry struct {
	Name        string      `toml:"name" yaml:"name"`
	MinVersion  string      `toml:"min_version" yaml:"min_version"`
	Strategy    string      `toml:"strategy" yaml:"strategy"`
	Package     string      `toml:"package" yaml:"package"`
	After       []string    `toml:"after" yaml:"after"`
	Platform    *Filter     `toml:"platform" yaml:"platform"`
	Exports     []Export    `toml:"exports" yaml:"exports"`
	Source      *SourceEntry `toml:"source" yaml:"source"`
	Binary      *BinaryEntry `toml:"binary" yaml:"binary"`
	PostInstall []HookEntry `toml:"post_install" yaml:"post_install"`
}

// Manifest is the parsed dependency manifest.
type Manifest struct {
	Dependencies []Entry `toml:"dependency" yaml:"dependencies"`
}

// Load reads, parses and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	logger := logging.GetLogger("manifest")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrManifestLoad, "failed to read manifest %s", path)
	}

	var m Manifest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, errors.Wrapf(err, errors.ErrManifestParse, "failed to parse YAML manifest %s", path)
		}
	default:
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, errors.Wrapf(err, errors.ErrManifestParse, "failed to parse TOML manifest %s", path)
		}
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	logger.Debug().Str("path", path).Int("entries", len(m.Dependencies)).Msg("Manifest loaded")
	return &m, nil
}

// Validate checks every entry for structural problems. Name collisions
// are not an error here; the plan builder resolves them per platform.
func (m *Manifest) Validate() error {
	for i, e := range m.Dependencies {
		if e.Name == "" {
			return errors.Newf(errors.ErrManifestInvalid, "entry %d has no name", i)
		}
		// Names become provision-record file names.
		if strings.ContainsAny(e.Name, "/\\") {
			return errors.Newf(errors.ErrManifestInvalid,
				"entry %q: names must not contain path separators", e.Name)
		}
		if e.Strategy != "" && !types.ValidStrategy(types.InstallStrategy(e.Strategy)) {
			return errors.Newf(errors.ErrManifestInvalid,
				"entry %q has unknown strategy %q", e.Name, e.Strategy)
		}
		if e.MinVersion != "" {
			if _, err := semver.NewVersion(e.MinVersion); err != nil {
				return errors.Wrapf(err, errors.ErrManifestInvalid,
					"entry %q has invalid min_version %q", e.Name, e.MinVersion)
			}
		}
		for _, h := range e.PostInstall {
			switch types.HookAction(h.Action) {
			case types.HookSymlink:
				if h.Source == "" || h.Target == "" {
					return errors.Newf(errors.ErrManifestInvalid,
						"entry %q: symlink hook needs source and target", e.Name)
				}
			case types.HookRun:
				if h.Command == "" {
					return errors.Newf(errors.ErrManifestInvalid,
						"entry %q: run hook needs a command", e.Name)
				}
			default:
				return errors.Newf(errors.ErrManifestInvalid,
					"entry %q has unknown hook action %q", e.Name, h.Action)
			}
		}
	}
	return nil
}

// Spec converts an entry to its resolved DependencySpec form. An empty
// strategy defaults to the package manager.
func (e Entry) Spec() types.DependencySpec {
	strategy := types.InstallStrategy(e.Strategy)
	if e.Strategy == "" {
		strategy = types.StrategyPackageManager
	}

	spec := types.DependencySpec{
		Name:       e.Name,
		MinVersion: e.MinVersion,
		Strategy:   strategy,
		Package:    e.Package,
		After:      append([]string(nil), e.After...),
	}
	for _, x := range e.Exports {
		spec.Exports = append(spec.Exports, types.Export{Key: x.Key, Value: x.Value})
	}
	if e.Source != nil {
		spec.Source = &types.SourceSpec{
			URL:           e.Source.URL,
			BuildCommands: append([]string(nil), e.Source.BuildCommands...),
		}
	}
	if e.Binary != nil {
		spec.Binary = &types.BinarySpec{URL: e.Binary.URL, Target: e.Binary.Target}
	}
	for _, h := range e.PostInstall {
		spec.PostInstall = append(spec.PostInstall, types.Hook{
			Action:  types.HookAction(h.Action),
			Source:  h.Source,
			Target:  h.Target,
			Command: h.Command,
		})
	}
	return spec
}
