// Package paths provides centralized path handling for sysup.
// It implements XDG Base Directory specification compliance and
// provides a consistent API for all path operations in the codebase.
package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// Environment variable names
const (
	// EnvManifest overrides the manifest location
	EnvManifest = "SYSUP_MANIFEST"

	// EnvStateDir overrides the XDG state directory for sysup
	EnvStateDir = "SYSUP_STATE_DIR"

	// EnvConfigDir overrides the XDG config directory for sysup
	EnvConfigDir = "SYSUP_CONFIG_DIR"
)

// Default directories and files.
// These constants define sysup's internal state layout and are not
// user-configurable; the provision log from one version must stay
// readable by the next.
const (
	// SysupDirName is the directory name for sysup-specific files
	SysupDirName = "sysup"

	// RecordsDir is the subdirectory holding one file per provision record
	RecordsDir = "records"

	// LockFileName is the advisory lock taken for the duration of a run
	LockFileName = "sysup.lock"

	// ConfigFileName is the engine configuration file
	ConfigFileName = "sysup.toml"

	// ManifestFileName is the default manifest file name
	ManifestFileName = "manifest.toml"

	// LogFileName is the name of the log file
	LogFileName = "sysup.log"
)

// Paths provides centralized path management for sysup
type Paths struct {
	stateDir  string
	configDir string
}

// New creates a Paths instance, honoring the SYSUP_* environment
// overrides and falling back to XDG locations.
func New() *Paths {
	p := &Paths{}

	if dir := os.Getenv(EnvStateDir); dir != "" {
		p.stateDir = dir
	} else {
		p.stateDir = filepath.Join(xdg.StateHome, SysupDirName)
	}

	if dir := os.Getenv(EnvConfigDir); dir != "" {
		p.configDir = dir
	} else {
		p.configDir = filepath.Join(xdg.ConfigHome, SysupDirName)
	}

	return p
}

// StateDir returns the directory holding the provision log and lock file
func (p *Paths) StateDir() string {
	return p.stateDir
}

// ConfigDir returns the directory holding sysup's own configuration
func (p *Paths) ConfigDir() string {
	return p.configDir
}

// RecordsDir returns the directory holding per-spec provision records
func (p *Paths) RecordsDir() string {
	return filepath.Join(p.stateDir, RecordsDir)
}

// LockFilePath returns the path of the run lock file
func (p *Paths) LockFilePath() string {
	return filepath.Join(p.stateDir, LockFileName)
}

// ConfigFilePath returns the path of the engine config file
func (p *Paths) ConfigFilePath() string {
	return filepath.Join(p.configDir, ConfigFileName)
}

// LogFilePath returns the path of the log file
func (p *Paths) LogFilePath() string {
	return filepath.Join(p.stateDir, LogFileName)
}

// ManifestPath resolves the manifest location: the explicit argument
// wins, then SYSUP_MANIFEST, then <config dir>/manifest.toml.
func (p *Paths) ManifestPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(EnvManifest); env != "" {
		return env
	}
	return filepath.Join(p.configDir, ManifestFileName)
}
