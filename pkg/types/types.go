// Package types defines the shared data model for sysup: platform
// profiles, dependency specs and plans, and provisioning records.
package types

import (
	"fmt"
	"time"
)

// OSFamily identifies a supported operating system family.
type OSFamily string

const (
	OSDarwin OSFamily = "darwin"
	OSDebian OSFamily = "debian"
)

// Arch identifies a supported CPU architecture.
type Arch string

const (
	ArchX8664 Arch = "x86_64"
	ArchARM64 Arch = "arm64"
)

// ManagerKind identifies which package manager a platform uses.
type ManagerKind string

const (
	ManagerHomebrew ManagerKind = "homebrew"
	ManagerApt      ManagerKind = "apt"
)

// PlatformProfile describes the host sysup is provisioning. It is
// detected once at startup and never mutated afterwards.
type PlatformProfile struct {
	OSFamily       OSFamily
	OSVersion      string
	Arch           Arch
	PackageManager ManagerKind
}

func (p PlatformProfile) String() string {
	return fmt.Sprintf("%s %s (%s, %s)", p.OSFamily, p.OSVersion, p.Arch, p.PackageManager)
}

// InstallStrategy selects how a dependency is satisfied.
type InstallStrategy string

const (
	StrategyPackageManager InstallStrategy = "package-manager"
	StrategySourceBuild    InstallStrategy = "source-build"
	StrategyDownloadBinary InstallStrategy = "download-binary"
)

// ValidStrategy reports whether s names a known install strategy.
func ValidStrategy(s InstallStrategy) bool {
	switch s {
	case StrategyPackageManager, StrategySourceBuild, StrategyDownloadBinary:
		return true
	}
	return false
}

// Export is a single environment variable to be exported from shell
// profile files after provisioning.
type Export struct {
	Key   string
	Value string
}

// HookAction names a post-install action kind.
type HookAction string

const (
	HookSymlink HookAction = "symlink"
	HookRun     HookAction = "run"
)

// Hook is a named post-install action attached to a dependency spec,
// such as creating a symlink or running a shell command.
type Hook struct {
	Action HookAction
	// Source and Target apply to symlink hooks.
	Source string
	Target string
	// Command applies to run hooks.
	Command string
}

// SourceSpec describes how to build a dependency from source.
type SourceSpec struct {
	URL string
	// BuildCommands run in order inside the unpacked source tree.
	// Empty means the conventional configure/make/make install.
	BuildCommands []string
}

// BinarySpec describes a binary download target.
type BinarySpec struct {
	URL    string
	Target string
}

// DependencySpec is one resolved entry of a DependencyPlan. Name is
// the unique key within a plan.
type DependencySpec struct {
	Name       string
	MinVersion string
	Strategy   InstallStrategy
	// Package overrides the package-manager package name when it
	// differs from Name.
	Package     string
	After       []string
	Exports     []Export
	Source      *SourceSpec
	Binary      *BinarySpec
	PostInstall []Hook
}

// PackageName returns the name handed to the package manager.
func (s DependencySpec) PackageName() string {
	if s.Package != "" {
		return s.Package
	}
	return s.Name
}

// DependencyPlan is an ordered, deduplicated sequence of specs. Order
// is declaration order with `after` constraints honored.
type DependencyPlan struct {
	Profile PlatformProfile
	Specs   []DependencySpec
}

// Lookup returns the spec with the given name, if present.
func (p DependencyPlan) Lookup(name string) (DependencySpec, bool) {
	for _, s := range p.Specs {
		if s.Name == name {
			return s, true
		}
	}
	return DependencySpec{}, false
}

// RecordStatus is the persisted state of one spec's provisioning.
type RecordStatus string

const (
	StatusPending    RecordStatus = "pending"
	StatusInProgress RecordStatus = "in-progress"
	StatusDone       RecordStatus = "done"
	StatusFailed     RecordStatus = "failed"
)

// rank orders statuses along the only legal transition path.
func (s RecordStatus) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusInProgress:
		return 1
	case StatusDone, StatusFailed:
		return 2
	}
	return -1
}

// CanTransitionTo reports whether moving from s to next is a legal
// forward transition. Done is terminal; Failed may be retried, which
// re-enters InProgress on a fresh run.
func (s RecordStatus) CanTransitionTo(next RecordStatus) bool {
	if s == next {
		return true
	}
	if s == StatusDone {
		return false
	}
	if s == StatusFailed {
		return next == StatusInProgress || next == StatusDone
	}
	return next.rank() > s.rank()
}

// ProvisionRecord is the durable outcome of provisioning one spec.
type ProvisionRecord struct {
	SpecName    string       `toml:"spec_name"`
	Status      RecordStatus `toml:"status"`
	Timestamp   time.Time    `toml:"timestamp"`
	ErrorDetail string       `toml:"error_detail,omitempty"`
}
