// Package installer walks a dependency plan and converges the host on
// it: already-done specs are skipped, missing ones installed, failed
// ones retried on the next run. Progress is persisted to the
// provision log after every step, so an interrupted run resumes where
// it stopped instead of repeating work.
package installer

import (
	"context"
	"time"

	"github.com/arthur-debert/sysup/pkg/adapter"
	"github.com/arthur-debert/sysup/pkg/envpatch"
	"github.com/arthur-debert/sysup/pkg/errors"
	"github.com/arthur-debert/sysup/pkg/hooks"
	"github.com/arthur-debert/sysup/pkg/logging"
	"github.com/arthur-debert/sysup/pkg/provlog"
	"github.com/arthur-debert/sysup/pkg/types"
)

// Outcome classifies what happened to one spec during a run.
type Outcome string

const (
	// OutcomeDone means the spec was provisioned or found already
	// satisfied this run.
	OutcomeDone Outcome = "done"

	// OutcomeSkipped means a previous run already completed the spec.
	OutcomeSkipped Outcome = "skipped"

	// OutcomeFailed means the spec's install or hooks failed.
	OutcomeFailed Outcome = "failed"

	// OutcomeBlocked means a spec this one is ordered after failed,
	// so it was not attempted (continue-on-error only).
	OutcomeBlocked Outcome = "blocked"

	// OutcomeNotRun means the run aborted before reaching the spec
	// (fail-fast only).
	OutcomeNotRun Outcome = "not-run"
)

// SpecResult is the per-spec outcome surfaced in the final report.
type SpecResult struct {
	Name    string
	Outcome Outcome
	Detail  string
	Err     error
}

// Result aggregates a whole run.
type Result struct {
	Specs           []SpecResult
	AppendedExports int
}

// Failed reports whether any spec failed or was blocked.
func (r *Result) Failed() bool {
	for _, s := range r.Specs {
		if s.Outcome == OutcomeFailed || s.Outcome == OutcomeBlocked {
			return true
		}
	}
	return false
}

// Options tune a run.
type Options struct {
	// Force re-provisions specs whose records are already done.
	Force bool

	// ContinueOnError proceeds to independent specs after a failure
	// instead of aborting the plan.
	ContinueOnError bool

	// InstallTimeout bounds each install call. Zero means no timeout.
	InstallTimeout time.Duration

	// ProfileFiles receive the exports of done specs after the
	// install phase.
	ProfileFiles []string
}

// Installer orchestrates one run over a plan.
type Installer struct {
	plan     types.DependencyPlan
	store    *provlog.Store
	adapters *adapter.Set
	hooks    *hooks.Executor
	patcher  *envpatch.Patcher
	opts     Options
}

// New wires an Installer.
func New(plan types.DependencyPlan, store *provlog.Store, adapters *adapter.Set,
	hookExec *hooks.Executor, patcher *envpatch.Patcher, opts Options) *Installer {
	return &Installer{
		plan:     plan,
		store:    store,
		adapters: adapters,
		hooks:    hookExec,
		patcher:  patcher,
		opts:     opts,
	}
}

// Run executes the plan sequentially. Per-spec failures are recorded
// in the provision log and reported in the Result; the returned error
// is reserved for infrastructure problems such as an unwritable log.
func (i *Installer) Run(ctx context.Context) (*Result, error) {
	logger := logging.GetLogger("installer")
	result := &Result{}

	records, err := i.store.Load()
	if err != nil {
		return nil, err
	}

	managerErr := i.prepareManager(ctx, records)

	failed := make(map[string]bool)
	aborted := false

	for _, spec := range i.plan.Specs {
		if aborted {
			result.Specs = append(result.Specs, SpecResult{Name: spec.Name, Outcome: OutcomeNotRun})
			continue
		}

		if i.opts.Force {
			if err := i.store.Reset(spec.Name); err != nil {
				return nil, err
			}
			delete(records, spec.Name)
		}

		if record, ok := records[spec.Name]; ok && record.Status == types.StatusDone {
			logger.Debug().Str("spec", spec.Name).Msg("Already done, skipping")
			result.Specs = append(result.Specs, SpecResult{
				Name: spec.Name, Outcome: OutcomeSkipped, Detail: "done in a previous run",
			})
			continue
		}

		if blockedBy := i.blockedBy(spec, failed); blockedBy != "" {
			failed[spec.Name] = true
			result.Specs = append(result.Specs, SpecResult{
				Name: spec.Name, Outcome: OutcomeBlocked,
				Detail: "blocked by failed dependency " + blockedBy,
			})
			continue
		}

		specResult, err := i.provision(ctx, spec, managerErr)
		if err != nil {
			return nil, err
		}
		result.Specs = append(result.Specs, specResult)

		if specResult.Outcome == OutcomeFailed {
			failed[spec.Name] = true
			if !i.opts.ContinueOnError {
				aborted = true
			}
		}
	}

	if !aborted {
		appended, err := i.patchProfiles(result)
		if err != nil {
			return result, err
		}
		result.AppendedExports = appended
	}

	return result, nil
}

// prepareManager makes the platform package manager usable: present
// and with a fresh index. Called once per run, and only when the plan
// still has package-manager work to do. Its error is attached to
// every package-manager spec rather than failing the whole run, so
// source builds can proceed under continue-on-error.
func (i *Installer) prepareManager(ctx context.Context, records map[string]types.ProvisionRecord) error {
	needed := false
	for _, spec := range i.plan.Specs {
		if spec.Strategy != types.StrategyPackageManager {
			continue
		}
		if record, ok := records[spec.Name]; ok && record.Status == types.StatusDone && !i.opts.Force {
			continue
		}
		needed = true
		break
	}
	if !needed {
		return nil
	}

	manager := i.adapters.Manager()
	if err := manager.EnsureManagerPresent(ctx); err != nil {
		return err
	}
	return manager.UpdateIndex(ctx)
}

// provision runs the state machine for one spec:
// pending -> in-progress -> done|failed, each transition persisted
// before the next step.
func (i *Installer) provision(ctx context.Context, spec types.DependencySpec, managerErr error) (SpecResult, error) {
	logger := logging.GetLogger("installer")

	if err := i.saveStatus(spec.Name, types.StatusInProgress, ""); err != nil {
		return SpecResult{}, err
	}

	failSpec := func(cause error) (SpecResult, error) {
		if err := i.saveStatus(spec.Name, types.StatusFailed, cause.Error()); err != nil {
			return SpecResult{}, err
		}
		logger.Warn().Str("spec", spec.Name).Err(cause).Msg("Spec failed")
		return SpecResult{Name: spec.Name, Outcome: OutcomeFailed, Detail: cause.Error(), Err: cause}, nil
	}

	if spec.Strategy == types.StrategyPackageManager && managerErr != nil {
		return failSpec(managerErr)
	}

	ad, err := i.adapters.For(spec.Strategy)
	if err != nil {
		return failSpec(err)
	}

	installed, err := ad.IsInstalled(ctx, spec)
	if err != nil {
		return failSpec(err)
	}
	if installed {
		logger.Info().Str("spec", spec.Name).Msg("Already satisfied")
		if err := i.saveStatus(spec.Name, types.StatusDone, ""); err != nil {
			return SpecResult{}, err
		}
		return SpecResult{Name: spec.Name, Outcome: OutcomeDone, Detail: "already installed"}, nil
	}

	installCtx := ctx
	if i.opts.InstallTimeout > 0 {
		var cancel context.CancelFunc
		installCtx, cancel = context.WithTimeout(ctx, i.opts.InstallTimeout)
		defer cancel()
	}

	logger.Info().Str("spec", spec.Name).Str("strategy", string(spec.Strategy)).Msg("Installing")
	if err := ad.Install(installCtx, spec); err != nil {
		return failSpec(err)
	}

	for _, hook := range spec.PostInstall {
		if err := i.hooks.Run(ctx, spec.Name, hook); err != nil {
			return failSpec(err)
		}
	}

	if err := i.saveStatus(spec.Name, types.StatusDone, ""); err != nil {
		return SpecResult{}, err
	}
	return SpecResult{Name: spec.Name, Outcome: OutcomeDone, Detail: "installed"}, nil
}

// blockedBy returns the name of a failed direct predecessor, if any.
// Blocked specs join the failed set themselves, so transitive
// blocking falls out of the direct check.
func (i *Installer) blockedBy(spec types.DependencySpec, failed map[string]bool) string {
	for _, dep := range spec.After {
		if failed[dep] {
			return dep
		}
	}
	return ""
}

// patchProfiles appends the exports of every done spec to the
// configured profile files.
func (i *Installer) patchProfiles(result *Result) (int, error) {
	if len(i.opts.ProfileFiles) == 0 {
		return 0, nil
	}

	var exports []types.Export
	done := make(map[string]bool)
	for _, r := range result.Specs {
		if r.Outcome == OutcomeDone || r.Outcome == OutcomeSkipped {
			done[r.Name] = true
		}
	}
	for _, spec := range i.plan.Specs {
		if done[spec.Name] {
			exports = append(exports, spec.Exports...)
		}
	}
	if len(exports) == 0 {
		return 0, nil
	}

	appended, err := i.patcher.Patch(i.opts.ProfileFiles, exports)
	if err != nil {
		return appended, errors.Wrap(err, errors.ErrPatch, "profile patching failed")
	}
	return appended, nil
}

func (i *Installer) saveStatus(name string, status types.RecordStatus, detail string) error {
	return i.store.Save(types.ProvisionRecord{
		SpecName:    name,
		Status:      status,
		Timestamp:   time.Now().UTC(),
		ErrorDetail: detail,
	})
}
