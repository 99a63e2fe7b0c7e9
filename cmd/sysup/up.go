package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/sysup/pkg/adapter"
	"github.com/arthur-debert/sysup/pkg/config"
	"github.com/arthur-debert/sysup/pkg/envpatch"
	"github.com/arthur-debert/sysup/pkg/errors"
	"github.com/arthur-debert/sysup/pkg/hooks"
	"github.com/arthur-debert/sysup/pkg/installer"
	"github.com/arthur-debert/sysup/pkg/logging"
	"github.com/arthur-debert/sysup/pkg/manifest"
	"github.com/arthur-debert/sysup/pkg/paths"
	"github.com/arthur-debert/sysup/pkg/plan"
	"github.com/arthur-debert/sysup/pkg/platform"
	"github.com/arthur-debert/sysup/pkg/provlog"
	"github.com/arthur-debert/sysup/pkg/report"
	"github.com/arthur-debert/sysup/pkg/types"
)

var (
	dryRun          bool
	force           bool
	continueOnError bool
)

// hostProbe supplies the platform probe; tests substitute a fake to
// simulate other hosts.
var hostProbe = platform.NewHostProbe

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Install the dependencies declared in the manifest",
	Long: `Up detects the platform, builds the dependency plan and converges the
system on it. Dependencies already provisioned by a previous run are
skipped; failed ones are retried.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.GetLogger("cmd.up")

		p := paths.New()
		cfg, err := config.Load(resolveConfigPath(p))
		if err != nil {
			return err
		}

		profile, err := platform.Detect(hostProbe())
		if err != nil {
			return err
		}
		logger.Info().Str("profile", profile.String()).Msg("Platform detected")

		dependencyPlan, err := loadPlan(p, profile)
		if err != nil {
			return err
		}

		renderer := report.New(os.Stdout)
		if dryRun {
			for _, line := range renderer.PlanLines(dependencyPlan) {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		}

		store := provlog.New(p)
		if err := store.AcquireLock(); err != nil {
			return err
		}
		defer store.ReleaseLock()

		runner := adapter.NewRunner()
		adapters, err := adapter.NewSet(profile, runner, cfg.Bootstrap)
		if err != nil {
			return err
		}

		home, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, errors.ErrInternal, "could not determine home directory")
		}

		opts := installer.Options{
			Force:           force,
			ContinueOnError: continueOnError || cfg.ContinueOnError,
			InstallTimeout:  cfg.InstallTimeout,
			ProfileFiles:    profileFiles(cfg, profile, home),
		}

		inst := installer.New(dependencyPlan, store, adapters,
			hooks.New(runner, home), envpatch.New(home), opts)
		result, err := inst.Run(cmd.Context())
		if result != nil {
			fmt.Fprint(cmd.OutOrStdout(), renderer.Summary(result))
		}
		if err != nil {
			return err
		}

		if result.Failed() {
			failed := 0
			for _, s := range result.Specs {
				if s.Outcome == installer.OutcomeFailed || s.Outcome == installer.OutcomeBlocked {
					failed++
				}
			}
			return errors.Newf(errors.ErrInstall, "%d dependency(ies) did not complete", failed)
		}
		return nil
	},
}

func init() {
	upCmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"Print the plan without installing anything")
	upCmd.Flags().BoolVar(&force, "force", false,
		"Re-provision dependencies already recorded as done")
	upCmd.Flags().BoolVar(&continueOnError, "continue-on-error", false,
		"Proceed to independent dependencies after a failure")
}

func resolveConfigPath(p *paths.Paths) string {
	if configPath != "" {
		return configPath
	}
	return p.ConfigFilePath()
}

func loadPlan(p *paths.Paths, profile types.PlatformProfile) (types.DependencyPlan, error) {
	m, err := manifest.Load(p.ManifestPath(manifestPath))
	if err != nil {
		return types.DependencyPlan{}, err
	}
	return plan.Build(m, profile)
}

// profileFiles picks the patch targets: explicit configuration wins,
// otherwise the conventional startup files of the platform's default
// shell.
func profileFiles(cfg *config.Config, profile types.PlatformProfile, home string) []string {
	if len(cfg.ProfileFiles) > 0 {
		return cfg.ProfileFiles
	}
	if profile.OSFamily == types.OSDarwin {
		return []string{filepath.Join(home, ".zprofile")}
	}
	return []string{filepath.Join(home, ".profile"), filepath.Join(home, ".bashrc")}
}
