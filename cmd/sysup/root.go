package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/sysup/internal/version"
	"github.com/arthur-debert/sysup/pkg/errors"
	"github.com/arthur-debert/sysup/pkg/logging"
)

// Exit codes of the sysup binary.
const (
	exitOK           = 0
	exitFailed       = 1
	exitPrecondition = 2
	exitConcurrent   = 3
)

var (
	verbosity    int
	manifestPath string
	configPath   string

	rootCmd = &cobra.Command{
		Use:   "sysup",
		Short: "Idempotent system dependency provisioning",
		Long: `sysup installs the system dependencies declared in a manifest,
idempotently and resumably: already-installed dependencies are skipped,
interrupted runs pick up where they stopped, and shell profiles are
patched exactly once.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the CLI and maps the outcome to an exit code:
// 0 all done, 1 one or more specs failed, 2 precondition failure
// (unsupported platform or conflicting toolchain), 3 concurrent run.
func Execute() int {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	switch errors.GetErrorCode(err) {
	case errors.ErrUnsupportedPlatform, errors.ErrConflictingToolchain:
		return exitPrecondition
	case errors.ErrConcurrentRun:
		return exitConcurrent
	}
	return exitFailed
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().StringVarP(&manifestPath, "manifest", "m", "",
		"Manifest file (default $SYSUP_MANIFEST, then <config dir>/manifest.toml)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file (default <config dir>/sysup.toml)")

	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sysup version %s\n", version.Version)
		fmt.Printf("  commit: %s\n", version.Commit)
		fmt.Printf("  built:  %s\n", version.Date)
	},
}
