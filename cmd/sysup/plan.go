package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/sysup/pkg/paths"
	"github.com/arthur-debert/sysup/pkg/platform"
	"github.com/arthur-debert/sysup/pkg/report"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show what up would install, without installing anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := platform.Detect(hostProbe())
		if err != nil {
			return err
		}

		dependencyPlan, err := loadPlan(paths.New(), profile)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Plan for %s (%d dependencies):\n",
			profile.String(), len(dependencyPlan.Specs))
		for _, line := range report.NewPlain().PlanLines(dependencyPlan) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", line)
		}
		return nil
	},
}
