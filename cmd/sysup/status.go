package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/sysup/pkg/paths"
	"github.com/arthur-debert/sysup/pkg/provlog"
	"github.com/arthur-debert/sysup/pkg/report"
	"github.com/arthur-debert/sysup/pkg/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted provision log",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := provlog.New(paths.New())
		byName, err := store.Load()
		if err != nil {
			return err
		}

		if len(byName) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No provisioning records.")
			return nil
		}

		records := make([]types.ProvisionRecord, 0, len(byName))
		for _, record := range byName {
			records = append(records, record)
		}
		sort.Slice(records, func(i, j int) bool {
			return records[i].SpecName < records[j].SpecName
		})

		for _, line := range report.New(os.Stdout).RecordLines(records) {
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	},
}
