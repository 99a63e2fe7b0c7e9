package report_test

import (
	"testing"
	"time"

	"github.com/arthur-debert/sysup/pkg/installer"
	"github.com/arthur-debert/sysup/pkg/report"
	"github.com/arthur-debert/sysup/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanLines(t *testing.T) {
	plan := types.DependencyPlan{
		Profile: types.PlatformProfile{
			OSFamily:       types.OSDebian,
			Arch:           types.ArchX8664,
			PackageManager: types.ManagerApt,
		},
		Specs: []types.DependencySpec{
			{Name: "autoconf", MinVersion: "2.71", Strategy: types.StrategySourceBuild},
			{Name: "doxygen", Strategy: types.StrategyPackageManager},
		},
	}

	lines := report.NewPlain().PlanLines(plan)
	require.Len(t, lines, 2)
	assert.Equal(t, "autoconf -> build from source", lines[0])
	assert.Equal(t, "doxygen -> apt:doxygen", lines[1])
}

func TestPlanLinesBrewAndOverrides(t *testing.T) {
	plan := types.DependencyPlan{
		Profile: types.PlatformProfile{
			OSFamily:       types.OSDarwin,
			PackageManager: types.ManagerHomebrew,
		},
		Specs: []types.DependencySpec{
			{Name: "gnu-make", Package: "make", Strategy: types.StrategyPackageManager},
			{Name: "tool", Strategy: types.StrategyDownloadBinary},
		},
	}

	lines := report.NewPlain().PlanLines(plan)
	assert.Equal(t, "gnu-make -> brew:make", lines[0])
	assert.Equal(t, "tool -> download binary", lines[1])
}

func TestSummaryListsEverySpecAndCounts(t *testing.T) {
	result := &installer.Result{
		Specs: []installer.SpecResult{
			{Name: "doxygen", Outcome: installer.OutcomeDone, Detail: "already installed"},
			{Name: "autoconf", Outcome: installer.OutcomeFailed,
				Detail: "[TIMEOUT] command timed out\nlast line of stderr"},
			{Name: "cmake", Outcome: installer.OutcomeBlocked, Detail: "blocked by failed dependency autoconf"},
			{Name: "gdb", Outcome: installer.OutcomeNotRun},
		},
	}

	out := report.NewPlain().Summary(result)
	assert.Contains(t, out, "doxygen")
	assert.Contains(t, out, "(already installed)")
	assert.Contains(t, out, "last line of stderr")
	assert.Contains(t, out, "1 done, 0 skipped, 1 failed, 1 blocked, 1 not run")
}

func TestSummaryReportsAppendedExports(t *testing.T) {
	result := &installer.Result{
		Specs:           []installer.SpecResult{{Name: "gridlabd", Outcome: installer.OutcomeDone}},
		AppendedExports: 2,
	}

	out := report.NewPlain().Summary(result)
	assert.Contains(t, out, "2 profile export(s) appended")
}

func TestRecordLines(t *testing.T) {
	records := []types.ProvisionRecord{
		{SpecName: "doxygen", Status: types.StatusDone,
			Timestamp: time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)},
		{SpecName: "autoconf", Status: types.StatusFailed,
			Timestamp:   time.Date(2026, 8, 20, 10, 5, 0, 0, time.UTC),
			ErrorDetail: "exit status 1\nmore detail"},
	}

	lines := report.NewPlain().RecordLines(records)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "done")
	assert.Contains(t, lines[0], "2026-08-20 10:00:05"[:10])
	assert.Contains(t, lines[1], "failed")
	assert.Contains(t, lines[1], "exit status 1")
	assert.NotContains(t, lines[1], "more detail", "only the first line of detail is shown")
}
