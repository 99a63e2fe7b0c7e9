// Package report renders the human-facing surfaces of a run: the
// dry-run plan listing and the final per-spec summary.
package report

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/arthur-debert/sysup/pkg/installer"
	"github.com/arthur-debert/sysup/pkg/types"
)

var (
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	skippedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	blockedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
)

// Renderer formats plan and summary output. Colors are used only when
// the destination is a terminal.
type Renderer struct {
	styled bool
}

// New creates a Renderer for the given output file.
func New(out *os.File) *Renderer {
	return &Renderer{styled: isatty.IsTerminal(out.Fd())}
}

// NewPlain creates a Renderer that never colors, for tests and pipes.
func NewPlain() *Renderer {
	return &Renderer{}
}

// PlanLines renders one line per planned spec, naming the mechanism
// that would satisfy it.
func (r *Renderer) PlanLines(plan types.DependencyPlan) []string {
	lines := make([]string, 0, len(plan.Specs))
	for _, spec := range plan.Specs {
		lines = append(lines, fmt.Sprintf("%s -> %s", spec.Name, describeStrategy(spec, plan.Profile)))
	}
	return lines
}

func describeStrategy(spec types.DependencySpec, profile types.PlatformProfile) string {
	switch spec.Strategy {
	case types.StrategySourceBuild:
		return "build from source"
	case types.StrategyDownloadBinary:
		return "download binary"
	default:
		return fmt.Sprintf("%s:%s", managerShorthand(profile.PackageManager), spec.PackageName())
	}
}

func managerShorthand(kind types.ManagerKind) string {
	if kind == types.ManagerHomebrew {
		return "brew"
	}
	return "apt"
}

// Summary renders the final status of every spec plus, for failures,
// the captured error detail.
func (r *Renderer) Summary(result *installer.Result) string {
	var b strings.Builder

	counts := make(map[installer.Outcome]int)
	for _, spec := range result.Specs {
		counts[spec.Outcome]++

		fmt.Fprintf(&b, "  %-12s %s", r.outcome(spec.Outcome), spec.Name)
		if spec.Detail != "" && spec.Outcome != installer.OutcomeFailed {
			fmt.Fprintf(&b, "  %s", r.style(mutedStyle, "("+spec.Detail+")"))
		}
		b.WriteByte('\n')

		if spec.Outcome == installer.OutcomeFailed {
			for _, line := range strings.Split(strings.TrimSpace(spec.Detail), "\n") {
				fmt.Fprintf(&b, "      %s\n", r.style(failedStyle, line))
			}
		}
	}

	fmt.Fprintf(&b, "\n%d done, %d skipped, %d failed, %d blocked, %d not run\n",
		counts[installer.OutcomeDone],
		counts[installer.OutcomeSkipped],
		counts[installer.OutcomeFailed],
		counts[installer.OutcomeBlocked],
		counts[installer.OutcomeNotRun])

	if result.AppendedExports > 0 {
		fmt.Fprintf(&b, "%d profile export(s) appended\n", result.AppendedExports)
	}
	return b.String()
}

// RecordLines renders the persisted provision log for the status
// command. Records come pre-sorted by the caller.
func (r *Renderer) RecordLines(records []types.ProvisionRecord) []string {
	lines := make([]string, 0, len(records))
	for _, record := range records {
		line := fmt.Sprintf("  %-12s %s  %s",
			r.status(record.Status),
			record.SpecName,
			r.style(mutedStyle, record.Timestamp.Format("2006-01-02 15:04:05")))
		if record.ErrorDetail != "" {
			line += "\n      " + r.style(failedStyle, firstLine(record.ErrorDetail))
		}
		lines = append(lines, line)
	}
	return lines
}

func (r *Renderer) outcome(o installer.Outcome) string {
	switch o {
	case installer.OutcomeDone:
		return r.style(doneStyle, string(o))
	case installer.OutcomeSkipped:
		return r.style(skippedStyle, string(o))
	case installer.OutcomeFailed:
		return r.style(failedStyle, string(o))
	case installer.OutcomeBlocked:
		return r.style(blockedStyle, string(o))
	}
	return r.style(mutedStyle, string(o))
}

func (r *Renderer) status(s types.RecordStatus) string {
	switch s {
	case types.StatusDone:
		return r.style(doneStyle, string(s))
	case types.StatusFailed:
		return r.style(failedStyle, string(s))
	case types.StatusInProgress:
		return r.style(blockedStyle, string(s))
	}
	return r.style(mutedStyle, string(s))
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if !r.styled {
		return text
	}
	return s.Render(text)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
