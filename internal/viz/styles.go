package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/vdesim/internal/dynamo"
	"github.com/san-kum/vdesim/internal/sim"
)

var (
	canvasStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Padding(0, 1)

	statsStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 2).
			Width(48)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("#444466"))

	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888899")).Width(16)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ccff")).Bold(true)
	graphStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("49"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688")).Italic(true).MarginTop(1)

	statusOK     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff88"))
	statusPaused = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffaa00"))
	statusFailed = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff4444"))
)

// StatusBadge colors a status: green for success or still running, red for
// any disruption.
func StatusBadge(s dynamo.Status) string {
	if s.Terminal() && s != dynamo.StatusSuccess {
		return statusFailed.Render(s.String())
	}
	return statusOK.Render(s.String())
}

func row(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value) + "\n"
}

// Summary renders run metrics as a labelled block.
func Summary(m sim.Metrics) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s  %s", m.RunID(), m.Controller)) + "\n")
	b.WriteString(labelStyle.Render("status") + StatusBadge(m.Status) + "\n")
	b.WriteString(row("seed", fmt.Sprintf("%d", m.Seed)))
	b.WriteString(row("sim time", fmt.Sprintf("%.4f s", m.Duration)))
	b.WriteString(row("steps", fmt.Sprintf("%d", m.Steps)))
	b.WriteString(row("compute", fmt.Sprintf("%.1f ms", m.ComputeMillis)))
	b.WriteString(row("peak |z|", fmt.Sprintf("%.2f mm", m.MaxZ*1000)))
	b.WriteString(row("mean |u|", fmt.Sprintf("%.4f", m.MeanU)))
	b.WriteString(row("violations", fmt.Sprintf("%d", m.Violations)))
	b.WriteString(row("final z", fmt.Sprintf("%.3e m", m.FinalState.Z)))
	b.WriteString(row("final Ip", fmt.Sprintf("%.4g", m.FinalState.Ip)))
	if m.SolverFailures > 0 {
		b.WriteString(row("solver fails", fmt.Sprintf("%d", m.SolverFailures)))
	}
	if m.LQRFallback {
		b.WriteString(labelStyle.Render("lqr gain") + statusPaused.Render("zero-gain fallback") + "\n")
	}
	return b.String()
}
