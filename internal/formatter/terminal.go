package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kailas-cloud/embcompare/internal/domain"
)

var (
	excellentColor = lipgloss.AdaptiveColor{Light: "#10B981", Dark: "#34D399"}
	goodColor      = lipgloss.AdaptiveColor{Light: "#F59E0B", Dark: "#FBBF24"}
	fairColor      = lipgloss.AdaptiveColor{Light: "#EF4444", Dark: "#F87171"}
	infoColor      = lipgloss.AdaptiveColor{Light: "#3B82F6", Dark: "#60A5FA"}
	mutedColor     = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
)

const (
	defaultWidth   = 120
	minColumnWidth = 28
)

// terminalFormatter renders providers side by side.
type terminalFormatter struct {
	width int
}

// NewTerminal creates a terminal formatter. width <= 0 selects a default.
func NewTerminal(width int) Formatter {
	if width <= 0 {
		width = defaultWidth
	}
	return &terminalFormatter{width: width}
}

func (f *terminalFormatter) Format(report *domain.ComparisonReport) ([]byte, error) {
	titleStyle := lipgloss.NewStyle().Foreground(infoColor).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(mutedColor)

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%q", report.Query)))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  domain=%s top_k=%d run=%s", report.Domain, report.TopK, report.RunID)))
	b.WriteString("\n\n")

	colWidth := f.columnWidth(len(report.Providers))
	columns := make([]string, 0, len(report.Providers))
	for _, name := range report.Providers {
		columns = append(columns, renderColumn(name, report.Results[name], colWidth))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, columns...))
	b.WriteString("\n")
	b.WriteString(renderSummary(report.Summary))
	b.WriteString("\n")
	return []byte(b.String()), nil
}

func (f *terminalFormatter) columnWidth(n int) int {
	if n == 0 {
		return f.width
	}
	// 4 = border + padding per side.
	w := f.width/n - 4
	return max(w, minColumnWidth)
}

// BandStyle returns the color style for a quality band.
func BandStyle(b domain.Band) lipgloss.Style {
	switch b {
	case domain.BandExcellent:
		return lipgloss.NewStyle().Foreground(excellentColor)
	case domain.BandGood:
		return lipgloss.NewStyle().Foreground(goodColor)
	default:
		return lipgloss.NewStyle().Foreground(fairColor)
	}
}

func renderColumn(name string, res domain.ProviderResult, width int) string {
	o := res.Outcome
	titleStyle := lipgloss.NewStyle().Foreground(infoColor).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(mutedColor)
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(mutedColor).
		Padding(0, 1).
		Width(width)

	lines := []string{
		titleStyle.Render(name),
		mutedStyle.Render(fmt.Sprintf("%s · %s (%dd)", o.Model, o.Namespace.Name, o.Namespace.Dimensions)),
		"",
	}

	if f := o.Failure; f != nil {
		boxStyle = boxStyle.BorderForeground(fairColor)
		errStyle := lipgloss.NewStyle().Foreground(fairColor).Bold(true)
		lines = append(lines, errStyle.Render(fmt.Sprintf("✗ %s (%s)", f.Kind, f.Stage)))
		lines = append(lines, f.Detail)
		if f.Hint != "" {
			lines = append(lines, mutedStyle.Render(f.Hint))
		}
		if f.RetryExhausted {
			lines = append(lines, mutedStyle.Render("retries exhausted"))
		}
	} else if len(res.Matches) == 0 {
		lines = append(lines, mutedStyle.Render("no matches"))
	}

	for _, m := range res.Matches {
		label := m.Match.Text()
		if label == "" {
			label = m.Match.ID()
		}
		lines = append(lines, fmt.Sprintf("%2d. %s %s",
			m.Rank, BandStyle(m.Band).Render(fmt.Sprintf("%.4f", m.Match.Distance())), label))
	}

	lines = append(lines, "")
	footer := fmt.Sprintf("%dms · %d attempts", o.Elapsed.Milliseconds(), o.Attempts)
	if st := res.Stats; st != nil {
		footer += fmt.Sprintf(" · mean %.4f", st.MeanDistance)
	}
	if o.Stats != nil && o.Stats.ApproxCount > 0 {
		footer += fmt.Sprintf(" · %d rows", o.Stats.ApproxCount)
	}
	lines = append(lines, mutedStyle.Render(footer))

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderSummary(s domain.Summary) string {
	if s.NoSuccessfulProviders {
		return lipgloss.NewStyle().Foreground(fairColor).Bold(true).Render("No provider returned results.")
	}
	label := lipgloss.NewStyle().Foreground(mutedColor)
	value := lipgloss.NewStyle().Foreground(excellentColor).Bold(true)

	parts := []string{}
	if s.BestQuality != "" {
		parts = append(parts, label.Render("best quality: ")+value.Render(s.BestQuality))
	}
	if s.Fastest != "" {
		parts = append(parts, label.Render("fastest: ")+value.Render(s.Fastest))
	}
	parts = append(parts, label.Render(fmt.Sprintf("%d succeeded, %d failed", s.Succeeded, s.Failed)))
	return strings.Join(parts, "   ")
}
