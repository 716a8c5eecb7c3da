package simulator

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Bold(true).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Width(14)

	winStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96CEB4")).
			Bold(true)

	lossStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
)

func signed(v float64, format string) string {
	s := fmt.Sprintf(format, v)
	if v < 0 {
		return lossStyle.Render(s)
	}
	return winStyle.Render(s)
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

// Summary renders a simulation result for the terminal.
func Summary(res *Result) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%d rounds, seed %d", res.Rounds, res.Seed)))
	b.WriteString("\n")

	boxes := make([]string, 0, len(res.Players))
	for _, p := range res.Players {
		s := p.Stats
		lo, hi := s.ConfidenceInterval95()
		lines := []string{
			headerStyle.Render(p.ID),
			row("rounds", fmt.Sprintf("%d", s.Rounds)),
			row("net", signed(float64(s.Net), "%+.0f")),
			row("units/round", signed(s.Mean(), "%+.4f")),
			row("95% CI", fmt.Sprintf("[%+.4f, %+.4f]", lo, hi)),
			row("edge", signed(s.Edge()*100, "%+.2f%%")),
			row("win rate", fmt.Sprintf("%.1f%%", s.WinRate()*100)),
			row("blackjacks", fmt.Sprintf("%d", s.Blackjacks)),
			row("doubles", fmt.Sprintf("%d", s.Doubles)),
			row("splits", fmt.Sprintf("%d", s.Splits)),
			row("P5/P95", fmt.Sprintf("%+.1f / %+.1f", s.Percentile(0.05), s.Percentile(0.95))),
			row("bankroll", fmt.Sprintf("%d", p.Bankroll)),
		}
		boxes = append(boxes, boxStyle.Render(strings.Join(lines, "\n")))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	b.WriteString("\n")

	b.WriteString(row("house", signed(float64(res.House), "%+.0f")))
	b.WriteString("\n")
	if res.StopReason != "" {
		b.WriteString(row("stopped", res.StopReason))
		b.WriteString("\n")
	}
	b.WriteString(row("elapsed", res.Elapsed.Round(1e6).String()))
	b.WriteString("\n")
	return b.String()
}
