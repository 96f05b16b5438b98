package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

func (a *App) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return a, a.quit()

	case "esc", "backspace":
		a.detail.Close()
		a.screen = screenDashboard
	}
	return a, nil
}

func (a *App) viewDetail() string {
	s := a.detail.Snapshot()

	var b strings.Builder
	b.WriteString(titleStyle.Render(s.Symbol + " Details"))
	b.WriteString("\n\n")

	if s.Err != nil {
		b.WriteString(errorStyle.Render("Failed to fetch cryptocurrency data. Retrying...") + "\n\n")
	}

	if s.Loading && s.Latest == nil {
		b.WriteString(a.spin.View() + " loading...\n")
		return b.String()
	}

	if s.Latest != nil {
		b.WriteString(a.renderSnapshotCards())
		b.WriteString("\n")
	}

	b.WriteString(a.renderMergedSeries())
	b.WriteString("\n" + dimStyle.Render("esc back · q quit"))
	return b.String()
}

func (a *App) renderSnapshotCards() string {
	s := a.detail.Snapshot()
	p := s.Latest

	price := fmt.Sprintf("%s\n%s\n%s %s",
		labelStyle.Render("Current Price"),
		priceStyle.Render(formatUSD(p.Price)),
		pctStyle(p.PriceChangePercent24h).Render(fmt.Sprintf("%+.2f%%", p.PriceChangePercent24h)),
		dimStyle.Render("(24h)"),
	)

	market := fmt.Sprintf("%s\n%s %s   %s %s\n%s %s   %s %s",
		labelStyle.Render("Market Data"),
		labelStyle.Render("Vol:"), formatCompactUSD(p.Volume24h),
		labelStyle.Render("Cap:"), formatCompactUSD(p.MarketCap),
		labelStyle.Render("High:"), formatUSD(p.High24h),
		labelStyle.Render("Low:"), formatUSD(p.Low24h),
	)

	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		cardStyle.Render(price),
		cardStyle.Render(market),
	)
	return cards + "\n" + dimStyle.Render("Last updated: "+p.Timestamp.Format("2006-01-02 15:04:05")) + "\n"
}

// renderMergedSeries draws the reconciled actual/forecast series as two
// aligned lanes with the seam visible where actual values end.
func (a *App) renderMergedSeries() string {
	s := a.detail.Snapshot()

	if len(s.Merged) == 0 {
		return dimStyle.Render("No historical data available") + "\n"
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-17s %14s %14s", "TIME", "ACTUAL", "FORECAST")))
	b.WriteString("\n")

	for _, pt := range s.Merged {
		actual, forecast := dimStyle.Render(fmt.Sprintf("%14s", "—")), dimStyle.Render(fmt.Sprintf("%14s", "—"))
		if pt.Actual != nil {
			actual = priceStyle.Render(fmt.Sprintf("%14s", formatUSD(*pt.Actual)))
		}
		if pt.Predicted != nil {
			forecast = forecastStyle.Render(fmt.Sprintf("%14s", formatUSD(*pt.Predicted)))
		}
		b.WriteString(fmt.Sprintf("%-17s %s %s\n", pt.Timestamp.Format("Jan 02 15:04"), actual, forecast))
	}

	if len(s.Predictions) > 0 {
		b.WriteString("\n" + labelStyle.Render("Predictions") + "\n")
		for _, pred := range s.Predictions {
			b.WriteString(fmt.Sprintf("  %s  %s %s %s\n",
				pred.TargetDate.Format("Jan 02"),
				forecastStyle.Render(formatUSD(pred.PredictedPrice)),
				dimStyle.Render("±"+formatUSD(pred.ConfidenceInterval)),
				dimStyle.Render(pred.Model),
			))
		}
	} else {
		b.WriteString("\n" + dimStyle.Render("No predictions available for this cryptocurrency") + "\n")
	}

	return b.String()
}
