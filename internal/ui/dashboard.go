package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

func (a *App) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return a, a.quit()

	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}

	case "down", "j":
		if a.cursor < len(a.symbols)-1 {
			a.cursor++
		}

	case "enter":
		if len(a.symbols) > 0 {
			a.detail.SetSymbol(a.symbols[a.cursor])
			a.screen = screenDetail
		}

	case "L":
		a.logout()
	}
	return a, nil
}

func (a *App) viewDashboard() string {
	s := a.dash.Snapshot()

	var b strings.Builder
	b.WriteString(titleStyle.Render("Cryptocurrency Dashboard"))
	if u := a.session.Snapshot().User; u != nil {
		b.WriteString(dimStyle.Render("  ·  " + u.Username))
	}
	b.WriteString("\n\n")

	if s.Err != nil {
		b.WriteString(errorStyle.Render("Failed to fetch cryptocurrency data. Retrying...") + "\n\n")
	}

	if s.Loading {
		b.WriteString(a.spin.View() + " loading prices...\n")
		return b.String()
	}

	if len(s.Prices) == 0 {
		b.WriteString(dimStyle.Render("No data available") + "\n")
		return b.String()
	}

	b.WriteString(headerStyle.Render(fmt.Sprintf("  %-10s %14s %10s %16s %16s", "SYMBOL", "PRICE", "24H", "24H VOLUME", "MARKET CAP")))
	b.WriteString("\n")

	for i, p := range s.Prices {
		symStyle := symbolStyle
		marker := "  "
		if i == a.cursor {
			symStyle = symbolHlStyle
			marker = "> "
		}
		line := fmt.Sprintf("%s%s %s %s %s %s",
			marker,
			symStyle.Render(fmt.Sprintf("%-10s", p.Symbol)),
			priceStyle.Render(fmt.Sprintf("%14s", formatUSD(p.Price))),
			pctStyle(p.PriceChangePercent24h).Render(fmt.Sprintf("%9.2f%%", p.PriceChangePercent24h)),
			dimStyle.Render(fmt.Sprintf("%16s", formatCompactUSD(p.Volume24h))),
			dimStyle.Render(fmt.Sprintf("%16s", formatCompactUSD(p.MarketCap))),
		)
		b.WriteString(line + "\n")
	}

	if !s.UpdatedAt.IsZero() {
		b.WriteString("\n" + dimStyle.Render("updated "+s.UpdatedAt.Format("15:04:05")))
	}
	b.WriteString("\n" + dimStyle.Render("↑/↓ select · enter details · L logout · q quit"))
	return b.String()
}

// formatUSD renders a price with two decimals and thousands separators.
func formatUSD(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := fmt.Sprintf("%.2f", v)

	dot := strings.IndexByte(s, '.')
	intPart, frac := s[:dot], s[dot:]
	var out strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteRune(r)
	}
	sign := "$"
	if neg {
		sign = "-$"
	}
	return sign + out.String() + frac
}

// formatCompactUSD abbreviates large dollar amounts (1.26T, 28.00B, ...).
func formatCompactUSD(v float64) string {
	switch {
	case v >= 1e12:
		return fmt.Sprintf("$%.2fT", v/1e12)
	case v >= 1e9:
		return fmt.Sprintf("$%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("$%.2fM", v/1e6)
	default:
		return formatUSD(v)
	}
}
