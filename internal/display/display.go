package display

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"ChainPulse/internal/domain/models"
	"ChainPulse/internal/usecase"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 2).
			Width(78)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			Width(16)

	positiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	negativeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	neutralStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

func panel(title string, rows ...string) string {
	body := lipgloss.JoinVertical(lipgloss.Left, rows...)
	return lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), panelStyle.Render(body))
}

func signed(v float64, format string) string {
	if math.IsNaN(v) {
		return mutedStyle.Render("n/a")
	}
	s := fmt.Sprintf(format, v)
	switch {
	case v > 0:
		return positiveStyle.Render("+" + s)
	case v < 0:
		return negativeStyle.Render(s)
	default:
		return neutralStyle.Render(s)
	}
}

func recommendation(r models.Recommendation) string {
	switch r {
	case models.StrongBuy, models.Buy:
		return positiveStyle.Render(string(r))
	case models.StrongSell, models.Sell:
		return negativeStyle.Render(string(r))
	default:
		return neutralStyle.Render(string(r))
	}
}

func bullets(items []string) []string {
	if len(items) == 0 {
		return []string{mutedStyle.Render("  (none)")}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, "  • "+it)
	}
	return out
}

// Analysis renders a market analysis for the terminal.
func Analysis(a *models.MarketAnalysis) string {
	rows := []string{
		row("Price", fmt.Sprintf("%.4f", a.Price)),
		row("24h change", signed(a.PriceChange, "%.2f%%")),
		row("24h volume", fmt.Sprintf("%.0f", a.Volume24h)),
		row("Liquidity", fmt.Sprintf("%.0f", a.Liquidity)),
		row("Sentiment", fmt.Sprintf("%.2f", a.Sentiment)),
		row("Recommendation", recommendation(a.Recommendation)),
		"",
		"Technical",
	}
	rows = append(rows, bullets(a.Signals.Technical)...)
	rows = append(rows, "Fundamental")
	rows = append(rows, bullets(a.Signals.Fundamental)...)
	rows = append(rows, "Social")
	rows = append(rows, bullets(a.Signals.Social)...)
	if len(a.SourceErrors) > 0 {
		keys := make([]string, 0, len(a.SourceErrors))
		for k := range a.SourceErrors {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		rows = append(rows, "", mutedStyle.Render("Unavailable sources"))
		for _, k := range keys {
			rows = append(rows, mutedStyle.Render("  "+k+": "+a.SourceErrors[k]))
		}
	}
	return panel(fmt.Sprintf("%s analysis · %s", a.Token, a.Timestamp.Format("2006-01-02 15:04")), rows...)
}

// Validation renders the outcome of a trade check.
func Validation(trade *models.Trade, quote *models.VenueQuote, rej *usecase.Rejection) string {
	rows := []string{
		row("Trade", fmt.Sprintf("%s %.2f %s (%s)", trade.Type, trade.Amount, trade.Token, trade.Pair)),
	}
	if rej != nil {
		rows = append(rows,
			row("Result", negativeStyle.Render("REJECTED")),
			row("Stage", rej.Stage),
			row("Reason", rej.Reason),
		)
	} else {
		rows = append(rows, row("Result", positiveStyle.Render("VALID")))
	}
	if quote != nil {
		rows = append(rows,
			row("Venue", fmt.Sprintf("%s (%s)", quote.Protocol.Name, quote.Protocol.Kind)),
			row("Venue TVL", fmt.Sprintf("%.0f", quote.Protocol.TVL)),
			row("Price impact", fmt.Sprintf("%.3f%%", quote.PriceImpact)),
		)
	}
	return panel("Trade validation", rows...)
}

// TVLTrend renders a chain TVL trend with its leading protocols.
func TVLTrend(t *models.TVLTrend, top int) string {
	dir := string(t.Trend)
	switch t.Trend {
	case models.TVLGrowing:
		dir = positiveStyle.Render(dir)
	case models.TVLDeclining:
		dir = negativeStyle.Render(dir)
	default:
		dir = neutralStyle.Render(dir)
	}
	rows := []string{
		row("Trend", dir+" ("+string(t.Strength)+")"),
		row("Weighted", signed(t.WeightedChange, "%.2f%%")),
		row("Confidence", fmt.Sprintf("%.2f", t.Confidence)),
		"",
	}
	protocols := t.Protocols
	if top > 0 && len(protocols) > top {
		protocols = protocols[:top]
	}
	for _, p := range protocols {
		rows = append(rows, fmt.Sprintf("  %-22s %6.2f%%  24h %s  7d %s",
			truncate(p.Name, 22), p.Dominance, signed(p.Change24h, "%.2f%%"), signed(p.Change7d, "%.2f%%")))
	}
	return panel("TVL trend · "+t.Chain, rows...)
}

// NFTTrends renders one panel per collection.
func NFTTrends(trends []models.NFTTrend) string {
	if len(trends) == 0 {
		return mutedStyle.Render("no collections analyzed")
	}
	panels := make([]string, 0, len(trends))
	for _, t := range trends {
		panels = append(panels, panel("NFT · "+t.Collection,
			row("Trend", string(t.Trend)),
			row("Change", signed(t.ChangePercent, "%.2f%%")),
			row("Confidence", fmt.Sprintf("%.2f", t.Confidence)),
			row("Floor", fmt.Sprintf("%.4f", t.Stats.FloorPrice)),
			row("24h volume", fmt.Sprintf("%.2f", t.Stats.Volume24h)),
			row("24h sales", fmt.Sprintf("%d", t.Stats.Sales24h)),
		))
	}
	return strings.Join(panels, "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
