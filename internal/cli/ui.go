package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/dyike/CortexFolio/models"
	"github.com/dyike/CortexFolio/pkg/money"
)

// UI styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Background(lipgloss.Color("#1F2937")).
			Padding(0, 1).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 2).
			Width(80)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#10B981")).
			Padding(1, 2).
			Width(80)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	gainStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	lossStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8B5CF6")).
			Bold(true)

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6"))
)

// DisplayError shows an error message
func DisplayError(w io.Writer, err error) {
	fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("❌ Error: %s", err.Error())))
}

// DisplayInfo shows an info message
func DisplayInfo(w io.Writer, message string) {
	fmt.Fprintln(w, infoStyle.Render(fmt.Sprintf("ℹ️  %s", message)))
}

// DisplaySuccess shows a success message
func DisplaySuccess(w io.Writer, message string) {
	fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("✅ %s", message)))
}

func DisplayWarning(w io.Writer, message string) {
	fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("⚠️  %s", message)))
}

func field(label string, value any) string {
	return fmt.Sprintf("%s %v", labelStyle.Render(fmt.Sprintf("%-22s", label+":")), value)
}

// signed renders an amount in green when non-negative and red otherwise.
func signed(d decimal.Decimal, text string) string {
	if d.IsNegative() {
		return lossStyle.Render(text)
	}
	return gainStyle.Render(text)
}

func optionalUSD(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return money.FormatUSD(*d)
}

func optionalPercent(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return money.FormatPercent(*d)
}

// RenderPortfolio prints the portfolio header, totals and every holding.
func RenderPortfolio(w io.Writer, p *models.Portfolio) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("💼 %s  (%s)", p.Name, p.ID)))
	if p.Description != "" {
		fmt.Fprintln(w, labelStyle.Render(p.Description))
	}

	var totals strings.Builder
	totals.WriteString(field("Total value", money.FormatUSD(p.TotalValue)) + "\n")
	totals.WriteString(field("Total cost", money.FormatUSD(p.TotalCost)) + "\n")
	totals.WriteString(field("Gain/Loss", signed(p.TotalGainLoss,
		fmt.Sprintf("%s (%s)", money.FormatUSD(p.TotalGainLoss), money.FormatPercent(p.TotalGainLossPercentage)))) + "\n")
	totals.WriteString(field("Holdings", len(p.Stocks)))
	fmt.Fprintln(w, panelStyle.Render(totals.String()))

	if len(p.Stocks) == 0 {
		DisplayInfo(w, "No holdings yet. Add one with 'cortexfolio portfolio add'.")
		return
	}

	fmt.Fprintf(w, "%-8s %-24s %10s %12s %12s %14s %10s  %s\n",
		"SYMBOL", "COMPANY", "SHARES", "COST", "PRICE", "VALUE", "G/L %", "SECTOR")
	for _, h := range p.Stocks {
		gl := decimal.Zero
		if h.GainLoss != nil {
			gl = *h.GainLoss
		}
		fmt.Fprintf(w, "%-8s %-24s %10s %12s %12s %14s %10s  %s\n",
			h.Symbol,
			truncateString(h.CompanyName, 24),
			h.Shares.String(),
			money.FormatUSD(h.PurchasePrice),
			optionalUSD(h.CurrentPrice),
			optionalUSD(h.MarketValue),
			signed(gl, optionalPercent(h.GainLossPercentage)),
			h.SectorOrUnknown(),
		)
	}
}

func RenderPortfolioList(w io.Writer, summaries []models.PortfolioSummary) {
	if len(summaries) == 0 {
		DisplayInfo(w, "No portfolios yet. Create one with 'cortexfolio portfolio create'.")
		return
	}
	fmt.Fprintln(w, titleStyle.Render("📋 Portfolios"))
	for _, s := range summaries {
		fmt.Fprintf(w, "%-36s  %-20s %14s  %s  %d holdings\n",
			s.ID,
			truncateString(s.Name, 20),
			money.FormatUSD(s.TotalValue),
			signed(s.TotalGainLoss, money.FormatPercent(s.TotalGainLossPercentage)),
			s.StockCount,
		)
	}
}

func RenderAnalytics(w io.Writer, a *models.PortfolioAnalytics) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("📊 Analytics for %s", a.PortfolioID)))

	var b strings.Builder
	b.WriteString(field("Total value", money.FormatUSD(a.TotalValue)) + "\n")
	b.WriteString(field("Gain/Loss", signed(a.TotalGainLoss,
		fmt.Sprintf("%s (%s)", money.FormatUSD(a.TotalGainLoss), money.FormatPercent(a.TotalGainLossPct)))) + "\n")
	b.WriteString(field("Risk score", scoreText(a.RiskScore)) + "\n")
	b.WriteString(field("Diversification score", scoreText(a.DiversificationScore)))
	fmt.Fprintln(w, panelStyle.Render(b.String()))

	if len(a.SectorAllocation) > 0 {
		fmt.Fprintln(w, titleStyle.Render("Sector allocation"))
		sectors := make([]string, 0, len(a.SectorAllocation))
		for s := range a.SectorAllocation {
			sectors = append(sectors, s)
		}
		sort.Slice(sectors, func(i, j int) bool {
			return a.SectorAllocation[sectors[i]].GreaterThan(a.SectorAllocation[sectors[j]])
		})
		for _, s := range sectors {
			fmt.Fprintf(w, "  %-24s %s\n", s, money.FormatPercent(a.SectorAllocation[s]))
		}
	}
	renderPerformers(w, "🚀 Top performers", a.TopPerformers)
	renderPerformers(w, "📉 Worst performers", a.WorstPerformers)
}

func renderPerformers(w io.Writer, title string, ps []models.HoldingPerformance) {
	if len(ps) == 0 {
		return
	}
	fmt.Fprintln(w, titleStyle.Render(title))
	for _, p := range ps {
		fmt.Fprintf(w, "  %-8s %14s %10s\n", p.Symbol,
			signed(p.GainLoss, money.FormatUSD(p.GainLoss)),
			signed(p.GainLossPercentage, money.FormatPercent(p.GainLossPercentage)))
	}
}

func scoreText(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.StringFixed(2) + " / 100"
}

func actionEmoji(a models.RecommendationAction) string {
	switch a {
	case models.ActionStrongBuy:
		return "🟢🟢"
	case models.ActionBuy:
		return "🟢"
	case models.ActionSell:
		return "🔴"
	case models.ActionStrongSell:
		return "🔴🔴"
	default:
		return "🟡"
	}
}

func RenderStockAnalysis(w io.Writer, a *models.StockAnalysis) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%s %s  %s  |  %s",
		actionEmoji(a.RecommendationAction), a.Symbol, a.CompanyName, a.AnalysisDate.Format("2006-01-02 15:04"))))
	if a.Fallback {
		DisplayWarning(w, "Reasoning was unavailable; this is the default assessment.")
	}

	var b strings.Builder
	b.WriteString(field("Action", strings.ToUpper(string(a.RecommendationAction))) + "\n")
	b.WriteString(field("Risk level", string(a.RiskLevel)) + "\n")
	b.WriteString(field("Confidence", fmt.Sprintf("%.0f%%", a.ConfidenceScore*100)) + "\n")
	b.WriteString(field("Target price", optionalUSD(a.TargetPrice)))
	fmt.Fprintln(w, panelStyle.Render(b.String()))

	section(w, "Recommendation", a.Recommendation)
	section(w, "Qualitative", a.QualitativeAnalysis)
	section(w, "Quantitative", a.QuantitativeAnalysis)
	section(w, "Portfolio fit", a.UserPortfolioFit)
	renderSources(w, a.NewsSources)
}

func RenderPortfolioAnalysis(w io.Writer, a *models.PortfolioAnalysis) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("🧭 Portfolio analysis %s  |  risk %s  |  buy signals %.0f%%",
		a.PortfolioID, a.OverallRiskLevel, a.BuySignalRatio*100)))
	section(w, "Overall", a.OverallAnalysis)
	section(w, "Risk", a.RiskAssessment)
	section(w, "Diversification", a.DiversificationAnalysis)
	if len(a.Recommendations) > 0 {
		fmt.Fprintln(w, titleStyle.Render("Recommendations"))
		for _, r := range a.Recommendations {
			fmt.Fprintf(w, "  • %s\n", r)
		}
	}
	if len(a.SuggestedActions) > 0 {
		fmt.Fprintln(w, titleStyle.Render("Suggested actions"))
		for _, s := range a.SuggestedActions {
			fmt.Fprintf(w, "  • %s\n", s)
		}
	}
	if len(a.IndividualStocks) > 0 {
		fmt.Fprintln(w, titleStyle.Render("Holdings"))
		for _, s := range a.IndividualStocks {
			fmt.Fprintf(w, "  %s %-8s %-12s risk %-10s confidence %.0f%%\n",
				actionEmoji(s.RecommendationAction), s.Symbol, s.RecommendationAction, s.RiskLevel, s.ConfidenceScore*100)
		}
	}
	for _, f := range a.Failures {
		DisplayWarning(w, fmt.Sprintf("%s not analyzed: %s", f.Symbol, f.Reason))
	}
}

func RenderRecommendations(w io.Writer, recs []models.MarketRecommendation) {
	if len(recs) == 0 {
		DisplayInfo(w, "No recommendations available right now.")
		return
	}
	fmt.Fprintln(w, titleStyle.Render("💡 Market recommendations"))
	for _, r := range recs {
		fmt.Fprintf(w, "%-6s %-28s %-22s target %-10s risk %-6s %s\n",
			r.Symbol, truncateString(r.CompanyName, 28), truncateString(r.Sector, 22),
			optionalUSD(r.TargetPrice), r.RiskLevel, r.TimeHorizon)
		fmt.Fprintf(w, "       %s\n", labelStyle.Render(r.Reasoning))
	}
}

func RenderChatReply(w io.Writer, resp *models.ChatResponse) {
	fmt.Fprintln(w, assistantStyle.Render("🤖 "+resp.Message.Content))
	renderSources(w, resp.Sources)
}

func RenderTranscript(w io.Writer, messages []models.ChatMessage) {
	for _, m := range messages {
		style := assistantStyle
		if m.Role == models.RoleUser {
			style = userStyle
		}
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render(m.Timestamp.Local().Format("15:04:05")),
			style.Render(m.Role.Title()+": "+m.Content))
	}
}

func RenderSessions(w io.Writer, sessions []*models.ChatSession) {
	if len(sessions) == 0 {
		DisplayInfo(w, "No chat sessions.")
		return
	}
	fmt.Fprintln(w, titleStyle.Render("💬 Chat sessions"))
	for _, s := range sessions {
		scope := "general"
		switch {
		case s.StockSymbol != "":
			scope = s.StockSymbol
		case s.PortfolioID != "":
			scope = "portfolio " + s.PortfolioID
		}
		fmt.Fprintf(w, "%-36s  %-20s %3d messages  updated %s\n",
			s.ID, truncateString(scope, 20), len(s.Messages), s.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
}

func RenderProfile(w io.Writer, userID string, p *models.UserProfile) {
	var b strings.Builder
	b.WriteString(field("User", userID) + "\n")
	b.WriteString(field("Risk tolerance", orDash(p.RiskTolerance)) + "\n")
	b.WriteString(field("Investment horizon", orDash(p.InvestmentHorizon)) + "\n")
	b.WriteString(field("Primary goal", orDash(p.PrimaryGoal)) + "\n")
	b.WriteString(field("Liquidity preference", orDash(p.LiquidityPreference)))
	fmt.Fprintln(w, panelStyle.Render(b.String()))
}

func section(w io.Writer, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	fmt.Fprintln(w, titleStyle.Render(title))
	fmt.Fprintln(w, body)
	fmt.Fprintln(w)
}

func renderSources(w io.Writer, sources []models.NewsSource) {
	if len(sources) == 0 {
		return
	}
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("📰 Sources (%d)", len(sources))))
	for _, s := range sources {
		fmt.Fprintf(w, "  • %s  %s\n", truncateString(s.Title, 70), labelStyle.Render(s.Source))
		if s.URL != "" {
			fmt.Fprintf(w, "    %s\n", labelStyle.Render(s.URL))
		}
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
