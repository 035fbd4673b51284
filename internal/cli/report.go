package cli

import (
	"fmt"
	"strings"

	"github.com/dyike/CortexFolio/models"
	"github.com/dyike/CortexFolio/pkg/utils"
)

const reportDay = "2006-01-02"

func stockReportMarkdown(a *models.StockAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s %s\n\n", a.Symbol, a.CompanyName)
	fmt.Fprintf(&b, "- Date: %s\n", a.AnalysisDate.UTC().Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "- Action: %s\n", a.RecommendationAction)
	fmt.Fprintf(&b, "- Risk: %s\n", a.RiskLevel)
	fmt.Fprintf(&b, "- Confidence: %.2f\n", a.ConfidenceScore)
	if a.TargetPrice != nil {
		fmt.Fprintf(&b, "- Target price: %s\n", a.TargetPrice.StringFixed(2))
	}
	if a.Fallback {
		b.WriteString("- Note: default assessment, reasoning was unavailable\n")
	}
	writeSection(&b, "Recommendation", a.Recommendation)
	writeSection(&b, "Qualitative analysis", a.QualitativeAnalysis)
	writeSection(&b, "Quantitative analysis", a.QuantitativeAnalysis)
	writeSection(&b, "Portfolio fit", a.UserPortfolioFit)
	if len(a.NewsSources) > 0 {
		b.WriteString("\n## Sources\n\n")
		for _, s := range a.NewsSources {
			if s.URL != "" {
				fmt.Fprintf(&b, "- [%s](%s) (%s)\n", s.Title, s.URL, s.Source)
			} else {
				fmt.Fprintf(&b, "- %s (%s)\n", s.Title, s.Source)
			}
		}
	}
	return b.String()
}

func portfolioReportMarkdown(a *models.PortfolioAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Portfolio %s\n\n", a.PortfolioID)
	fmt.Fprintf(&b, "- Date: %s\n", a.AnalysisDate.UTC().Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "- Overall risk: %s\n", a.OverallRiskLevel)
	fmt.Fprintf(&b, "- Buy signal ratio: %.0f%%\n", a.BuySignalRatio*100)
	writeSection(&b, "Overview", a.OverallAnalysis)
	writeSection(&b, "Risk", a.RiskAssessment)
	writeSection(&b, "Diversification", a.DiversificationAnalysis)
	writeList(&b, "Recommendations", a.Recommendations)
	writeList(&b, "Suggested actions", a.SuggestedActions)
	if len(a.IndividualStocks) > 0 {
		b.WriteString("\n## Holdings\n\n| Symbol | Action | Risk | Confidence |\n|---|---|---|---|\n")
		for _, s := range a.IndividualStocks {
			fmt.Fprintf(&b, "| %s | %s | %s | %.2f |\n", s.Symbol, s.RecommendationAction, s.RiskLevel, s.ConfidenceScore)
		}
	}
	if len(a.Failures) > 0 {
		b.WriteString("\n## Not analyzed\n\n")
		for _, f := range a.Failures {
			fmt.Fprintf(&b, "- %s: %s\n", f.Symbol, f.Reason)
		}
	}
	return b.String()
}

func writeSection(b *strings.Builder, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	fmt.Fprintf(b, "\n## %s\n\n%s\n", title, strings.TrimSpace(body))
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

// saveStockReport writes results/<SYMBOL>/<day>/stock_analysis.md.
func saveStockReport(resultsDir string, a *models.StockAnalysis) (string, error) {
	dir := utils.ReportDir(resultsDir, a.Symbol, a.AnalysisDate.Format(reportDay))
	return utils.WriteMarkdown(dir, "stock_analysis.md", stockReportMarkdown(a))
}

// savePortfolioReport writes results/portfolio-<id>/<day>/portfolio_analysis.md.
func savePortfolioReport(resultsDir string, a *models.PortfolioAnalysis) (string, error) {
	dir := utils.ReportDir(resultsDir, "portfolio-"+a.PortfolioID, a.AnalysisDate.Format(reportDay))
	return utils.WriteMarkdown(dir, "portfolio_analysis.md", portfolioReportMarkdown(a))
}
