package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/CortexFolio/models"
)

func TestSaveStockReport(t *testing.T) {
	dir := t.TempDir()
	target := decimal.NewFromInt(210)
	a := &models.StockAnalysis{
		Symbol:               "AAPL",
		CompanyName:          "Apple Inc.",
		Recommendation:       "Accumulate on weakness.",
		RecommendationAction: models.ActionBuy,
		RiskLevel:            models.RiskMedium,
		ConfidenceScore:      0.72,
		TargetPrice:          &target,
		NewsSources: []models.NewsSource{
			{Title: "Apple beats estimates", URL: "https://example.com/a", Source: "Reuters"},
			{Title: "Supplier update", Source: "finnhub"},
		},
		AnalysisDate: time.Date(2025, 3, 4, 15, 0, 0, 0, time.UTC),
	}

	path, err := saveStockReport(dir, a)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "AAPL", "2025-03-04", "stock_analysis.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	report := string(data)
	assert.Contains(t, report, "# AAPL Apple Inc.")
	assert.Contains(t, report, "- Action: buy")
	assert.Contains(t, report, "- Target price: 210.00")
	assert.Contains(t, report, "## Recommendation\n\nAccumulate on weakness.")
	assert.Contains(t, report, "- [Apple beats estimates](https://example.com/a) (Reuters)")
	assert.Contains(t, report, "- Supplier update (finnhub)")
	assert.NotContains(t, report, "Quantitative analysis")
}

func TestPortfolioReportMarkdown(t *testing.T) {
	report := portfolioReportMarkdown(&models.PortfolioAnalysis{
		PortfolioID:      "p1",
		OverallRiskLevel: models.RiskHigh,
		BuySignalRatio:   0.5,
		Recommendations:  []string{"Trim technology"},
		IndividualStocks: []models.StockAnalysis{
			{Symbol: "AAPL", RecommendationAction: models.ActionHold, RiskLevel: models.RiskMedium, ConfidenceScore: 0.5},
		},
		Failures:     []models.HoldingFailure{{Symbol: "ZZZZ", Reason: "no data"}},
		AnalysisDate: time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC),
	})

	assert.Contains(t, report, "# Portfolio p1")
	assert.Contains(t, report, "- Buy signal ratio: 50%")
	assert.Contains(t, report, "- Trim technology")
	assert.Contains(t, report, "| AAPL | hold | medium | 0.50 |")
	assert.Contains(t, report, "- ZZZZ: no data")
	assert.NotContains(t, report, "## Suggested actions")
}
