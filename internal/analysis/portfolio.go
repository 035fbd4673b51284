package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/dyike/CortexFolio/internal/rag"
	"github.com/dyike/CortexFolio/models"
	"github.com/dyike/CortexFolio/pkg/money"
)

const strongBuyListed = 3

// holdingResult is the outcome of analyzing one holding.
type holdingResult struct {
	symbol   string
	analysis *models.StockAnalysis
	err      error
}

// AnalyzePortfolio analyzes every holding of the portfolio in order and rolls
// the results up. A holding that fails is recorded in Failures and skipped.
func (s *Service) AnalyzePortfolio(ctx context.Context, userID, portfolioID string) (*models.PortfolioAnalysis, error) {
	if s.Portfolios == nil {
		return nil, fmt.Errorf("analysis: no portfolio source configured")
	}
	p, err := s.Portfolios.Get(ctx, userID, portfolioID)
	if err != nil {
		return nil, err
	}
	profile, err := s.profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	log := s.log.With().Str("portfolio_id", p.ID).Logger()
	log.Info().Int("holdings", len(p.Stocks)).Msg("starting portfolio analysis")

	results := make([]holdingResult, 0, len(p.Stocks))
	for _, h := range p.Stocks {
		a, err := s.analyzeStock(ctx, stockInput{
			symbol:    h.Symbol,
			company:   h.CompanyName,
			userID:    userID,
			profile:   profile,
			portfolio: p,
		})
		results = append(results, holdingResult{symbol: h.Symbol, analysis: a, err: err})
	}

	analyses := make([]models.StockAnalysis, 0, len(results))
	var failures []models.HoldingFailure
	for _, r := range results {
		if r.err != nil {
			log.Warn().Err(r.err).Str("symbol", r.symbol).Msg("failed to analyze holding")
			failures = append(failures, models.HoldingFailure{Symbol: r.symbol, Reason: r.err.Error()})
			continue
		}
		analyses = append(analyses, *r.analysis)
	}

	out := summarize(p, analyses)
	out.PortfolioID = p.ID
	out.IndividualStocks = analyses
	out.Failures = failures
	out.OverallRiskLevel = OverallRiskLevel(analyses)
	out.BuySignalRatio = buySignalRatio(analyses)
	out.AnalysisDate = s.now().UTC()

	log.Info().
		Int("analyzed", len(analyses)).
		Int("failed", len(failures)).
		Str("overall_risk", string(out.OverallRiskLevel)).
		Msg("completed portfolio analysis")
	return out, nil
}

// OverallRiskLevel buckets the mean risk rank of analyses: <=1.5 very_low,
// <=2.5 low, <=3.5 medium, <=4.5 high, otherwise very_high. An empty list is
// medium.
func OverallRiskLevel(analyses []models.StockAnalysis) models.RiskLevel {
	n := len(analyses)
	if n == 0 {
		return models.RiskMedium
	}
	sum := 0
	for _, a := range analyses {
		sum += a.RiskLevel.Rank()
	}
	// mean <= k.5 is 2*sum <= (2k+1)*n in integers.
	switch twice := 2 * sum; {
	case twice <= 3*n:
		return models.RiskVeryLow
	case twice <= 5*n:
		return models.RiskLow
	case twice <= 7*n:
		return models.RiskMedium
	case twice <= 9*n:
		return models.RiskHigh
	default:
		return models.RiskVeryHigh
	}
}

func buySignalRatio(analyses []models.StockAnalysis) float64 {
	if len(analyses) == 0 {
		return 0
	}
	buys := 0
	for _, a := range analyses {
		if a.RecommendationAction.IsBuy() {
			buys++
		}
	}
	return float64(buys) / float64(len(analyses))
}

// summarize fills the narrative fields of a portfolio analysis.
func summarize(p *models.Portfolio, analyses []models.StockAnalysis) *models.PortfolioAnalysis {
	if len(analyses) == 0 {
		return &models.PortfolioAnalysis{
			OverallAnalysis:         "Portfolio analysis unavailable due to insufficient stock data.",
			RiskAssessment:          "Risk assessment unavailable.",
			DiversificationAnalysis: "Diversification analysis unavailable.",
			Recommendations:         []string{"Add stocks to portfolio for analysis"},
			SuggestedActions:        []string{"Build portfolio with diverse holdings"},
			IndividualStocks:        []models.StockAnalysis{},
		}
	}

	n := len(analyses)
	highRisk, buys := 0, 0
	var strongBuys []string
	for _, a := range analyses {
		if a.RiskLevel.IsHigh() {
			highRisk++
		}
		if a.RecommendationAction.IsBuy() {
			buys++
		}
		if a.RecommendationAction == models.ActionStrongBuy && len(strongBuys) < strongBuyListed {
			strongBuys = append(strongBuys, a.Symbol)
		}
	}
	mostlyHigh := 2*highRisk > n

	riskLabel := "Low"
	switch {
	case mostlyHigh:
		riskLabel = "High"
	case highRisk > 0:
		riskLabel = "Medium"
	}

	exposure := "maintaining"
	if mostlyHigh {
		exposure = "reducing"
	}
	signals := "No strong buy signals detected"
	if buys > 0 {
		signals = "Strong buy signals detected in: " + strings.Join(strongBuys, ", ")
	}

	return &models.PortfolioAnalysis{
		OverallAnalysis: fmt.Sprintf("Portfolio contains %d analyzed stocks with total value of %s. %d stocks show buy signals, %d stocks are high risk.",
			n, money.FormatUSD(p.TotalValue), buys, highRisk),
		RiskAssessment:          "Portfolio risk level: " + riskLabel,
		DiversificationAnalysis: fmt.Sprintf("Portfolio spans %d sectors with %d total holdings.", len(rag.SortedSectors(p)), len(p.Stocks)),
		Recommendations: []string{
			fmt.Sprintf("Consider %s exposure to high-risk positions", exposure),
			signals,
			"Maintain diversification across sectors and asset classes",
		},
		SuggestedActions: []string{
			"Review individual stock analyses for detailed recommendations",
			"Consider rebalancing if sector concentration is too high",
			"Monitor risk levels and adjust position sizes accordingly",
		},
	}
}
