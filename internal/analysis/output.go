// Package analysis runs the retrieval-augmented stock and portfolio analysis
// pipelines and the market recommendation list.
package analysis

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dyike/CortexFolio/models"
)

// FinancialAnalysisOutput is the structured answer expected from the
// reasoning engine.
type FinancialAnalysisOutput struct {
	QualitativeAnalysis  string   `json:"qualitative_analysis" validate:"required"`
	QuantitativeAnalysis string   `json:"quantitative_analysis" validate:"required"`
	UserPortfolioFit     string   `json:"user_portfolio_fit" validate:"required"`
	Recommendation       string   `json:"recommendation" validate:"required"`
	RecommendationAction string   `json:"recommendation_action" validate:"required,oneof=strong_sell sell hold buy strong_buy"`
	RiskLevel            string   `json:"risk_level" validate:"required,oneof=very_low low medium high very_high"`
	ConfidenceScore      float64  `json:"confidence_score" validate:"gte=0,lte=1"`
	TargetPrice          *float64 `json:"target_price,omitempty" validate:"omitempty,gt=0"`
}

// FallbackAnalysis is the conservative answer used when the reasoning step
// fails.
func FallbackAnalysis(symbol, companyName string) FinancialAnalysisOutput {
	return FinancialAnalysisOutput{
		QualitativeAnalysis:  fmt.Sprintf("Limited news data available for %s (%s). General market conditions should be considered.", companyName, symbol),
		QuantitativeAnalysis: fmt.Sprintf("Recent price data for %s shows normal market fluctuations. More detailed analysis requires additional data.", symbol),
		UserPortfolioFit:     "This stock's fit with your portfolio depends on your current holdings and diversification goals.",
		Recommendation:       fmt.Sprintf("Hold position in %s until more comprehensive data is available for proper analysis.", symbol),
		RecommendationAction: string(models.ActionHold),
		RiskLevel:            string(models.RiskMedium),
		ConfidenceScore:      0.3,
	}
}

func (o FinancialAnalysisOutput) toStockAnalysis(symbol, companyName string, sources []models.NewsSource, at time.Time) models.StockAnalysis {
	a := models.StockAnalysis{
		Symbol:               symbol,
		CompanyName:          companyName,
		QualitativeAnalysis:  o.QualitativeAnalysis,
		QuantitativeAnalysis: o.QuantitativeAnalysis,
		UserPortfolioFit:     o.UserPortfolioFit,
		Recommendation:       o.Recommendation,
		RecommendationAction: models.RecommendationAction(o.RecommendationAction),
		RiskLevel:            models.RiskLevel(o.RiskLevel),
		ConfidenceScore:      o.ConfidenceScore,
		NewsSources:          sources,
		AnalysisDate:         at,
	}
	if a.NewsSources == nil {
		a.NewsSources = []models.NewsSource{}
	}
	if o.TargetPrice != nil {
		tp := decimal.NewFromFloat(*o.TargetPrice).Round(2)
		a.TargetPrice = &tp
	}
	return a
}
