package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type RecommendationAction string

const (
	ActionStrongSell RecommendationAction = "strong_sell"
	ActionSell       RecommendationAction = "sell"
	ActionHold       RecommendationAction = "hold"
	ActionBuy        RecommendationAction = "buy"
	ActionStrongBuy  RecommendationAction = "strong_buy"
)

// IsBuy reports whether the action is buy or strong_buy.
func (a RecommendationAction) IsBuy() bool {
	return a == ActionBuy || a == ActionStrongBuy
}

type RiskLevel string

const (
	RiskVeryLow  RiskLevel = "very_low"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskVeryHigh RiskLevel = "very_high"
)

// Rank is the ordinal position of the level, 1 (very_low) to 5 (very_high).
// Unknown levels rank as medium.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskVeryLow:
		return 1
	case RiskLow:
		return 2
	case RiskHigh:
		return 4
	case RiskVeryHigh:
		return 5
	default:
		return 3
	}
}

// IsHigh reports whether the level is high or very_high.
func (r RiskLevel) IsHigh() bool {
	return r == RiskHigh || r == RiskVeryHigh
}

type NewsSource struct {
	Title          string    `json:"title"`
	URL            string    `json:"url"`
	PublishedDate  time.Time `json:"published_date"`
	Source         string    `json:"source"`
	Content        string    `json:"content,omitempty"`
	RelevanceScore float64   `json:"relevance_score"`
}

type StockAnalysis struct {
	Symbol               string               `json:"symbol"`
	CompanyName          string               `json:"company_name"`
	QualitativeAnalysis  string               `json:"qualitative_analysis"`
	QuantitativeAnalysis string               `json:"quantitative_analysis"`
	UserPortfolioFit     string               `json:"user_portfolio_fit"`
	Recommendation       string               `json:"recommendation"`
	RecommendationAction RecommendationAction `json:"recommendation_action"`
	RiskLevel            RiskLevel            `json:"risk_level"`
	ConfidenceScore      float64              `json:"confidence_score"`
	TargetPrice          *decimal.Decimal     `json:"target_price,omitempty"`
	NewsSources          []NewsSource         `json:"news_sources"`
	AnalysisDate         time.Time            `json:"analysis_date"`
	Fallback             bool                 `json:"fallback,omitempty"`
}

// HoldingFailure records a holding that could not be analyzed.
type HoldingFailure struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

type PortfolioAnalysis struct {
	PortfolioID             string           `json:"portfolio_id"`
	OverallAnalysis         string           `json:"overall_analysis"`
	RiskAssessment          string           `json:"risk_assessment"`
	DiversificationAnalysis string           `json:"diversification_analysis"`
	Recommendations         []string         `json:"recommendations"`
	IndividualStocks        []StockAnalysis  `json:"individual_stocks"`
	Failures                []HoldingFailure `json:"failures,omitempty"`
	OverallRiskLevel        RiskLevel        `json:"overall_risk_level"`
	BuySignalRatio          float64          `json:"buy_signal_ratio"`
	SuggestedActions        []string         `json:"suggested_actions"`
	AnalysisDate            time.Time        `json:"analysis_date"`
}

type MarketRecommendation struct {
	Symbol             string           `json:"symbol"`
	CompanyName        string           `json:"company_name"`
	Sector             string           `json:"sector"`
	RecommendationType string           `json:"recommendation_type"`
	Reasoning          string           `json:"reasoning"`
	TargetPrice        *decimal.Decimal `json:"target_price,omitempty"`
	RiskLevel          RiskLevel        `json:"risk_level"`
	TimeHorizon        string           `json:"time_horizon"`
	ConfidenceScore    float64          `json:"confidence_score"`
}
