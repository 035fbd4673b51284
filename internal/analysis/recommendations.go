package analysis

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dyike/CortexFolio/models"
)

var popularSymbols = []string{"AAPL", "GOOGL", "MSFT", "TSLA", "NVDA", "AMZN", "META"}

var (
	targetUplift = decimal.RequireFromString("1.1")
)

const (
	defaultRecommendationLimit = 5
	defaultSector              = "Technology"
)

// MarketRecommendations builds a simple recommendation for the first limit
// popular symbols. Symbols without company details are skipped.
func (s *Service) MarketRecommendations(ctx context.Context, recommendationType string, limit int) []models.MarketRecommendation {
	if limit <= 0 {
		limit = defaultRecommendationLimit
	}
	if recommendationType == "" {
		recommendationType = "stocks"
	}
	if s.Market == nil {
		return []models.MarketRecommendation{}
	}

	out := make([]models.MarketRecommendation, 0, limit)
	for _, symbol := range popularSymbols[:min(limit, len(popularSymbols))] {
		rec, ok := s.recommend(ctx, symbol, recommendationType)
		if !ok {
			s.log.Warn().Str("symbol", symbol).Msg("no company details, skipping recommendation")
			continue
		}
		out = append(out, rec)
	}
	return out
}

func (s *Service) recommend(ctx context.Context, symbol, recommendationType string) (models.MarketRecommendation, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	details, ok := s.Market.CompanyDetails(ctx, symbol)
	if !ok || details == nil {
		return models.MarketRecommendation{}, false
	}
	sector := details.Sector
	if sector == "" {
		sector = defaultSector
	}

	rec := models.MarketRecommendation{
		Symbol:             symbol,
		CompanyName:        details.Name,
		Sector:             sector,
		RecommendationType: recommendationType,
		Reasoning:          "Strong market position with recent positive developments. Current price: unavailable",
		RiskLevel:          models.RiskMedium,
		TimeHorizon:        "6-12 months",
		ConfidenceScore:    0.75,
	}
	if price, ok := s.Market.CurrentPrice(ctx, symbol); ok {
		rec.Reasoning = fmt.Sprintf("Strong market position with recent positive developments. Current price: $%s", price.StringFixed(2))
		target := price.Mul(targetUplift).Round(2)
		rec.TargetPrice = &target
	}
	return rec, true
}
