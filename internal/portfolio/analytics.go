package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dyike/CortexFolio/models"
	"github.com/dyike/CortexFolio/pkg/money"
)

const performerCount = 3

// Analytics derives sector allocation, best and worst performers and the two
// scores from an already revalued portfolio.
func Analytics(p *models.Portfolio) *models.PortfolioAnalytics {
	out := &models.PortfolioAnalytics{
		PortfolioID:      p.ID,
		TotalValue:       p.TotalValue,
		TotalGainLoss:    p.TotalGainLoss,
		TotalGainLossPct: p.TotalGainLossPercentage,
		SectorAllocation: sectorAllocation(p),
	}
	out.TopPerformers, out.WorstPerformers = performers(p)
	if score, ok := RiskScore(p); ok {
		out.RiskScore = money.Ptr(score)
	}
	if score, ok := DiversificationScore(p); ok {
		out.DiversificationScore = money.Ptr(score)
	}
	return out
}

// sectorAllocation returns each sector's share of total value in percent.
func sectorAllocation(p *models.Portfolio) map[string]decimal.Decimal {
	sectors, total := SectorValues(p)
	alloc := make(map[string]decimal.Decimal, len(sectors))
	for s, v := range sectors {
		if pct, ok := money.Percent(v, total); ok {
			alloc[s] = pct.Round(2)
		} else {
			alloc[s] = v
		}
	}
	return alloc
}

// performers lists up to three best holdings by gain percentage, and the
// three worst only when more than three holdings have a percentage.
func performers(p *models.Portfolio) (top, worst []models.HoldingPerformance) {
	ranked := make([]models.HoldingPerformance, 0, len(p.Stocks))
	for _, h := range p.Stocks {
		if h.GainLossPercentage == nil {
			continue
		}
		gl := decimal.Zero
		if h.GainLoss != nil {
			gl = *h.GainLoss
		}
		ranked = append(ranked, models.HoldingPerformance{
			Symbol:             h.Symbol,
			GainLoss:           gl,
			GainLossPercentage: *h.GainLossPercentage,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].GainLossPercentage.GreaterThan(ranked[j].GainLossPercentage)
	})

	top = ranked[:min(performerCount, len(ranked))]
	if len(ranked) > performerCount {
		worst = ranked[len(ranked)-performerCount:]
	}
	return top, worst
}
