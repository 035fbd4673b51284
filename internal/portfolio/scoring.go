package portfolio

import (
	"github.com/shopspring/decimal"

	"github.com/dyike/CortexFolio/models"
	"github.com/dyike/CortexFolio/pkg/money"
)

var (
	fifty         = decimal.NewFromInt(50)
	diversifiedAt = decimal.NewFromInt(10)
	fullStockAt   = decimal.NewFromInt(20)
	perSector     = decimal.NewFromInt(5)
)

// SectorValues sums value (market value, or cost when unvalued) per sector.
// Holdings without a sector are grouped under models.UnknownSector.
func SectorValues(p *models.Portfolio) (map[string]decimal.Decimal, decimal.Decimal) {
	sectors := make(map[string]decimal.Decimal)
	total := decimal.Zero
	for _, h := range p.Stocks {
		v := h.ValueOrCost()
		s := h.SectorOrUnknown()
		sectors[s] = sectors[s].Add(v)
		total = total.Add(v)
	}
	return sectors, total
}

// ConcentrationIndex is the Herfindahl-Hirschman index of sector value
// shares: 1 for a single sector, 1/k for k equally weighted sectors.
func ConcentrationIndex(p *models.Portfolio) decimal.Decimal {
	sectors, total := SectorValues(p)
	if !total.IsPositive() {
		return decimal.Zero
	}
	hhi := decimal.Zero
	for _, v := range sectors {
		share := v.Div(total)
		hhi = hhi.Add(share.Mul(share))
	}
	return hhi
}

// RiskScore returns (1 - min(1, n/10))*50 + HHI*50 rounded to two decimals,
// in [0, 100]. It reports false for a portfolio without holdings.
func RiskScore(p *models.Portfolio) (decimal.Decimal, bool) {
	n := len(p.Stocks)
	if n == 0 {
		return decimal.Zero, false
	}
	factor := money.MinDecimal(decimal.NewFromInt(1), decimal.NewFromInt(int64(n)).Div(diversifiedAt))
	score := decimal.NewFromInt(1).Sub(factor).Mul(fifty).
		Add(ConcentrationIndex(p).Mul(fifty))
	return score.Round(2), true
}

// DiversificationScore combines a holding-count score, reaching 50 at 20
// holdings, with a sector score of 5 per distinct known sector capped at 50.
// It reports false for a portfolio without holdings.
func DiversificationScore(p *models.Portfolio) (decimal.Decimal, bool) {
	n := len(p.Stocks)
	if n == 0 {
		return decimal.Zero, false
	}
	stockScore := money.MinDecimal(fifty, decimal.NewFromInt(int64(n)).Div(fullStockAt).Mul(fifty))

	distinct := make(map[string]struct{})
	for _, h := range p.Stocks {
		if h.Sector != "" {
			distinct[h.Sector] = struct{}{}
		}
	}
	sectorScore := money.MinDecimal(fifty, decimal.NewFromInt(int64(len(distinct))).Mul(perSector))

	return stockScore.Add(sectorScore).Round(2), true
}
