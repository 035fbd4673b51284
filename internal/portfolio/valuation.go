package portfolio

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dyike/CortexFolio/internal/apperr"
	"github.com/dyike/CortexFolio/models"
	"github.com/dyike/CortexFolio/pkg/money"
)

// PriceLookup returns the latest price for symbol, or false when none is
// available.
type PriceLookup func(ctx context.Context, symbol string) (decimal.Decimal, bool)

// Revalue refreshes every holding from lookup and recomputes the portfolio
// totals. A holding without a price is valued at cost. Only p is mutated.
func Revalue(ctx context.Context, p *models.Portfolio, lookup PriceLookup) {
	for _, h := range p.Stocks {
		price, ok := lookupPrice(ctx, lookup, h.Symbol)
		valueHolding(h, price, ok)
	}
	Totals(p)
}

// Totals sums already-valued holdings into the portfolio aggregates.
func Totals(p *models.Portfolio) {
	totalValue := decimal.Zero
	totalCost := decimal.Zero
	for _, h := range p.Stocks {
		totalValue = totalValue.Add(h.ValueOrCost())
		totalCost = totalCost.Add(h.CostBasis())
	}
	p.TotalValue = totalValue
	p.TotalCost = totalCost
	p.TotalGainLoss = totalValue.Sub(totalCost)
	if pct, ok := money.Percent(p.TotalGainLoss, totalCost); ok {
		p.TotalGainLossPercentage = pct
	} else {
		p.TotalGainLossPercentage = decimal.Zero
	}
}

// AddOrMergeHolding appends h, or merges it into the existing holding for the
// same symbol using the share-weighted average purchase price. The affected
// holding is revalued from lookup and the totals recomputed.
func AddOrMergeHolding(ctx context.Context, p *models.Portfolio, h *models.StockHolding, lookup PriceLookup) (*models.StockHolding, error) {
	if err := ValidateHolding(h); err != nil {
		return nil, err
	}
	h.Symbol = NormalizeSymbol(h.Symbol)

	target := h
	if existing, _ := p.Holding(h.Symbol); existing != nil {
		avg, err := money.WeightedAverage(existing.Shares, existing.PurchasePrice, h.Shares, h.PurchasePrice)
		if err != nil {
			return nil, apperr.Validation("merge %s: %v", h.Symbol, err)
		}
		existing.Shares = existing.Shares.Add(h.Shares)
		existing.PurchasePrice = avg
		if existing.Sector == "" {
			existing.Sector = h.Sector
		}
		if existing.CompanyName == "" {
			existing.CompanyName = h.CompanyName
		}
		target = existing
	} else {
		p.Stocks = append(p.Stocks, h)
	}

	price, ok := lookupPrice(ctx, lookup, target.Symbol)
	valueHolding(target, price, ok)
	Totals(p)
	return target, nil
}

// ValidateHolding enforces positive shares and purchase price and a usable symbol.
func ValidateHolding(h *models.StockHolding) error {
	if h == nil {
		return apperr.Validation("holding is required")
	}
	if err := ValidateSymbol(h.Symbol); err != nil {
		return err
	}
	if !h.Shares.IsPositive() {
		return apperr.Validation("shares must be positive, got %s", h.Shares)
	}
	if !h.PurchasePrice.IsPositive() {
		return apperr.Validation("purchase price must be positive, got %s", h.PurchasePrice)
	}
	return nil
}

// ValidateSymbol checks if a stock symbol is valid format
func ValidateSymbol(symbol string) error {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return apperr.Validation("symbol cannot be empty")
	}
	if len(symbol) > 10 {
		return apperr.Validation("symbol too long: %s", symbol)
	}
	return nil
}

// NormalizeSymbol converts symbol to standard format
func NormalizeSymbol(symbol string) string {
	return strings.TrimSpace(strings.ToUpper(symbol))
}

func lookupPrice(ctx context.Context, lookup PriceLookup, symbol string) (decimal.Decimal, bool) {
	if lookup == nil {
		return decimal.Zero, false
	}
	return lookup(ctx, symbol)
}

// valueHolding derives current price, market value and gain/loss for h.
// Without a price the holding is carried at cost and CurrentPrice is cleared.
func valueHolding(h *models.StockHolding, price decimal.Decimal, ok bool) {
	costBasis := h.CostBasis()
	var marketValue decimal.Decimal
	if ok {
		h.CurrentPrice = money.Ptr(price)
		marketValue = price.Mul(h.Shares)
	} else {
		h.CurrentPrice = nil
		marketValue = costBasis
	}
	gainLoss := marketValue.Sub(costBasis)

	h.MarketValue = money.Ptr(marketValue)
	h.GainLoss = money.Ptr(gainLoss)
	if pct, ok := money.Percent(gainLoss, costBasis); ok {
		h.GainLossPercentage = money.Ptr(pct)
	} else {
		h.GainLossPercentage = nil
	}
}
