package portfolio

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/CortexFolio/internal/apperr"
	"github.com/dyike/CortexFolio/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func staticPrices(prices map[string]string) PriceLookup {
	return func(_ context.Context, symbol string) (decimal.Decimal, bool) {
		p, ok := prices[symbol]
		if !ok {
			return decimal.Zero, false
		}
		return d(p), true
	}
}

func holding(symbol, shares, price, sector string) *models.StockHolding {
	return &models.StockHolding{
		Symbol:        symbol,
		Shares:        d(shares),
		PurchasePrice: d(price),
		Sector:        sector,
	}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "want %s, got %s", want, got)
}

func TestRevalueMixesPricedAndUnpricedHoldings(t *testing.T) {
	p := &models.Portfolio{Stocks: []*models.StockHolding{
		holding("AAPL", "10", "100", "Technology"),
		holding("MSFT", "5", "200", "Technology"),
	}}

	Revalue(context.Background(), p, staticPrices(map[string]string{"AAPL": "150"}))

	aapl := p.Stocks[0]
	require.NotNil(t, aapl.CurrentPrice)
	assertDecimal(t, "150", *aapl.CurrentPrice)
	assertDecimal(t, "1500", *aapl.MarketValue)
	assertDecimal(t, "500", *aapl.GainLoss)
	assertDecimal(t, "50", *aapl.GainLossPercentage)

	msft := p.Stocks[1]
	assert.Nil(t, msft.CurrentPrice)
	assertDecimal(t, "1000", *msft.MarketValue)
	assertDecimal(t, "0", *msft.GainLoss)

	assertDecimal(t, "2500", p.TotalValue)
	assertDecimal(t, "2000", p.TotalCost)
	assertDecimal(t, "500", p.TotalGainLoss)
	assertDecimal(t, "25", p.TotalGainLossPercentage)
}

func TestRevalueClearsStalePrice(t *testing.T) {
	p := &models.Portfolio{Stocks: []*models.StockHolding{holding("AAPL", "1", "100", "")}}
	Revalue(context.Background(), p, staticPrices(map[string]string{"AAPL": "120"}))
	require.NotNil(t, p.Stocks[0].CurrentPrice)

	Revalue(context.Background(), p, nil)
	assert.Nil(t, p.Stocks[0].CurrentPrice)
	assertDecimal(t, "100", p.TotalValue)
}

func TestTotalsOnEmptyPortfolio(t *testing.T) {
	p := &models.Portfolio{}
	Totals(p)
	assert.True(t, p.TotalValue.IsZero())
	assert.True(t, p.TotalGainLossPercentage.IsZero())
}

func TestAddOrMergeHoldingUsesWeightedAverage(t *testing.T) {
	ctx := context.Background()
	p := &models.Portfolio{}
	lookup := staticPrices(map[string]string{"AAPL": "180"})

	_, err := AddOrMergeHolding(ctx, p, holding("aapl", "10", "100", ""), lookup)
	require.NoError(t, err)
	merged, err := AddOrMergeHolding(ctx, p, holding("AAPL", "10", "200", "Technology"), lookup)
	require.NoError(t, err)

	require.Len(t, p.Stocks, 1)
	assert.Same(t, p.Stocks[0], merged)
	assert.Equal(t, "AAPL", merged.Symbol)
	assert.Equal(t, "Technology", merged.Sector)
	assertDecimal(t, "20", merged.Shares)
	assertDecimal(t, "150", merged.PurchasePrice)
	assertDecimal(t, "3600", *merged.MarketValue)
	assertDecimal(t, "3600", p.TotalValue)
	assertDecimal(t, "3000", p.TotalCost)
}

func TestAddOrMergeHoldingIsOrderIndependent(t *testing.T) {
	ctx := context.Background()
	merge := func(first, second *models.StockHolding) *models.StockHolding {
		p := &models.Portfolio{}
		_, err := AddOrMergeHolding(ctx, p, first, nil)
		require.NoError(t, err)
		merged, err := AddOrMergeHolding(ctx, p, second, nil)
		require.NoError(t, err)
		require.Len(t, p.Stocks, 1)
		return merged
	}

	ab := merge(holding("AAPL", "1", "10", ""), holding("AAPL", "2", "11", ""))
	ba := merge(holding("AAPL", "2", "11", ""), holding("AAPL", "1", "10", ""))

	assertDecimal(t, "3", ab.Shares)
	assert.Truef(t, ab.PurchasePrice.Equal(ba.PurchasePrice), "A then B %s, B then A %s", ab.PurchasePrice, ba.PurchasePrice)
	assert.True(t, ab.Shares.Equal(ba.Shares))
	assert.Equal(t, "10.67", ab.PurchasePrice.StringFixed(2))
}

func TestAddOrMergeHoldingRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		h    *models.StockHolding
	}{
		{"nil", nil},
		{"empty symbol", holding("  ", "1", "1", "")},
		{"long symbol", holding("ABCDEFGHIJK", "1", "1", "")},
		{"zero shares", holding("AAPL", "0", "1", "")},
		{"negative price", holding("AAPL", "1", "-3", "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &models.Portfolio{}
			_, err := AddOrMergeHolding(context.Background(), p, tt.h, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrValidation))
			assert.Empty(t, p.Stocks)
		})
	}
}

func TestNormalizeSymbol(t *testing.T) {
	assert.Equal(t, "BRK.B", NormalizeSymbol(" brk.b "))
}
