package portfolio

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/CortexFolio/models"
)

func valued(holdings ...*models.StockHolding) *models.Portfolio {
	p := &models.Portfolio{Stocks: holdings}
	Revalue(context.Background(), p, nil)
	return p
}

func TestRiskScoreSingleHolding(t *testing.T) {
	score, ok := RiskScore(valued(holding("AAPL", "10", "100", "Technology")))
	require.True(t, ok)
	assertDecimal(t, "95", score)
}

func TestRiskScoreEvenlySpread(t *testing.T) {
	var hs []*models.StockHolding
	for i := 0; i < 10; i++ {
		hs = append(hs, holding(fmt.Sprintf("S%d", i), "1", "100", fmt.Sprintf("Sector%d", i)))
	}
	score, ok := RiskScore(valued(hs...))
	require.True(t, ok)
	assertDecimal(t, "5", score)
}

func TestScoresUndefinedWithoutHoldings(t *testing.T) {
	_, ok := RiskScore(&models.Portfolio{})
	assert.False(t, ok)
	_, ok = DiversificationScore(&models.Portfolio{})
	assert.False(t, ok)
}

func TestDiversificationScore(t *testing.T) {
	one, ok := DiversificationScore(valued(holding("AAPL", "1", "1", "Technology")))
	require.True(t, ok)
	assertDecimal(t, "7.5", one)

	unknown, ok := DiversificationScore(valued(holding("AAPL", "1", "1", "")))
	require.True(t, ok)
	assertDecimal(t, "2.5", unknown)

	var hs []*models.StockHolding
	for i := 0; i < 25; i++ {
		hs = append(hs, holding(fmt.Sprintf("S%d", i), "1", "1", fmt.Sprintf("Sector%d", i%12)))
	}
	full, ok := DiversificationScore(valued(hs...))
	require.True(t, ok)
	assertDecimal(t, "100", full)
}

func TestScoresStayInRange(t *testing.T) {
	for n := 1; n <= 30; n++ {
		var hs []*models.StockHolding
		for i := 0; i < n; i++ {
			hs = append(hs, holding(fmt.Sprintf("S%d", i), fmt.Sprint(i+1), "10", fmt.Sprintf("Sector%d", i%(n%7+1))))
		}
		p := valued(hs...)

		risk, ok := RiskScore(p)
		require.True(t, ok)
		assert.False(t, risk.IsNegative(), "n=%d risk=%s", n, risk)
		assert.True(t, risk.LessThanOrEqual(d("100")), "n=%d risk=%s", n, risk)

		div, ok := DiversificationScore(p)
		require.True(t, ok)
		assert.False(t, div.IsNegative(), "n=%d div=%s", n, div)
		assert.True(t, div.LessThanOrEqual(d("100")), "n=%d div=%s", n, div)
	}
}

func TestConcentrationIndexZeroValue(t *testing.T) {
	assert.True(t, ConcentrationIndex(&models.Portfolio{}).IsZero())
}
