package portfolio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/CortexFolio/internal/apperr"
	"github.com/dyike/CortexFolio/models"
)

type memoryRepo struct {
	mu      sync.Mutex
	items   map[string]*models.Portfolio
	saveErr error
	saves   int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: make(map[string]*models.Portfolio)}
}

func (r *memoryRepo) CreatePortfolio(_ context.Context, p *models.Portfolio) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[p.ID] = clonePortfolio(p)
	return nil
}

func (r *memoryRepo) ListPortfolios(_ context.Context, userID string) ([]*models.Portfolio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Portfolio
	for _, p := range r.items {
		if p.UserID == userID {
			out = append(out, clonePortfolio(p))
		}
	}
	return out, nil
}

func (r *memoryRepo) GetPortfolio(_ context.Context, userID, id string) (*models.Portfolio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok || p.UserID != userID {
		return nil, nil
	}
	return clonePortfolio(p), nil
}

func (r *memoryRepo) SavePortfolio(_ context.Context, p *models.Portfolio) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	r.items[p.ID] = clonePortfolio(p)
	return nil
}

func (r *memoryRepo) DeletePortfolio(_ context.Context, userID, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok || p.UserID != userID {
		return false, nil
	}
	delete(r.items, id)
	return true, nil
}

func clonePortfolio(p *models.Portfolio) *models.Portfolio {
	cp := *p
	cp.Stocks = make([]*models.StockHolding, 0, len(p.Stocks))
	for _, h := range p.Stocks {
		hc := *h
		cp.Stocks = append(cp.Stocks, &hc)
	}
	return &cp
}

type stubQuotes struct {
	prices  map[string]decimal.Decimal
	details map[string]*models.CompanyDetails
}

func (q *stubQuotes) CurrentPrice(_ context.Context, symbol string) (decimal.Decimal, bool) {
	p, ok := q.prices[symbol]
	return p, ok
}

func (q *stubQuotes) CompanyDetails(_ context.Context, symbol string) (*models.CompanyDetails, bool) {
	det, ok := q.details[symbol]
	return det, ok
}

func newTestService(repo Repository, quotes Quotes) *Service {
	clock := func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return NewService(repo, quotes, zerolog.New(nil).Level(zerolog.Disabled), WithClock(clock))
}

func TestServiceCreateAndList(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepo(), &stubQuotes{})

	p, err := svc.Create(ctx, "u1", models.CreatePortfolioRequest{Name: "  Growth "})
	require.NoError(t, err)
	assert.Equal(t, "Growth", p.Name)
	assert.NotEmpty(t, p.ID)

	list, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 0, list[0].StockCount)

	others, err := svc.List(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestServiceCreateRejectsEmptyName(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil)
	_, err := svc.Create(context.Background(), "u1", models.CreatePortfolioRequest{Name: "   "})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestServiceAddStockFillsSectorAndMerges(t *testing.T) {
	ctx := context.Background()
	quotes := &stubQuotes{
		prices: map[string]decimal.Decimal{"AAPL": d("150")},
		details: map[string]*models.CompanyDetails{
			"AAPL": {Symbol: "AAPL", Name: "Apple Inc.", Sector: "Technology"},
		},
	}
	svc := newTestService(newMemoryRepo(), quotes)
	p, err := svc.Create(ctx, "u1", models.CreatePortfolioRequest{Name: "Main"})
	require.NoError(t, err)

	_, err = svc.AddStock(ctx, "u1", p.ID, models.AddStockRequest{Symbol: "aapl", Shares: d("10"), PurchasePrice: d("100")})
	require.NoError(t, err)
	got, err := svc.AddStock(ctx, "u1", p.ID, models.AddStockRequest{Symbol: "AAPL", Shares: d("10"), PurchasePrice: d("200")})
	require.NoError(t, err)

	require.Len(t, got.Stocks, 1)
	h := got.Stocks[0]
	assert.Equal(t, "Technology", h.Sector)
	assert.Equal(t, "Apple Inc.", h.CompanyName)
	assertDecimal(t, "20", h.Shares)
	assertDecimal(t, "150", h.PurchasePrice)
	assertDecimal(t, "3000", got.TotalValue)
	assert.False(t, h.PurchaseDate.IsZero())
}

func TestServiceAddStockRevaluesExistingHoldings(t *testing.T) {
	ctx := context.Background()
	quotes := &stubQuotes{prices: map[string]decimal.Decimal{"AAPL": d("100"), "MSFT": d("50")}}
	svc := newTestService(newMemoryRepo(), quotes)
	p, err := svc.Create(ctx, "u1", models.CreatePortfolioRequest{Name: "Main"})
	require.NoError(t, err)

	_, err = svc.AddStock(ctx, "u1", p.ID, models.AddStockRequest{Symbol: "AAPL", Shares: d("10"), PurchasePrice: d("100"), Sector: "Technology"})
	require.NoError(t, err)

	quotes.prices["AAPL"] = d("200")
	got, err := svc.AddStock(ctx, "u1", p.ID, models.AddStockRequest{Symbol: "MSFT", Shares: d("1"), PurchasePrice: d("50"), Sector: "Technology"})
	require.NoError(t, err)

	require.Len(t, got.Stocks, 2)
	aapl := got.Stocks[0]
	require.NotNil(t, aapl.MarketValue)
	require.NotNil(t, aapl.CurrentPrice)
	assertDecimal(t, "200", *aapl.CurrentPrice)
	assertDecimal(t, "2000", *aapl.MarketValue)
	assertDecimal(t, "2050", got.TotalValue)
	assertDecimal(t, "1050", got.TotalCost)
}

func TestServiceAddStockValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepo(), nil)
	p, err := svc.Create(ctx, "u1", models.CreatePortfolioRequest{Name: "Main"})
	require.NoError(t, err)

	_, err = svc.AddStock(ctx, "u1", p.ID, models.AddStockRequest{Symbol: "AAPL", Shares: d("0"), PurchasePrice: d("1")})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = svc.AddStock(ctx, "u1", "missing", models.AddStockRequest{Symbol: "AAPL", Shares: d("1"), PurchasePrice: d("1")})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestServiceUpdateAndRemoveHolding(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepo(), nil)
	p, err := svc.Create(ctx, "u1", models.CreatePortfolioRequest{Name: "Main"})
	require.NoError(t, err)
	_, err = svc.AddStock(ctx, "u1", p.ID, models.AddStockRequest{Symbol: "MSFT", Shares: d("2"), PurchasePrice: d("300")})
	require.NoError(t, err)

	shares := d("4")
	sector := "Technology"
	got, err := svc.UpdateHolding(ctx, "u1", p.ID, "msft", models.UpdateHoldingRequest{Shares: &shares, Sector: &sector})
	require.NoError(t, err)
	assertDecimal(t, "4", got.Stocks[0].Shares)
	assertDecimal(t, "300", got.Stocks[0].PurchasePrice)
	assert.Equal(t, "Technology", got.Stocks[0].Sector)
	assertDecimal(t, "1200", got.TotalValue)

	bad := d("-1")
	_, err = svc.UpdateHolding(ctx, "u1", p.ID, "MSFT", models.UpdateHoldingRequest{Shares: &bad})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = svc.UpdateHolding(ctx, "u1", p.ID, "TSLA", models.UpdateHoldingRequest{Shares: &shares})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	got, err = svc.RemoveHolding(ctx, "u1", p.ID, "MSFT")
	require.NoError(t, err)
	assert.Empty(t, got.Stocks)
	assert.True(t, got.TotalValue.IsZero())

	_, err = svc.RemoveHolding(ctx, "u1", p.ID, "MSFT")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestServiceOwnershipIsolation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepo(), nil)
	p, err := svc.Create(ctx, "owner", models.CreatePortfolioRequest{Name: "Main"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "intruder", p.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	err = svc.Delete(ctx, "intruder", p.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	require.NoError(t, svc.Delete(ctx, "owner", p.ID))
	_, err = svc.Get(ctx, "owner", p.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestServiceStorageFailureIsFatal(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)
	p, err := svc.Create(ctx, "u1", models.CreatePortfolioRequest{Name: "Main"})
	require.NoError(t, err)

	repo.saveErr = errors.New("disk full")
	_, err = svc.Get(ctx, "u1", p.ID)
	assert.True(t, errors.Is(err, apperr.ErrStorage))
}

func TestServiceAnalytics(t *testing.T) {
	ctx := context.Background()
	quotes := &stubQuotes{prices: map[string]decimal.Decimal{"AAPL": d("110")}}
	svc := newTestService(newMemoryRepo(), quotes)
	p, err := svc.Create(ctx, "u1", models.CreatePortfolioRequest{Name: "Main"})
	require.NoError(t, err)
	_, err = svc.AddStock(ctx, "u1", p.ID, models.AddStockRequest{Symbol: "AAPL", Shares: d("1"), PurchasePrice: d("100"), Sector: "Technology"})
	require.NoError(t, err)

	a, err := svc.Analytics(ctx, "u1", p.ID)
	require.NoError(t, err)
	assertDecimal(t, "100", a.SectorAllocation["Technology"])
	require.Len(t, a.TopPerformers, 1)
	assertDecimal(t, "10", a.TopPerformers[0].GainLossPercentage)
}

func TestServiceUpdateName(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepo(), nil)
	p, err := svc.Create(ctx, "u1", models.CreatePortfolioRequest{Name: "Main"})
	require.NoError(t, err)

	name := "Retirement"
	got, err := svc.Update(ctx, "u1", p.ID, &name, nil)
	require.NoError(t, err)
	assert.Equal(t, "Retirement", got.Name)

	empty := " "
	_, err = svc.Update(ctx, "u1", p.ID, &empty, nil)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}
