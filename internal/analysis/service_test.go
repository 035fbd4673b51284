package analysis

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/CortexFolio/internal/apperr"
	"github.com/dyike/CortexFolio/internal/cache"
	"github.com/dyike/CortexFolio/models"
)

var fixedNow = time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)

type fakeMarket struct {
	prices  map[string]decimal.Decimal
	details map[string]*models.CompanyDetails
	news    map[string][]models.NewsItem
	bars    map[string][]models.Bar
}

func (f *fakeMarket) Name() string { return "fake" }

func (f *fakeMarket) CurrentPrice(_ context.Context, symbol string) (decimal.Decimal, bool) {
	p, ok := f.prices[symbol]
	return p, ok
}

func (f *fakeMarket) DailyBars(_ context.Context, symbol string, _ int) []models.Bar {
	return f.bars[symbol]
}

func (f *fakeMarket) CompanyDetails(_ context.Context, symbol string) (*models.CompanyDetails, bool) {
	d, ok := f.details[symbol]
	return d, ok
}

func (f *fakeMarket) RecentNews(_ context.Context, symbol string, _, _ int) []models.NewsItem {
	return f.news[symbol]
}

func (f *fakeMarket) SearchSymbols(context.Context, string, int) []models.SymbolMatch { return nil }

type fakeNews struct {
	items map[string][]models.NewsItem
}

func (f *fakeNews) Fetch(_ context.Context, _, symbol string, _ int) []models.NewsItem {
	return f.items[symbol]
}

type fakeIndex struct {
	mu   sync.Mutex
	docs map[string][]models.Document
}

func (f *fakeIndex) AddDocuments(_ context.Context, docs []models.Document, symbol string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.docs == nil {
		f.docs = make(map[string][]models.Document)
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		f.docs[symbol] = append(f.docs[symbol], d)
		ids = append(ids, d.URL)
	}
	return ids, nil
}

func (f *fakeIndex) Search(_ context.Context, _, symbol string, limit int) ([]models.SearchHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var hits []models.SearchHit
	for _, d := range f.docs[symbol] {
		if len(hits) == limit {
			break
		}
		hits = append(hits, models.SearchHit{Title: d.Title, Content: d.Content, URL: d.URL, Source: d.Source, Score: 1})
	}
	return hits, nil
}

type fakeReasoner struct {
	mu      sync.Mutex
	output  FinancialAnalysisOutput
	err     error
	calls   int
	prompts []string
}

func (f *fakeReasoner) Complete(context.Context, string) (string, error) {
	return "", apperr.Reasoning(assert.AnError)
}

func (f *fakeReasoner) CompleteStructured(_ context.Context, prompt string, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return f.err
	}
	raw, err := json.Marshal(f.output)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

type fakeProfiles map[string]*models.UserProfile

func (f fakeProfiles) GetProfile(_ context.Context, userID string) (*models.UserProfile, error) {
	return f[userID], nil
}

type fakePortfolios map[string]*models.Portfolio

func (f fakePortfolios) Get(_ context.Context, userID, portfolioID string) (*models.Portfolio, error) {
	p, ok := f[portfolioID]
	if !ok || p.UserID != userID {
		return nil, apperr.NotFound("portfolio %s", portfolioID)
	}
	return p, nil
}

func buyOutput() FinancialAnalysisOutput {
	target := 210.5
	return FinancialAnalysisOutput{
		QualitativeAnalysis:  "Upbeat product cycle.",
		QuantitativeAnalysis: "Rising on volume.",
		UserPortfolioFit:     "Adds tech exposure.",
		Recommendation:       "Buy on dips.",
		RecommendationAction: "buy",
		RiskLevel:            "medium",
		ConfidenceScore:      0.8,
		TargetPrice:          &target,
	}
}

func newsItem(title, url, source string) models.NewsItem {
	return models.NewsItem{Title: title, URL: url, Source: source, Summary: title + " body", PublishedAt: fixedNow.Add(-time.Hour)}
}

type fixture struct {
	market   *fakeMarket
	news     *fakeNews
	index    *fakeIndex
	reasoner *fakeReasoner
	clock    *time.Time
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := fixedNow
	f := &fixture{
		market: &fakeMarket{
			prices:  map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(190)},
			details: map[string]*models.CompanyDetails{"AAPL": {Symbol: "AAPL", Name: "Apple Inc.", Sector: "Technology"}},
			news: map[string][]models.NewsItem{"AAPL": {
				newsItem("Apple beats", "https://a.example/1", "polygon"),
				newsItem("Apple ships", "https://a.example/2", "polygon"),
			}},
			bars: map[string][]models.Bar{"AAPL": {
				{Date: fixedNow.AddDate(0, 0, -1), Open: decimal.NewFromInt(188), High: decimal.NewFromInt(191), Low: decimal.NewFromInt(187), Close: decimal.NewFromInt(190), Volume: 1000},
			}},
		},
		news: &fakeNews{items: map[string][]models.NewsItem{"AAPL": {
			newsItem("Apple beats (dup)", "https://a.example/1", "google"),
			newsItem("Apple supplier", "https://b.example/3", "google"),
		}}},
		index:    &fakeIndex{},
		reasoner: &fakeReasoner{output: buyOutput()},
		clock:    &now,
	}
	clockFn := func() time.Time { return *f.clock }
	f.svc = NewService(Deps{
		Market:     f.market,
		News:       f.news,
		Index:      f.index,
		Reasoner:   f.reasoner,
		Profiles:   fakeProfiles{"u1": {RiskTolerance: "moderate", PrimaryGoal: "growth"}},
		Portfolios: fakePortfolios{},
		Cache:      cache.New[models.StockAnalysis](time.Hour, 100, 20, cache.WithClock(clockFn)),
	}, zerolog.Nop(), WithClock(clockFn), WithCallTimeout(time.Second))
	return f
}

func TestAnalyzeStockUsesStructuredOutput(t *testing.T) {
	f := newFixture(t)

	got, err := f.svc.AnalyzeStock(context.Background(), StockRequest{Symbol: "aapl", UserID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, "AAPL", got.Symbol)
	assert.Equal(t, "Apple Inc.", got.CompanyName)
	assert.Equal(t, models.ActionBuy, got.RecommendationAction)
	assert.Equal(t, models.RiskMedium, got.RiskLevel)
	assert.False(t, got.Fallback)
	require.NotNil(t, got.TargetPrice)
	assert.Equal(t, "210.5", got.TargetPrice.String())
	assert.Equal(t, fixedNow, got.AnalysisDate)

	require.Len(t, got.NewsSources, 3)
	assert.Equal(t, "Apple beats", got.NewsSources[0].Title)
	assert.Equal(t, 0.8, got.NewsSources[0].RelevanceScore)
	assert.Equal(t, "https://b.example/3", got.NewsSources[2].URL)
	assert.Equal(t, 0.9, got.NewsSources[2].RelevanceScore)

	assert.Len(t, f.index.docs["AAPL"], 3)
	require.Len(t, f.reasoner.prompts, 1)
	prompt := f.reasoner.prompts[0]
	assert.Contains(t, prompt, "Apple Inc. (AAPL)")
	assert.Contains(t, prompt, "News Article: Apple ships")
	assert.Contains(t, prompt, "Close: $190")
	assert.Contains(t, prompt, "- Risk Tolerance: moderate")
}

func TestAnalyzeStockFallsBackOnReasoningFailure(t *testing.T) {
	f := newFixture(t)
	f.reasoner.err = apperr.Reasoning(assert.AnError)

	got, err := f.svc.AnalyzeStock(context.Background(), StockRequest{Symbol: "AAPL", UserID: "u1"})
	require.NoError(t, err)

	assert.True(t, got.Fallback)
	assert.Equal(t, models.ActionHold, got.RecommendationAction)
	assert.Equal(t, models.RiskMedium, got.RiskLevel)
	assert.Equal(t, 0.3, got.ConfidenceScore)
	assert.Nil(t, got.TargetPrice)
	assert.Contains(t, got.QualitativeAnalysis, "Apple Inc. (AAPL)")
	assert.NotEmpty(t, got.QuantitativeAnalysis)
	assert.NotEmpty(t, got.UserPortfolioFit)
	assert.NotEmpty(t, got.Recommendation)
	assert.Len(t, got.NewsSources, 3)
}

func TestAnalyzeStockCachesPerSymbolAndUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.AnalyzeStock(ctx, StockRequest{Symbol: "AAPL", UserID: "u1"})
	require.NoError(t, err)
	first.NewsSources[0].Title = "mutated by caller"

	second, err := f.svc.AnalyzeStock(ctx, StockRequest{Symbol: "AAPL", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.reasoner.calls)
	assert.Equal(t, "Apple beats", second.NewsSources[0].Title)

	_, err = f.svc.AnalyzeStock(ctx, StockRequest{Symbol: "AAPL", UserID: "u2"})
	require.NoError(t, err)
	assert.Equal(t, 2, f.reasoner.calls)

	*f.clock = f.clock.Add(time.Hour)
	_, err = f.svc.AnalyzeStock(ctx, StockRequest{Symbol: "AAPL", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 3, f.reasoner.calls)
}

func TestAnalyzeStockWithoutAnyData(t *testing.T) {
	f := newFixture(t)
	f.market.details = nil
	f.market.news = nil
	f.market.bars = nil
	f.news.items = nil

	got, err := f.svc.AnalyzeStock(context.Background(), StockRequest{Symbol: "ZZZ", UserID: "u9"})
	require.NoError(t, err)
	assert.Equal(t, "ZZZ", got.CompanyName)
	assert.NotNil(t, got.NewsSources)
	assert.Empty(t, got.NewsSources)
	assert.NotContains(t, f.reasoner.prompts[0], "Recent Market Data")
	assert.NotContains(t, f.reasoner.prompts[0], "Risk Tolerance")
}

func TestAnalyzeStockValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.AnalyzeStock(context.Background(), StockRequest{Symbol: "  ", UserID: "u1"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.AnalyzeStock(context.Background(), StockRequest{Symbol: "AAPL"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Zero(t, f.reasoner.calls)
}

func TestAnalyzeStockUnknownPortfolio(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.AnalyzeStock(context.Background(), StockRequest{Symbol: "AAPL", UserID: "u1", PortfolioID: "missing"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestFallbackAnalysisIsValid(t *testing.T) {
	out := FallbackAnalysis("MSFT", "Microsoft")
	assert.Equal(t, "hold", out.RecommendationAction)
	assert.Equal(t, "medium", out.RiskLevel)
	assert.True(t, strings.HasPrefix(out.Recommendation, "Hold position in MSFT"))
}
