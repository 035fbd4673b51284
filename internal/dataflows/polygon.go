package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dyike/CortexFolio/config"
	"github.com/dyike/CortexFolio/internal/apperr"
	"github.com/dyike/CortexFolio/models"
	"github.com/dyike/CortexFolio/pkg/money"
)

const polygonBaseURL = "https://api.polygon.io"

// PolygonClient reads aggregates, ticker details and news from the Polygon
// REST API.
type PolygonClient struct {
	client *resty.Client
	cache  *CacheManager
	apiKey string
	retry  *RetryConfig
	now    func() time.Time
	log    zerolog.Logger
}

type PolygonOption func(*PolygonClient)

// WithPolygonBaseURL points the client at another host, used by tests.
func WithPolygonBaseURL(u string) PolygonOption {
	return func(pc *PolygonClient) { pc.client.SetBaseURL(u) }
}

func WithPolygonRetry(rc *RetryConfig) PolygonOption {
	return func(pc *PolygonClient) { pc.retry = rc }
}

func WithPolygonClock(now func() time.Time) PolygonOption {
	return func(pc *PolygonClient) { pc.now = now }
}

// NewPolygonClient creates a new Polygon client
func NewPolygonClient(cfg *config.Config, log zerolog.Logger, opts ...PolygonOption) *PolygonClient {
	client := resty.New()
	client.SetBaseURL(polygonBaseURL)
	client.SetTimeout(cfg.ExternalCallTimeout)

	pc := &PolygonClient{
		client: client,
		cache:  NewCacheManager(filepath.Join(cfg.DataCacheDir, "polygon"), 6*time.Hour, cfg.CacheEnabled),
		apiKey: cfg.PolygonAPIKey,
		retry:  DefaultRetryConfig(),
		now:    time.Now,
		log:    log.With().Str("provider", "polygon").Logger(),
	}
	for _, opt := range opts {
		opt(pc)
	}
	return pc
}

func (pc *PolygonClient) Name() string { return config.MarketPolygon }

// get issues a GET with the api key and decodes a 200 response into out.
func (pc *PolygonClient) get(ctx context.Context, path string, params map[string]string, out any) error {
	if pc.apiKey == "" {
		return apperr.Degraded("polygon", fmt.Errorf("API key not configured"))
	}
	query := map[string]string{"apiKey": pc.apiKey}
	for k, v := range params {
		query[k] = v
	}

	err := WithRetry(ctx, pc.retry, func() error {
		resp, err := pc.client.R().
			SetContext(ctx).
			SetQueryParams(query).
			Get(path)
		if err != nil {
			return fmt.Errorf("request %s: %w", path, err)
		}
		switch {
		case resp.StatusCode() == http.StatusOK:
		case resp.StatusCode() >= 400 && resp.StatusCode() < 500 && resp.StatusCode() != http.StatusTooManyRequests:
			return permanent(fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String()))
		default:
			return fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
		}
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return permanent(fmt.Errorf("failed to parse %s response: %w", path, err))
		}
		return nil
	})
	if err != nil {
		return apperr.Degraded("polygon", err)
	}
	return nil
}

// DailyBars fetches daily aggregates covering the last days calendar days.
func (pc *PolygonClient) DailyBars(ctx context.Context, symbol string, days int) []models.Bar {
	symbol = NormalizeSymbol(symbol)
	end := pc.now()
	start := end.AddDate(0, 0, -truncateDays(days))
	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/day/%s/%s",
		symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))

	var resp polygonAggsResponse
	if err := pc.get(ctx, path, map[string]string{"adjusted": "true", "sort": "asc"}, &resp); err != nil {
		pc.log.Warn().Err(err).Str("symbol", symbol).Msg("daily bars unavailable")
		return nil
	}

	bars := make([]models.Bar, 0, len(resp.Results))
	for _, r := range resp.Results {
		bars = append(bars, models.Bar{
			Date:   time.UnixMilli(r.Timestamp).UTC(),
			Open:   decimal.NewFromFloat(r.Open),
			High:   decimal.NewFromFloat(r.High),
			Low:    decimal.NewFromFloat(r.Low),
			Close:  decimal.NewFromFloat(r.Close),
			Volume: int64(r.Volume),
		})
	}
	return bars
}

// CurrentPrice is the most recent close within the last week.
func (pc *PolygonClient) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, bool) {
	bars := pc.DailyBars(ctx, symbol, 7)
	if len(bars) == 0 {
		return decimal.Zero, false
	}
	price := bars[len(bars)-1].Close
	if !price.IsPositive() {
		return decimal.Zero, false
	}
	return price, true
}

// CompanyDetails uses the SIC description as the sector.
func (pc *PolygonClient) CompanyDetails(ctx context.Context, symbol string) (*models.CompanyDetails, bool) {
	symbol = NormalizeSymbol(symbol)

	var cached models.CompanyDetails
	if pc.cache.Get("polygon", "details", symbol, &cached) {
		return &cached, true
	}

	var resp polygonTickerDetails
	if err := pc.get(ctx, "/v3/reference/tickers/"+symbol, nil, &resp); err != nil {
		pc.log.Warn().Err(err).Str("symbol", symbol).Msg("company details unavailable")
		return nil, false
	}
	if resp.Results == nil {
		return nil, false
	}

	details := &models.CompanyDetails{
		Symbol:  symbol,
		Name:    resp.Results.Name,
		Sector:  resp.Results.SICDescription,
		Website: resp.Results.HomepageURL,
	}
	if resp.Results.MarketCap > 0 {
		details.MarketCap = money.Ptr(decimal.NewFromFloat(resp.Results.MarketCap))
	}
	pc.cache.Set("polygon", "details", symbol, details)
	return details, true
}

// RecentNews returns up to limit articles published in the last days days.
func (pc *PolygonClient) RecentNews(ctx context.Context, symbol string, days, limit int) []models.NewsItem {
	symbol = NormalizeSymbol(symbol)
	since := pc.now().AddDate(0, 0, -truncateDays(days))
	params := map[string]string{
		"ticker":            symbol,
		"published_utc.gte": since.Format("2006-01-02"),
		"limit":             strconv.Itoa(limit),
		"order":             "desc",
		"sort":              "published_utc",
	}

	var cached []models.NewsItem
	if pc.cache.Get("polygon", "news", params, &cached) {
		return cached
	}

	var resp polygonNewsResponse
	if err := pc.get(ctx, "/v2/reference/news", params, &resp); err != nil {
		pc.log.Warn().Err(err).Str("symbol", symbol).Msg("news unavailable")
		return nil
	}

	items := make([]models.NewsItem, 0, len(resp.Results))
	for _, r := range resp.Results {
		published, _ := ParseDateString(r.PublishedUTC)
		items = append(items, models.NewsItem{
			Title:       r.Title,
			URL:         r.ArticleURL,
			Source:      r.Publisher.Name,
			Summary:     r.Description,
			Content:     r.Description,
			PublishedAt: published,
		})
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	pc.cache.Set("polygon", "news", params, items)
	return items
}

// SearchSymbols matches active tickers by name or symbol.
func (pc *PolygonClient) SearchSymbols(ctx context.Context, query string, limit int) []models.SymbolMatch {
	var resp polygonTickerSearch
	params := map[string]string{
		"search": query,
		"active": "true",
		"limit":  strconv.Itoa(limit),
	}
	if err := pc.get(ctx, "/v3/reference/tickers", params, &resp); err != nil {
		pc.log.Warn().Err(err).Str("query", query).Msg("symbol search unavailable")
		return nil
	}

	matches := make([]models.SymbolMatch, 0, len(resp.Results))
	for _, r := range resp.Results {
		matches = append(matches, models.SymbolMatch{
			Symbol: r.Ticker,
			Name:   r.Name,
			Market: r.Market,
			Type:   r.Type,
		})
	}
	return matches
}
