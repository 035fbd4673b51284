package dataflows

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dyike/CortexFolio/models"
)

// MarketData is a quote and news provider. Every method is best effort:
// failures are logged and reported as absent values or empty slices.
type MarketData interface {
	// Name identifies the provider in logs and source labels.
	Name() string
	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, bool)
	// DailyBars returns up to days calendar days of daily bars, oldest first.
	DailyBars(ctx context.Context, symbol string, days int) []models.Bar
	CompanyDetails(ctx context.Context, symbol string) (*models.CompanyDetails, bool)
	RecentNews(ctx context.Context, symbol string, days, limit int) []models.NewsItem
	SearchSymbols(ctx context.Context, query string, limit int) []models.SymbolMatch
}

// NewsCollector gathers news about a company from sources other than the
// market data provider.
type NewsCollector interface {
	Fetch(ctx context.Context, companyName, symbol string, days int) []models.NewsItem
}

// Polygon wire types

type polygonAggsResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Open      float64 `json:"o"`
		High      float64 `json:"h"`
		Low       float64 `json:"l"`
		Close     float64 `json:"c"`
		Volume    float64 `json:"v"`
		Timestamp int64   `json:"t"`
	} `json:"results"`
}

type polygonNewsResponse struct {
	Results []struct {
		Title        string `json:"title"`
		ArticleURL   string `json:"article_url"`
		PublishedUTC string `json:"published_utc"`
		Description  string `json:"description"`
		Publisher    struct {
			Name string `json:"name"`
		} `json:"publisher"`
	} `json:"results"`
}

type polygonTickerDetails struct {
	Results *struct {
		Ticker         string  `json:"ticker"`
		Name           string  `json:"name"`
		SICDescription string  `json:"sic_description"`
		MarketCap      float64 `json:"market_cap"`
		HomepageURL    string  `json:"homepage_url"`
	} `json:"results"`
}

type polygonTickerSearch struct {
	Results []struct {
		Ticker string `json:"ticker"`
		Name   string `json:"name"`
		Market string `json:"market"`
		Type   string `json:"type"`
	} `json:"results"`
}

// FinnhubNews represents news from Finnhub API
type FinnhubNews struct {
	Category string `json:"category"`
	DateTime int64  `json:"datetime"`
	Headline string `json:"headline"`
	ID       int64  `json:"id"`
	Image    string `json:"image"`
	Related  string `json:"related"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}
