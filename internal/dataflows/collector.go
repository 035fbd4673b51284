package dataflows

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dyike/CortexFolio/config"
	"github.com/dyike/CortexFolio/models"
)

// NewsAggregator combines Finnhub company news with Google News results,
// keeping the first article seen for each URL.
type NewsAggregator struct {
	finnhub *FinnhubClient
	scraper *NewsScraperClient
	limit   int
	now     func() time.Time
	log     zerolog.Logger
}

func NewNewsAggregator(finnhub *FinnhubClient, scraper *NewsScraperClient, log zerolog.Logger) *NewsAggregator {
	return &NewsAggregator{
		finnhub: finnhub,
		scraper: scraper,
		limit:   20,
		now:     time.Now,
		log:     log.With().Str("component", "news_collector").Logger(),
	}
}

// Fetch never fails; a source that errors contributes nothing.
func (na *NewsAggregator) Fetch(ctx context.Context, companyName, symbol string, days int) []models.NewsItem {
	symbol = NormalizeSymbol(symbol)
	end := na.now()
	start := end.AddDate(0, 0, -truncateDays(days))

	seen := make(map[string]struct{})
	var out []models.NewsItem
	add := func(items []models.NewsItem) {
		for _, item := range items {
			if item.URL == "" || item.Title == "" {
				continue
			}
			if _, dup := seen[item.URL]; dup {
				continue
			}
			seen[item.URL] = struct{}{}
			out = append(out, item)
		}
	}

	if na.finnhub.Enabled() {
		items, err := na.finnhub.CompanyNews(ctx, symbol, start, end)
		if err != nil {
			na.log.Warn().Err(err).Str("symbol", symbol).Msg("finnhub news unavailable")
		}
		add(items)
	}

	if na.scraper != nil {
		items, err := na.scraper.Search(ctx, GoogleNewsParams{
			Query:      newsQuery(companyName, symbol),
			StartDate:  start,
			EndDate:    end,
			MaxResults: na.limit,
		})
		if err != nil {
			na.log.Warn().Err(err).Str("symbol", symbol).Msg("google news unavailable")
		}
		add(items)
	}

	na.log.Debug().Str("symbol", symbol).Int("articles", len(out)).Msg("news collected")
	return out
}

func newsQuery(companyName, symbol string) string {
	companyName = strings.TrimSpace(companyName)
	if companyName == "" || strings.EqualFold(companyName, symbol) {
		return symbol + " stock"
	}
	return companyName + " " + symbol + " stock"
}

// NewMarketData returns the provider named by cfg.MarketDataProvider. A
// Longport provider that cannot connect falls back to Yahoo.
func NewMarketData(cfg *config.Config, log zerolog.Logger) MarketData {
	switch cfg.MarketDataProvider {
	case config.MarketYahoo:
		return NewYahooFinanceClient(log)
	case config.MarketLongport:
		lp, err := NewLongportClient(cfg, log)
		if err != nil {
			log.Warn().Err(err).Msg("longport unavailable, using yahoo for market data")
			return NewYahooFinanceClient(log)
		}
		return lp
	default:
		return NewPolygonClient(cfg, log)
	}
}

// NewNewsCollector wires the secondary news sources from cfg.
func NewNewsCollector(cfg *config.Config, log zerolog.Logger) NewsCollector {
	return NewNewsAggregator(NewFinnhubClient(cfg, log), NewNewsScraperClient(cfg, log), log)
}
