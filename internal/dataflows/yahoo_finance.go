package dataflows

import (
	"context"
	"fmt"
	"strings"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dyike/CortexFolio/config"
	"github.com/dyike/CortexFolio/internal/apperr"
	"github.com/dyike/CortexFolio/models"
)

// commonSymbols backs symbol search, which Yahoo does not expose through
// finance-go.
var commonSymbols = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA", "META", "NVDA", "NFLX",
	"AMD", "INTC", "CRM", "ORCL", "ADBE", "PYPL", "DIS", "V", "MA",
	"JPM", "BAC", "WFC", "C", "GS", "MS", "BRK.B", "JNJ", "PFE",
	"KO", "PEP", "WMT", "HD", "NKE", "MCD", "SBUX", "UNH", "CVX",
}

// YahooFinanceClient handles Yahoo Finance data operations
type YahooFinanceClient struct {
	retry *RetryConfig
	now   func() time.Time
	log   zerolog.Logger
}

// NewYahooFinanceClient creates a new Yahoo Finance client
func NewYahooFinanceClient(log zerolog.Logger) *YahooFinanceClient {
	return &YahooFinanceClient{
		retry: DefaultRetryConfig(),
		now:   time.Now,
		log:   log.With().Str("provider", "yahoo").Logger(),
	}
}

func (yf *YahooFinanceClient) Name() string { return config.MarketYahoo }

func (yf *YahooFinanceClient) quote(ctx context.Context, symbol string) (*finance.Quote, error) {
	var result *finance.Quote
	err := WithRetry(ctx, yf.retry, func() error {
		q, err := callWithContext(ctx, func() (*finance.Quote, error) {
			return quote.Get(symbol)
		})
		if err != nil {
			return fmt.Errorf("failed to get quote for %s: %w", symbol, err)
		}
		if q == nil {
			return permanent(fmt.Errorf("no quote for %s", symbol))
		}
		result = q
		return nil
	})
	if err != nil {
		return nil, apperr.Degraded("yahoo", err)
	}
	return result, nil
}

// CurrentPrice gets the regular market price for a symbol
func (yf *YahooFinanceClient) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, bool) {
	q, err := yf.quote(ctx, NormalizeSymbol(symbol))
	if err != nil {
		yf.log.Warn().Err(err).Str("symbol", symbol).Msg("price unavailable")
		return decimal.Zero, false
	}
	if q.RegularMarketPrice <= 0 {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(q.RegularMarketPrice), true
}

// DailyBars gets historical daily bars for a rolling window
func (yf *YahooFinanceClient) DailyBars(ctx context.Context, symbol string, days int) []models.Bar {
	symbol = NormalizeSymbol(symbol)
	end := yf.now()
	start := end.AddDate(0, 0, -truncateDays(days))

	var bars []models.Bar
	err := WithRetry(ctx, yf.retry, func() error {
		var err error
		bars, err = callWithContext(ctx, func() ([]models.Bar, error) {
			iter := chart.Get(&chart.Params{
				Symbol:   symbol,
				Start:    datetime.New(&start),
				End:      datetime.New(&end),
				Interval: datetime.OneDay,
			})

			out := make([]models.Bar, 0, truncateDays(days))
			for iter.Next() {
				bar := iter.Bar()
				out = append(out, models.Bar{
					Date:   time.Unix(int64(bar.Timestamp), 0).UTC(),
					Open:   bar.Open,
					High:   bar.High,
					Low:    bar.Low,
					Close:  bar.Close,
					Volume: int64(bar.Volume),
				})
			}
			if err := iter.Err(); err != nil {
				return nil, fmt.Errorf("failed to get historical data for %s: %w", symbol, err)
			}
			return out, nil
		})
		return err
	})
	if err != nil {
		yf.log.Warn().Err(apperr.Degraded("yahoo", err)).Str("symbol", symbol).Msg("daily bars unavailable")
		return nil
	}
	return bars
}

// CompanyDetails returns the display name. Yahoo quotes carry no sector.
func (yf *YahooFinanceClient) CompanyDetails(ctx context.Context, symbol string) (*models.CompanyDetails, bool) {
	symbol = NormalizeSymbol(symbol)
	q, err := yf.quote(ctx, symbol)
	if err != nil {
		yf.log.Warn().Err(err).Str("symbol", symbol).Msg("company details unavailable")
		return nil, false
	}
	return &models.CompanyDetails{Symbol: symbol, Name: q.ShortName}, true
}

// RecentNews is not offered by this provider.
func (yf *YahooFinanceClient) RecentNews(context.Context, string, int, int) []models.NewsItem {
	return nil
}

// SearchSymbols filters a fixed list of liquid US tickers.
func (yf *YahooFinanceClient) SearchSymbols(_ context.Context, query string, limit int) []models.SymbolMatch {
	query = NormalizeSymbol(query)
	if query == "" {
		return nil
	}

	var matches []models.SymbolMatch
	for _, symbol := range commonSymbols {
		if strings.Contains(symbol, query) {
			matches = append(matches, models.SymbolMatch{Symbol: symbol, Market: "stocks", Type: "CS"})
		}
		if limit > 0 && len(matches) >= limit {
			break
		}
	}
	return matches
}
