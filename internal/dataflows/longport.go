package dataflows

import (
	"context"
	"errors"
	"strings"
	"time"

	lpconfig "github.com/longportapp/openapi-go/config"
	"github.com/longportapp/openapi-go/quote"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dyike/CortexFolio/config"
	"github.com/dyike/CortexFolio/internal/apperr"
	"github.com/dyike/CortexFolio/models"
)

// LongportClient reads quotes through the Longport quote context. Symbols
// without a market suffix are treated as US listings.
type LongportClient struct {
	quoteCtx *quote.QuoteContext
	log      zerolog.Logger
}

func NewLongportClient(cfg *config.Config, log zerolog.Logger) (*LongportClient, error) {
	if cfg.LongportAppKey == "" || cfg.LongportAppSecret == "" || cfg.LongportAccessToken == "" {
		return nil, errors.New("longport API credentials not configured")
	}

	conf, err := lpconfig.New(lpconfig.WithConfigKey(cfg.LongportAppKey, cfg.LongportAppSecret, cfg.LongportAccessToken))
	if err != nil {
		return nil, err
	}

	quoteContext, err := quote.NewFromCfg(conf)
	if err != nil {
		return nil, err
	}

	return &LongportClient{
		quoteCtx: quoteContext,
		log:      log.With().Str("provider", "longport").Logger(),
	}, nil
}

func (lpc *LongportClient) Name() string { return config.MarketLongport }

func (lpc *LongportClient) sticks(ctx context.Context, symbol string, count int) ([]*quote.Candlestick, error) {
	if lpc.quoteCtx == nil {
		return nil, errors.New("quote context is nil")
	}
	return lpc.quoteCtx.Candlesticks(ctx, longportSymbol(symbol), quote.PeriodDay, int32(count), quote.AdjustTypeNo)
}

// DailyBars requests one candlestick per trading day; days is used as the count.
func (lpc *LongportClient) DailyBars(ctx context.Context, symbol string, days int) []models.Bar {
	sticks, err := lpc.sticks(ctx, symbol, truncateDays(days))
	if err != nil {
		lpc.log.Warn().Err(apperr.Degraded("longport", err)).Str("symbol", symbol).Msg("daily bars unavailable")
		return nil
	}

	bars := make([]models.Bar, 0, len(sticks))
	for _, s := range sticks {
		if s == nil {
			continue
		}
		bars = append(bars, models.Bar{
			Date:   time.Unix(s.Timestamp, 0).UTC(),
			Open:   decimalOrZero(s.Open),
			High:   decimalOrZero(s.High),
			Low:    decimalOrZero(s.Low),
			Close:  decimalOrZero(s.Close),
			Volume: s.Volume,
		})
	}
	return bars
}

// CurrentPrice is the close of the latest daily candlestick.
func (lpc *LongportClient) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, bool) {
	bars := lpc.DailyBars(ctx, symbol, 1)
	if len(bars) == 0 || !bars[len(bars)-1].Close.IsPositive() {
		return decimal.Zero, false
	}
	return bars[len(bars)-1].Close, true
}

// CompanyDetails returns the English name from static info. No sector is
// published by Longport.
func (lpc *LongportClient) CompanyDetails(ctx context.Context, symbol string) (*models.CompanyDetails, bool) {
	if lpc.quoteCtx == nil {
		return nil, false
	}
	infos, err := lpc.quoteCtx.StaticInfo(ctx, []string{longportSymbol(symbol)})
	if err != nil {
		lpc.log.Warn().Err(apperr.Degraded("longport", err)).Str("symbol", symbol).Msg("company details unavailable")
		return nil, false
	}
	if len(infos) == 0 || infos[0] == nil {
		return nil, false
	}
	return &models.CompanyDetails{Symbol: NormalizeSymbol(symbol), Name: infos[0].NameEn}, true
}

// RecentNews is not offered by this provider.
func (lpc *LongportClient) RecentNews(context.Context, string, int, int) []models.NewsItem {
	return nil
}

// SearchSymbols resolves the query as an exact symbol.
func (lpc *LongportClient) SearchSymbols(ctx context.Context, query string, limit int) []models.SymbolMatch {
	details, ok := lpc.CompanyDetails(ctx, query)
	if !ok || limit == 0 {
		return nil
	}
	return []models.SymbolMatch{{Symbol: details.Symbol, Name: details.Name, Market: "stocks", Type: "CS"}}
}

func longportSymbol(symbol string) string {
	symbol = NormalizeSymbol(symbol)
	if strings.Contains(symbol, ".") && !strings.HasPrefix(symbol, "BRK.") {
		return symbol
	}
	return symbol + ".US"
}

func decimalOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
