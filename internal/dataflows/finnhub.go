package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/dyike/CortexFolio/config"
	"github.com/dyike/CortexFolio/internal/apperr"
	"github.com/dyike/CortexFolio/models"
)

const finnhubBaseURL = "https://finnhub.io/api/v1"

// FinnhubClient handles Finnhub API operations
type FinnhubClient struct {
	client *resty.Client
	cache  *CacheManager
	apiKey string
	retry  *RetryConfig
	log    zerolog.Logger
}

type FinnhubOption func(*FinnhubClient)

func WithFinnhubBaseURL(u string) FinnhubOption {
	return func(fc *FinnhubClient) { fc.client.SetBaseURL(u) }
}

func WithFinnhubRetry(rc *RetryConfig) FinnhubOption {
	return func(fc *FinnhubClient) { fc.retry = rc }
}

// NewFinnhubClient creates a new Finnhub client
func NewFinnhubClient(cfg *config.Config, log zerolog.Logger, opts ...FinnhubOption) *FinnhubClient {
	client := resty.New()
	client.SetBaseURL(finnhubBaseURL)
	client.SetTimeout(cfg.ExternalCallTimeout)

	fc := &FinnhubClient{
		client: client,
		cache:  NewCacheManager(filepath.Join(cfg.DataCacheDir, "finnhub"), 6*time.Hour, cfg.CacheEnabled),
		apiKey: cfg.FinnhubAPIKey,
		retry:  DefaultRetryConfig(),
		log:    log.With().Str("provider", "finnhub").Logger(),
	}
	for _, opt := range opts {
		opt(fc)
	}
	return fc
}

// Enabled reports whether an API key is configured.
func (fc *FinnhubClient) Enabled() bool {
	return fc != nil && fc.apiKey != ""
}

// CompanyNews gets news articles for a specific company
func (fc *FinnhubClient) CompanyNews(ctx context.Context, symbol string, from, to time.Time) ([]models.NewsItem, error) {
	if !fc.Enabled() {
		return nil, apperr.Degraded("finnhub", fmt.Errorf("API key not configured"))
	}

	symbol = NormalizeSymbol(symbol)
	params := map[string]string{
		"symbol": symbol,
		"from":   from.Format("2006-01-02"),
		"to":     to.Format("2006-01-02"),
	}

	var cached []models.NewsItem
	if fc.cache.Get("finnhub", "company_news", params, &cached) {
		return cached, nil
	}

	var result []models.NewsItem
	err := WithRetry(ctx, fc.retry, func() error {
		resp, err := fc.client.R().
			SetContext(ctx).
			SetQueryParams(params).
			SetQueryParam("token", fc.apiKey).
			Get("/company-news")
		if err != nil {
			return fmt.Errorf("failed to fetch news for %s: %w", symbol, err)
		}

		if resp.StatusCode() != http.StatusOK {
			err := fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
			if resp.StatusCode() < 500 && resp.StatusCode() != http.StatusTooManyRequests {
				return permanent(err)
			}
			return err
		}

		var finnhubNews []FinnhubNews
		if err := json.Unmarshal(resp.Body(), &finnhubNews); err != nil {
			return permanent(fmt.Errorf("failed to parse news response: %w", err))
		}

		result = make([]models.NewsItem, 0, len(finnhubNews))
		for _, news := range finnhubNews {
			result = append(result, models.NewsItem{
				Title:       news.Headline,
				URL:         news.URL,
				Source:      news.Source,
				Summary:     news.Summary,
				Content:     news.Summary,
				PublishedAt: time.Unix(news.DateTime, 0).UTC(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Degraded("finnhub", err)
	}

	fc.cache.Set("finnhub", "company_news", params, result)
	return result, nil
}
