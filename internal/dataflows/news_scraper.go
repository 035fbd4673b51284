package dataflows

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/dyike/CortexFolio/config"
	"github.com/dyike/CortexFolio/internal/apperr"
	"github.com/dyike/CortexFolio/models"
)

const googleNewsBaseURL = "https://news.google.com"

var relativeTimeRe = regexp.MustCompile(`(\d+)\s*(minute|min|hour|day|week)s?\s*ago`)

// NewsScraperClient scrapes Google News search result pages
type NewsScraperClient struct {
	client  *resty.Client
	cache   *CacheManager
	baseURL string
	retry   *RetryConfig
	now     func() time.Time
	log     zerolog.Logger
}

type ScraperOption func(*NewsScraperClient)

func WithScraperBaseURL(u string) ScraperOption {
	return func(ns *NewsScraperClient) { ns.baseURL = strings.TrimRight(u, "/") }
}

func WithScraperRetry(rc *RetryConfig) ScraperOption {
	return func(ns *NewsScraperClient) { ns.retry = rc }
}

func WithScraperClock(now func() time.Time) ScraperOption {
	return func(ns *NewsScraperClient) { ns.now = now }
}

// NewNewsScraperClient creates a new news scraper client
func NewNewsScraperClient(cfg *config.Config, log zerolog.Logger, opts ...ScraperOption) *NewsScraperClient {
	client := resty.New()
	client.SetTimeout(cfg.ExternalCallTimeout)
	client.SetHeader("User-Agent", "Mozilla/5.0 (compatible; CortexFolio/1.0)")

	ns := &NewsScraperClient{
		client:  client,
		cache:   NewCacheManager(filepath.Join(cfg.DataCacheDir, "news_scraper"), 2*time.Hour, cfg.CacheEnabled),
		baseURL: googleNewsBaseURL,
		retry:   DefaultRetryConfig(),
		now:     time.Now,
		log:     log.With().Str("provider", "google_news").Logger(),
	}
	for _, opt := range opts {
		opt(ns)
	}
	return ns
}

// GoogleNewsParams represents parameters for Google News search
type GoogleNewsParams struct {
	Query      string    `json:"query"`
	Language   string    `json:"language"`
	Country    string    `json:"country"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	MaxResults int       `json:"max_results"`
}

// Search scrapes Google News for articles
func (ns *NewsScraperClient) Search(ctx context.Context, params GoogleNewsParams) ([]models.NewsItem, error) {
	if strings.TrimSpace(params.Query) == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}

	if params.Language == "" {
		params.Language = "en"
	}
	if params.Country == "" {
		params.Country = "US"
	}
	if params.MaxResults <= 0 {
		params.MaxResults = 20
	}

	var cached []models.NewsItem
	if ns.cache.Get("google_news", "search", params, &cached) {
		return cached, nil
	}

	searchURL := ns.buildGoogleNewsURL(params)

	var result []models.NewsItem
	err := WithRetry(ctx, ns.retry, func() error {
		resp, err := ns.client.R().SetContext(ctx).Get(searchURL)
		if err != nil {
			return fmt.Errorf("failed to fetch Google News: %w", err)
		}

		if resp.StatusCode() != http.StatusOK {
			return fmt.Errorf("HTTP error %d when fetching Google News", resp.StatusCode())
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
		if err != nil {
			return permanent(fmt.Errorf("failed to parse HTML: %w", err))
		}

		result = ns.parseGoogleNewsHTML(doc)
		if len(result) > params.MaxResults {
			result = result[:params.MaxResults]
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Degraded("google_news", err)
	}

	ns.cache.Set("google_news", "search", params, result)
	return result, nil
}

// buildGoogleNewsURL constructs the Google News search URL
func (ns *NewsScraperClient) buildGoogleNewsURL(params GoogleNewsParams) string {
	query := params.Query
	if !params.StartDate.IsZero() && !params.EndDate.IsZero() {
		query += fmt.Sprintf(" after:%s before:%s",
			params.StartDate.Format("2006-01-02"),
			params.EndDate.Format("2006-01-02"))
	}

	return fmt.Sprintf("%s/search?q=%s&hl=%s&gl=%s&ceid=%s:%s",
		ns.baseURL, url.QueryEscape(query), params.Language, params.Country, params.Country, params.Language)
}

// parseGoogleNewsHTML extracts articles from Google News HTML
func (ns *NewsScraperClient) parseGoogleNewsHTML(doc *goquery.Document) []models.NewsItem {
	var articles []models.NewsItem

	doc.Find("article").Each(func(i int, s *goquery.Selection) {
		title := strings.TrimSpace(s.Find("h3").Text())
		if title == "" {
			title = strings.TrimSpace(s.Find("h4").Text())
		}
		if title == "" {
			return
		}

		href, exists := s.Find("a").First().Attr("href")
		if !exists {
			return
		}

		source := strings.TrimSpace(s.Find("div[data-n-tid]").Text())
		if source == "" {
			source = "Google News"
		}

		publishedAt := ns.now()
		if dt, ok := s.Find("time").Attr("datetime"); ok {
			if t, err := time.Parse(time.RFC3339, dt); err == nil {
				publishedAt = t
			}
		} else {
			publishedAt = ns.parseRelativeTime(s.Find("time").Text())
		}

		content := strings.TrimSpace(s.Find("span").Last().Text())

		articles = append(articles, models.NewsItem{
			Title:       title,
			URL:         ns.cleanGoogleNewsURL(href),
			Source:      source,
			Summary:     content,
			Content:     content,
			PublishedAt: publishedAt,
		})
	})

	return articles
}

// cleanGoogleNewsURL removes the Google News redirect wrapper
func (ns *NewsScraperClient) cleanGoogleNewsURL(googleURL string) string {
	if _, after, ok := strings.Cut(googleURL, "url="); ok {
		if decoded, err := url.QueryUnescape(after); err == nil {
			return decoded
		}
	}

	if strings.HasPrefix(googleURL, "./") {
		return googleNewsBaseURL + googleURL[1:]
	}
	if strings.HasPrefix(googleURL, "/") {
		return googleNewsBaseURL + googleURL
	}
	return googleURL
}

// parseRelativeTime converts "3 hours ago" style strings to a time. Unknown
// text is taken to mean one hour ago.
func (ns *NewsScraperClient) parseRelativeTime(timeText string) time.Time {
	now := ns.now()
	timeText = strings.ToLower(strings.TrimSpace(timeText))

	switch timeText {
	case "just now":
		return now
	case "yesterday":
		return now.Add(-24 * time.Hour)
	}

	m := relativeTimeRe.FindStringSubmatch(timeText)
	if len(m) != 3 {
		return now.Add(-time.Hour)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return now.Add(-time.Hour)
	}

	var unit time.Duration
	switch m[2] {
	case "minute", "min":
		unit = time.Minute
	case "hour":
		unit = time.Hour
	case "day":
		unit = 24 * time.Hour
	case "week":
		unit = 7 * 24 * time.Hour
	}
	return now.Add(-time.Duration(n) * unit)
}
