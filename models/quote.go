package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one daily OHLCV point.
type Bar struct {
	Date   time.Time       `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

type CompanyDetails struct {
	Symbol    string           `json:"symbol"`
	Name      string           `json:"name"`
	Sector    string           `json:"sector,omitempty"`
	MarketCap *decimal.Decimal `json:"market_cap,omitempty"`
	Website   string           `json:"website,omitempty"`
}

// NewsItem is a news article from any provider or collector.
type NewsItem struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Summary     string    `json:"summary,omitempty"`
	Content     string    `json:"content,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

type SymbolMatch struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Market string `json:"market"`
	Type   string `json:"type"`
}

// Document is a unit of retrievable text indexed under a symbol.
type Document struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	IndexedAt   time.Time `json:"indexed_at"`
}

// SearchHit is a ranked document returned by the index.
type SearchHit struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	Score       float64   `json:"score"`
}
