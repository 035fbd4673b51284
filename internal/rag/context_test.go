package rag

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/CortexFolio/models"
)

func TestMergeSourcesPrefersEarlierGroups(t *testing.T) {
	a := []models.NewsSource{
		{Title: "A1", URL: "u1", RelevanceScore: 0.8},
		{Title: "A2", URL: "u2", RelevanceScore: 0.8},
	}
	b := []models.NewsSource{
		{Title: "B1", URL: "u2", RelevanceScore: 0.9},
		{Title: "B2", URL: "u3", RelevanceScore: 0.9},
	}

	got := MergeSources(MaxSnippets, a, b)
	require.Len(t, got, 3)
	assert.Equal(t, "A2", got[1].Title)
	assert.Equal(t, 0.8, got[1].RelevanceScore)
	assert.Equal(t, "B2", got[2].Title)
}

func TestMergeSourcesCaps(t *testing.T) {
	var many []models.NewsSource
	for i := 0; i < 40; i++ {
		many = append(many, models.NewsSource{Title: fmt.Sprint(i), URL: fmt.Sprintf("u%d", i)})
	}
	assert.Len(t, MergeSources(MaxSnippets, many), 25)
}

func TestDocumentsFormatContent(t *testing.T) {
	published := time.Date(2024, 5, 9, 12, 0, 0, 0, time.UTC)
	docs := Documents([]models.NewsSource{{Title: "Beat", Source: "Wire", URL: "u", PublishedDate: published}}, "AAPL")
	require.Len(t, docs, 1)
	assert.Equal(t, "AAPL", docs[0].Symbol)
	assert.Equal(t, "Title: Beat\nSource: Wire\nPublished: 2024-05-09T12:00:00Z\nContent: Beat", docs[0].Content)
}

func TestStockContextDedupsAndBounds(t *testing.T) {
	var snippets []Snippet
	for i := 0; i < 30; i++ {
		snippets = append(snippets, Snippet{Title: fmt.Sprintf("T%d", i), Source: "S", Content: "C", URL: fmt.Sprintf("u%d", i%28)})
	}
	var bars []models.Bar
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 8; i++ {
		bars = append(bars, models.Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   decimal.NewFromInt(int64(100 + i)),
			High:   decimal.NewFromInt(int64(101 + i)),
			Low:    decimal.NewFromInt(int64(99 + i)),
			Close:  decimal.NewFromInt(int64(100 + i)),
			Volume: 1000,
		})
	}

	ctx := StockContext(snippets, bars)
	assert.Equal(t, 25, strings.Count(ctx, "News Article:"))
	assert.Contains(t, ctx, "Recent Market Data:")
	assert.Equal(t, 5, strings.Count(ctx, "Date: "))
	assert.NotContains(t, ctx, "Date: 2024-05-03")
	assert.Contains(t, ctx, "Date: 2024-05-08, Open: $107, High: $108, Low: $106, Close: $107, Volume: 1000")
}

func TestStockContextOmitsAbsentData(t *testing.T) {
	assert.Equal(t, "", StockContext(nil, nil))
	assert.NotContains(t, StockContext([]Snippet{{Title: "x"}}, nil), "Recent Market Data")
}

func TestProfileContext(t *testing.T) {
	profile := &models.UserProfile{RiskTolerance: "moderate", PrimaryGoal: "growth", LiquidityPreference: "low"}
	p := &models.Portfolio{TotalValue: decimal.RequireFromString("1234.5")}
	for i, sector := range []string{"Technology", "Technology", "", "Energy", "Technology", "Energy"} {
		p.Stocks = append(p.Stocks, &models.StockHolding{Symbol: fmt.Sprintf("S%d", i), Shares: decimal.NewFromInt(int64(i + 1)), Sector: sector})
	}

	got := ProfileContext(profile, p)
	assert.Contains(t, got, "- Risk Tolerance: moderate\n")
	assert.Contains(t, got, "- Investment Horizon: Not specified\n")
	assert.Contains(t, got, "- Total Value: $1234.50\n")
	assert.Contains(t, got, "- Number of Holdings: 6\n")
	assert.Contains(t, got, "- Holdings: S0 (1 shares), S1 (2 shares), S2 (3 shares), S3 (4 shares), S4 (5 shares)\n")
	assert.Contains(t, got, "- Sector Distribution: Technology: 3, Unknown: 1, Energy: 2\n")
}

func TestProfileContextWithoutData(t *testing.T) {
	assert.Equal(t, "User Profile:\n", ProfileContext(nil, &models.Portfolio{}))
}

func TestChatContextForSymbol(t *testing.T) {
	price := decimal.RequireFromString("190.25")
	bar := &models.Bar{
		Open: decimal.NewFromInt(188), High: decimal.NewFromInt(191),
		Low: decimal.NewFromInt(187), Close: decimal.RequireFromString("190.25"),
	}
	long := strings.Repeat("x", 500)

	got := ChatContext(ChatInputs{
		Symbol:    "AAPL",
		Price:     &price,
		LatestBar: bar,
		Profile:   &models.UserProfile{RiskTolerance: "aggressive", PrimaryGoal: "growth"},
		Snippets: []Snippet{
			{Title: "One", Content: long},
			{Content: "two"},
			{Title: "Three", Content: "three"},
			{Title: "Four", Content: "four"},
		},
	})

	lines := strings.Split(got, "\n")
	assert.Equal(t, "This conversation is about AAPL stock.", lines[0])
	assert.Equal(t, "Current price of AAPL: $190.25", lines[1])
	assert.Equal(t, "Latest trading data: Open: $188, High: $191, Low: $187, Close: $190.25", lines[2])
	assert.Equal(t, "User profile: Risk tolerance: aggressive, Goal: growth", lines[3])
	assert.Equal(t, "Relevant information from recent news:", lines[4])
	assert.Equal(t, "- One: "+strings.Repeat("x", 200)+"...", lines[5])
	assert.Equal(t, "- News: two...", lines[6])
	assert.Len(t, lines, 8)
}

func TestChatContextForPortfolio(t *testing.T) {
	got := ChatContext(ChatInputs{PortfolioID: "p-1"})
	assert.Equal(t, "This conversation is about the user's portfolio (ID: p-1).", got)
}

func TestHistoryKeepsLastSix(t *testing.T) {
	var msgs []models.ChatMessage
	for i := 0; i < 9; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		msgs = append(msgs, models.ChatMessage{Role: role, Content: fmt.Sprintf("m%d", i)})
	}

	got := History(msgs)
	assert.Equal(t, "Assistant: m3\nUser: m4\nAssistant: m5\nUser: m6\nAssistant: m7\nUser: m8\n", got)
	assert.Equal(t, "", History(nil))
}

func TestSortedSectors(t *testing.T) {
	p := &models.Portfolio{Stocks: []*models.StockHolding{
		{Sector: "Energy"}, {Sector: ""}, {Sector: "Technology"}, {Sector: "Energy"},
	}}
	assert.Equal(t, []string{"Energy", "Technology"}, SortedSectors(p))
}
