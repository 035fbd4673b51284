// Package rag assembles the bounded text context handed to the reasoning
// engine from retrieved documents, market bars and the user's profile.
package rag

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dyike/CortexFolio/models"
	"github.com/dyike/CortexFolio/pkg/money"
)

const (
	MaxSnippets         = 25
	MaxBars             = 5
	MaxPortfolioSymbols = 5
	MaxHistory          = 6
	MaxChatSnippets     = 3
	ChatSnippetChars    = 200
)

// Snippet is a piece of retrieved text.
type Snippet struct {
	Title   string
	Source  string
	Content string
	URL     string
}

func SnippetsFromHits(hits []models.SearchHit) []Snippet {
	out := make([]Snippet, 0, len(hits))
	for _, h := range hits {
		out = append(out, Snippet{Title: h.Title, Source: h.Source, Content: h.Content, URL: h.URL})
	}
	return out
}

// MergeSources concatenates groups in order, dropping any source whose URL
// was already seen, and keeps at most limit entries.
func MergeSources(limit int, groups ...[]models.NewsSource) []models.NewsSource {
	seen := make(map[string]struct{})
	var out []models.NewsSource
	for _, group := range groups {
		for _, s := range group {
			if limit > 0 && len(out) >= limit {
				return out
			}
			if s.URL != "" {
				if _, dup := seen[s.URL]; dup {
					continue
				}
				seen[s.URL] = struct{}{}
			}
			out = append(out, s)
		}
	}
	return out
}

// SourcesFromNews converts provider news into sources with a fixed relevance.
func SourcesFromNews(items []models.NewsItem, relevance float64) []models.NewsSource {
	out := make([]models.NewsSource, 0, len(items))
	for _, item := range items {
		content := item.Content
		if content == "" {
			content = item.Summary
		}
		out = append(out, models.NewsSource{
			Title:          item.Title,
			URL:            item.URL,
			PublishedDate:  item.PublishedAt,
			Source:         item.Source,
			Content:        content,
			RelevanceScore: relevance,
		})
	}
	return out
}

// Documents turns news sources into indexable documents. A source without
// content falls back to its title.
func Documents(sources []models.NewsSource, symbol string) []models.Document {
	out := make([]models.Document, 0, len(sources))
	for _, s := range sources {
		body := s.Content
		if body == "" {
			body = s.Title
		}
		out = append(out, models.Document{
			Symbol: symbol,
			Title:  s.Title,
			Content: fmt.Sprintf("Title: %s\nSource: %s\nPublished: %s\nContent: %s",
				s.Title, s.Source, s.PublishedDate.Format(time.RFC3339), body),
			URL:         s.URL,
			Source:      s.Source,
			PublishedAt: s.PublishedDate,
		})
	}
	return out
}

// StockContext renders up to MaxSnippets URL-distinct snippets followed by
// the last MaxBars bars. Empty inputs contribute nothing.
func StockContext(snippets []Snippet, bars []models.Bar) string {
	var parts []string
	seen := make(map[string]struct{})
	count := 0
	for _, s := range snippets {
		if count >= MaxSnippets {
			break
		}
		if s.URL != "" {
			if _, dup := seen[s.URL]; dup {
				continue
			}
			seen[s.URL] = struct{}{}
		}
		parts = append(parts, fmt.Sprintf("News Article: %s\nSource: %s\nContent: %s\n", s.Title, s.Source, s.Content))
		count++
	}

	if len(bars) > 0 {
		parts = append(parts, "Recent Market Data:")
		for _, b := range bars[max(0, len(bars)-MaxBars):] {
			parts = append(parts, fmt.Sprintf("Date: %s, Open: $%s, High: $%s, Low: $%s, Close: $%s, Volume: %d",
				b.Date.Format("2006-01-02"), b.Open, b.High, b.Low, b.Close, b.Volume))
		}
	}
	return strings.Join(parts, "\n")
}

// ProfileContext describes the user's profile and, when it has holdings, the
// portfolio. Profile lines are omitted when the user has no profile.
func ProfileContext(profile *models.UserProfile, p *models.Portfolio) string {
	var b strings.Builder
	b.WriteString("User Profile:\n")

	if profile != nil {
		horizon := profile.InvestmentHorizon
		if horizon == "" {
			horizon = "Not specified"
		}
		fmt.Fprintf(&b, "- Risk Tolerance: %s\n", profile.RiskTolerance)
		fmt.Fprintf(&b, "- Investment Horizon: %s\n", horizon)
		fmt.Fprintf(&b, "- Primary Goal: %s\n", profile.PrimaryGoal)
		fmt.Fprintf(&b, "- Liquidity Preference: %s\n", profile.LiquidityPreference)
	}

	if p != nil && len(p.Stocks) > 0 {
		b.WriteString("\nCurrent Portfolio:\n")
		fmt.Fprintf(&b, "- Total Value: %s\n", money.FormatUSD(p.TotalValue))
		fmt.Fprintf(&b, "- Number of Holdings: %d\n", len(p.Stocks))

		holdings := make([]string, 0, MaxPortfolioSymbols)
		for _, h := range p.Stocks[:min(MaxPortfolioSymbols, len(p.Stocks))] {
			holdings = append(holdings, fmt.Sprintf("%s (%s shares)", h.Symbol, h.Shares))
		}
		fmt.Fprintf(&b, "- Holdings: %s\n", strings.Join(holdings, ", "))
		fmt.Fprintf(&b, "- Sector Distribution: %s\n", sectorTally(p))
	}
	return b.String()
}

// sectorTally counts holdings per sector in first-seen order.
func sectorTally(p *models.Portfolio) string {
	counts := make(map[string]int)
	var order []string
	for _, h := range p.Stocks {
		s := h.SectorOrUnknown()
		if _, ok := counts[s]; !ok {
			order = append(order, s)
		}
		counts[s]++
	}
	parts := make([]string, 0, len(order))
	for _, s := range order {
		parts = append(parts, fmt.Sprintf("%s: %d", s, counts[s]))
	}
	return strings.Join(parts, ", ")
}

// ChatInputs is what the chat orchestrator knows when it builds context.
type ChatInputs struct {
	Symbol      string
	Price       *decimal.Decimal
	LatestBar   *models.Bar
	PortfolioID string
	Profile     *models.UserProfile
	Snippets    []Snippet
}

// ChatContext renders the chat context. A bound symbol takes precedence over
// a bound portfolio.
func ChatContext(in ChatInputs) string {
	var parts []string
	switch {
	case in.Symbol != "":
		parts = append(parts, fmt.Sprintf("This conversation is about %s stock.", in.Symbol))
		if in.Price != nil {
			parts = append(parts, fmt.Sprintf("Current price of %s: $%s", in.Symbol, in.Price))
		}
		if b := in.LatestBar; b != nil {
			parts = append(parts, fmt.Sprintf("Latest trading data: Open: $%s, High: $%s, Low: $%s, Close: $%s",
				b.Open, b.High, b.Low, b.Close))
		}
	case in.PortfolioID != "":
		parts = append(parts, fmt.Sprintf("This conversation is about the user's portfolio (ID: %s).", in.PortfolioID))
	}

	if in.Profile != nil {
		parts = append(parts, fmt.Sprintf("User profile: Risk tolerance: %s, Goal: %s",
			in.Profile.RiskTolerance, in.Profile.PrimaryGoal))
	}

	if len(in.Snippets) > 0 {
		parts = append(parts, "Relevant information from recent news:")
		for _, s := range in.Snippets[:min(MaxChatSnippets, len(in.Snippets))] {
			title := s.Title
			if title == "" {
				title = "News"
			}
			parts = append(parts, fmt.Sprintf("- %s: %s...", title, truncateRunes(s.Content, ChatSnippetChars)))
		}
	}
	return strings.Join(parts, "\n")
}

// History renders the last MaxHistory messages, oldest first. Callers pass
// the transcript without the message being answered.
func History(messages []models.ChatMessage) string {
	var b strings.Builder
	for _, m := range messages[max(0, len(messages)-MaxHistory):] {
		fmt.Fprintf(&b, "%s: %s\n", m.Role.Title(), m.Content)
	}
	return b.String()
}

// SortedSectors returns the distinct known sectors of p in name order.
func SortedSectors(p *models.Portfolio) []string {
	set := make(map[string]struct{})
	for _, h := range p.Stocks {
		if h.Sector != "" {
			set[h.Sector] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
