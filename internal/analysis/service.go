package analysis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/dyike/CortexFolio/internal/apperr"
	"github.com/dyike/CortexFolio/internal/cache"
	"github.com/dyike/CortexFolio/internal/dataflows"
	"github.com/dyike/CortexFolio/internal/llm"
	"github.com/dyike/CortexFolio/internal/portfolio"
	"github.com/dyike/CortexFolio/internal/prompts"
	"github.com/dyike/CortexFolio/internal/rag"
	"github.com/dyike/CortexFolio/internal/vectorstore"
	"github.com/dyike/CortexFolio/models"
)

const (
	newsDays        = 7
	providerNewsMax = 20
	barDays         = 30
	retrieveLimit   = 10

	providerRelevance  = 0.8
	collectorRelevance = 0.9
)

// Profiles looks up a user's investment profile; nil when none is stored.
type Profiles interface {
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
}

// Portfolios loads a revalued portfolio owned by userID.
type Portfolios interface {
	Get(ctx context.Context, userID, portfolioID string) (*models.Portfolio, error)
}

// Deps are the collaborators of the analysis service. Market, News and Index
// may be nil, in which case their stage contributes nothing.
type Deps struct {
	Market     dataflows.MarketData
	News       dataflows.NewsCollector
	Index      vectorstore.Index
	Reasoner   llm.Reasoner
	Profiles   Profiles
	Portfolios Portfolios
	Cache      *cache.ResultCache[models.StockAnalysis]
}

type Service struct {
	Deps
	timeout time.Duration
	now     func() time.Time
	log     zerolog.Logger
}

type Option func(*Service)

func WithCallTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(deps Deps, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		Deps:    deps,
		timeout: 30 * time.Second,
		now:     time.Now,
		log:     log.With().Str("service", "analysis").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StockRequest asks for an analysis of one symbol for a user. PortfolioID is
// optional and adds the portfolio to the reasoning context.
type StockRequest struct {
	Symbol      string
	CompanyName string
	UserID      string
	PortfolioID string
}

// stockInput is a validated request with its profile and portfolio resolved.
type stockInput struct {
	symbol    string
	company   string
	userID    string
	profile   *models.UserProfile
	portfolio *models.Portfolio
}

func cacheKey(symbol, userID string) string {
	return symbol + ":" + userID
}

// AnalyzeStock runs the stock pipeline, answering from the cache when a
// result for (symbol, user) is still fresh.
func (s *Service) AnalyzeStock(ctx context.Context, req StockRequest) (*models.StockAnalysis, error) {
	symbol := portfolio.NormalizeSymbol(req.Symbol)
	if err := portfolio.ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	if req.UserID == "" {
		return nil, apperr.Validation("user id is required")
	}

	if cached, ok := s.cached(symbol, req.UserID); ok {
		return cached, nil
	}

	profile, err := s.profile(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	var p *models.Portfolio
	if req.PortfolioID != "" && s.Portfolios != nil {
		if p, err = s.Portfolios.Get(ctx, req.UserID, req.PortfolioID); err != nil {
			return nil, err
		}
	}

	return s.analyzeStock(ctx, stockInput{
		symbol:    symbol,
		company:   req.CompanyName,
		userID:    req.UserID,
		profile:   profile,
		portfolio: p,
	})
}

func (s *Service) analyzeStock(ctx context.Context, in stockInput) (*models.StockAnalysis, error) {
	if err := portfolio.ValidateSymbol(in.symbol); err != nil {
		return nil, err
	}
	if cached, ok := s.cached(in.symbol, in.userID); ok {
		return cached, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log := s.log.With().Str("symbol", in.symbol).Str("user_id", in.userID).Logger()
	log.Info().Msg("starting stock analysis")

	if in.company == "" {
		in.company = s.companyName(ctx, in.symbol)
	}

	sources := s.collectNews(ctx, in.symbol, in.company)
	bars := s.bars(ctx, in.symbol)
	s.indexSources(ctx, in.symbol, sources)

	query := fmt.Sprintf("Analysis investment recommendation %s %s stock market news", in.symbol, in.company)
	snippets := s.retrieve(ctx, query, in.symbol)

	prompt, err := prompts.Render(prompts.StockAnalysis, map[string]string{
		"Symbol":      in.symbol,
		"CompanyName": in.company,
		"Context":     rag.StockContext(snippets, bars),
		"Profile":     rag.ProfileContext(in.profile, in.portfolio),
	})
	if err != nil {
		return nil, err
	}

	output, fallback := s.reason(ctx, prompt, in.symbol, in.company)

	analysis := output.toStockAnalysis(in.symbol, in.company, sources, s.now().UTC())
	analysis.Fallback = fallback
	if s.Cache != nil {
		s.Cache.Put(cacheKey(in.symbol, in.userID), analysis)
	}

	log.Info().
		Str("action", string(analysis.RecommendationAction)).
		Str("risk", string(analysis.RiskLevel)).
		Int("sources", len(sources)).
		Int("bars", len(bars)).
		Bool("fallback", fallback).
		Msg("completed stock analysis")
	return cloneAnalysis(analysis), nil
}

func (s *Service) cached(symbol, userID string) (*models.StockAnalysis, bool) {
	if s.Cache == nil {
		return nil, false
	}
	a, ok := s.Cache.Get(cacheKey(symbol, userID))
	if !ok {
		return nil, false
	}
	s.log.Debug().Str("symbol", symbol).Str("user_id", userID).Msg("returning cached analysis")
	return cloneAnalysis(a), true
}

func (s *Service) profile(ctx context.Context, userID string) (*models.UserProfile, error) {
	if s.Profiles == nil {
		return nil, nil
	}
	profile, err := s.Profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, apperr.Storage("get profile", err)
	}
	return profile, nil
}

func (s *Service) companyName(ctx context.Context, symbol string) string {
	if s.Market == nil {
		return symbol
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if details, ok := s.Market.CompanyDetails(ctx, symbol); ok && details.Name != "" {
		return details.Name
	}
	return symbol
}

// collectNews merges provider news with collector news, provider first,
// deduplicated by URL and capped at rag.MaxSnippets.
func (s *Service) collectNews(ctx context.Context, symbol, company string) []models.NewsSource {
	var provider, collected []models.NewsItem
	if s.Market != nil {
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		provider = s.Market.RecentNews(cctx, symbol, newsDays, providerNewsMax)
		cancel()
	}
	if s.News != nil {
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		collected = s.News.Fetch(cctx, company, symbol, newsDays)
		cancel()
	}
	return rag.MergeSources(rag.MaxSnippets,
		rag.SourcesFromNews(provider, providerRelevance),
		rag.SourcesFromNews(collected, collectorRelevance),
	)
}

func (s *Service) bars(ctx context.Context, symbol string) []models.Bar {
	if s.Market == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.Market.DailyBars(ctx, symbol, barDays)
}

func (s *Service) indexSources(ctx context.Context, symbol string, sources []models.NewsSource) {
	if s.Index == nil || len(sources) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ids, err := s.Index.AddDocuments(ctx, rag.Documents(sources, symbol), symbol)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("failed to index news documents")
		return
	}
	s.log.Debug().Str("symbol", symbol).Int("documents", len(ids)).Msg("indexed news documents")
}

func (s *Service) retrieve(ctx context.Context, query, symbol string) []rag.Snippet {
	if s.Index == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	hits, err := s.Index.Search(ctx, query, symbol, retrieveLimit)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("document search failed")
		return nil
	}
	return rag.SnippetsFromHits(hits)
}

// reason makes the structured call. Any reasoning failure yields the
// fallback analysis and true.
func (s *Service) reason(ctx context.Context, prompt, symbol, company string) (FinancialAnalysisOutput, bool) {
	if s.Reasoner == nil {
		return FallbackAnalysis(symbol, company), true
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var out FinancialAnalysisOutput
	err := s.Reasoner.CompleteStructured(ctx, prompt, &out)
	if err == nil {
		return out, false
	}
	if !errors.Is(err, apperr.ErrReasoning) {
		err = apperr.Reasoning(err)
	}
	s.log.Error().Err(err).Str("symbol", symbol).Msg("reasoning failed, using fallback analysis")
	return FallbackAnalysis(symbol, company), true
}

func cloneAnalysis(a models.StockAnalysis) *models.StockAnalysis {
	a.NewsSources = slices.Clone(a.NewsSources)
	if a.TargetPrice != nil {
		tp := *a.TargetPrice
		a.TargetPrice = &tp
	}
	return &a
}
