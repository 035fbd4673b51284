package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dyike/CortexFolio/config"
	"github.com/dyike/CortexFolio/internal/analysis"
	"github.com/dyike/CortexFolio/internal/cache"
	"github.com/dyike/CortexFolio/internal/chat"
	"github.com/dyike/CortexFolio/internal/dataflows"
	"github.com/dyike/CortexFolio/internal/llm"
	"github.com/dyike/CortexFolio/internal/portfolio"
	"github.com/dyike/CortexFolio/internal/scheduler"
	"github.com/dyike/CortexFolio/internal/storage/sqlite"
	"github.com/dyike/CortexFolio/internal/users"
	"github.com/dyike/CortexFolio/internal/vectorstore"
	"github.com/dyike/CortexFolio/models"
)

// Resources are the long lived handles shared by every engine generation.
// Both stores hold file locks, so they outlive config reloads.
type Resources struct {
	Store *sqlite.Store
	Index *vectorstore.Store
}

func OpenResources(cfg config.Config, log zerolog.Logger) (*Resources, error) {
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	index, err := vectorstore.Open(cfg.IndexDir, log)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open document index: %w", err)
	}
	return &Resources{Store: store, Index: index}, nil
}

func (r *Resources) Close() error {
	return errors.Join(r.Index.Close(), r.Store.Close())
}

// Engine is one generation of wired services built from a config snapshot.
type Engine struct {
	Config  config.Config
	BuiltAt time.Time
	Version uint64

	Log        zerolog.Logger
	Users      *users.Service
	Market     dataflows.MarketData
	Portfolios *portfolio.Service
	Analysis   *analysis.Service
	Chat       *chat.Service
	Scheduler  *scheduler.Scheduler
	SweepJob   *chat.SweepJob
	Debugger   *llm.EinoDebugger

	started atomic.Bool
}

var engineSeq atomic.Uint64

// BuildEngine wires the services for cfg on top of res. A reasoning model
// that cannot be constructed is logged and left out: analyses then use the
// fallback and chat replies apologize.
func BuildEngine(ctx context.Context, cfg config.Config, res *Resources, log zerolog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if res == nil {
		return nil, fmt.Errorf("resources are required")
	}

	market := dataflows.NewMarketData(&cfg, log)
	news := dataflows.NewNewsCollector(&cfg, log)

	var resultCache *cache.ResultCache[models.StockAnalysis]
	if cfg.CacheEnabled {
		resultCache = cache.New[models.StockAnalysis](
			cfg.AnalysisCacheTTL,
			cfg.AnalysisCacheMaxEntries,
			cfg.AnalysisCacheEvictBatch,
			cache.WithLogger(log),
		)
	}

	userSvc := users.NewService(res.Store, log)
	portfolios := portfolio.NewService(res.Store, market, log,
		portfolio.WithCallTimeout(cfg.ExternalCallTimeout))

	analysisDeps := analysis.Deps{
		Market:     market,
		News:       news,
		Index:      res.Index,
		Profiles:   res.Store,
		Portfolios: portfolios,
		Cache:      resultCache,
	}
	if r := buildReasoner(ctx, cfg, cfg.AnalysisModel, log); r != nil {
		analysisDeps.Reasoner = r
	}

	chatDeps := chat.Deps{
		Repo:     res.Store,
		Market:   market,
		Index:    res.Index,
		Profiles: res.Store,
	}
	if r := buildReasoner(ctx, cfg, cfg.ChatModel, log); r != nil {
		chatDeps.Reasoner = r
	}
	chatSvc := chat.NewService(chatDeps, log,
		chat.WithIdleTTL(cfg.ChatSessionIdleTTL),
		chat.WithCallTimeout(cfg.ExternalCallTimeout))

	sched := scheduler.New(log)
	sweep := chat.NewSweepJob(chatSvc)
	if err := sched.AddJob(cfg.ChatSweepSchedule, sweep); err != nil {
		return nil, err
	}

	engine := &Engine{
		Config:     cfg,
		BuiltAt:    time.Now(),
		Version:    engineSeq.Add(1),
		Log:        log,
		Users:      userSvc,
		Market:     market,
		Portfolios: portfolios,
		Analysis: analysis.NewService(analysisDeps, log,
			analysis.WithCallTimeout(cfg.ExternalCallTimeout)),
		Chat:      chatSvc,
		Scheduler: sched,
		SweepJob:  sweep,
		Debugger:  llm.NewEinoDebugger(&cfg, log),
	}
	log.Debug().
		Uint64("version", engine.Version).
		Str("llm_provider", cfg.LLMProvider).
		Str("market_data", market.Name()).
		Bool("cache", cfg.CacheEnabled).
		Msg("engine built")
	return engine, nil
}

func buildReasoner(ctx context.Context, cfg config.Config, model string, log zerolog.Logger) llm.Reasoner {
	r, err := llm.New(ctx, &cfg, model, log)
	if err != nil {
		log.Warn().Err(err).Str("model", model).Msg("reasoning model unavailable")
		return nil
	}
	return r
}

// StartJobs starts the engine's scheduled jobs once.
func (e *Engine) StartJobs() {
	if e.started.CompareAndSwap(false, true) {
		e.Scheduler.Start()
	}
}

// Close stops scheduled jobs. Shared resources are closed by their owner.
func (e *Engine) Close() {
	if e.started.CompareAndSwap(true, false) {
		e.Scheduler.Stop()
	}
}
