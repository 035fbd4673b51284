package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dyike/CortexFolio/config"
)

type EngineBuilder func(config.Config) (*Engine, error)

type Option func(*Runtime)

func WithBuilder(builder EngineBuilder) Option {
	return func(r *Runtime) {
		if builder != nil {
			r.builder = builder
		}
	}
}

func WithNotifier(fn func(topic, payload string)) Option {
	return func(r *Runtime) {
		r.notify = fn
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(r *Runtime) {
		r.log = log
	}
}

// Runtime keeps the current Engine in step with the config file, rebuilding
// it whenever the Manager reports a change.
type Runtime struct {
	cfgMgr *config.Manager
	engine atomic.Pointer[Engine]

	builder EngineBuilder
	notify  func(string, string)
	log     zerolog.Logger
	cancel  context.CancelFunc

	mu   sync.Mutex
	jobs bool
}

func NewRuntime(cfgMgr *config.Manager, opts ...Option) (*Runtime, error) {
	if cfgMgr == nil {
		return nil, fmt.Errorf("config manager is required")
	}

	rt := &Runtime{
		cfgMgr: cfgMgr,
		log:    zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(rt)
	}
	if rt.builder == nil {
		return nil, fmt.Errorf("engine builder is required")
	}

	if err := rt.reload(cfgMgr.Get()); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	rt.cancel = cancel
	if err := cfgMgr.Watch(ctx, func(cfg config.Config) {
		if err := rt.reload(cfg); err != nil {
			rt.log.Error().Err(err).Msg("engine reload failed, keeping previous engine")
		}
	}); err != nil {
		cancel()
		rt.Engine().Close()
		return nil, err
	}

	return rt, nil
}

func (r *Runtime) Engine() *Engine {
	return r.engine.Load()
}

// StartJobs starts scheduled jobs on the current engine and on every engine
// built by later reloads.
func (r *Runtime) StartJobs() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = true
	r.Engine().StartJobs()
}

func (r *Runtime) Close() {
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if e := r.engine.Load(); e != nil {
		e.Close()
	}
}

func (r *Runtime) UpdateConfigJSON(jsonStr string) error {
	return r.cfgMgr.UpdateFromJSON(jsonStr)
}

func (r *Runtime) reload(cfg config.Config) error {
	engine, err := r.builder(cfg)
	if err != nil {
		r.notifyFailure(err)
		return err
	}

	r.mu.Lock()
	if r.jobs {
		engine.StartJobs()
	}
	old := r.engine.Swap(engine)
	r.mu.Unlock()

	if old != nil {
		old.Close()
	}
	r.log.Info().Uint64("version", engine.Version).Msg("engine ready")
	r.notifySuccess(engine)
	return nil
}

func (r *Runtime) notifySuccess(engine *Engine) {
	if r.notify == nil {
		return
	}
	payload, _ := json.Marshal(map[string]any{
		"version":  engine.Version,
		"built_at": engine.BuiltAt.UTC().Format(time.RFC3339),
	})
	r.notify("engine.reloaded", string(payload))
}

func (r *Runtime) notifyFailure(err error) {
	if r.notify == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{
		"error": err.Error(),
	})
	r.notify("engine.reload_failed", string(payload))
}
