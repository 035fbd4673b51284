package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/CortexFolio/config"
)

type recordingNotifier struct {
	mu     sync.Mutex
	topics []string
}

func (n *recordingNotifier) notify(topic, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.topics = append(n.topics, topic)
}

func (n *recordingNotifier) Topics() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.topics...)
}

func newTestRuntime(t *testing.T, builder EngineBuilder) (*Runtime, *config.Manager, *recordingNotifier) {
	t.Helper()
	cfg := testConfig(t)
	mgr, err := config.NewManager(config.WithConfigDir(t.TempDir()), config.WithInitialConfig(&cfg))
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	rt, err := NewRuntime(mgr, WithBuilder(builder), WithNotifier(notifier.notify), WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	t.Cleanup(rt.Close)
	return rt, mgr, notifier
}

func TestRuntimeRebuildsOnConfigUpdate(t *testing.T) {
	res := openTestResources(t, testConfig(t))
	builder := func(cfg config.Config) (*Engine, error) {
		return BuildEngine(context.Background(), cfg, res, zerolog.Nop())
	}
	rt, mgr, notifier := newTestRuntime(t, builder)

	first := rt.Engine()
	require.NotNil(t, first)
	rt.StartJobs()

	cfg := mgr.Get()
	cfg.AnalysisCacheTTL = 10 * time.Minute
	require.NoError(t, mgr.Update(cfg))

	second := rt.Engine()
	assert.Greater(t, second.Version, first.Version)
	assert.Equal(t, 10*time.Minute, second.Config.AnalysisCacheTTL)
	assert.True(t, second.started.Load(), "jobs follow the runtime onto the new engine")
	assert.False(t, first.started.Load(), "old engine jobs are stopped")
	assert.Equal(t, []string{"engine.reloaded", "engine.reloaded"}, notifier.Topics())
}

func TestRuntimeKeepsEngineWhenRebuildFails(t *testing.T) {
	res := openTestResources(t, testConfig(t))
	fail := false
	builder := func(cfg config.Config) (*Engine, error) {
		if fail {
			return nil, errors.New("model endpoint unreachable")
		}
		return BuildEngine(context.Background(), cfg, res, zerolog.Nop())
	}
	rt, mgr, notifier := newTestRuntime(t, builder)
	first := rt.Engine()

	fail = true
	cfg := mgr.Get()
	cfg.ExternalCallTimeout = 5 * time.Second
	require.NoError(t, mgr.Update(cfg))

	assert.Same(t, first, rt.Engine())
	assert.Equal(t, []string{"engine.reloaded", "engine.reload_failed"}, notifier.Topics())
}

func TestNewRuntimeRequiresManagerAndBuilder(t *testing.T) {
	_, err := NewRuntime(nil)
	assert.Error(t, err)

	cfg := testConfig(t)
	mgr, err := config.NewManager(config.WithConfigDir(t.TempDir()), config.WithInitialConfig(&cfg))
	require.NoError(t, err)
	_, err = NewRuntime(mgr)
	assert.Error(t, err)
}
