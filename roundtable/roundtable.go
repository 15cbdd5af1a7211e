// Package roundtable is the module's public entry point: it wires an
// llmclient.LLMClient, a config.Config, and a zap logger into a fully
// assembled session.Runtime and hands back the thin façade spec.md §6
// describes as the external interface (start/status/subscribe/get_version/
// get_reviews/get_report/continue/delete).
//
// Grounded on _examples/BaSui01-agentflow/agentflow.go's thin top-level wrapper: that package
// re-exports a lower-level builder ("quick") behind a short import path.
// This package plays the same role for session.Runtime, minus the
// provider-construction shortcuts (WithOpenAI, WithAnthropic, ...), which
// spec.md §1 places out of scope — callers of this module bring their own
// llmclient.LLMClient.
package roundtable

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/va2ai/ai-agent-orchestration-platform/config"
	"github.com/va2ai/ai-agent-orchestration-platform/eventbus"
	"github.com/va2ai/ai-agent-orchestration-platform/internal/telemetry"
	"github.com/va2ai/ai-agent-orchestration-platform/llmclient"
	"github.com/va2ai/ai-agent-orchestration-platform/llmclient/retry"
	"github.com/va2ai/ai-agent-orchestration-platform/session"
	"github.com/va2ai/ai-agent-orchestration-platform/store"
	"github.com/va2ai/ai-agent-orchestration-platform/types"
)

// Roundtable is the assembled runtime plus whatever background workers
// (the retention cleaner) its configuration turned on.
type Roundtable struct {
	*session.Runtime
	store   store.Store
	bus     *eventbus.Bus
	cleaner *store.RetentionCleaner
	logger  *zap.Logger
}

// Option configures New.
type Option func(*settings)

type settings struct {
	store   store.Store
	bus     *eventbus.Bus
	metrics *telemetry.Metrics
	logger  *zap.Logger
}

// WithStore overrides the persistence backend New would otherwise build
// from cfg.Store.
func WithStore(s store.Store) Option {
	return func(s2 *settings) { s2.store = s }
}

// WithEventBus overrides the event bus New would otherwise construct.
func WithEventBus(b *eventbus.Bus) Option {
	return func(s *settings) { s.bus = b }
}

// WithMetrics overrides the Prometheus collectors New would otherwise
// construct from cfg.Telemetry.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

// WithLogger overrides the zap logger, matching agentflow's WithLogger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// New builds a Roundtable from cfg and client, applying any Options after
// the config-derived defaults. If cfg.Retention.Enabled, a background
// RetentionCleaner is started immediately; call Close to stop it.
func New(cfg *config.Config, client llmclient.LLMClient, opts ...Option) (*Roundtable, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &settings{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		built, err := newStoreFromConfig(cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("build store: %w", err)
		}
		s.store = built
	}
	if s.bus == nil {
		s.bus = eventbus.New(s.logger)
	}
	if s.metrics == nil && cfg.Telemetry.Enabled {
		s.metrics = telemetry.NewMetrics(cfg.Telemetry.MetricsNamespace)
	}

	retryPolicy := retry.DefaultPolicy()
	if cfg.LLM.MaxRetries > 0 {
		retryPolicy.MaxRetries = cfg.LLM.MaxRetries
	}

	rt := session.New(client, s.store, s.bus, retryPolicy, s.metrics, s.logger)
	rtb := &Roundtable{Runtime: rt, store: s.store, bus: s.bus, logger: s.logger}

	if cfg.Retention.Enabled {
		cleaner, err := store.NewRetentionCleaner(s.store, cfg.Retention.Schedule, cfg.Retention.MaxAge, s.logger)
		if err != nil {
			return nil, fmt.Errorf("build retention cleaner: %w", err)
		}
		cleaner.Start()
		rtb.cleaner = cleaner
	}

	return rtb, nil
}

func newStoreFromConfig(cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return store.NewMemoryStore(), nil
	case "file":
		if cfg.Path == "" {
			return nil, fmt.Errorf("store.path is required for the file backend")
		}
		return store.NewFileStore(cfg.Path)
	case "sql":
		if cfg.Path == "" {
			return nil, fmt.Errorf("store.path is required for the sql backend")
		}
		return store.NewSQLStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// StartRequest re-exports session.StartRequest so callers only need to
// import this package for the common path.
type StartRequest = session.StartRequest

// DefaultConfig re-exports types.DefaultConfig for building a StartRequest's
// Config field.
func DefaultConfig() types.Config { return types.DefaultConfig() }

// Close stops any background workers (the retention cleaner) started by New.
// It does not touch the underlying Store or event Bus.
func (r *Roundtable) Close(ctx context.Context) error {
	if r.cleaner != nil {
		r.cleaner.Stop()
	}
	return nil
}
