package rulesource

import (
	"context"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/homemade/remap/mapping"
)

const DefaultRefreshInterval = 5 * time.Minute

// ReloadResult summarises one reload.
type ReloadResult struct {
	Loaded  []string
	Invalid map[string]error
}

// Refresher compiles everything a Loader returns and installs it into a
// Registry as one snapshot.
type Refresher struct {
	loader   Loader
	registry *mapping.Registry
	interval time.Duration
	logger   *slog.Logger
	onReload func(ReloadResult)

	mu gosync.Mutex
}

type RefresherOption func(*Refresher)

func WithInterval(d time.Duration) RefresherOption {
	return func(r *Refresher) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithLogger(logger *slog.Logger) RefresherOption {
	return func(r *Refresher) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithReloadHook is called after every successful reload.
func WithReloadHook(fn func(ReloadResult)) RefresherOption {
	return func(r *Refresher) {
		r.onReload = fn
	}
}

func NewRefresher(loader Loader, registry *mapping.Registry, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		loader:   loader,
		registry: registry,
		interval: DefaultRefreshInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reload loads and compiles all documents. A document that does not
// compile is logged and left out; the rest are installed. A loader error
// leaves the registry untouched.
func (r *Refresher) Reload(ctx context.Context) (ReloadResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := ReloadResult{Invalid: map[string]error{}}
	configs, err := r.loader.Load(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to load rule sets %w", err)
	}
	sets := make([]*mapping.RuleSet, 0, len(configs))
	for _, cfg := range configs {
		set, err := cfg.Compile()
		if err != nil {
			r.logger.Warn("skipping rule set", slog.String("code", cfg.Code), slog.String("error", err.Error()))
			result.Invalid[cfg.Code] = err
			continue
		}
		sets = append(sets, set)
		result.Loaded = append(result.Loaded, set.Code())
	}
	r.registry.ReplaceAll(sets)
	r.logger.Info("rule sets reloaded", slog.Int("loaded", len(result.Loaded)), slog.Int("invalid", len(result.Invalid)))
	if r.onReload != nil {
		r.onReload(result)
	}
	return result, nil
}

// Run reloads immediately and then on every tick until ctx is done.
func (r *Refresher) Run(ctx context.Context) error {
	if _, err := r.Reload(ctx); err != nil {
		r.logger.Error("initial rule set load failed", slog.String("error", err.Error()))
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.Reload(ctx); err != nil {
				r.logger.Error("rule set reload failed", slog.String("error", err.Error()))
			}
		}
	}
}
