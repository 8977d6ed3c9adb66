// Package feed owns the refresh cycle: it walks the ranked provider
// waterfall until one source yields an acceptable result, falls back to
// synthetic data when every source fails, and exposes the current snapshot
// to readers.
package feed

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/claradash/marketfeed/internal/observ"
	"github.com/claradash/marketfeed/internal/providers"
	"github.com/claradash/marketfeed/internal/quote"
)

// Warning surfaced on a snapshot when every live source failed and the
// feed is serving synthetic data. Never fatal.
const WarningAllSourcesDown = "live APIs unavailable"

// HistorySource is a provider that can serve daily bars for one symbol.
type HistorySource interface {
	Name() string
	History(ctx context.Context, symbol string, days int) []quote.Bar
}

type Config struct {
	RefreshInterval time.Duration
	HistoryDays     int
	StockSymbols    []string
	IndexSymbols    []string
}

// Orchestrator runs at most one timer-driven cycle at a time and replaces
// the snapshot atomically; readers never see two sources mixed. A manual
// Refresh may overlap a timer tick; the last completed cycle wins.
type Orchestrator struct {
	cfg       Config
	providers []providers.Provider
	sim       *providers.Sim
	history   []HistorySource

	mu      sync.RWMutex
	snap    quote.Snapshot
	loading bool
}

func New(cfg Config, provs []providers.Provider, sim *providers.Sim, history []HistorySource) *Orchestrator {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 30 * time.Second
	}
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = 90
	}
	return &Orchestrator{
		cfg:       cfg,
		providers: provs,
		sim:       sim,
		history:   history,
	}
}

// Run executes one cycle immediately, then one per interval until ctx ends.
func (o *Orchestrator) Run(ctx context.Context) {
	o.Refresh(ctx)

	ticker := time.NewTicker(o.cfg.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.Refresh(ctx)
		}
	}
}

// Refresh runs one full waterfall cycle and returns the adopted snapshot.
func (o *Orchestrator) Refresh(ctx context.Context) quote.Snapshot {
	cycleID := uuid.NewString()
	start := time.Now()

	o.mu.Lock()
	o.loading = true
	o.mu.Unlock()

	for _, p := range o.providers {
		attemptStart := time.Now()
		res := p.Fetch(ctx, o.cfg.StockSymbols, o.cfg.IndexSymbols)
		observ.RecordDuration("provider_fetch", time.Since(attemptStart), map[string]string{"provider": p.Name()})

		if res.Count() < p.MinResults() {
			observ.Log("feed_provider_insufficient", map[string]any{
				"cycle_id": cycleID,
				"provider": p.Name(),
				"resolved": res.Count(),
				"min":      p.MinResults(),
			})
			continue
		}

		snap, ok := o.assemble(res, p.Label())
		if !ok {
			// Everything the provider resolved was filtered out.
			continue
		}
		o.adopt(snap)
		observ.IncCounter("feed_cycles_total", map[string]string{"source": p.Name()})
		observ.Log("feed_cycle_complete", map[string]any{
			"cycle_id": cycleID,
			"source":   p.Name(),
			"stocks":   len(snap.Stocks),
			"indices":  len(snap.Indices),
			"ms":       time.Since(start).Milliseconds(),
		})
		return snap
	}

	// Terminal fallback: synthetic snapshot, always non-empty.
	qs, ixs := o.sim.Snapshot(o.cfg.StockSymbols, o.cfg.IndexSymbols)
	snap, _ := o.assemble(providers.Result{Quotes: qs, Indices: ixs}, o.sim.Label())
	snap.Simulated = true
	snap.Warning = WarningAllSourcesDown
	o.adopt(snap)
	observ.IncCounter("feed_cycles_total", map[string]string{"source": "sim"})
	observ.Log("feed_cycle_simulated", map[string]any{
		"cycle_id": cycleID,
		"stocks":   len(snap.Stocks),
		"indices":  len(snap.Indices),
		"ms":       time.Since(start).Milliseconds(),
	})
	return snap
}

// assemble orders a provider's resolved entries by the configured universe,
// dropping anything with a non-positive price. Indices missing from the
// result carry over from the previous snapshot so an equities-only source
// does not blank the index strip.
func (o *Orchestrator) assemble(res providers.Result, label string) (quote.Snapshot, bool) {
	snap := quote.Snapshot{
		DataSource:  label,
		RefreshedAt: time.Now().UTC(),
	}
	for _, sym := range o.cfg.StockSymbols {
		q, ok := res.Quotes[sym]
		if !ok || q.Price <= 0 {
			continue
		}
		snap.Stocks = append(snap.Stocks, q)
	}
	for _, sym := range o.cfg.IndexSymbols {
		ix, ok := res.Indices[sym]
		if !ok || ix.Price <= 0 {
			continue
		}
		snap.Indices = append(snap.Indices, ix)
	}
	if len(snap.Indices) == 0 {
		o.mu.RLock()
		snap.Indices = append(snap.Indices, o.snap.Indices...)
		o.mu.RUnlock()
	}
	return snap, len(snap.Stocks)+len(snap.Indices) > 0
}

// adopt swaps the whole snapshot in one step.
func (o *Orchestrator) adopt(snap quote.Snapshot) {
	o.mu.Lock()
	o.snap = snap
	o.loading = false
	o.mu.Unlock()
}

// Snapshot returns a copy of the current snapshot.
func (o *Orchestrator) Snapshot() quote.Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()

	snap := o.snap
	snap.Stocks = append([]quote.Quote(nil), o.snap.Stocks...)
	snap.Indices = append([]quote.Index(nil), o.snap.Indices...)
	return snap
}

// Loading reports whether a cycle is in flight with no adopted snapshot yet.
func (o *Orchestrator) Loading() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.loading
}

// History serves daily bars for one symbol through its own two-tier
// cascade, independent of the quote refresh cycle. The returned string
// names the source that answered.
func (o *Orchestrator) History(ctx context.Context, symbol string, days int) ([]quote.Bar, string) {
	if days <= 0 || days > o.cfg.HistoryDays {
		days = o.cfg.HistoryDays
	}
	for _, src := range o.history {
		if bars := src.History(ctx, symbol, days); len(bars) > 0 {
			observ.IncCounter("history_requests_total", map[string]string{"source": src.Name()})
			return bars, src.Name()
		}
	}
	observ.IncCounter("history_requests_total", map[string]string{"source": "sim"})
	return o.sim.History(symbol, days), "simulated"
}
