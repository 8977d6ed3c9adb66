package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/claradash/marketfeed/internal/catalog"
	"github.com/claradash/marketfeed/internal/config"
	"github.com/claradash/marketfeed/internal/feed"
	"github.com/claradash/marketfeed/internal/observ"
	"github.com/claradash/marketfeed/internal/providers"
	"github.com/claradash/marketfeed/internal/ratelimit"
	"github.com/claradash/marketfeed/internal/search"
	"github.com/claradash/marketfeed/internal/transport"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to YAML config (defaults apply when empty)")
	flag.Parse()

	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			observ.Log("config_load_failed", map[string]any{"path": configPath, "error": err.Error()})
			os.Exit(1)
		}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.StatePath), 0o755); err != nil {
		observ.Log("state_dir_failed", map[string]any{"path": cfg.StatePath, "error": err.Error()})
		os.Exit(1)
	}
	db, err := bolt.Open(cfg.StatePath, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		observ.Log("state_open_failed", map[string]any{"path": cfg.StatePath, "error": err.Error()})
		os.Exit(1)
	}
	defer db.Close()

	store, err := ratelimit.NewBoltStore(db)
	if err != nil {
		observ.Log("state_open_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	tracker := ratelimit.New(store, cfg.AlphaVantage.DailyCap)

	// Waterfall order is fixed; unconfigured keyed sources never enter it.
	var provs []providers.Provider
	var history []feed.HistorySource

	yahoo := providers.NewYahoo(providers.YahooConfig{
		BaseURL:        cfg.Yahoo.BaseURL,
		TimeoutSeconds: cfg.Yahoo.TimeoutSeconds,
		MinResults:     cfg.Yahoo.MinResults,
	})
	provs = append(provs, yahoo)
	history = append(history, yahoo)

	alphaConfigured := cfg.AlphaVantage.Configured()
	if alphaConfigured {
		av, err := providers.NewAlphaVantage(providers.AlphaVantageConfig{
			APIKey:         cfg.AlphaVantage.Key(),
			BaseURL:        cfg.AlphaVantage.BaseURL,
			TimeoutSeconds: cfg.AlphaVantage.TimeoutSeconds,
			MinResults:     cfg.AlphaVantage.MinResults,
			PaceMs:         cfg.AlphaVantage.PaceMs,
		}, tracker)
		if err != nil {
			observ.Log("provider_init_failed", map[string]any{"provider": "alphavantage", "error": err.Error()})
			os.Exit(1)
		}
		provs = append(provs, av)
		history = append(history, av)
	}

	provs = append(provs, providers.NewFMP(providers.FMPConfig{
		APIKey:         cfg.FMP.Key(),
		BaseURL:        cfg.FMP.BaseURL,
		TimeoutSeconds: cfg.FMP.TimeoutSeconds,
		MinResults:     cfg.FMP.MinResults,
	}))

	finnhubConfigured := cfg.Finnhub.Configured()
	if finnhubConfigured {
		fh, err := providers.NewFinnhub(providers.FinnhubConfig{
			APIKey:         cfg.Finnhub.Key(),
			BaseURL:        cfg.Finnhub.BaseURL,
			TimeoutSeconds: cfg.Finnhub.TimeoutSeconds,
			MaxSymbols:     cfg.Finnhub.MaxSymbols,
			MinResults:     cfg.Finnhub.MinResults,
		})
		if err != nil {
			observ.Log("provider_init_failed", map[string]any{"provider": "finnhub", "error": err.Error()})
			os.Exit(1)
		}
		provs = append(provs, fh)
	}

	sim := providers.NewSim(cfg.SimSeed)

	orch := feed.New(feed.Config{
		RefreshInterval: time.Duration(cfg.RefreshIntervalSeconds) * time.Second,
		HistoryDays:     cfg.HistoryDays,
		StockSymbols:    catalog.StockSymbols(),
		IndexSymbols:    catalog.IndexSymbols(),
	}, provs, sim, history)

	engine, err := search.NewEngine()
	if err != nil {
		observ.Log("search_init_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer engine.Close()

	sources := func() []transport.SourceStatus {
		active := orch.Snapshot().DataSource
		out := []transport.SourceStatus{
			{Name: "yahoo", Configured: true, Active: active == yahoo.Label()},
		}
		av := transport.SourceStatus{Name: "alpha_vantage", Configured: alphaConfigured}
		if alphaConfigured {
			if st, err := tracker.Status(); err == nil {
				av.RequestsToday = st.RequestsToday
				av.DailyLimit = st.DailyLimit
				av.WithinLimit = st.WithinLimit
			}
		}
		av.Active = alphaConfigured && strings.HasPrefix(active, "Alpha Vantage")
		out = append(out, av)
		out = append(out,
			transport.SourceStatus{Name: "fmp", Configured: true, Active: active == "Financial Modeling Prep (Live)"},
			transport.SourceStatus{Name: "finnhub", Configured: finnhubConfigured, Active: active == "Finnhub (Partial)"},
			transport.SourceStatus{Name: "simulated", Configured: true, Active: active == sim.Label()},
		)
		return out
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go orch.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           transport.NewServer(orch, engine, sources).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		observ.Log("server_listening", map[string]any{"addr": cfg.ListenAddr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			observ.Log("server_failed", map[string]any{"error": err.Error()})
			stop()
		}
	}()

	<-ctx.Done()
	observ.Log("server_shutting_down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		observ.Log("server_shutdown_failed", map[string]any{"error": err.Error()})
	}
}
