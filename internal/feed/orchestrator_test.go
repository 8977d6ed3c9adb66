package feed

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claradash/marketfeed/internal/providers"
	"github.com/claradash/marketfeed/internal/quote"
)

type fakeProvider struct {
	name  string
	min   int
	res   providers.Result
	calls int
}

func (f *fakeProvider) Name() string    { return f.name }
func (f *fakeProvider) Label() string   { return f.name + " (Test)" }
func (f *fakeProvider) MinResults() int { return f.min }

func (f *fakeProvider) Fetch(_ context.Context, _, _ []string) providers.Result {
	f.calls++
	return f.res
}

func resultWith(symbols []string, price float64) providers.Result {
	res := providers.Result{Quotes: map[string]quote.Quote{}, Indices: map[string]quote.Index{}}
	for _, sym := range symbols {
		res.Quotes[sym] = quote.Quote{Symbol: sym, Name: sym, Price: price}
	}
	return res
}

var (
	testStocks  = []string{"AAPL", "MSFT", "NVDA", "GOOGL", "AMZN", "META"}
	testIndices = []string{"^GSPC", "^DJI"}
)

func testConfig() Config {
	return Config{StockSymbols: testStocks, IndexSymbols: testIndices, HistoryDays: 90}
}

func TestRefreshAdoptsFirstSufficientProvider(t *testing.T) {
	first := &fakeProvider{name: "first", min: 5, res: resultWith(testStocks, 100)}
	second := &fakeProvider{name: "second", min: 3, res: resultWith(testStocks, 200)}

	o := New(testConfig(), []providers.Provider{first, second}, providers.NewSim(1), nil)
	snap := o.Refresh(context.Background())

	assert.Equal(t, "first (Test)", snap.DataSource)
	assert.False(t, snap.Simulated)
	assert.Len(t, snap.Stocks, 6)
	assert.Equal(t, 0, second.calls, "later providers are never consulted once one succeeds")
}

func TestRefreshFallsThroughBelowThreshold(t *testing.T) {
	first := &fakeProvider{name: "first", min: 5, res: resultWith(testStocks[:4], 100)}
	second := &fakeProvider{name: "second", min: 3, res: resultWith(testStocks[:3], 200)}

	o := New(testConfig(), []providers.Provider{first, second}, providers.NewSim(1), nil)
	snap := o.Refresh(context.Background())

	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Equal(t, "second (Test)", snap.DataSource)
	assert.Len(t, snap.Stocks, 3)
}

func TestRefreshCountsIndicesTowardThreshold(t *testing.T) {
	// 3 stocks + 2 indices = 5 combined entries, enough for a min of 5.
	res := resultWith(testStocks[:3], 100)
	res.Indices["^GSPC"] = quote.Index{Symbol: "^GSPC", Price: 5650}
	res.Indices["^DJI"] = quote.Index{Symbol: "^DJI", Price: 41000}
	p := &fakeProvider{name: "p", min: 5, res: res}

	o := New(testConfig(), []providers.Provider{p}, providers.NewSim(1), nil)
	snap := o.Refresh(context.Background())

	assert.Equal(t, "p (Test)", snap.DataSource)
	assert.False(t, snap.Simulated)
	assert.Len(t, snap.Stocks, 3)
	assert.Len(t, snap.Indices, 2)
}

func TestRefreshAllProvidersFailYieldsSimulated(t *testing.T) {
	empty := &fakeProvider{name: "dead", min: 5, res: providers.Result{
		Quotes:  map[string]quote.Quote{},
		Indices: map[string]quote.Index{},
	}}

	o := New(testConfig(), []providers.Provider{empty}, providers.NewSim(1), nil)
	snap := o.Refresh(context.Background())

	assert.True(t, snap.Simulated)
	assert.Equal(t, "Simulated Data", snap.DataSource)
	assert.Equal(t, WarningAllSourcesDown, snap.Warning)
	require.Len(t, snap.Stocks, len(testStocks))
	require.Len(t, snap.Indices, len(testIndices))
	for _, q := range snap.Stocks {
		assert.Greater(t, q.Price, 0.0)
	}
}

func TestRefreshFiltersNonPositivePrices(t *testing.T) {
	res := resultWith(testStocks, 100)
	res.Quotes["MSFT"] = quote.Quote{Symbol: "MSFT", Price: 0}
	p := &fakeProvider{name: "p", min: 5, res: res}

	o := New(testConfig(), []providers.Provider{p}, providers.NewSim(1), nil)
	snap := o.Refresh(context.Background())

	assert.Len(t, snap.Stocks, 5)
	for _, q := range snap.Stocks {
		assert.NotEqual(t, "MSFT", q.Symbol)
	}
}

func TestRefreshPreservesUniverseOrder(t *testing.T) {
	p := &fakeProvider{name: "p", min: 5, res: resultWith(testStocks, 100)}

	o := New(testConfig(), []providers.Provider{p}, providers.NewSim(1), nil)
	snap := o.Refresh(context.Background())

	got := make([]string, len(snap.Stocks))
	for i, q := range snap.Stocks {
		got[i] = q.Symbol
	}
	assert.Equal(t, testStocks, got)
}

func TestRefreshCarriesIndicesForward(t *testing.T) {
	full := resultWith(testStocks, 100)
	full.Indices["^GSPC"] = quote.Index{Symbol: "^GSPC", Price: 5650}
	full.Indices["^DJI"] = quote.Index{Symbol: "^DJI", Price: 41000}
	withIdx := &fakeProvider{name: "full", min: 5, res: full}

	o := New(testConfig(), []providers.Provider{withIdx}, providers.NewSim(1), nil)
	o.Refresh(context.Background())

	// Next cycle: an equities-only source wins; the index strip survives.
	equitiesOnly := &fakeProvider{name: "eq", min: 5, res: resultWith(testStocks, 200)}
	o.providers = []providers.Provider{equitiesOnly}
	snap := o.Refresh(context.Background())

	require.Len(t, snap.Indices, 2)
	assert.Equal(t, 5650.0, snap.Indices[0].Price)
	assert.Equal(t, 200.0, snap.Stocks[0].Price)
}

func TestSnapshotReturnsACopy(t *testing.T) {
	p := &fakeProvider{name: "p", min: 5, res: resultWith(testStocks, 100)}
	o := New(testConfig(), []providers.Provider{p}, providers.NewSim(1), nil)
	o.Refresh(context.Background())

	snap := o.Snapshot()
	snap.Stocks[0].Price = -1

	assert.Equal(t, 100.0, o.Snapshot().Stocks[0].Price)
}

type fakeHistory struct {
	name string
	bars []quote.Bar
}

func (f *fakeHistory) Name() string { return f.name }
func (f *fakeHistory) History(_ context.Context, _ string, days int) []quote.Bar {
	if len(f.bars) > days {
		return f.bars[:days]
	}
	return f.bars
}

func makeBars(n int) []quote.Bar {
	bars := make([]quote.Bar, n)
	for i := range bars {
		bars[i] = quote.Bar{Date: fmt.Sprintf("2026-07-%02d", i+1), Close: 100 + float64(i)}
	}
	return bars
}

func TestHistoryUsesFirstAnsweringSource(t *testing.T) {
	empty := &fakeHistory{name: "primary"}
	full := &fakeHistory{name: "secondary", bars: makeBars(30)}

	o := New(testConfig(), nil, providers.NewSim(1), []HistorySource{empty, full})
	bars, source := o.History(context.Background(), "AAPL", 30)

	assert.Equal(t, "secondary", source)
	assert.Len(t, bars, 30)
}

func TestHistoryFallsBackToSimulated(t *testing.T) {
	empty := &fakeHistory{name: "primary"}

	o := New(testConfig(), nil, providers.NewSim(1), []HistorySource{empty})
	bars, source := o.History(context.Background(), "AAPL", 30)

	assert.Equal(t, "simulated", source)
	require.Len(t, bars, 30)
	for _, b := range bars {
		assert.Greater(t, b.Close, 0.0)
	}
}

func TestHistoryClampsDaysToConfiguredMax(t *testing.T) {
	src := &fakeHistory{name: "primary", bars: makeBars(500)}

	o := New(testConfig(), nil, providers.NewSim(1), []HistorySource{src})
	bars, _ := o.History(context.Background(), "AAPL", 500)

	assert.Len(t, bars, 90)
}
