package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/claradash/marketfeed/internal/catalog"
	"github.com/claradash/marketfeed/internal/observ"
	"github.com/claradash/marketfeed/internal/quote"
)

// Finnhub is the parallel low-quota provider. Its free tier tolerates only
// a handful of calls per cycle, so the symbol list is capped and every
// capped symbol is fetched concurrently with its own timeout. Individual
// failures drop that symbol, never the batch.
type Finnhub struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	maxSymbols int
	minResults int
}

type FinnhubConfig struct {
	APIKey         string
	BaseURL        string
	TimeoutSeconds int
	MaxSymbols     int
	MinResults     int
}

func NewFinnhub(cfg FinnhubConfig) (*Finnhub, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Finnhub API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://finnhub.io/api/v1"
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 5
	}
	if cfg.MaxSymbols <= 0 {
		cfg.MaxSymbols = 5
	}
	if cfg.MinResults <= 0 {
		cfg.MinResults = 2
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	return &Finnhub{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
		maxSymbols: cfg.MaxSymbols,
		minResults: cfg.MinResults,
	}, nil
}

func (f *Finnhub) Name() string    { return "finnhub" }
func (f *Finnhub) Label() string   { return "Finnhub (Partial)" }
func (f *Finnhub) MinResults() int { return f.minResults }

// Fetch issues one request per symbol concurrently and joins best-effort:
// whichever symbols resolve before their own deadlines make the result.
func (f *Finnhub) Fetch(ctx context.Context, symbols, _ []string) Result {
	res := newResult()
	if len(symbols) == 0 {
		return res
	}
	if len(symbols) > f.maxSymbols {
		symbols = symbols[:f.maxSymbols]
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, sym := range symbols {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, f.timeout)
			defer cancel()

			q, err := f.fetchQuote(callCtx, sym)
			if err != nil {
				observ.Log("finnhub_quote_failed", map[string]any{"symbol": sym, "error": err.Error()})
				observ.IncCounter("provider_errors_total", map[string]string{"provider": f.Name()})
				return nil // best-effort: a failed symbol never fails the batch
			}
			mu.Lock()
			res.Quotes[q.Symbol] = *q
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return res
}

func (f *Finnhub) fetchQuote(ctx context.Context, symbol string) (*quote.Quote, error) {
	params := url.Values{
		"symbol": {symbol},
		"token":  {f.apiKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/quote?"+params.Encode(), nil)
	if err != nil {
		return nil, networkErr(f.Name(), "failed to create request", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, networkErr(f.Name(), "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, rateLimitErr(f.Name(), "API rate limit exceeded")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, payloadErr(f.Name(), fmt.Sprintf("HTTP %d", resp.StatusCode), nil)
	}

	var body struct {
		Current       float64 `json:"c"`
		Change        float64 `json:"d"`
		ChangePercent float64 `json:"dp"`
		High          float64 `json:"h"`
		Low           float64 `json:"l"`
		Open          float64 `json:"o"`
		PrevClose     float64 `json:"pc"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, payloadErr(f.Name(), "failed to parse response", err)
	}

	meta := catalog.LookupOrDefault(symbol)
	q := &quote.Quote{
		Symbol:        symbol,
		Name:          meta.Name,
		Price:         body.Current,
		Change:        body.Change,
		ChangePercent: body.ChangePercent,
		PrevClose:     body.PrevClose,
		Open:          body.Open,
		High:          body.High,
		Low:           body.Low,
		Sector:        meta.Sector,
		LastUpdated:   time.Now().UTC().Format(time.RFC3339),
	}
	if err := quote.Validate(q); err != nil {
		return nil, payloadErr(f.Name(), "invalid quote", err)
	}
	return q, nil
}
