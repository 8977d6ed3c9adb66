package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claradash/marketfeed/internal/catalog"
	"github.com/claradash/marketfeed/internal/observ"
	"github.com/claradash/marketfeed/internal/quote"
)

// FMP is the secondary batched provider (Financial Modeling Prep). It
// accepts the public "demo" key and resolves the whole equity list in one
// comma-joined request.
type FMP struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	minResults int
}

type FMPConfig struct {
	APIKey         string
	BaseURL        string
	TimeoutSeconds int
	MinResults     int
}

func NewFMP(cfg FMPConfig) *FMP {
	if cfg.APIKey == "" {
		cfg.APIKey = "demo"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://financialmodelingprep.com"
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 8
	}
	if cfg.MinResults <= 0 {
		cfg.MinResults = 3
	}
	return &FMP{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		minResults: cfg.MinResults,
	}
}

func (f *FMP) Name() string    { return "fmp" }
func (f *FMP) Label() string   { return "Financial Modeling Prep (Live)" }
func (f *FMP) MinResults() int { return f.minResults }

// Fetch resolves equities only; FMP serves no index universe here.
func (f *FMP) Fetch(ctx context.Context, symbols, _ []string) Result {
	res := newResult()
	if len(symbols) == 0 {
		return res
	}

	params := url.Values{"apikey": {f.apiKey}}
	requestURL := f.baseURL + "/api/v3/quote/" + url.PathEscape(strings.Join(symbols, ",")) + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return res
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		observ.Log("fmp_fetch_failed", map[string]any{"error": err.Error()})
		observ.IncCounter("provider_errors_total", map[string]string{"provider": f.Name()})
		return res
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		observ.Log("fmp_fetch_failed", map[string]any{
			"error": fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)),
		})
		observ.IncCounter("provider_errors_total", map[string]string{"provider": f.Name()})
		return res
	}

	var entries []struct {
		Symbol            string  `json:"symbol"`
		Name              string  `json:"name"`
		Price             float64 `json:"price"`
		Change            float64 `json:"change"`
		ChangesPercentage float64 `json:"changesPercentage"`
		DayLow            float64 `json:"dayLow"`
		DayHigh           float64 `json:"dayHigh"`
		Open              float64 `json:"open"`
		PreviousClose     float64 `json:"previousClose"`
		Volume            int64   `json:"volume"`
		MarketCap         int64   `json:"marketCap"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		// An error payload here is an object, not an array; treat both the
		// same way.
		observ.Log("fmp_fetch_failed", map[string]any{"error": err.Error()})
		return res
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, e := range entries {
		meta := catalog.LookupOrDefault(e.Symbol)
		name := e.Name
		if name == "" {
			name = meta.Name
		}
		q := quote.Quote{
			Symbol:        e.Symbol,
			Name:          name,
			Price:         e.Price,
			Change:        e.Change,
			ChangePercent: e.ChangesPercentage,
			PrevClose:     e.PreviousClose,
			Open:          e.Open,
			High:          e.DayHigh,
			Low:           e.DayLow,
			Volume:        e.Volume,
			MarketCap:     formatMarketCap(e.MarketCap),
			Sector:        meta.Sector,
			LastUpdated:   now,
		}
		if err := quote.Validate(&q); err != nil {
			continue
		}
		res.Quotes[q.Symbol] = q
	}
	return res
}
