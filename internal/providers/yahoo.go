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

// Yahoo is the primary aggregator: one batched request resolves the whole
// stock and index universe without an API key.
type Yahoo struct {
	baseURL    string
	httpClient *http.Client
	minResults int
}

type YahooConfig struct {
	BaseURL        string
	TimeoutSeconds int
	MinResults     int
}

func NewYahoo(cfg YahooConfig) *Yahoo {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://query1.finance.yahoo.com"
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 10
	}
	if cfg.MinResults <= 0 {
		cfg.MinResults = 5
	}
	return &Yahoo{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		minResults: cfg.MinResults,
	}
}

func (y *Yahoo) Name() string    { return "yahoo" }
func (y *Yahoo) Label() string   { return "Yahoo Finance (Live)" }
func (y *Yahoo) MinResults() int { return y.minResults }

// Fetch issues a single batched quote request for stocks and indices
// combined and partitions the response by symbol class.
func (y *Yahoo) Fetch(ctx context.Context, symbols, indexSymbols []string) Result {
	all := make([]string, 0, len(symbols)+len(indexSymbols))
	all = append(all, symbols...)
	all = append(all, indexSymbols...)
	if len(all) == 0 {
		return newResult()
	}

	entries, err := y.fetchBatch(ctx, all)
	if err != nil {
		observ.Log("yahoo_fetch_failed", map[string]any{"error": err.Error()})
		observ.IncCounter("provider_errors_total", map[string]string{"provider": y.Name()})
		return newResult()
	}

	indexSet := make(map[string]bool, len(indexSymbols))
	for _, sym := range indexSymbols {
		indexSet[sym] = true
	}

	res := newResult()
	now := time.Now().UTC().Format(time.RFC3339)
	for _, e := range entries {
		if e.RegularMarketPrice <= 0 {
			continue
		}
		meta := catalog.LookupOrDefault(e.Symbol)
		name := e.ShortName
		if name == "" {
			name = meta.Name
		}
		if indexSet[e.Symbol] {
			ix := quote.Index{
				Symbol:        e.Symbol,
				Name:          name,
				Price:         e.RegularMarketPrice,
				Change:        e.RegularMarketChange,
				ChangePercent: e.RegularMarketChangePercent,
				PrevClose:     e.RegularMarketPreviousClose,
				LastUpdated:   now,
			}
			if err := quote.ValidateIndex(&ix); err == nil {
				res.Indices[ix.Symbol] = ix
			}
			continue
		}
		q := quote.Quote{
			Symbol:        e.Symbol,
			Name:          name,
			Price:         e.RegularMarketPrice,
			Change:        e.RegularMarketChange,
			ChangePercent: e.RegularMarketChangePercent,
			PrevClose:     e.RegularMarketPreviousClose,
			Open:          e.RegularMarketOpen,
			High:          e.RegularMarketDayHigh,
			Low:           e.RegularMarketDayLow,
			Volume:        e.RegularMarketVolume,
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

type yahooQuoteEntry struct {
	Symbol                     string  `json:"symbol"`
	ShortName                  string  `json:"shortName"`
	RegularMarketPrice         float64 `json:"regularMarketPrice"`
	RegularMarketChange        float64 `json:"regularMarketChange"`
	RegularMarketChangePercent float64 `json:"regularMarketChangePercent"`
	RegularMarketPreviousClose float64 `json:"regularMarketPreviousClose"`
	RegularMarketOpen          float64 `json:"regularMarketOpen"`
	RegularMarketDayHigh       float64 `json:"regularMarketDayHigh"`
	RegularMarketDayLow        float64 `json:"regularMarketDayLow"`
	RegularMarketVolume        int64   `json:"regularMarketVolume"`
	MarketCap                  int64   `json:"marketCap"`
}

func (y *Yahoo) fetchBatch(ctx context.Context, symbols []string) ([]yahooQuoteEntry, error) {
	params := url.Values{"symbols": {strings.Join(symbols, ",")}}
	requestURL := y.baseURL + "/v7/finance/quote?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, networkErr(y.Name(), "failed to create request", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return nil, networkErr(y.Name(), "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, rateLimitErr(y.Name(), "throttled")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, payloadErr(y.Name(), fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)), nil)
	}

	var response struct {
		QuoteResponse struct {
			Result []yahooQuoteEntry `json:"result"`
			Error  any               `json:"error"`
		} `json:"quoteResponse"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, payloadErr(y.Name(), "failed to parse response", err)
	}
	if response.QuoteResponse.Error != nil {
		return nil, payloadErr(y.Name(), fmt.Sprintf("provider error: %v", response.QuoteResponse.Error), nil)
	}
	return response.QuoteResponse.Result, nil
}

// History fetches daily bars from the chart endpoint.
func (y *Yahoo) History(ctx context.Context, symbol string, days int) []quote.Bar {
	if days <= 0 {
		days = 90
	}
	params := url.Values{
		"interval": {"1d"},
		"range":    {fmt.Sprintf("%dd", days)},
	}
	requestURL := y.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol) + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		observ.Log("yahoo_history_failed", map[string]any{"symbol": symbol, "error": err.Error()})
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var response struct {
		Chart struct {
			Result []struct {
				Timestamp  []int64 `json:"timestamp"`
				Indicators struct {
					Quote []struct {
						Open   []float64 `json:"open"`
						High   []float64 `json:"high"`
						Low    []float64 `json:"low"`
						Close  []float64 `json:"close"`
						Volume []int64   `json:"volume"`
					} `json:"quote"`
				} `json:"indicators"`
			} `json:"result"`
			Error any `json:"error"`
		} `json:"chart"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil
	}
	if len(response.Chart.Result) == 0 || len(response.Chart.Result[0].Indicators.Quote) == 0 {
		return nil
	}

	result := response.Chart.Result[0]
	ohlcv := result.Indicators.Quote[0]
	bars := make([]quote.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(ohlcv.Close) || ohlcv.Close[i] <= 0 {
			continue
		}
		bar := quote.Bar{
			Date:  time.Unix(ts, 0).UTC().Format("2006-01-02"),
			Close: ohlcv.Close[i],
		}
		if i < len(ohlcv.Open) {
			bar.Open = ohlcv.Open[i]
		}
		if i < len(ohlcv.High) {
			bar.High = ohlcv.High[i]
		}
		if i < len(ohlcv.Low) {
			bar.Low = ohlcv.Low[i]
		}
		if i < len(ohlcv.Volume) {
			bar.Volume = ohlcv.Volume[i]
		}
		bars = append(bars, bar)
	}
	return bars
}

// formatMarketCap renders a raw market cap as the short display string the
// dashboard shows ("2.95T", "410.1B").
func formatMarketCap(v int64) string {
	switch {
	case v >= 1_000_000_000_000:
		return fmt.Sprintf("%.2fT", float64(v)/1e12)
	case v >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(v)/1e9)
	case v >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(v)/1e6)
	case v > 0:
		return fmt.Sprintf("%d", v)
	default:
		return ""
	}
}
