package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/claradash/marketfeed/internal/catalog"
	"github.com/claradash/marketfeed/internal/observ"
	"github.com/claradash/marketfeed/internal/quote"
	"github.com/claradash/marketfeed/internal/ratelimit"
)

// AlphaVantage is the quota-limited provider: 25 requests/day on the free
// tier, one GLOBAL_QUOTE call per symbol, no batching. The persisted
// tracker is consulted before any network call and incremented after every
// call regardless of that call's outcome.
type AlphaVantage struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	pacer      *rate.Limiter
	tracker    *ratelimit.Tracker
	minResults int
}

type AlphaVantageConfig struct {
	APIKey         string
	BaseURL        string
	TimeoutSeconds int
	MinResults     int
	PaceMs         int
}

func NewAlphaVantage(cfg AlphaVantageConfig, tracker *ratelimit.Tracker) (*AlphaVantage, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Alpha Vantage API key is required")
	}
	if tracker == nil {
		return nil, fmt.Errorf("Alpha Vantage rate tracker is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.alphavantage.co/query"
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 12
	}
	if cfg.MinResults <= 0 {
		cfg.MinResults = 3
	}
	if cfg.PaceMs <= 0 {
		cfg.PaceMs = 250 // free tier allows 5 req/min
	}
	return &AlphaVantage{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		pacer:      rate.NewLimiter(rate.Every(time.Duration(cfg.PaceMs)*time.Millisecond), 1),
		tracker:    tracker,
		minResults: cfg.MinResults,
	}, nil
}

func (av *AlphaVantage) Name() string    { return "alphavantage" }
func (av *AlphaVantage) MinResults() int { return av.minResults }

// Label annotates the data source with today's quota usage.
func (av *AlphaVantage) Label() string {
	st, err := av.tracker.Status()
	if err != nil {
		return "Alpha Vantage (Live)"
	}
	return fmt.Sprintf("Alpha Vantage (%d/%d today)", st.RequestsToday, st.DailyLimit)
}

// Fetch resolves equities one request at a time, stopping at the remaining
// daily quota. Index symbols are ignored; this source serves none.
func (av *AlphaVantage) Fetch(ctx context.Context, symbols, _ []string) Result {
	res := newResult()

	st, err := av.tracker.Status()
	if err != nil {
		observ.Log("alphavantage_rate_state_error", map[string]any{"error": err.Error()})
		return res
	}
	if !st.WithinLimit {
		observ.Log("alphavantage_quota_exhausted", map[string]any{
			"requests_today": st.RequestsToday,
			"daily_limit":    st.DailyLimit,
		})
		return res
	}

	remaining := st.DailyLimit - st.RequestsToday
	if len(symbols) > remaining {
		symbols = symbols[:remaining]
	}

	for _, sym := range symbols {
		if err := av.pacer.Wait(ctx); err != nil {
			break
		}
		q, err := av.fetchQuote(ctx, sym)
		// Every attempt counts against the daily budget, success or not.
		if ierr := av.tracker.Increment(); ierr != nil {
			observ.Log("alphavantage_rate_state_error", map[string]any{"error": ierr.Error()})
		}
		if err != nil {
			observ.Log("alphavantage_quote_failed", map[string]any{"symbol": sym, "error": err.Error()})
			observ.IncCounter("provider_errors_total", map[string]string{"provider": av.Name()})
			continue
		}
		res.Quotes[q.Symbol] = *q
	}
	return res
}

func (av *AlphaVantage) fetchQuote(ctx context.Context, symbol string) (*quote.Quote, error) {
	params := url.Values{
		"function": {"GLOBAL_QUOTE"},
		"symbol":   {symbol},
		"apikey":   {av.apiKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, av.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, networkErr(av.Name(), "failed to create request", err)
	}

	resp, err := av.httpClient.Do(req)
	if err != nil {
		return nil, networkErr(av.Name(), "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, rateLimitErr(av.Name(), "API rate limit exceeded")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, payloadErr(av.Name(), fmt.Sprintf("HTTP %d", resp.StatusCode), nil)
	}

	var response struct {
		GlobalQuote  map[string]string `json:"Global Quote"`
		Note         string            `json:"Note"`
		Information  string            `json:"Information"`
		ErrorMessage string            `json:"Error Message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, payloadErr(av.Name(), "failed to parse response", err)
	}

	// Quota and throttle messages arrive embedded in 200 responses.
	if response.Note != "" {
		return nil, rateLimitErr(av.Name(), response.Note)
	}
	if response.Information != "" {
		return nil, rateLimitErr(av.Name(), response.Information)
	}
	if response.ErrorMessage != "" {
		return nil, payloadErr(av.Name(), response.ErrorMessage, nil)
	}

	g := response.GlobalQuote
	if len(g) == 0 || g["05. price"] == "" {
		return nil, payloadErr(av.Name(), "no quote data returned", nil)
	}

	price, err := strconv.ParseFloat(g["05. price"], 64)
	if err != nil {
		return nil, payloadErr(av.Name(), "bad price field", err)
	}
	open, _ := strconv.ParseFloat(g["02. open"], 64)
	high, _ := strconv.ParseFloat(g["03. high"], 64)
	low, _ := strconv.ParseFloat(g["04. low"], 64)
	prevClose, _ := strconv.ParseFloat(g["08. previous close"], 64)
	change, _ := strconv.ParseFloat(g["09. change"], 64)
	changePct, _ := strconv.ParseFloat(strings.TrimSuffix(g["10. change percent"], "%"), 64)
	volume, _ := strconv.ParseInt(g["06. volume"], 10, 64)

	meta := catalog.LookupOrDefault(symbol)
	q := &quote.Quote{
		Symbol:        symbol,
		Name:          meta.Name,
		Price:         price,
		Change:        change,
		ChangePercent: changePct,
		PrevClose:     prevClose,
		Open:          open,
		High:          high,
		Low:           low,
		Volume:        volume,
		Sector:        meta.Sector,
		LastUpdated:   g["07. latest trading day"],
	}
	if err := quote.Validate(q); err != nil {
		return nil, payloadErr(av.Name(), "invalid quote", err)
	}
	return q, nil
}

// History fetches TIME_SERIES_DAILY bars, quota-gated like quote fetches.
// Returns at most the last 90 bars, oldest first.
func (av *AlphaVantage) History(ctx context.Context, symbol string, days int) []quote.Bar {
	st, err := av.tracker.Status()
	if err != nil || !st.WithinLimit {
		return nil
	}

	params := url.Values{
		"function":   {"TIME_SERIES_DAILY"},
		"symbol":     {symbol},
		"outputsize": {"compact"},
		"apikey":     {av.apiKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, av.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil
	}
	resp, err := av.httpClient.Do(req)
	if ierr := av.tracker.Increment(); ierr != nil {
		observ.Log("alphavantage_rate_state_error", map[string]any{"error": ierr.Error()})
	}
	if err != nil {
		observ.Log("alphavantage_history_failed", map[string]any{"symbol": symbol, "error": err.Error()})
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var response struct {
		Series      map[string]map[string]string `json:"Time Series (Daily)"`
		Note        string                       `json:"Note"`
		Information string                       `json:"Information"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil
	}
	if response.Note != "" || response.Information != "" || len(response.Series) == 0 {
		return nil
	}

	bars := make([]quote.Bar, 0, len(response.Series))
	for date, fields := range response.Series {
		closePx, err := strconv.ParseFloat(fields["4. close"], 64)
		if err != nil || closePx <= 0 {
			continue
		}
		open, _ := strconv.ParseFloat(fields["1. open"], 64)
		high, _ := strconv.ParseFloat(fields["2. high"], 64)
		low, _ := strconv.ParseFloat(fields["3. low"], 64)
		volume, _ := strconv.ParseInt(fields["5. volume"], 10, 64)
		bars = append(bars, quote.Bar{
			Date:   date,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePx,
			Volume: volume,
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date < bars[j].Date })
	if days <= 0 || days > 90 {
		days = 90
	}
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars
}
