package quote

import (
	"fmt"
	"strings"
	"time"
)

// Quote represents the latest known price state of one tradable instrument.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	PrevClose     float64 `json:"prev_close"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Volume        int64   `json:"volume"`
	MarketCap     string  `json:"market_cap,omitempty"`
	Sector        string  `json:"sector,omitempty"`
	LastUpdated   string  `json:"last_updated"`
}

// Index is a market-level composite: same price state as a Quote minus the
// per-instrument fields (volume, OHLC, sector, market cap).
type Index struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	PrevClose     float64 `json:"prev_close"`
	LastUpdated   string  `json:"last_updated"`
}

// Bar is one day of OHLCV history.
type Bar struct {
	Date   string  `json:"date"` // YYYY-MM-DD
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// Snapshot is the full set of quotes and indices adopted in one refresh
// cycle. It is replaced wholesale on every successful cycle; data from two
// sources is never mixed within one snapshot.
type Snapshot struct {
	Stocks      []Quote   `json:"stocks"`
	Indices     []Index   `json:"indices"`
	DataSource  string    `json:"data_source"`
	Simulated   bool      `json:"simulated"`
	Warning     string    `json:"warning,omitempty"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// Validate performs fail-closed quote validation. A quote that fails here
// is dropped from its provider's result set, never adopted.
func Validate(q *Quote) error {
	if q == nil {
		return fmt.Errorf("quote is nil")
	}

	q.Symbol = strings.ToUpper(strings.TrimSpace(q.Symbol))
	if q.Symbol == "" {
		return fmt.Errorf("empty symbol")
	}

	// Non-positive prices mean the provider resolved nothing useful.
	if q.Price <= 0 {
		return fmt.Errorf("non-positive price: %.4f", q.Price)
	}

	if q.Volume < 0 {
		return fmt.Errorf("negative volume: %d", q.Volume)
	}

	if q.High != 0 && q.Low != 0 && q.High < q.Low {
		return fmt.Errorf("invalid range: high(%.4f) < low(%.4f)", q.High, q.Low)
	}

	return nil
}

// ValidateIndex applies the same fail-closed rules to an index entry.
func ValidateIndex(ix *Index) error {
	if ix == nil {
		return fmt.Errorf("index is nil")
	}
	ix.Symbol = strings.ToUpper(strings.TrimSpace(ix.Symbol))
	if ix.Symbol == "" {
		return fmt.Errorf("empty symbol")
	}
	if ix.Price <= 0 {
		return fmt.Errorf("non-positive price: %.4f", ix.Price)
	}
	return nil
}
