package providers

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/claradash/marketfeed/internal/catalog"
	"github.com/claradash/marketfeed/internal/quote"
)

// Sim generates plausible synthetic quotes by perturbing the catalog's base
// prices with a small random walk. It performs no I/O and always succeeds;
// the orchestrator uses it as the terminal fallback so the feed never goes
// empty.
type Sim struct {
	mu   sync.Mutex
	rng  *rand.Rand
	last map[string]float64
}

// NewSim seeds the generator. Tests pass a fixed seed for reproducibility.
func NewSim(seed int64) *Sim {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Sim{
		rng:  rand.New(rand.NewSource(seed)),
		last: make(map[string]float64),
	}
}

// Label matches the other providers' data-source tags.
func (s *Sim) Label() string { return "Simulated Data" }

// Snapshot produces quotes for every requested symbol and index. All
// prices are strictly positive.
func (s *Sim) Snapshot(symbols, indexSymbols []string) (map[string]quote.Quote, map[string]quote.Index) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	quotes := make(map[string]quote.Quote, len(symbols))
	for _, sym := range symbols {
		meta := catalog.LookupOrDefault(sym)
		price := s.walk(sym, meta)
		changePct := s.rng.NormFloat64() * 1.2
		change := round2(price * changePct / 100)
		prev := round2(price - change)

		quotes[sym] = quote.Quote{
			Symbol:        sym,
			Name:          meta.Name,
			Price:         price,
			Change:        change,
			ChangePercent: round2(changePct),
			PrevClose:     prev,
			Open:          round2(prev * (1 + s.rng.NormFloat64()*0.003)),
			High:          round2(price * (1 + math.Abs(s.rng.NormFloat64())*0.008)),
			Low:           round2(price * (1 - math.Abs(s.rng.NormFloat64())*0.008)),
			Volume:        5_000_000 + s.rng.Int63n(75_000_000),
			Sector:        meta.Sector,
			LastUpdated:   now,
		}
	}

	indices := make(map[string]quote.Index, len(indexSymbols))
	for _, sym := range indexSymbols {
		meta := catalog.LookupOrDefault(sym)
		price := s.walk(sym, meta)
		changePct := s.rng.NormFloat64() * 0.8
		if sym == catalog.VIXSymbol {
			// Vol indexes spike up more often than they drift down.
			changePct = math.Abs(s.rng.NormFloat64())*4 - 1
		}
		change := round2(price * changePct / 100)
		indices[sym] = quote.Index{
			Symbol:        sym,
			Name:          meta.Name,
			Price:         price,
			Change:        change,
			ChangePercent: round2(changePct),
			PrevClose:     round2(price - change),
			LastUpdated:   now,
		}
	}
	return quotes, indices
}

// History produces a daily random-walk series ending today, oldest first.
func (s *Sim) History(symbol string, days int) []quote.Bar {
	s.mu.Lock()
	defer s.mu.Unlock()

	if days <= 0 {
		days = 90
	}
	meta := catalog.LookupOrDefault(symbol)
	beta := meta.Beta
	if beta <= 0 {
		beta = 1.0
	}
	price := meta.BasePrice
	bars := make([]quote.Bar, 0, days)
	for i := days; i > 0; i-- {
		date := time.Now().UTC().AddDate(0, 0, -i).Format("2006-01-02")
		drift := s.rng.NormFloat64()*0.012*beta + 0.0005
		price = math.Max(1.0, price*(1+drift))
		bars = append(bars, quote.Bar{
			Date:   date,
			Open:   round2(price * (1 + s.rng.NormFloat64()*0.003)),
			High:   round2(price * (1 + math.Abs(s.rng.NormFloat64())*0.008)),
			Low:    round2(price * (1 - math.Abs(s.rng.NormFloat64())*0.008)),
			Close:  round2(price),
			Volume: 5_000_000 + s.rng.Int63n(75_000_000),
		})
	}
	return bars
}

// walk nudges the remembered price for a symbol, seeding it from the base
// price on first use. Callers hold mu.
func (s *Sim) walk(symbol string, meta catalog.Company) float64 {
	px, ok := s.last[symbol]
	if !ok {
		px = meta.BasePrice * (1 + s.rng.NormFloat64()*0.02)
	}
	beta := meta.Beta
	if beta <= 0 {
		beta = 1.0
	}
	px *= 1 + s.rng.NormFloat64()*0.004*beta
	if px < 0.01 {
		px = 0.01
	}
	s.last[symbol] = px
	return round2(px)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
