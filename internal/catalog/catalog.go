// Package catalog holds the fixed symbol universe the feed tracks, with the
// per-company metadata used for quote enrichment, synthetic pricing, and
// offline symbol search.
package catalog

// Company is the static metadata for one tracked instrument. BasePrice and
// Beta anchor the synthetic generator; Name and Sector enrich provider
// results that carry only price fields.
type Company struct {
	Symbol    string
	Name      string
	Sector    string
	BasePrice float64
	Beta      float64
}

var companies = []Company{
	{"NVDA", "NVIDIA Corporation", "Technology", 875, 1.72},
	{"AAPL", "Apple Inc.", "Technology", 189, 1.21},
	{"MSFT", "Microsoft Corporation", "Technology", 415, 0.90},
	{"GOOGL", "Alphabet Inc.", "Technology", 175, 1.05},
	{"AMZN", "Amazon.com Inc.", "Consumer", 195, 1.15},
	{"META", "Meta Platforms Inc.", "Technology", 510, 1.28},
	{"TSLA", "Tesla Inc.", "Consumer", 245, 2.01},
	{"JPM", "JPMorgan Chase & Co.", "Financials", 197, 1.10},
	{"XOM", "Exxon Mobil Corporation", "Energy", 112, 0.85},
	{"TSM", "Taiwan Semiconductor", "Technology", 155, 1.35},
	{"AVGO", "Broadcom Inc.", "Technology", 145, 1.30},
	{"LLY", "Eli Lilly and Company", "Healthcare", 780, 0.42},
	{"V", "Visa Inc.", "Financials", 278, 0.95},
	{"COST", "Costco Wholesale Corp.", "Consumer", 895, 0.78},
	{"WMT", "Walmart Inc.", "Consumer", 88, 0.52},
	{"JNJ", "Johnson & Johnson", "Healthcare", 152, 0.55},
	{"BAC", "Bank of America Corp.", "Financials", 39, 1.35},
	{"MA", "Mastercard Inc.", "Financials", 465, 0.98},
	{"UNH", "UnitedHealth Group", "Healthcare", 520, 0.62},
	{"HD", "Home Depot Inc.", "Consumer", 348, 1.05},
}

// VIXSymbol is the volatility index; its synthetic perturbation is larger
// and positively skewed.
const VIXSymbol = "^VIX"

var indices = []Company{
	{"^GSPC", "S&P 500", "Index", 5100, 1.00},
	{"^DJI", "Dow Jones Industrial Average", "Index", 39500, 0.95},
	{"^IXIC", "Nasdaq Composite", "Index", 16300, 1.12},
	{VIXSymbol, "CBOE Volatility Index", "Index", 15, 0},
}

var bySymbol = func() map[string]Company {
	m := make(map[string]Company, len(companies)+len(indices))
	for _, c := range companies {
		m[c.Symbol] = c
	}
	for _, ix := range indices {
		m[ix.Symbol] = ix
	}
	return m
}()

// Companies returns the equity universe in display order.
func Companies() []Company {
	out := make([]Company, len(companies))
	copy(out, companies)
	return out
}

// Indices returns the index universe in display order.
func Indices() []Company {
	out := make([]Company, len(indices))
	copy(out, indices)
	return out
}

// StockSymbols returns the equity universe symbols in display order.
func StockSymbols() []string {
	out := make([]string, len(companies))
	for i, c := range companies {
		out[i] = c.Symbol
	}
	return out
}

// IndexSymbols returns the index universe symbols in display order.
func IndexSymbols() []string {
	out := make([]string, len(indices))
	for i, ix := range indices {
		out[i] = ix.Symbol
	}
	return out
}

// Lookup returns metadata for a symbol, equity or index.
func Lookup(symbol string) (Company, bool) {
	c, ok := bySymbol[symbol]
	return c, ok
}

// LookupOrDefault falls back to neutral metadata for untracked symbols.
func LookupOrDefault(symbol string) Company {
	if c, ok := bySymbol[symbol]; ok {
		return c
	}
	return Company{Symbol: symbol, Name: symbol, Sector: "Unknown", BasePrice: 100, Beta: 1.0}
}
