// Package providers contains one adapter per external market-data source.
// All adapters share a single contract: fetch what you can, drop what you
// can't, and never let a transport or parse failure escape the adapter
// boundary. "Provider failed" is always encoded as an empty result.
package providers

import (
	"context"
	"fmt"

	"github.com/claradash/marketfeed/internal/quote"
)

// Result is one provider's resolved entries. Partial results are valid and
// expected; missing symbols simply have no key.
type Result struct {
	Quotes  map[string]quote.Quote
	Indices map[string]quote.Index
}

func newResult() Result {
	return Result{
		Quotes:  map[string]quote.Quote{},
		Indices: map[string]quote.Index{},
	}
}

// Count returns the combined number of resolved entries.
func (r Result) Count() int {
	return len(r.Quotes) + len(r.Indices)
}

// Provider is one ranked source in the fallback waterfall.
type Provider interface {
	// Name is the short identifier used in logs and metrics.
	Name() string
	// Label is the human-readable data-source tag stamped on an adopted
	// snapshot.
	Label() string
	// MinResults is the smallest resolved-entry count the orchestrator may
	// adopt from this provider; anything less falls through to the next
	// source even when the call itself succeeded.
	MinResults() int
	// Fetch resolves quotes for symbols and, for sources that serve them,
	// indexSymbols. Failures yield an empty Result, never an error.
	Fetch(ctx context.Context, symbols, indexSymbols []string) Result
}

// ProviderError classifies an adapter-internal failure for logging.
type ProviderError struct {
	Provider string
	Kind     string // "network", "rate_limit", "provider_error", "bad_payload"
	Message  string
	Cause    error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %s (%v)", e.Provider, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s %s: %s", e.Provider, e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Cause }

func networkErr(provider, msg string, cause error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: "network", Message: msg, Cause: cause}
}

func rateLimitErr(provider, msg string) *ProviderError {
	return &ProviderError{Provider: provider, Kind: "rate_limit", Message: msg}
}

func payloadErr(provider, msg string, cause error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: "bad_payload", Message: msg, Cause: cause}
}
