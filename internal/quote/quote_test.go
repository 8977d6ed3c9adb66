package quote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsGoodQuote(t *testing.T) {
	q := &Quote{Symbol: "aapl ", Price: 228.5, High: 230, Low: 226, Volume: 100}
	require.NoError(t, Validate(q))
	assert.Equal(t, "AAPL", q.Symbol, "symbol is normalized in place")
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name string
		q    *Quote
	}{
		{"nil quote", nil},
		{"empty symbol", &Quote{Price: 10}},
		{"zero price", &Quote{Symbol: "AAPL", Price: 0}},
		{"negative price", &Quote{Symbol: "AAPL", Price: -4.2}},
		{"negative volume", &Quote{Symbol: "AAPL", Price: 10, Volume: -1}},
		{"inverted range", &Quote{Symbol: "AAPL", Price: 10, High: 9, Low: 11}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, Validate(tc.q))
		})
	}
}

func TestValidateAllowsUnsetRange(t *testing.T) {
	// Sparse providers leave OHLC at zero; that is not an inverted range.
	q := &Quote{Symbol: "AAPL", Price: 228.5}
	assert.NoError(t, Validate(q))
}

func TestValidateIndex(t *testing.T) {
	ix := &Index{Symbol: "^gspc", Price: 5650.25}
	require.NoError(t, ValidateIndex(ix))
	assert.Equal(t, "^GSPC", ix.Symbol)

	assert.Error(t, ValidateIndex(nil))
	assert.Error(t, ValidateIndex(&Index{Symbol: "^GSPC", Price: 0}))
}
