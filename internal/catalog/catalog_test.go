package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniverseShape(t *testing.T) {
	assert.Len(t, Companies(), 20)
	assert.Len(t, Indices(), 4)
	assert.Len(t, StockSymbols(), 20)
	assert.Contains(t, IndexSymbols(), VIXSymbol)
}

func TestLookup(t *testing.T) {
	c, ok := Lookup("NVDA")
	require.True(t, ok)
	assert.Equal(t, "NVIDIA Corporation", c.Name)
	assert.Greater(t, c.BasePrice, 0.0)
	assert.Greater(t, c.Beta, 0.0)

	_, ok = Lookup("NOPE")
	assert.False(t, ok)
}

func TestLookupOrDefault(t *testing.T) {
	c := LookupOrDefault("NOPE")
	assert.Equal(t, "NOPE", c.Symbol)
	assert.Equal(t, "Unknown", c.Sector)
	assert.Equal(t, 100.0, c.BasePrice)
	assert.Equal(t, 1.0, c.Beta)
}

func TestEveryCompanyHasPositiveBaseAndBeta(t *testing.T) {
	for _, c := range Companies() {
		assert.Greater(t, c.BasePrice, 0.0, c.Symbol)
		assert.Greater(t, c.Beta, 0.0, c.Symbol)
		assert.NotEmpty(t, c.Sector, c.Symbol)
	}
}
