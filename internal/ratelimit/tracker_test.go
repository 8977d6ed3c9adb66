package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(s string) func() time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t }
}

func TestStatusFreshStore(t *testing.T) {
	tr := New(NewMemStore(), 25)
	tr.now = fixedClock("2026-08-24")

	st, err := tr.Status()
	require.NoError(t, err)
	assert.Equal(t, 0, st.RequestsToday)
	assert.Equal(t, "2026-08-24", st.LastResetDate)
	assert.Equal(t, 25, st.DailyLimit)
	assert.True(t, st.WithinLimit)
}

func TestIncrementCountsAgainstToday(t *testing.T) {
	tr := New(NewMemStore(), 25)
	tr.now = fixedClock("2026-08-24")

	for i := 0; i < 24; i++ {
		require.NoError(t, tr.Increment())
	}
	st, err := tr.Status()
	require.NoError(t, err)
	assert.Equal(t, 24, st.RequestsToday)
	assert.True(t, st.WithinLimit, "24 of 25 is still within limit")

	require.NoError(t, tr.Increment())
	st, err = tr.Status()
	require.NoError(t, err)
	assert.Equal(t, 25, st.RequestsToday)
	assert.False(t, st.WithinLimit, "25 of 25 is exhausted")
}

func TestStatusIsIdempotentWithinOneDay(t *testing.T) {
	tr := New(NewMemStore(), 25)
	tr.now = fixedClock("2026-08-24")

	require.NoError(t, tr.Increment())
	for i := 0; i < 5; i++ {
		st, err := tr.Status()
		require.NoError(t, err)
		assert.Equal(t, 1, st.RequestsToday)
	}
}

func TestStaleDateResetsOnFirstAccess(t *testing.T) {
	store := NewMemStore()
	require.NoError(t, store.Save(Record{RequestsToday: 25, LastResetDate: "2026-08-23"}))

	tr := New(store, 25)
	tr.now = fixedClock("2026-08-24")

	st, err := tr.Status()
	require.NoError(t, err)
	assert.Equal(t, 0, st.RequestsToday)
	assert.Equal(t, "2026-08-24", st.LastResetDate)
	assert.True(t, st.WithinLimit)

	// The reset is persisted, not just returned.
	rec, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, rec.RequestsToday)
	assert.Equal(t, "2026-08-24", rec.LastResetDate)
}

func TestIncrementAfterStaleDateStartsFromZero(t *testing.T) {
	store := NewMemStore()
	require.NoError(t, store.Save(Record{RequestsToday: 20, LastResetDate: "2026-08-20"}))

	tr := New(store, 25)
	tr.now = fixedClock("2026-08-24")

	require.NoError(t, tr.Increment())
	st, err := tr.Status()
	require.NoError(t, err)
	assert.Equal(t, 1, st.RequestsToday)
}

func TestZeroLimitDefaultsTo25(t *testing.T) {
	tr := New(NewMemStore(), 0)
	assert.Equal(t, 25, tr.Limit())
}
