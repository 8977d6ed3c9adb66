// Package ratelimit tracks the daily request budget of a quota-limited
// provider. The counter survives restarts and resets exactly once per
// calendar day, on the first access after midnight local time.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Record is the persisted state: how many requests were made today and
// which calendar day "today" refers to.
type Record struct {
	RequestsToday int    `json:"requests_today"`
	LastResetDate string `json:"last_reset_date"` // YYYY-MM-DD, local time
}

// Status is the tracker state after any pending daily reset was applied.
type Status struct {
	RequestsToday int    `json:"requests_today"`
	LastResetDate string `json:"last_reset_date"`
	DailyLimit    int    `json:"daily_limit"`
	WithinLimit   bool   `json:"within_limit"`
}

// Store persists a Record under a fixed key.
type Store interface {
	Load() (Record, bool, error)
	Save(Record) error
}

// Tracker gates a provider on its daily request quota. Access is
// read-then-write without a transaction; a rare overcount from concurrent
// writers is cosmetic, not safety-critical.
type Tracker struct {
	mu    sync.Mutex
	store Store
	limit int
	now   func() time.Time
}

func New(store Store, limit int) *Tracker {
	if limit <= 0 {
		limit = 25
	}
	return &Tracker{store: store, limit: limit, now: time.Now}
}

const dateLayout = "2006-01-02"

// load applies the daily reset before returning the record. Callers hold mu.
func (t *Tracker) load() (Record, error) {
	rec, ok, err := t.store.Load()
	if err != nil {
		return Record{}, fmt.Errorf("load rate state: %w", err)
	}
	today := t.now().Format(dateLayout)
	if !ok || rec.LastResetDate != today {
		rec = Record{RequestsToday: 0, LastResetDate: today}
		if err := t.store.Save(rec); err != nil {
			return Record{}, fmt.Errorf("reset rate state: %w", err)
		}
	}
	return rec, nil
}

// Status returns the current usage, resetting the counter first when the
// stored date is not today.
func (t *Tracker) Status() (Status, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, err := t.load()
	if err != nil {
		return Status{}, err
	}
	return Status{
		RequestsToday: rec.RequestsToday,
		LastResetDate: rec.LastResetDate,
		DailyLimit:    t.limit,
		WithinLimit:   rec.RequestsToday < t.limit,
	}, nil
}

// Increment records one request against today's budget.
func (t *Tracker) Increment() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, err := t.load()
	if err != nil {
		return err
	}
	rec.RequestsToday++
	if err := t.store.Save(rec); err != nil {
		return fmt.Errorf("save rate state: %w", err)
	}
	return nil
}

// Limit returns the configured daily cap.
func (t *Tracker) Limit() int { return t.limit }

// MemStore is an in-memory Store for tests and keyless setups.
type MemStore struct {
	mu  sync.Mutex
	rec Record
	set bool
}

func NewMemStore() *MemStore { return &MemStore{} }

func (m *MemStore) Load() (Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec, m.set, nil
}

func (m *MemStore) Save(rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = rec
	m.set = true
	return nil
}
