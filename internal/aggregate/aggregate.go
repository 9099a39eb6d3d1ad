// Package aggregate folds close-out records from the session tracker
// into the week → date → domain screen-time store and persists it as a
// single JSON value in the key-value substrate.
package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/soleren/tempo/internal/timeutil"
)

// StoreKey is the key the screen-time store is persisted under.
const StoreKey = "screentime"

// KV is the whole-value persistence boundary the aggregator writes
// through. Both operations are best-effort: a failed read or write loses
// the record being applied, nothing is queued.
type KV interface {
	GetValue(ctx context.Context, key string) ([]byte, bool, error)
	SetValue(ctx context.Context, key string, value []byte) error
}

// Aggregator applies close-out records to the persisted store.
type Aggregator struct {
	kv KV
}

// New creates an Aggregator backed by kv.
func New(kv KV) *Aggregator {
	return &Aggregator{kv: kv}
}

// Apply folds one record into the store for the week and date of now,
// then writes the whole store back. Records are applied exactly once by
// the caller; Apply itself makes no idempotency promise on values.
func (a *Aggregator) Apply(ctx context.Context, rec Record, now time.Time) error {
	if rec.Domain == "" || rec.Seconds <= 0 {
		return nil
	}

	store, err := a.Load(ctx)
	if err != nil {
		return err
	}

	e := store.entry(timeutil.DataKey(now), timeutil.DateKey(now), rec.Domain)
	e.AccumulatedSeconds += rec.Seconds
	if rec.Favicon != "" {
		e.Favicon = rec.Favicon
	}

	data, err := json.Marshal(store)
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}
	if err := a.kv.SetValue(ctx, StoreKey, data); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	return nil
}

// Load reads the whole store from the substrate. A missing value yields
// an empty store.
func (a *Aggregator) Load(ctx context.Context) (Store, error) {
	data, ok, err := a.kv.GetValue(ctx, StoreKey)
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}
	if !ok {
		return Store{}, nil
	}

	var store Store
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("decode store: %w", err)
	}
	if store == nil {
		store = Store{}
	}
	return store, nil
}

// Week returns the bucket for weekKey, or nil when absent.
func (s Store) Week(weekKey string) WeekBucket {
	return s[weekKey]
}

// Day returns the bucket for dateKey within the week containing it.
func (s Store) Day(dateKey string) DayBucket {
	d, err := time.ParseInLocation("2006-01-02", dateKey, time.Local)
	if err != nil {
		return nil
	}
	week := s[timeutil.DataKey(d)]
	if week == nil {
		return nil
	}
	return week[dateKey]
}

// SortedRows flattens a day bucket into rows ordered by descending
// accumulated seconds, domains tying broken alphabetically.
func SortedRows(day DayBucket) []DomainRow {
	rows := make([]DomainRow, 0, len(day))
	for domain, e := range day {
		rows = append(rows, DomainRow{
			Domain:             domain,
			AccumulatedSeconds: e.AccumulatedSeconds,
			Favicon:            e.Favicon,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].AccumulatedSeconds != rows[j].AccumulatedSeconds {
			return rows[i].AccumulatedSeconds > rows[j].AccumulatedSeconds
		}
		return rows[i].Domain < rows[j].Domain
	})
	return rows
}

// TotalSeconds sums all accumulated seconds in a day bucket.
func TotalSeconds(day DayBucket) int {
	total := 0
	for _, e := range day {
		total += e.AccumulatedSeconds
	}
	return total
}
