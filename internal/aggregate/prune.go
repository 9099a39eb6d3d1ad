package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/soleren/tempo/internal/timeutil"
)

// Prune removes whole week buckets older than the week containing
// cutoff and persists the result. Returns the number of week buckets
// removed. With dryRun set, nothing is written. Deletion is a
// user-initiated operation; the attribution model itself never deletes.
func (a *Aggregator) Prune(ctx context.Context, cutoff time.Time, dryRun bool) (int, error) {
	store, err := a.Load(ctx)
	if err != nil {
		return 0, err
	}

	cutoffKey := timeutil.DataKey(cutoff)
	removed := 0
	for weekKey := range store {
		// Zero-padded YYYY_WW keys order correctly as strings.
		if weekKey < cutoffKey {
			removed++
			if !dryRun {
				delete(store, weekKey)
			}
		}
	}

	if dryRun || removed == 0 {
		return removed, nil
	}

	data, err := json.Marshal(store)
	if err != nil {
		return 0, fmt.Errorf("marshal store: %w", err)
	}
	if err := a.kv.SetValue(ctx, StoreKey, data); err != nil {
		return 0, fmt.Errorf("write store: %w", err)
	}
	return removed, nil
}
