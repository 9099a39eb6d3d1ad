package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/soleren/tempo/internal/aggregate"
	"github.com/soleren/tempo/internal/timeutil"
)

// Execute implements the go-flags Commander interface for PruneCommand.
func (c *PruneCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}

	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	return c.executeWith(aggregate.New(store), time.Now())
}

// executeWith runs the prune against a provided aggregator (for testing).
func (c *PruneCommand) executeWith(agg *aggregate.Aggregator, now time.Time) error {
	span, err := timeutil.ParseSpan(c.OlderThan)
	if err != nil {
		return fmt.Errorf("invalid --older-than value %q: %w", c.OlderThan, err)
	}

	cutoff := now.Add(-span)
	removed, err := agg.Prune(context.Background(), cutoff, c.DryRun)
	if err != nil {
		return fmt.Errorf("prune failed: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		out := map[string]interface{}{
			"removed_weeks": removed,
			"cutoff_week":   timeutil.DataKey(cutoff),
			"dry_run":       c.DryRun,
		}
		enc := json.NewEncoder(os.Stdout)
		return enc.Encode(out)
	}

	if c.DryRun {
		fmt.Printf("Would prune %d week(s) older than %s.\n", removed, timeutil.DataKey(cutoff))
	} else {
		fmt.Printf("Pruned %d week(s) older than %s.\n", removed, timeutil.DataKey(cutoff))
	}
	return nil
}
