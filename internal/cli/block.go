package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/soleren/tempo/internal/storage"
)

// blockedJSON is the JSON output structure for `block --list`.
type blockedJSON struct {
	Domain    string `json:"domain"`
	CreatedAt string `json:"created_at"`
}

// Execute implements the go-flags Commander interface for BlockCommand.
func (c *BlockCommand) Execute(args []string) error {
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

	return c.executeWith(store)
}

// executeWith runs the block operation against a provided store (for testing).
func (c *BlockCommand) executeWith(store *storage.SQLiteStore) error {
	set := 0
	for _, on := range []bool{c.Add != "", c.Remove != "", c.List} {
		if on {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("block requires exactly one of --add, --remove, or --list")
	}

	ctx := context.Background()

	switch {
	case c.Add != "":
		domain := strings.ToLower(strings.TrimSpace(c.Add))
		if domain == "" {
			return fmt.Errorf("--add requires a non-empty domain")
		}
		if err := store.AddBlockedDomain(ctx, domain); err != nil {
			return fmt.Errorf("block domain: %w", err)
		}
		fmt.Printf("Blocked %s. Open tabs on this domain will be closed.\n", domain)
		return nil

	case c.Remove != "":
		domain := strings.ToLower(strings.TrimSpace(c.Remove))
		if err := store.RemoveBlockedDomain(ctx, domain); err != nil {
			return err
		}
		fmt.Printf("Unblocked %s.\n", domain)
		return nil

	default:
		domains, err := store.BlockedDomains(ctx)
		if err != nil {
			return fmt.Errorf("list blocked domains: %w", err)
		}

		if c.globals != nil && c.globals.JSON {
			out := make([]blockedJSON, len(domains))
			for i, d := range domains {
				out[i] = blockedJSON{Domain: d.Domain, CreatedAt: d.CreatedAt.UTC().Format("2006-01-02")}
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}

		if len(domains) == 0 {
			fmt.Println("No blocked domains.")
			return nil
		}
		fmt.Printf("%d blocked domain(s):\n", len(domains))
		for _, d := range domains {
			fmt.Printf("  %-28s since %s\n", d.Domain, d.CreatedAt.Local().Format("2006-01-02"))
		}
		return nil
	}
}
