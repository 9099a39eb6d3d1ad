package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/soleren/tempo/internal/aggregate"
	"github.com/soleren/tempo/internal/config"
	"github.com/soleren/tempo/internal/storage"
	"github.com/soleren/tempo/internal/timeutil"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string `json:"version"`
	DatabasePath      string `json:"database_path"`
	DatabaseSizeBytes int64  `json:"database_size_bytes"`
	Users             int64  `json:"users"`
	BlockedDomains    int64  `json:"blocked_domains"`
	TrackedDomains    int    `json:"tracked_domains"`
	WeekSeconds       int    `json:"week_seconds"`
	TotalSeconds      int    `json:"total_seconds"`

	TopDomains     []topDomainJSON `json:"top_domains"`
	RetentionWeeks int             `json:"retention_weeks"`
	DaemonRunning  bool            `json:"daemon_running"`
}

type topDomainJSON struct {
	Domain  string `json:"domain"`
	Seconds int    `json:"seconds"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
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

	return c.executeWith(cfg, store, db, time.Now())
}

// executeWith runs status against a provided store and db (for testing).
func (c *StatusCommand) executeWith(cfg *config.Config, store *storage.SQLiteStore, db *sql.DB, now time.Time) error {
	ctx := context.Background()

	stats, err := store.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	st, err := aggregate.New(store).Load(ctx)
	if err != nil {
		return fmt.Errorf("load screen time: %w", err)
	}

	perDomain := map[string]int{}
	totalSeconds := 0
	weekSeconds := 0
	currentWeek := timeutil.DataKey(now)
	for weekKey, week := range st {
		for _, day := range week {
			for domain, e := range day {
				perDomain[domain] += e.AccumulatedSeconds
				totalSeconds += e.AccumulatedSeconds
				if weekKey == currentWeek {
					weekSeconds += e.AccumulatedSeconds
				}
			}
		}
	}

	dbPath, err := cfg.DBPath()
	if err != nil {
		return fmt.Errorf("resolve db path: %w", err)
	}
	dbSize := getDatabaseSize(db, dbPath)

	daemonRunning := checkDaemon(cfg.Daemon)

	out := statusJSON{
		Version:           c.version,
		DatabasePath:      dbPath,
		DatabaseSizeBytes: dbSize,
		Users:             stats.Users,
		BlockedDomains:    stats.BlockedDomains,
		TrackedDomains:    len(perDomain),
		WeekSeconds:       weekSeconds,
		TotalSeconds:      totalSeconds,
		TopDomains:        topDomains(perDomain, 5),
		RetentionWeeks:    cfg.Retention.Weeks,
		DaemonRunning:     daemonRunning,
	}

	if c.globals != nil && c.globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	return c.printHuman(out)
}

func (c *StatusCommand) printHuman(out statusJSON) error {
	fmt.Println("Tempo Status")
	fmt.Println("============")
	fmt.Printf("Version:       %s\n", out.Version)
	fmt.Printf("Database:      %s (%s)\n", out.DatabasePath, formatBytes(out.DatabaseSizeBytes))
	fmt.Printf("Domains:       %s tracked\n", formatNumber(int64(out.TrackedDomains)))
	fmt.Printf("This week:     %s\n", timeutil.FormatSeconds(out.WeekSeconds))
	fmt.Printf("All time:      %s\n", timeutil.FormatSeconds(out.TotalSeconds))
	fmt.Printf("Users:         %s\n", formatNumber(out.Users))
	fmt.Printf("Blocked:       %s\n", formatNumber(out.BlockedDomains))

	if out.RetentionWeeks > 0 {
		fmt.Printf("Retention:     %d weeks\n", out.RetentionWeeks)
	} else {
		fmt.Println("Retention:     unlimited")
	}

	if len(out.TopDomains) > 0 {
		fmt.Println()
		fmt.Println("Top Domains:")
		for _, d := range out.TopDomains {
			fmt.Printf("  %-28s %s\n", d.Domain, timeutil.FormatSeconds(d.Seconds))
		}
	}

	fmt.Println()
	if out.DaemonRunning {
		fmt.Println("Daemon:        running")
	} else {
		fmt.Println("Daemon:        not running")
	}

	return nil
}

// topDomains returns the n highest-accumulation domains, descending,
// alphabetical on ties.
func topDomains(perDomain map[string]int, n int) []topDomainJSON {
	rows := make([]topDomainJSON, 0, len(perDomain))
	for domain, seconds := range perDomain {
		rows = append(rows, topDomainJSON{Domain: domain, Seconds: seconds})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Seconds != rows[j].Seconds {
			return rows[i].Seconds > rows[j].Seconds
		}
		return rows[i].Domain < rows[j].Domain
	})
	if len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

// getDatabaseSize returns the database file size in bytes.
// For on-disk databases, it uses os.Stat. For in-memory databases,
// it queries page_count * page_size.
func getDatabaseSize(db *sql.DB, dbPath string) int64 {
	if info, err := os.Stat(dbPath); err == nil {
		return info.Size()
	}

	var pageCount, pageSize int64
	if err := db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0
	}
	if err := db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0
	}
	return pageCount * pageSize
}

// checkDaemon attempts an HTTP GET against the configured daemon
// endpoint. Returns true if the daemon responds within 1 second.
func checkDaemon(cfg config.DaemonConfig) bool {
	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
	client := &http.Client{Timeout: 1 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://%s/status", addr))
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// formatBytes formats a byte count into a human-readable string.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatNumber formats an int64 with comma separators.
func formatNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
		result.WriteString(",")
	}
	for i := remainder; i < len(s); i += 3 {
		if i > remainder {
			result.WriteString(",")
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}
