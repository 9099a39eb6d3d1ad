package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/soleren/tempo/internal/aggregate"
	"github.com/soleren/tempo/internal/timeutil"
)

// reportJSON is the JSON output structure for the report command.
type reportJSON struct {
	Week string      `json:"week"`
	Days []reportDay `json:"days"`
}

type reportDay struct {
	Date         string          `json:"date"`
	TotalSeconds int             `json:"total_seconds"`
	Domains      []reportRowJSON `json:"domains"`
}

type reportRowJSON struct {
	Domain  string `json:"domain"`
	Seconds int    `json:"seconds"`
	Favicon string `json:"favicon,omitempty"`
}

// Execute implements the go-flags Commander interface for ReportCommand.
func (c *ReportCommand) Execute(args []string) error {
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

// executeWith runs the report against a provided aggregator (for testing).
func (c *ReportCommand) executeWith(agg *aggregate.Aggregator, now time.Time) error {
	if c.Week != "" && c.Date != "" {
		return fmt.Errorf("--week and --date are mutually exclusive")
	}

	st, err := agg.Load(context.Background())
	if err != nil {
		return fmt.Errorf("load screen time: %w", err)
	}

	weekKey := c.Week
	dates := []string{}

	if c.Date != "" {
		day, err := time.ParseInLocation("2006-01-02", c.Date, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --date value %q: expected YYYY-MM-DD", c.Date)
		}
		weekKey = timeutil.DataKey(day)
		dates = append(dates, c.Date)
	} else {
		if weekKey == "" {
			weekKey = timeutil.DataKey(now)
		}
		for date := range st.Week(weekKey) {
			dates = append(dates, date)
		}
		sort.Strings(dates)
	}

	week := st.Week(weekKey)

	if c.globals != nil && c.globals.JSON {
		return c.printJSON(weekKey, week, dates)
	}
	return c.printHuman(weekKey, week, dates)
}

func (c *ReportCommand) printHuman(weekKey string, week aggregate.WeekBucket, dates []string) error {
	header := fmt.Sprintf("Screen time for week %s", weekKey)
	fmt.Println(header)
	for range header {
		fmt.Print("=")
	}
	fmt.Println()

	empty := true
	for _, date := range dates {
		day := week[date]
		if len(day) == 0 {
			continue
		}
		empty = false

		fmt.Println()
		fmt.Printf("%s  (total %s)\n", date, timeutil.FormatSeconds(aggregate.TotalSeconds(day)))
		for _, row := range aggregate.SortedRows(day) {
			fmt.Printf("  %-28s %s\n", row.Domain, timeutil.FormatSeconds(row.AccumulatedSeconds))
		}
	}

	if empty {
		fmt.Println()
		fmt.Println("No screen time recorded.")
	}
	return nil
}

func (c *ReportCommand) printJSON(weekKey string, week aggregate.WeekBucket, dates []string) error {
	out := reportJSON{Week: weekKey, Days: []reportDay{}}
	for _, date := range dates {
		day := week[date]
		if len(day) == 0 {
			continue
		}

		rd := reportDay{
			Date:         date,
			TotalSeconds: aggregate.TotalSeconds(day),
			Domains:      []reportRowJSON{},
		}
		for _, row := range aggregate.SortedRows(day) {
			rd.Domains = append(rd.Domains, reportRowJSON{
				Domain:  row.Domain,
				Seconds: row.AccumulatedSeconds,
				Favicon: row.Favicon,
			})
		}
		out.Days = append(out.Days, rd)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
