package cli

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soleren/tempo/internal/aggregate"
)

func TestReport_HumanOutput(t *testing.T) {
	store, _ := openMemoryStore(t)
	agg := aggregate.New(store)

	monday := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.Local)
	seedScreenTime(t, agg, "news.example", 22, monday)
	seedScreenTime(t, agg, "shop.example", 8, monday)
	seedScreenTime(t, agg, "news.example", 95, monday.AddDate(0, 0, 1))

	cmd := &ReportCommand{globals: &GlobalFlags{}, version: "test"}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWith(agg, monday.AddDate(0, 0, 2)))
	})

	assert.Contains(t, output, "Screen time for week 2024_01")
	assert.Contains(t, output, "2024-01-01")
	assert.Contains(t, output, "2024-01-02")
	assert.Contains(t, output, "news.example")
	assert.Contains(t, output, "shop.example")
	assert.Contains(t, output, "22s")
	assert.Contains(t, output, "1m 35s")
	assert.Contains(t, output, "total 30s")
}

func TestReport_JSONOutput(t *testing.T) {
	store, _ := openMemoryStore(t)
	agg := aggregate.New(store)

	monday := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.Local)
	seedScreenTime(t, agg, "news.example", 22, monday)
	seedScreenTime(t, agg, "shop.example", 8, monday)

	cmd := &ReportCommand{globals: &GlobalFlags{JSON: true}, version: "test"}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWith(agg, monday))
	})

	var out reportJSON
	require.NoError(t, json.Unmarshal([]byte(output), &out))

	assert.Equal(t, "2024_01", out.Week)
	require.Len(t, out.Days, 1)
	assert.Equal(t, "2024-01-01", out.Days[0].Date)
	assert.Equal(t, 30, out.Days[0].TotalSeconds)
	require.Len(t, out.Days[0].Domains, 2)
	assert.Equal(t, "news.example", out.Days[0].Domains[0].Domain)
	assert.Equal(t, 22, out.Days[0].Domains[0].Seconds)
}

func TestReport_SingleDate(t *testing.T) {
	store, _ := openMemoryStore(t)
	agg := aggregate.New(store)

	monday := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.Local)
	seedScreenTime(t, agg, "news.example", 22, monday)
	seedScreenTime(t, agg, "shop.example", 8, monday.AddDate(0, 0, 1))

	cmd := &ReportCommand{Date: "2024-01-01", globals: &GlobalFlags{}, version: "test"}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWith(agg, monday))
	})

	assert.Contains(t, output, "news.example")
	assert.NotContains(t, output, "shop.example")
}

func TestReport_ExplicitWeek(t *testing.T) {
	store, _ := openMemoryStore(t)
	agg := aggregate.New(store)

	monday := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.Local)
	seedScreenTime(t, agg, "news.example", 22, monday)

	cmd := &ReportCommand{Week: "2024_01", globals: &GlobalFlags{}, version: "test"}
	output := captureOutput(t, func() {
		// "now" is weeks later; the explicit week wins.
		require.NoError(t, cmd.executeWith(agg, monday.AddDate(0, 2, 0)))
	})

	assert.Contains(t, output, "news.example")
}

func TestReport_WeekAndDateAreExclusive(t *testing.T) {
	store, _ := openMemoryStore(t)
	agg := aggregate.New(store)

	cmd := &ReportCommand{Week: "2024_01", Date: "2024-01-01", globals: &GlobalFlags{}, version: "test"}
	err := cmd.executeWith(agg, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestReport_InvalidDate(t *testing.T) {
	store, _ := openMemoryStore(t)
	agg := aggregate.New(store)

	cmd := &ReportCommand{Date: "01/02/2024", globals: &GlobalFlags{}, version: "test"}
	err := cmd.executeWith(agg, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected YYYY-MM-DD")
}

func TestReport_EmptyStore(t *testing.T) {
	store, _ := openMemoryStore(t)
	agg := aggregate.New(store)

	cmd := &ReportCommand{globals: &GlobalFlags{}, version: "test"}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWith(agg, time.Date(2024, time.January, 1, 12, 0, 0, 0, time.Local)))
	})

	assert.Contains(t, output, "No screen time recorded.")
}
