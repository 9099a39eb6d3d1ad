package cli

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// ServeCommand — run the tempo daemon and tracker loop.
type ServeCommand struct {
	Port int `long:"port" description:"Override daemon port"`

	globals *GlobalFlags
	version string
}

// ReportCommand — print per-day screen time for a week.
type ReportCommand struct {
	Week string `long:"week" description:"Week to report, as YYYY_WW (default: current week)"`
	Date string `long:"date" description:"Single date to report, as YYYY-MM-DD"`

	globals *GlobalFlags
	version string
}

// StatusCommand — show database statistics and daemon health.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}

// BlockCommand — manage the list of automatically closed domains.
type BlockCommand struct {
	Add    string `long:"add" description:"Domain to add to the blocklist"`
	Remove string `long:"remove" description:"Domain to remove from the blocklist"`
	List   bool   `long:"list" description:"List blocked domains"`

	globals *GlobalFlags
	version string
}

// PruneCommand — remove week buckets older than a retention span.
type PruneCommand struct {
	OlderThan string `long:"older-than" description:"Retention span (e.g., 12w, 90d)" default:"12w"`
	DryRun    bool   `long:"dry-run" description:"Show what would be pruned without deleting"`

	globals *GlobalFlags
	version string
}

// PurgeCommand — delete ALL tempo data with safety confirmation.
type PurgeCommand struct {
	All   bool `long:"all" description:"Required flag to confirm purge intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
}
