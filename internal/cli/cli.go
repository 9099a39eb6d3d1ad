package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Serve  *ServeCommand
	Report *ReportCommand
	Status *StatusCommand
	Block  *BlockCommand
	Prune  *PruneCommand
	Purge  *PurgeCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "tempo"
	parser.LongDescription = "Per-domain screen time tracking for your browser, stored locally."

	cmds := &commands{
		Serve:  &ServeCommand{globals: &globals, version: version},
		Report: &ReportCommand{globals: &globals, version: version},
		Status: &StatusCommand{globals: &globals, version: version},
		Block:  &BlockCommand{globals: &globals, version: version},
		Prune:  &PruneCommand{globals: &globals, version: version},
		Purge:  &PurgeCommand{globals: &globals, version: version},
	}

	parser.AddCommand("serve", "Run the tempo daemon", "Run the tempo daemon: receive browser events and attribute screen time.", cmds.Serve)
	parser.AddCommand("report", "Show screen time per domain", "Show per-day, per-domain screen time for a week or single date.", cmds.Report)
	parser.AddCommand("status", "Show database statistics", "Show database statistics, blocklist size, and daemon health.", cmds.Status)
	parser.AddCommand("block", "Manage blocked domains", "Add, remove, or list domains that are closed automatically.", cmds.Block)
	parser.AddCommand("prune", "Remove old screen time data", "Remove week buckets older than the retention span.", cmds.Prune)
	parser.AddCommand("purge", "Delete ALL tempo data", "Delete ALL tempo data. Destructive operation with safety prompt.", cmds.Purge)

	return parser, &globals, cmds
}

// Run is the main entry point for the tempo CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("tempo %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
