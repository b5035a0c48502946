package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/wod-wiki/wodwiki/cli/reader"
	"github.com/wod-wiki/wodwiki/cli/render"
)

// listWarningThreshold is the number of items above which we warn about using --limit.
const listWarningThreshold = 100

// isStderrTTY returns true if stderr is a TTY.
func isStderrTTY() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// ListCommand returns the list command.
// List returns thin slices (not inspect-level detail) of saved workout
// history entries.
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List saved workout history entries",
		Flags: append(ReadOnlyFlags(),
			&cli.IntFlag{
				Name:  "days-back",
				Usage: "Only include entries from the last N days (0 = no limit)",
			},
			&cli.StringSliceFlag{
				Name:  "tag",
				Usage: "Filter by tag (repeatable; entry must have all given tags)",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of entries to return (0 = no limit)",
			},
			&cli.IntFlag{
				Name:  "offset",
				Usage: "Number of entries to skip",
			},
		),
		Action: listEntriesAction,
	}
}

func listEntriesAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	// TUI not supported for list
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for the list command", 1)
	}

	opts := reader.ListEntriesOptions{
		DaysBack: c.Int("days-back"),
		Tags:     c.StringSlice("tag"),
		Limit:    c.Int("limit"),
		Offset:   c.Int("offset"),
	}

	results, err := reader.GetReader().ListEntries(context.Background(), opts)
	if err != nil {
		return cli.Exit(fmt.Sprintf("list entries: %v", err), exitRuntimeError)
	}

	// Warn if output is large and --limit was not specified (TTY only to avoid noise in pipelines)
	if len(results) > listWarningThreshold && opts.Limit == 0 && isStderrTTY() {
		fmt.Fprintf(os.Stderr, "Warning: returning %d results. Consider using --limit to reduce output.\n\n", len(results))
	}

	return r.Render(results)
}
