package cmd

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/wod-wiki/wodwiki/cli/reader"
	"github.com/wod-wiki/wodwiki/cli/render"
)

// InspectCommand returns the inspect command.
// Inspect returns a deep view of a single saved workout history entry.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Inspect a saved workout history entry by ID",
		ArgsUsage: "<entry-id>",
		Flags:     TUIReadOnlyFlags(),
		Action:    inspectEntryAction,
	}
}

func inspectEntryAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("entry-id required", exitScriptError)
	}
	entryID := c.Args().First()

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	resp, err := reader.GetReader().InspectEntry(context.Background(), entryID)
	if err != nil {
		return cli.Exit(err.Error(), exitRuntimeError)
	}

	if c.Bool("tui") {
		return r.RenderTUI("inspect_entry", resp)
	}

	return r.Render(resp)
}
