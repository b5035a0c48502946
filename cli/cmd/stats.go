package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/justapithecus/lode/lode"
	"github.com/urfave/cli/v2"

	"github.com/wod-wiki/wodwiki/cli/reader"
	"github.com/wod-wiki/wodwiki/cli/render"
	"github.com/wod-wiki/wodwiki/history"
)

// StatsCommand returns the stats command with subcommands.
// Stats returns aggregated, derived facts about saved workout history.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show aggregated statistics (history, metrics)",
		Subcommands: []*cli.Command{
			statsHistoryCommand(),
			statsMetricsCommand(),
		},
	}
}

func statsHistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show aggregate stats across saved workout history entries",
		Flags: append(TUIReadOnlyFlags(),
			&cli.IntFlag{
				Name:  "days-back",
				Usage: "Only include entries from the last N days (0 = no limit)",
			},
			&cli.StringSliceFlag{
				Name:  "tag",
				Usage: "Filter by tag (repeatable; entry must have all given tags)",
			},
		),
		Action: statsHistoryAction,
	}
}

func statsHistoryAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	opts := reader.ListEntriesOptions{
		DaysBack: c.Int("days-back"),
		Tags:     c.StringSlice("tag"),
	}

	stats, err := reader.GetReader().StatsHistory(context.Background(), opts)
	if err != nil {
		return cli.Exit(fmt.Sprintf("stats history: %v", err), exitRuntimeError)
	}

	if c.Bool("tui") {
		return r.RenderTUI("stats_history", stats)
	}

	return r.Render(stats)
}

func statsMetricsCommand() *cli.Command {
	return &cli.Command{
		Name:  "metrics",
		Usage: "Show the latest recorded workout metrics snapshot",
		Flags: append(TUIReadOnlyFlags(),
			&cli.StringFlag{Name: "storage-dataset", Usage: "History dataset ID", Value: history.DefaultDataset},
			&cli.StringFlag{Name: "storage-backend", Usage: "Storage backend: fs or s3"},
			&cli.StringFlag{Name: "storage-path", Usage: "Storage path (fs: directory, s3: bucket/prefix)"},
			&cli.StringFlag{Name: "storage-region", Usage: "AWS region for S3 backend"},
			&cli.StringFlag{Name: "run-id", Usage: "Read metrics for a specific run ID"},
			&cli.StringFlag{Name: "source", Usage: "Filter by source partition"},
		),
		Action: statsMetricsAction,
	}
}

func statsMetricsAction(c *cli.Context) error {
	backend := c.String("storage-backend")
	path := c.String("storage-path")

	var snapshot *reader.MetricsSnapshot

	if backend != "" && path != "" {
		ds, err := buildReadDataset(c.String("storage-dataset"), backend, path, c.String("storage-region"))
		if err != nil {
			return fmt.Errorf("failed to initialize storage reader: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		record, err := history.QueryLatestMetrics(ctx, ds, c.String("run-id"), c.String("source"))
		if err != nil {
			return fmt.Errorf("failed to read metrics: %w", err)
		}

		parsed, err := reader.ParseMetricsRecord(record)
		if err != nil {
			return fmt.Errorf("failed to parse metrics record: %w", err)
		}
		snapshot = parsed
	} else {
		if backend != "" || path != "" {
			return fmt.Errorf("both --storage-backend and --storage-path are required for history reads")
		}

		snap, err := reader.GetReader().StatsMetrics(context.Background(), c.String("run-id"))
		if err != nil {
			return cli.Exit(fmt.Sprintf("stats metrics: %v", err), exitRuntimeError)
		}
		snapshot = snap
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	if c.Bool("tui") {
		return r.RenderTUI("stats_metrics", snapshot)
	}

	return r.Render(snapshot)
}

// buildReadDataset creates a history Dataset for reading based on CLI flags.
func buildReadDataset(dataset, backend, path, region string) (lode.Dataset, error) {
	switch backend {
	case "fs":
		return history.NewReadDatasetFS(dataset, path)
	case "s3":
		bucket, prefix := history.ParseS3Path(path)
		return history.NewReadDatasetS3(dataset, history.S3Config{Bucket: bucket, Prefix: prefix, Region: region})
	default:
		return nil, fmt.Errorf("unsupported storage-backend: %s (must be fs or s3)", backend)
	}
}
