package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/wod-wiki/wodwiki/cli/render"
	"github.com/wod-wiki/wodwiki/history"
	"github.com/wod-wiki/wodwiki/ipc"
	"github.com/wod-wiki/wodwiki/providerpool"
)

// DebugCommand returns the debug command with subcommands for diagnosing
// providerpool routing and the embedding-boundary wire format.
func DebugCommand() *cli.Command {
	return &cli.Command{
		Name:  "debug",
		Usage: "Diagnostic subcommands (not part of the stable CLI contract)",
		Subcommands: []*cli.Command{
			debugResolveCommand(),
			debugIPCCommand(),
		},
	}
}

// debugReplicaConfig names one providerpool replica backed by a filesystem
// history dataset.
type debugReplicaConfig struct {
	Name    string `json:"name"`
	Dataset string `json:"dataset"`
	Root    string `json:"root"`
}

// debugPoolConfig is the JSON shape loaded by `debug resolve --pool-config`.
type debugPoolConfig struct {
	Strategy      string               `json:"strategy"`
	Replicas      []debugReplicaConfig `json:"replicas"`
	StickyTTL     string               `json:"sticky_ttl,omitempty"`
	RecencyWindow int                  `json:"recency_window,omitempty"`
}

// debugResolveResponse reports which replica a providerpool would route an
// entry id to, along with the pool's routing stats.
type debugResolveResponse struct {
	EntryID  string             `json:"entry_id"`
	Strategy string             `json:"strategy"`
	Replica  string             `json:"replica"`
	Stats    providerpool.Stats `json:"stats"`
}

func debugResolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Resolve which providerpool replica would service an entry ID",
		ArgsUsage: "<entry-id>",
		Flags: append(ReadOnlyFlags(),
			&cli.StringFlag{
				Name:     "pool-config",
				Usage:    "Path to a JSON providerpool config (strategy, replicas)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "strategy",
				Usage: "Override the pool strategy from the config file",
			},
		),
		Action: debugResolveAction,
	}
}

func debugResolveAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("entry-id required", exitScriptError)
	}
	entryID := c.Args().First()

	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for debug commands", exitScriptError)
	}

	cfg, err := loadDebugPoolConfig(c.String("pool-config"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to load pool config: %v", err), exitScriptError)
	}

	strategy := providerpool.Strategy(cfg.Strategy)
	if override := c.String("strategy"); override != "" {
		strategy = providerpool.Strategy(override)
	}

	replicas, err := buildDebugReplicas(cfg.Replicas)
	if err != nil {
		return cli.Exit(err.Error(), exitRuntimeError)
	}

	var sticky *providerpool.StickyConfig
	if strategy == providerpool.Sticky {
		sticky = &providerpool.StickyConfig{RecencyWindow: cfg.RecencyWindow}
		if cfg.StickyTTL != "" {
			ttl, err := time.ParseDuration(cfg.StickyTTL)
			if err != nil {
				return cli.Exit(fmt.Sprintf("invalid sticky_ttl: %v", err), exitScriptError)
			}
			sticky.TTL = ttl
		}
	}

	pool, err := providerpool.NewPool(strategy, replicas, sticky)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to build pool: %v", err), exitRuntimeError)
	}

	selected, err := pool.Select(entryID)
	if err != nil {
		return cli.Exit(fmt.Sprintf("pool selection failed: %v", err), exitRuntimeError)
	}

	name := "unknown"
	for _, rep := range replicas {
		if rep.Provider == selected {
			name = rep.Name
			break
		}
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	return r.Render(debugResolveResponse{
		EntryID:  entryID,
		Strategy: string(strategy),
		Replica:  name,
		Stats:    pool.Stats(),
	})
}

func loadDebugPoolConfig(path string) (*debugPoolConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg debugPoolConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if len(cfg.Replicas) == 0 {
		return nil, fmt.Errorf("pool config must define at least one replica")
	}
	return &cfg, nil
}

func buildDebugReplicas(configs []debugReplicaConfig) ([]providerpool.Replica, error) {
	replicas := make([]providerpool.Replica, 0, len(configs))
	for _, rc := range configs {
		dataset := rc.Dataset
		if dataset == "" {
			dataset = history.DefaultDataset
		}
		ds, err := history.NewReadDatasetFS(dataset, rc.Root)
		if err != nil {
			return nil, fmt.Errorf("replica %q: %w", rc.Name, err)
		}
		provider := history.NewLodeContentProvider(ds, history.Config{Dataset: dataset}, true)
		replicas = append(replicas, providerpool.Replica{Name: rc.Name, Provider: provider})
	}
	return replicas, nil
}

func debugIPCCommand() *cli.Command {
	return &cli.Command{
		Name:  "ipc",
		Usage: "Decode a captured embedding-boundary frame file",
		Flags: append(ReadOnlyFlags(),
			&cli.StringFlag{
				Name:     "file",
				Usage:    "Path to a raw length-prefixed frame",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "kind",
				Usage: "Frame kind: command or snapshot",
				Value: "command",
			},
		),
		Action: debugIPCAction,
	}
}

func debugIPCAction(c *cli.Context) error {
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for debug commands", exitScriptError)
	}

	f, err := os.Open(c.String("file"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to open frame file: %v", err), exitScriptError)
	}
	defer f.Close()

	payload, err := ipc.NewFrameDecoder(f).ReadFrame()
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to read frame: %v", err), exitRuntimeError)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	switch kind := c.String("kind"); kind {
	case "command":
		cmd, err := ipc.DecodeCommand(payload)
		if err != nil {
			return cli.Exit(fmt.Sprintf("failed to decode command frame: %v", err), exitRuntimeError)
		}
		return r.Render(cmd)
	case "snapshot":
		snap, err := ipc.DecodeSnapshot(payload)
		if err != nil {
			return cli.Exit(fmt.Sprintf("failed to decode snapshot frame: %v", err), exitRuntimeError)
		}
		return r.Render(snap)
	default:
		return cli.Exit(fmt.Sprintf("unsupported --kind: %s (must be command or snapshot)", kind), exitScriptError)
	}
}
