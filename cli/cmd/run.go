package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/wod-wiki/wodwiki/adapter"
	redisadapter "github.com/wod-wiki/wodwiki/adapter/redis"
	"github.com/wod-wiki/wodwiki/adapter/webhook"
	"github.com/wod-wiki/wodwiki/block"
	wodwikiconfig "github.com/wod-wiki/wodwiki/cli/config"
	"github.com/wod-wiki/wodwiki/compiler"
	"github.com/wod-wiki/wodwiki/display"
	"github.com/wod-wiki/wodwiki/history"
	"github.com/wod-wiki/wodwiki/metrics"
	"github.com/wod-wiki/wodwiki/parser"
	"github.com/wod-wiki/wodwiki/policy"
	"github.com/wod-wiki/wodwiki/runtime"
	"github.com/wod-wiki/wodwiki/types"
)

// Exit codes for wodwiki run.
const (
	exitSuccess       = 0
	exitScriptError   = 1
	exitRuntimeError  = 2
	exitPolicyFailure = 3
)

// exitConfigError is used for CLI/input validation failures. These are
// pre-execution errors (not script failures).
const exitConfigError = exitRuntimeError

// maxSimulatedDuration bounds the fast-forward clock loop so a script with
// no terminating timer (a malformed or infinite AMRAP) cannot hang the
// process forever.
const maxSimulatedDuration = 6 * time.Hour

// RunCommand returns the run command: the only command that executes a
// workout script end-to-end.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Compile and execute a workout script",
		UsageText: `wodwiki run --script <path> --run-id <id> --source <name> \
    --storage-backend <fs|s3> --storage-path <path> [options]

EXAMPLES:
  # Run a script with filesystem storage
  wodwiki run --script ./fran.wod --run-id run-001 --source cli \
    --storage-backend fs --storage-path ./data

  # Run with S3 storage
  wodwiki run --script ./murph.wod --run-id run-002 --source cli \
    --storage-backend s3 --storage-path my-bucket/prefix \
    --storage-region us-east-1

  # Notify a webhook on completion
  wodwiki run --script ./emom.wod --run-id run-003 --source cli \
    --storage-backend fs --storage-path ./data \
    --adapter webhook --adapter-url https://hooks.example.com/wodwiki`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to wodwiki.yaml config file (project-level defaults for wodwiki run)",
			},
			&cli.StringFlag{
				Name:     "script",
				Usage:    "Path to workout script file",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "run-id",
				Usage:    "Run ID",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "script-id",
				Usage: "Script identity for metrics/history dimensions (default: script file basename)",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Suppress result output",
			},
			// Partition key flags
			&cli.StringFlag{
				Name:  "source",
				Usage: "Source identifier for partitioning (required)",
			},
			&cli.StringFlag{
				Name:  "category",
				Usage: "Category identifier for partitioning",
				Value: "workout",
			},
			// Policy flags
			&cli.StringFlag{
				Name:  "policy",
				Usage: "Ingestion policy: strict, buffered, or streaming",
				Value: "strict",
			},
			&cli.StringFlag{
				Name:  "flush-mode",
				Usage: "Flush mode for buffered policy: at_least_once, metrics_first, two_phase",
				Value: "at_least_once",
			},
			&cli.IntFlag{
				Name:  "buffer-spans",
				Usage: "Max buffered spans (buffered policy)",
				Value: 0,
			},
			&cli.Int64Flag{
				Name:  "buffer-bytes",
				Usage: "Max buffer size in bytes (buffered policy)",
				Value: 0,
			},
			&cli.IntFlag{
				Name:  "flush-count",
				Usage: "Flush after N spans accumulate (streaming policy)",
				Value: 0,
			},
			&cli.DurationFlag{
				Name:  "flush-interval",
				Usage: "Flush every duration, e.g. 5s, 30s (streaming policy)",
				Value: 0,
			},
			// Storage flags
			&cli.StringFlag{
				Name:  "storage-dataset",
				Usage: "Lode dataset ID (overrides default \"wodwiki\")",
				Value: history.DefaultDataset,
			},
			&cli.StringFlag{
				Name:  "storage-backend",
				Usage: "Storage backend: fs (filesystem) or s3 (Amazon S3)",
			},
			&cli.StringFlag{
				Name:  "storage-path",
				Usage: "Storage path (fs: writable directory, s3: bucket/prefix)",
			},
			&cli.StringFlag{
				Name:  "storage-region",
				Usage: "AWS region for S3 backend (uses default credential chain if omitted)",
			},
			&cli.StringFlag{
				Name:  "storage-endpoint",
				Usage: "Custom S3 endpoint URL for S3-compatible providers (e.g. Cloudflare R2, MinIO)",
			},
			&cli.BoolFlag{
				Name:  "storage-s3-path-style",
				Usage: "Force path-style addressing for S3 (required by R2, MinIO)",
			},
			// Adapter flags (workout-completion notification)
			&cli.StringFlag{
				Name:  "adapter",
				Usage: "Completion-notification adapter type (webhook, redis)",
			},
			&cli.StringFlag{
				Name:  "adapter-url",
				Usage: "Adapter endpoint URL (required when --adapter is set)",
			},
			&cli.StringSliceFlag{
				Name:  "adapter-header",
				Usage: "Custom HTTP header as key=value (repeatable, webhook only)",
			},
			&cli.DurationFlag{
				Name:  "adapter-timeout",
				Usage: "Adapter notification timeout",
				Value: webhook.DefaultTimeout,
			},
			&cli.IntFlag{
				Name:  "adapter-retries",
				Usage: "Adapter retry attempts",
				Value: webhook.DefaultRetries,
			},
			&cli.StringFlag{
				Name:  "adapter-channel",
				Usage: "Pub/sub channel name for Redis adapter",
				Value: redisadapter.DefaultChannel,
			},
		},
		Action: runAction,
	}
}

// policyChoice holds parsed policy configuration.
type policyChoice struct {
	name          string
	flushMode     string
	maxSpans      int
	maxBytes      int64
	flushCount    int
	flushInterval time.Duration
}

// storageChoice holds parsed storage configuration.
type storageChoice struct {
	backend      string // "fs" or "s3"
	path         string // fs: directory, s3: bucket/prefix
	region       string
	endpoint     string
	usePathStyle bool
}

// adapterChoice holds parsed adapter configuration.
type adapterChoice struct {
	adapterType string
	url         string
	channel     string
	headers     map[string]string
	timeout     time.Duration
	retries     int
}

func runAction(c *cli.Context) error {
	var cfg *wodwikiconfig.Config
	if configPath := c.String("config"); configPath != "" {
		loaded, err := wodwikiconfig.Load(configPath)
		if err != nil {
			return cli.Exit(fmt.Sprintf("failed to load config: %v", err), exitConfigError)
		}
		cfg = loaded
	}

	source := resolveString(c, "source", configVal(cfg, func(c *wodwikiconfig.Config) string { return c.Source }))
	category := resolveString(c, "category", configVal(cfg, func(c *wodwikiconfig.Config) string { return c.Category }))
	if source == "" {
		return cli.Exit("--source is required (provide via CLI flag or config file)", exitConfigError)
	}

	scriptPath := c.String("script")
	scriptText, err := os.ReadFile(scriptPath)
	if err != nil {
		return cli.Exit(fmt.Sprintf("cannot read script %q: %v", scriptPath, err), exitScriptError)
	}

	scriptID := c.String("script-id")
	if scriptID == "" {
		base := filepath.Base(scriptPath)
		scriptID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	runID := c.String("run-id")

	choice := policyChoice{
		name:          resolveString(c, "policy", configVal(cfg, func(c *wodwikiconfig.Config) string { return c.Policy.Name })),
		flushMode:     resolveString(c, "flush-mode", configVal(cfg, func(c *wodwikiconfig.Config) string { return c.Policy.FlushMode })),
		maxSpans:      resolveInt(c, "buffer-spans", configIntVal(cfg, func(c *wodwikiconfig.Config) int { return c.Policy.BufferEvents })),
		maxBytes:      resolveInt64(c, "buffer-bytes", configInt64Val(cfg, func(c *wodwikiconfig.Config) int64 { return c.Policy.BufferBytes })),
		flushCount:    resolveInt(c, "flush-count", configIntVal(cfg, func(c *wodwikiconfig.Config) int { return c.Policy.FlushCount })),
		flushInterval: resolveDuration(c, "flush-interval", configPolicyDurationVal(cfg)),
	}
	if err := validatePolicyConfig(choice); err != nil {
		return cli.Exit(fmt.Sprintf("invalid policy config: %v", err), exitConfigError)
	}

	storageBackend := resolveString(c, "storage-backend", configVal(cfg, func(c *wodwikiconfig.Config) string { return c.Storage.Backend }))
	storagePath := resolveString(c, "storage-path", configVal(cfg, func(c *wodwikiconfig.Config) string { return c.Storage.Path }))
	if storageBackend == "" {
		return cli.Exit("--storage-backend is required (provide via CLI flag or config file)", exitConfigError)
	}
	if storagePath == "" {
		return cli.Exit("--storage-path is required (provide via CLI flag or config file)", exitConfigError)
	}
	storageConfig := storageChoice{
		backend:      storageBackend,
		path:         storagePath,
		region:       resolveString(c, "storage-region", configVal(cfg, func(c *wodwikiconfig.Config) string { return c.Storage.Region })),
		endpoint:     resolveString(c, "storage-endpoint", configVal(cfg, func(c *wodwikiconfig.Config) string { return c.Storage.Endpoint })),
		usePathStyle: resolveBool(c, "storage-s3-path-style", configBoolVal(cfg, func(c *wodwikiconfig.Config) bool { return c.Storage.S3PathStyle })),
	}
	if err := validateStorageConfig(storageConfig); err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	storageDataset := resolveString(c, "storage-dataset", configVal(cfg, func(c *wodwikiconfig.Config) string { return c.Storage.Dataset }))
	if storageDataset == "" {
		storageDataset = history.DefaultDataset
	}

	var adptConfig *adapterChoice
	adapterType := resolveString(c, "adapter", configVal(cfg, func(c *wodwikiconfig.Config) string { return c.Adapter.Type }))
	if adapterType != "" {
		ac, err := parseAdapterConfigWithPrecedence(c, cfg, adapterType)
		if err != nil {
			return cli.Exit(fmt.Sprintf("invalid adapter config: %v", err), exitConfigError)
		}
		adptConfig = &ac
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	startTime := time.Now()
	collector := metrics.NewCollector(scriptID, runID)

	pol, lodeClient, err := buildPolicy(choice, storageConfig, storageDataset, source, category, runID, startTime)
	if err != nil {
		return fmt.Errorf("failed to create policy: %w", err)
	}
	defer func() { _ = pol.Close() }()

	script := parser.Parse(string(scriptText))
	if len(script.Roots()) == 0 {
		return cli.Exit("script contains no statements", exitScriptError)
	}

	rt := runtime.New()
	rt.Collector = collector

	rootIDs := make([]types.StatementID, 0, len(script.Roots()))
	for _, s := range script.Roots() {
		rootIDs = append(rootIDs, s.ID)
	}

	root, compileErr := compileRoot(script, rootIDs, rt)
	if compileErr != nil {
		emitScriptErrors(script)
		return cli.Exit(fmt.Sprintf("compile failed: %v", compileErr), exitScriptError)
	}

	rt.PushAndMount(root)

	if err := display.Dispatch(rt, types.RuntimeCommand{Type: types.CommandStart}); err != nil {
		return cli.Exit(fmt.Sprintf("failed to start workout: %v", err), exitRuntimeError)
	}

	outcome := driveToCompletion(rt)

	if len(rt.Errors) > 0 {
		persistLog(ctx, pol, rt)
		return cli.Exit(fmt.Sprintf("runtime error: %v", rt.Errors), exitRuntimeError)
	}

	persistLog(ctx, pol, rt)
	if err := pol.IngestMetrics(ctx, ptr(collector.Snapshot())); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to ingest metrics: %v\n", err)
	}
	if err := pol.Flush(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: flush failed: %v\n", err)
		if !c.Bool("quiet") {
			printSummary(collector.Snapshot(), time.Since(startTime), choice)
		}
		return cli.Exit("", exitPolicyFailure)
	}

	if lodeClient != nil {
		if err := lodeClient.WriteMetrics(ctx, []*metrics.Snapshot{ptr(collector.Snapshot())}); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to persist final metrics: %v\n", err)
		}
	}

	if adptConfig != nil {
		notifyAdapter(*adptConfig, scriptID, runID, outcome, time.Since(startTime), collector.Snapshot())
	}

	if !c.Bool("quiet") {
		printSummary(collector.Snapshot(), time.Since(startTime), choice)
	}

	return cli.Exit("", outcomeToExitCode(outcome))
}

// compileRoot compiles the script's top-level statement group into a
// single root block. Multiple root statements compile as one implicit
// group under a fresh CompilationContext.
func compileRoot(script *types.Script, rootIDs []types.StatementID, rt *runtime.Runtime) (*block.Block, error) {
	comp := compiler.New(script)
	return comp.Compile(rootIDs, rt, types.CompilationContext{})
}

// driveToCompletion fast-forwards the clock in fixed steps until the stack
// empties (the workout completes or is reset) or the simulated duration
// safety cap is reached. CLI runs are non-interactive, so there is no
// real-time UI to drive the clock; a synthetic tick loop stands in for
// runtime.Driver's real-time goroutine.
func driveToCompletion(rt *runtime.Runtime) string {
	var simulated time.Duration
	for rt.Stack.Len() > 0 {
		if len(rt.Errors) > 0 {
			return "aborted"
		}
		if simulated >= maxSimulatedDuration {
			rt.Dispatch(types.Event{Name: types.EventUserReset})
			return "aborted"
		}
		rt.Clock.Tick(int64(runtime.TickInterval / time.Millisecond))
		simulated += runtime.TickInterval
	}
	return "completed"
}

// persistLog drains the tracker's accumulated execution log through the
// policy, one span at a time (IngestSpan is the unit the Policy interface
// buffers or writes immediately, depending on implementation).
func persistLog(ctx context.Context, pol policy.Policy, rt *runtime.Runtime) {
	for _, span := range rt.Tracker.Log() {
		s := span
		if err := pol.IngestSpan(ctx, &s); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to ingest span %s: %v\n", s.ID, err)
		}
	}
}

// emitScriptErrors prints non-fatal parse errors accumulated on the script
// when a subsequent compile failure makes them relevant context.
func emitScriptErrors(script *types.Script) {
	for _, e := range script.Errors {
		fmt.Fprintf(os.Stderr, "parse error at line %d: %s\n", e.Source.Line, e.Message)
	}
}

func ptr[T any](v T) *T { return &v }

// resolveString returns the CLI flag value if explicitly set, else the
// config value if non-empty, else the urfave default.
func resolveString(c *cli.Context, flag string, configVal string) string {
	if c.IsSet(flag) {
		return c.String(flag)
	}
	if configVal != "" {
		return configVal
	}
	return c.String(flag)
}

func resolveInt(c *cli.Context, flag string, configVal int) int {
	if c.IsSet(flag) {
		return c.Int(flag)
	}
	if configVal != 0 {
		return configVal
	}
	return c.Int(flag)
}

func resolveInt64(c *cli.Context, flag string, configVal int64) int64 {
	if c.IsSet(flag) {
		return c.Int64(flag)
	}
	if configVal != 0 {
		return configVal
	}
	return c.Int64(flag)
}

func resolveBool(c *cli.Context, flag string, configVal bool) bool {
	if c.IsSet(flag) {
		return c.Bool(flag)
	}
	if configVal {
		return configVal
	}
	return c.Bool(flag)
}

func resolveDuration(c *cli.Context, flag string, configVal time.Duration) time.Duration {
	if c.IsSet(flag) {
		return c.Duration(flag)
	}
	if configVal != 0 {
		return configVal
	}
	return c.Duration(flag)
}

func configVal(cfg *wodwikiconfig.Config, fn func(*wodwikiconfig.Config) string) string {
	if cfg == nil {
		return ""
	}
	return fn(cfg)
}

func configIntVal(cfg *wodwikiconfig.Config, fn func(*wodwikiconfig.Config) int) int {
	if cfg == nil {
		return 0
	}
	return fn(cfg)
}

func configInt64Val(cfg *wodwikiconfig.Config, fn func(*wodwikiconfig.Config) int64) int64 {
	if cfg == nil {
		return 0
	}
	return fn(cfg)
}

func configBoolVal(cfg *wodwikiconfig.Config, fn func(*wodwikiconfig.Config) bool) bool {
	if cfg == nil {
		return false
	}
	return fn(cfg)
}

func configPolicyDurationVal(cfg *wodwikiconfig.Config) time.Duration {
	if cfg == nil {
		return 0
	}
	return cfg.Policy.FlushInterval.Duration
}

func configDurationVal(cfg *wodwikiconfig.Config) time.Duration {
	if cfg == nil {
		return 0
	}
	return cfg.Adapter.Timeout.Duration
}

// parseAdapterConfigWithPrecedence builds adapter config using CLI > config > defaults.
func parseAdapterConfigWithPrecedence(c *cli.Context, cfg *wodwikiconfig.Config, adapterType string) (adapterChoice, error) {
	ac := adapterChoice{
		adapterType: adapterType,
		url:         resolveString(c, "adapter-url", configVal(cfg, func(c *wodwikiconfig.Config) string { return c.Adapter.URL })),
		timeout:     resolveDuration(c, "adapter-timeout", configDurationVal(cfg)),
		headers:     make(map[string]string),
	}

	if c.IsSet("adapter-retries") {
		ac.retries = c.Int("adapter-retries")
	} else if cfg != nil && cfg.Adapter.Retries != nil {
		ac.retries = *cfg.Adapter.Retries
	} else {
		ac.retries = c.Int("adapter-retries")
	}
	if ac.retries < 0 {
		return ac, fmt.Errorf("--adapter-retries must be >= 0, got %d", ac.retries)
	}

	switch ac.adapterType {
	case "webhook":
		if ac.url == "" {
			return ac, fmt.Errorf("--adapter-url is required when --adapter=webhook")
		}
	case "redis":
		if ac.url == "" {
			return ac, fmt.Errorf("--adapter-url is required when --adapter=redis")
		}
		ac.channel = resolveString(c, "adapter-channel", configVal(cfg, func(c *wodwikiconfig.Config) string { return c.Adapter.Channel }))
		if ac.channel == "" {
			ac.channel = redisadapter.DefaultChannel
		}
	default:
		return ac, fmt.Errorf("unknown adapter type: %q (supported: webhook, redis)", ac.adapterType)
	}

	if cfg != nil {
		for k, v := range cfg.Adapter.Headers {
			ac.headers[k] = v
		}
	}
	for _, h := range c.StringSlice("adapter-header") {
		k, v, ok := strings.Cut(h, "=")
		if !ok || k == "" {
			return ac, fmt.Errorf("invalid --adapter-header %q: expected key=value", h)
		}
		ac.headers[k] = v
	}
	if ac.adapterType == "redis" && len(ac.headers) > 0 {
		fmt.Fprintf(os.Stderr, "Warning: --adapter-header is ignored for redis adapter\n")
	}

	return ac, nil
}

func validatePolicyConfig(choice policyChoice) error {
	switch choice.name {
	case "strict":
		if choice.maxSpans > 0 || choice.maxBytes > 0 || choice.flushMode != "at_least_once" {
			fmt.Fprintf(os.Stderr, "Warning: buffer/flush flags ignored for strict policy\n")
		}
		return nil

	case "buffered":
		if choice.maxSpans <= 0 && choice.maxBytes <= 0 {
			return fmt.Errorf(`buffered policy requires buffer limits

Add one or both of:
  --buffer-spans <n>    Maximum spans to buffer (e.g., --buffer-spans 1000)
  --buffer-bytes <n>    Maximum bytes to buffer (e.g., --buffer-bytes 1048576)`)
		}
		switch policy.FlushMode(choice.flushMode) {
		case policy.FlushAtLeastOnce, policy.FlushMetricsFirst, policy.FlushTwoPhase:
			return nil
		default:
			return fmt.Errorf(`invalid --flush-mode: %q

Valid options:
  at_least_once   Flush all buffered data at least once (default)
  metrics_first   Flush metrics snapshots before spans
  two_phase       Two-phase commit for transactional semantics`, choice.flushMode)
		}

	case "streaming":
		if choice.flushCount <= 0 && choice.flushInterval <= 0 {
			return fmt.Errorf(`streaming policy requires at least one flush trigger

Add one or both of:
  --flush-count <n>       Flush after N spans (e.g., --flush-count 100)
  --flush-interval <d>    Flush every duration (e.g., --flush-interval 5s)`)
		}
		if choice.maxSpans > 0 || choice.maxBytes > 0 || choice.flushMode != "at_least_once" {
			fmt.Fprintf(os.Stderr, "Warning: buffer/flush-mode flags ignored for streaming policy\n")
		}
		return nil

	default:
		return fmt.Errorf(`invalid --policy: %q

Valid options:
  strict      Write spans immediately, fail on any error (default)
  buffered    Buffer spans in memory, flush periodically
  streaming   Continuous batched writes with flush triggers`, choice.name)
	}
}

func validateStorageConfig(config storageChoice) error {
	switch config.backend {
	case "fs":
		if config.endpoint != "" || config.usePathStyle {
			fmt.Fprintf(os.Stderr, "Warning: --storage-endpoint and --storage-s3-path-style are ignored for fs backend\n")
		}
		info, err := os.Stat(config.path)
		if os.IsNotExist(err) {
			return fmt.Errorf(`storage path does not exist: %s

Create the directory first:
  mkdir -p %s`, config.path, config.path)
		}
		if err != nil {
			return fmt.Errorf("cannot access storage path %q: %v (ensure the path exists and is readable)", config.path, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("storage path is not a directory: %s (--storage-path for fs backend must be a directory, not a file)", config.path)
		}
		return nil

	case "s3":
		if config.path == "" {
			return fmt.Errorf(`--storage-path required for s3 backend

Format: bucket-name/optional-prefix
Example: --storage-path my-bucket/wodwiki-data`)
		}
		return nil

	default:
		return fmt.Errorf(`invalid --storage-backend: %q

Valid options:
  fs   Filesystem storage (requires writable directory)
  s3   Amazon S3 storage (requires AWS credentials)`, config.backend)
	}
}

// buildPolicy constructs the configured ingestion policy backed by a Lode
// history sink. Returns the policy and the underlying client (used for a
// final best-effort metrics write after the policy flush).
func buildPolicy(choice policyChoice, storageConfig storageChoice, dataset, source, category, runID string, startTime time.Time) (policy.Policy, *history.LodeClient, error) {
	histCfg := history.Config{
		Dataset:  dataset,
		Source:   source,
		Category: category,
		Day:      history.DeriveDay(startTime),
		RunID:    runID,
		Policy:   choice.name,
	}

	var client *history.LodeClient
	var err error
	switch storageConfig.backend {
	case "fs":
		client, err = history.NewLodeClient(histCfg, storageConfig.path)
		if err != nil {
			return nil, nil, fmt.Errorf("filesystem storage initialization failed: %w (ensure directory %s exists and is writable)", err, storageConfig.path)
		}
	case "s3":
		bucket, prefix := history.ParseS3Path(storageConfig.path)
		s3cfg := history.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       storageConfig.region,
			Endpoint:     storageConfig.endpoint,
			UsePathStyle: storageConfig.usePathStyle,
		}
		client, err = history.NewLodeS3Client(histCfg, s3cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("S3 storage initialization failed: %w (check AWS credentials and bucket permissions)", err)
		}
	default:
		return nil, nil, fmt.Errorf("unknown storage-backend: %s", storageConfig.backend)
	}

	sink := history.NewSink(histCfg, client)

	switch choice.name {
	case "strict":
		return policy.NewStrictPolicy(sink), client, nil
	case "buffered":
		p, err := policy.NewBufferedPolicy(sink, policy.BufferedConfig{
			MaxBufferSpans: choice.maxSpans,
			MaxBufferBytes: choice.maxBytes,
			FlushMode:      policy.FlushMode(choice.flushMode),
		})
		return p, client, err
	case "streaming":
		p, err := policy.NewStreamingPolicy(sink, policy.StreamingConfig{
			FlushCount:    choice.flushCount,
			FlushInterval: choice.flushInterval,
		})
		return p, client, err
	default:
		return nil, nil, fmt.Errorf("unknown policy: %s", choice.name)
	}
}

func buildAdapter(ac adapterChoice) (adapter.Adapter, error) {
	switch ac.adapterType {
	case "webhook":
		return webhook.New(webhook.Config{
			URL:     ac.url,
			Headers: ac.headers,
			Timeout: ac.timeout,
			Retries: ac.retries,
		})
	case "redis":
		return redisadapter.New(redisadapter.Config{
			URL:     ac.url,
			Channel: ac.channel,
			Timeout: ac.timeout,
			Retries: ac.retries,
		})
	default:
		return nil, fmt.Errorf("unknown adapter type: %q", ac.adapterType)
	}
}

func notifyAdapter(ac adapterChoice, scriptID, runID, outcome string, duration time.Duration, snap metrics.Snapshot) {
	adpt, err := buildAdapter(ac)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: adapter creation failed: %v\n", err)
		return
	}
	defer func() { _ = adpt.Close() }()

	event := &adapter.WorkoutCompletedEvent{
		ScriptID:        scriptID,
		RunID:           runID,
		Outcome:         outcome,
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		DurationMs:      duration.Milliseconds(),
		RoundsCompleted: snap.RoundsCompleted,
		RepsLogged:      snap.RepsLogged,
	}

	ctx, cancel := context.WithTimeout(context.Background(), ac.timeout)
	defer cancel()
	if err := adpt.Publish(ctx, event); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: adapter notification failed: %v\n", err)
	}
}

func outcomeToExitCode(outcome string) int {
	switch outcome {
	case "completed":
		return exitSuccess
	case "aborted":
		return exitScriptError
	default:
		return exitRuntimeError
	}
}

func printSummary(snap metrics.Snapshot, duration time.Duration, choice policyChoice) {
	fmt.Printf("\nrun_id=%s, script_id=%s, duration=%s, policy=%s\n",
		snap.RunID, snap.ScriptID, duration.Round(time.Millisecond), choice.name)

	fmt.Printf("\n=== Workout Result ===\n")
	fmt.Printf("Started:    %d\n", snap.WorkoutsStarted)
	fmt.Printf("Completed:  %d\n", snap.WorkoutsCompleted)
	fmt.Printf("Aborted:    %d\n", snap.WorkoutsAborted)
	fmt.Printf("Rounds:     %d\n", snap.RoundsCompleted)
	fmt.Printf("Reps:       %d\n", snap.RepsLogged)
	fmt.Printf("Blocks:     pushed=%d disposed=%d\n", snap.BlocksPushed, snap.BlocksDisposed)
	fmt.Printf("Ticks:      %d\n", snap.TimerTicksObserved)

	fmt.Printf("\n=== History Writes ===\n")
	fmt.Printf("Succeeded:  %d\n", snap.HistoryWriteSuccess)
	fmt.Printf("Failed:     %d\n", snap.HistoryWriteFailure)
}

