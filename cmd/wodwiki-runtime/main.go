// Package main provides the wodwiki-runtime embedding-boundary host.
//
// An embedding host (an editor plugin, a remote UI) launches this binary
// once per script, writes length-prefixed RuntimeCommand frames to its
// stdin, and reads length-prefixed Snapshot frames back from its stdout —
// the same msgpack framing as the ipc package's in-process test helpers,
// just carried over a pipe instead of a function call. The VM itself never
// runs in a subprocess; this binary exists for hosts that cannot link Go
// code directly.
//
// Usage:
//
//	wodwiki-runtime -script <path> [-run-id <id>]
//
// Exit codes:
//   - 0: stdin closed cleanly (host ended the session)
//   - 1: script error (parse/compile failure)
//   - 2: runtime error or frame protocol error
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/wod-wiki/wodwiki/block"
	"github.com/wod-wiki/wodwiki/compiler"
	"github.com/wod-wiki/wodwiki/display"
	"github.com/wod-wiki/wodwiki/ipc"
	"github.com/wod-wiki/wodwiki/parser"
	"github.com/wod-wiki/wodwiki/runtime"
	"github.com/wod-wiki/wodwiki/types"
)

const (
	exitSuccess      = 0
	exitScriptError  = 1
	exitRuntimeError = 2
)

func main() {
	app := &cli.App{
		Name:  "wodwiki-runtime",
		Usage: "Headless embedding-boundary host: RuntimeCommand frames in, Snapshot frames out",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "script", Usage: "Path to workout script file", Required: true},
			&cli.StringFlag{Name: "run-id", Usage: "Run ID (for logging only; not persisted by this host)"},
		},
		Action: runAction,
	}

	if err := app.Run(os.Args); err != nil {
		var exitCoder cli.ExitCoder
		if errors.As(err, &exitCoder) {
			if msg := exitCoder.Error(); msg != "" {
				fmt.Fprintln(os.Stderr, msg)
			}
			os.Exit(exitCoder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitRuntimeError)
	}
}

func runAction(c *cli.Context) error {
	scriptText, err := os.ReadFile(c.String("script"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("cannot read script %q: %v", c.String("script"), err), exitScriptError)
	}

	root, rt, err := compileScript(string(scriptText))
	if err != nil {
		return cli.Exit(fmt.Sprintf("compile failed: %v", err), exitScriptError)
	}
	rt.PushAndMount(root)

	hub := display.NewHub(rt)
	defer hub.Close()

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	hub.OnChange(func(snap display.Snapshot) {
		writeSnapshot(out, snap)
	})
	// Emit the initial idle snapshot before any command arrives, so the
	// host always has something to render.
	writeSnapshot(out, hub.Snapshot())

	return serve(os.Stdin, out, rt)
}

// compileScript parses and compiles a script's top-level statements into a
// single root block under a fresh Runtime, mirroring cli/cmd's run.go.
func compileScript(text string) (*block.Block, *runtime.Runtime, error) {
	script := parser.Parse(text)
	if len(script.Roots()) == 0 {
		return nil, nil, fmt.Errorf("script contains no statements")
	}

	rt := runtime.New()
	rootIDs := make([]types.StatementID, 0, len(script.Roots()))
	for _, s := range script.Roots() {
		rootIDs = append(rootIDs, s.ID)
	}

	comp := compiler.New(script)
	root, err := comp.Compile(rootIDs, rt, types.CompilationContext{})
	if err != nil {
		return nil, nil, err
	}
	return root, rt, nil
}

// serve drains RuntimeCommand frames from r until EOF or a fatal frame
// error, dispatching each through display.Dispatch. Snapshots are pushed
// via the Hub's OnChange callback (registered by the caller), not here.
func serve(r io.Reader, w *bufio.Writer, rt *runtime.Runtime) error {
	dec := ipc.NewFrameDecoder(r)
	for {
		payload, err := dec.ReadFrame()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return cli.Exit(fmt.Sprintf("frame read failed: %v", err), exitRuntimeError)
		}

		cmd, err := ipc.DecodeCommand(payload)
		if err != nil {
			return cli.Exit(fmt.Sprintf("frame decode failed: %v", err), exitRuntimeError)
		}

		if err := display.Dispatch(rt, *cmd); err != nil {
			fmt.Fprintf(os.Stderr, "dispatch error for command %q: %v\n", cmd.Type, err)
		}
	}
}

func writeSnapshot(w *bufio.Writer, snap display.Snapshot) {
	frame, err := ipc.EncodeSnapshot(snap)
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode snapshot failed: %v\n", err)
		return
	}
	if _, err := w.Write(frame); err != nil {
		fmt.Fprintf(os.Stderr, "write snapshot failed: %v\n", err)
		return
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "flush snapshot failed: %v\n", err)
	}
}
