package main

import (
	"bufio"
	"bytes"
	"io"
	"testing"

	"github.com/wod-wiki/wodwiki/display"
	"github.com/wod-wiki/wodwiki/ipc"
	"github.com/wod-wiki/wodwiki/types"
)

func TestCompileScript_Valid(t *testing.T) {
	root, rt, err := compileScript("Fran\n21-15-9\nThrusters\nPull-ups\n")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if root == nil {
		t.Fatal("expected non-nil root block")
	}
	if rt == nil {
		t.Fatal("expected non-nil runtime")
	}
}

func TestCompileScript_Empty(t *testing.T) {
	_, _, err := compileScript("")
	if err == nil {
		t.Fatal("expected error for empty script")
	}
}

func TestServe_EmptyStreamEndsCleanly(t *testing.T) {
	_, rt, err := compileScript("Fran\n21-15-9\nThrusters\nPull-ups\n")
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	var out bytes.Buffer
	w := bufio.NewWriter(&out)

	if err := serve(bytes.NewReader(nil), w, rt); err != nil {
		t.Errorf("expected clean EOF, got %v", err)
	}
}

func TestServe_DispatchesStartCommand(t *testing.T) {
	_, rt, err := compileScript("Fran\n21-15-9\nThrusters\nPull-ups\n")
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	cmd := &types.RuntimeCommand{Type: types.CommandStart}
	frame, err := ipc.EncodeCommand(cmd)
	if err != nil {
		t.Fatalf("encode command: %v", err)
	}

	var out bytes.Buffer
	w := bufio.NewWriter(&out)

	if err := serve(bytes.NewReader(frame), w, rt); err != nil {
		t.Errorf("expected clean EOF after one command, got %v", err)
	}
	if !rt.Clock.IsRunning() {
		t.Error("expected clock to be running after CommandStart")
	}
}

func TestServe_TruncatedFrameIsFatal(t *testing.T) {
	_, rt, err := compileScript("Fran\n21-15-9\nThrusters\nPull-ups\n")
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	// A length prefix claiming 100 bytes of payload but with none supplied.
	truncated := []byte{0, 0, 0, 100}

	var out bytes.Buffer
	w := bufio.NewWriter(&out)

	if err := serve(bytes.NewReader(truncated), w, rt); err == nil {
		t.Error("expected error for truncated frame")
	}
}

func TestWriteSnapshot_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	snap := display.Snapshot{WorkoutState: display.WorkoutIdle}
	writeSnapshot(w, snap)

	dec := ipc.NewFrameDecoder(&buf)
	payload, err := dec.ReadFrame()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	got, err := ipc.DecodeSnapshot(payload)
	if err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if got.WorkoutState != display.WorkoutIdle {
		t.Errorf("got state %v, want %v", got.WorkoutState, display.WorkoutIdle)
	}

	if _, err := dec.ReadFrame(); err != io.EOF {
		t.Errorf("expected EOF after single frame, got %v", err)
	}
}
