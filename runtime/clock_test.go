package runtime

import "testing"

func TestClock_TickWhileStoppedIsNoop(t *testing.T) {
	c := NewClock()
	var got int64 = -1
	c.Register(func(elapsedMs int64) { got = elapsedMs })
	c.Tick(100)
	if got != -1 {
		t.Errorf("expected no tick while stopped, got %d", got)
	}
	if c.Elapsed() != 0 {
		t.Errorf("expected elapsed=0 while stopped, got %d", c.Elapsed())
	}
}

func TestClock_TickAccumulatesWhileRunning(t *testing.T) {
	c := NewClock()
	var got int64
	c.Register(func(elapsedMs int64) { got = elapsedMs })
	c.Start()
	c.Tick(100)
	c.Tick(100)
	if got != 200 {
		t.Errorf("got elapsed=%d, want 200", got)
	}
	if c.Elapsed() != 200 {
		t.Errorf("Elapsed() = %d, want 200", c.Elapsed())
	}
}

func TestClock_AtMostOneOpenSpan(t *testing.T) {
	c := NewClock()
	c.Start()
	c.Tick(100)
	c.Stop()
	c.Start()
	c.Tick(50)

	open := 0
	for _, s := range c.Spans() {
		if s.EndedMs == nil {
			open++
		}
	}
	if open != 1 {
		t.Errorf("got %d open spans, want exactly 1", open)
	}
}
