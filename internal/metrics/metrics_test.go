package metrics

import (
	"encoding/json"
	"sync"
	"syscall"
	"testing"
)

func TestCollector_Signals(t *testing.T) {
	c := New()

	c.SignalReceived(syscall.SIGTERM)
	c.SignalReceived(syscall.SIGTERM)
	c.SignalReceived(syscall.SIGHUP)
	c.SignalReceived(syscall.SIGINT)
	c.SignalReceived(syscall.SIGCHLD)
	c.SignalForwarded()
	c.SignalForwarded()
	c.SpuriousWake()

	s := c.Snapshot()
	if s.SignalsTotal != 5 {
		t.Errorf("signals = %d, want 5", s.SignalsTotal)
	}
	if s.Terminations != 2 || s.Interrupts != 2 || s.ChildEvents != 1 {
		t.Errorf("breakdown = %d/%d/%d, want 2/2/1", s.Terminations, s.Interrupts, s.ChildEvents)
	}
	if c.SignalsForwarded() != 2 {
		t.Errorf("forwarded = %d, want 2", c.SignalsForwarded())
	}
	if c.SpuriousWakes() != 1 {
		t.Errorf("spurious = %d, want 1", c.SpuriousWakes())
	}
}

func TestCollector_WorkerLifecycle(t *testing.T) {
	c := New()
	if got := c.Snapshot().ExitCode; got != -1 {
		t.Errorf("exit code before reap = %d, want -1", got)
	}

	c.WorkerStarted(4242)
	c.WorkerReaped(7)

	s := c.Snapshot()
	if s.WorkerPid != 4242 || s.ExitCode != 7 {
		t.Errorf("pid=%d exit=%d, want 4242/7", s.WorkerPid, s.ExitCode)
	}
	if s.WorkerRuntime == "" {
		t.Error("worker runtime should be set once spawned")
	}
}

func TestCollector_Errors(t *testing.T) {
	c := New()

	c.RecordError("first error")
	c.RecordError("second error")

	if c.ErrorCount() != 2 {
		t.Errorf("errors = %d, want 2", c.ErrorCount())
	}
	if got := c.Snapshot().LastErrorMessage; got != "second error" {
		t.Errorf("last error = %q", got)
	}
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector

	c.SignalReceived(syscall.SIGTERM)
	c.SignalForwarded()
	c.SpuriousWake()
	c.WorkerStarted(1)
	c.WorkerReaped(0)
	c.RecordError("x")

	if c.SignalsTotal() != 0 || c.ErrorCount() != 0 {
		t.Error("nil collector should report zero")
	}
	if c.Snapshot().ExitCode != -1 {
		t.Error("nil snapshot should have exit code -1")
	}
}

func TestCollector_JSON(t *testing.T) {
	c := New()
	c.SignalReceived(syscall.SIGCHLD)
	c.WorkerReaped(3)

	var s Snapshot
	if err := json.Unmarshal([]byte(c.JSON()), &s); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if s.ChildEvents != 1 || s.ExitCode != 3 {
		t.Errorf("decoded %+v", s)
	}
}

func TestCollector_Concurrent(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.SignalReceived(syscall.SIGTERM)
			c.SignalForwarded()
		}()
	}
	wg.Wait()
	if c.SignalsForwarded() != 50 {
		t.Errorf("forwarded = %d, want 50", c.SignalsForwarded())
	}
}
