// Package metrics provides lightweight, lock-free counters for tracking
// what happened while bindwrap supervised a worker.
//
// All methods are safe for concurrent use.  A nil *Collector is a valid
// no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// Collector tracks supervision statistics for one worker lifetime.
type Collector struct {
	signalsTotal     atomic.Int64
	terminations     atomic.Int64 // SIGTERM received
	interrupts       atomic.Int64 // SIGINT or SIGHUP received
	childEvents      atomic.Int64 // SIGCHLD received
	signalsForwarded atomic.Int64
	spuriousWakes    atomic.Int64
	errorsTotal      atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	spawnTime    time.Time
	reapTime     time.Time
	workerPid    int
	exitCode     int
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now(), exitCode: -1}
}

// ── Signal metrics ───────────────────────────────────────────────────

// SignalReceived counts one signal taken from the event source.
func (c *Collector) SignalReceived(sig syscall.Signal) {
	if c == nil {
		return
	}
	c.signalsTotal.Add(1)
	switch sig {
	case syscall.SIGTERM:
		c.terminations.Add(1)
	case syscall.SIGINT, syscall.SIGHUP:
		c.interrupts.Add(1)
	case syscall.SIGCHLD:
		c.childEvents.Add(1)
	}
}

// SignalForwarded counts a signal passed on to the worker.
func (c *Collector) SignalForwarded() {
	if c == nil {
		return
	}
	c.signalsForwarded.Add(1)
}

// SpuriousWake counts a SIGCHLD that found no reapable worker.
func (c *Collector) SpuriousWake() {
	if c == nil {
		return
	}
	c.spuriousWakes.Add(1)
}

// SignalsForwarded returns the number of forwarded signals.
func (c *Collector) SignalsForwarded() int64 {
	if c == nil {
		return 0
	}
	return c.signalsForwarded.Load()
}

// SpuriousWakes returns the number of SIGCHLDs with nothing to reap.
func (c *Collector) SpuriousWakes() int64 {
	if c == nil {
		return 0
	}
	return c.spuriousWakes.Load()
}

// SignalsTotal returns every signal taken from the event source.
func (c *Collector) SignalsTotal() int64 {
	if c == nil {
		return 0
	}
	return c.signalsTotal.Load()
}

// ── Worker lifecycle ─────────────────────────────────────────────────

// WorkerStarted records the worker's pid and spawn time.
func (c *Collector) WorkerStarted(pid int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.workerPid = pid
	c.spawnTime = time.Now()
	c.mu.Unlock()
}

// WorkerReaped records the exit code reported for the worker.
func (c *Collector) WorkerReaped(code int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.exitCode = code
	c.reapTime = time.Now()
	c.mu.Unlock()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string `json:"uptime"`
	WorkerPid        int    `json:"worker_pid,omitempty"`
	WorkerRuntime    string `json:"worker_runtime,omitempty"`
	ExitCode         int    `json:"exit_code"`
	SignalsTotal     int64  `json:"signals_total"`
	Terminations     int64  `json:"terminations"`
	Interrupts       int64  `json:"interrupts"`
	ChildEvents      int64  `json:"child_events"`
	SignalsForwarded int64  `json:"signals_forwarded"`
	SpuriousWakes    int64  `json:"spurious_wakes"`
	ErrorsTotal      int64  `json:"errors_total"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{ExitCode: -1}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:           time.Since(c.startTime).Truncate(time.Millisecond).String(),
		WorkerPid:        c.workerPid,
		ExitCode:         c.exitCode,
		SignalsTotal:     c.signalsTotal.Load(),
		Terminations:     c.terminations.Load(),
		Interrupts:       c.interrupts.Load(),
		ChildEvents:      c.childEvents.Load(),
		SignalsForwarded: c.signalsForwarded.Load(),
		SpuriousWakes:    c.spuriousWakes.Load(),
		ErrorsTotal:      c.errorsTotal.Load(),
		LastErrorMessage: c.lastErrorMsg,
	}
	if !c.spawnTime.IsZero() {
		end := c.reapTime
		if end.IsZero() {
			end = time.Now()
		}
		s.WorkerRuntime = end.Sub(c.spawnTime).Truncate(time.Millisecond).String()
	}
	return s
}

// JSON returns the snapshot as a single-line JSON string.
func (c *Collector) JSON() string {
	data, _ := json.Marshal(c.Snapshot())
	return string(data)
}
