package service

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ecology747-sudo/gluvib/internal/metrics"
)

// Deferrer queues fn to run later and returns a function that cancels it.
// Cancellation may be best effort: a cancelled fn can still run.
type Deferrer interface {
	Defer(fn func()) (cancel func())
}

// AfterFuncDeferrer runs deferred work on its own goroutine after Delay.
type AfterFuncDeferrer struct {
	Delay time.Duration
}

func (d AfterFuncDeferrer) Defer(fn func()) func() {
	t := time.AfterFunc(d.Delay, fn)
	return func() { t.Stop() }
}

// TurnQueue is a cooperative deferrer for hosts with their own event loop:
// tasks queued during a turn run when the host calls RunTurn. Cancelled
// tasks still run and are expected to notice they are stale.
type TurnQueue struct {
	mu    sync.Mutex
	tasks []func()
}

func (q *TurnQueue) Defer(fn func()) func() {
	q.mu.Lock()
	q.tasks = append(q.tasks, fn)
	q.mu.Unlock()
	return func() {}
}

// RunTurn runs the tasks queued so far and returns how many ran. Tasks
// queued while running wait for the next turn.
func (q *TurnQueue) RunTurn() int {
	q.mu.Lock()
	tasks := q.tasks
	q.tasks = nil
	q.mu.Unlock()
	for _, fn := range tasks {
		fn()
	}
	return len(tasks)
}

// RunTurnReversed runs the queued tasks newest first, the worst ordering a
// scheduler can produce.
func (q *TurnQueue) RunTurnReversed() int {
	q.mu.Lock()
	tasks := q.tasks
	q.tasks = nil
	q.mu.Unlock()
	for i := len(tasks) - 1; i >= 0; i-- {
		tasks[i]()
	}
	return len(tasks)
}

func (q *TurnQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// RemapScheduler coalesces bursts of change notifications into one
// recomputation. Only the task holding the latest token recomputes.
type RemapScheduler struct {
	deferrer  Deferrer
	recompute func(token uint64)
	log       zerolog.Logger

	token   atomic.Uint64
	applied atomic.Uint64

	mu     sync.Mutex
	cancel func()

	runMu sync.Mutex
}

func NewRemapScheduler(d Deferrer, recompute func(token uint64), log zerolog.Logger) *RemapScheduler {
	if d == nil {
		d = AfterFuncDeferrer{}
	}
	return &RemapScheduler{deferrer: d, recompute: recompute, log: log}
}

// Trigger schedules a deferred recomputation, superseding any pending one.
func (s *RemapScheduler) Trigger() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	tok := s.token.Add(1)
	s.cancel = s.deferrer.Defer(func() { s.run(tok) })
	metrics.RemapTriggers.WithLabelValues("deferred").Inc()
	s.log.Debug().Uint64("token", tok).Msg("remap scheduled")
	return tok
}

// Flush supersedes any pending task and recomputes on the calling goroutine.
func (s *RemapScheduler) Flush() uint64 {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	tok := s.token.Add(1)
	s.mu.Unlock()
	metrics.RemapTriggers.WithLabelValues("flush").Inc()
	s.run(tok)
	return tok
}

// Stop cancels pending work; later tasks see a newer token and do nothing.
func (s *RemapScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.token.Add(1)
}

func (s *RemapScheduler) run(tok uint64) {
	if tok != s.token.Load() {
		s.superseded(tok)
		return
	}
	s.runMu.Lock()
	defer s.runMu.Unlock()
	// A newer token may have been issued while waiting for the previous run.
	if tok != s.token.Load() {
		s.superseded(tok)
		return
	}
	s.recompute(tok)
	s.applied.Add(1)
	metrics.RemapApplied.Inc()
}

func (s *RemapScheduler) superseded(tok uint64) {
	metrics.RemapSuperseded.Inc()
	s.log.Debug().Uint64("token", tok).Uint64("latest", s.token.Load()).Msg("remap superseded")
}

func (s *RemapScheduler) Token() uint64 { return s.token.Load() }

// Applied is the number of recomputations that ran.
func (s *RemapScheduler) Applied() uint64 { return s.applied.Load() }
