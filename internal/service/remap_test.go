package service

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemapSchedulerCoalescesBurst(t *testing.T) {
	t.Parallel()

	q := &TurnQueue{}
	var ran []uint64
	s := NewRemapScheduler(q, func(tok uint64) { ran = append(ran, tok) }, zerolog.Nop())

	var last uint64
	for i := 0; i < 10; i++ {
		last = s.Trigger()
	}
	require.Equal(t, 10, q.Pending())

	q.RunTurn()
	assert.Equal(t, []uint64{last}, ran)
	assert.Equal(t, uint64(1), s.Applied())
}

func TestRemapSchedulerReversedOrderAppliesOnlyLatest(t *testing.T) {
	t.Parallel()

	q := &TurnQueue{}
	var ran []uint64
	s := NewRemapScheduler(q, func(tok uint64) { ran = append(ran, tok) }, zerolog.Nop())

	s.Trigger()
	s.Trigger()
	last := s.Trigger()

	q.RunTurnReversed()
	assert.Equal(t, []uint64{last}, ran)
}

func TestRemapSchedulerFlushSupersedesPending(t *testing.T) {
	t.Parallel()

	q := &TurnQueue{}
	var ran []uint64
	s := NewRemapScheduler(q, func(tok uint64) { ran = append(ran, tok) }, zerolog.Nop())

	s.Trigger()
	flushed := s.Flush()
	require.Equal(t, []uint64{flushed}, ran)

	q.RunTurn()
	assert.Equal(t, []uint64{flushed}, ran, "deferred task should be stale after flush")
}

func TestRemapSchedulerStopDropsPending(t *testing.T) {
	t.Parallel()

	q := &TurnQueue{}
	calls := 0
	s := NewRemapScheduler(q, func(uint64) { calls++ }, zerolog.Nop())

	s.Trigger()
	s.Stop()
	q.RunTurn()
	assert.Zero(t, calls)
}

func TestRemapSchedulerTriggerDuringRecomputeRunsAgain(t *testing.T) {
	t.Parallel()

	q := &TurnQueue{}
	var ran []uint64
	var s *RemapScheduler
	s = NewRemapScheduler(q, func(tok uint64) {
		ran = append(ran, tok)
		if len(ran) == 1 {
			s.Trigger()
		}
	}, zerolog.Nop())

	s.Trigger()
	require.Equal(t, 1, q.RunTurn())
	require.Len(t, ran, 1)
	require.Equal(t, 1, q.Pending())
	q.RunTurn()
	assert.Len(t, ran, 2)
}

func TestRemapSchedulerAfterFuncSerializesRecomputes(t *testing.T) {
	t.Parallel()

	var active, maxActive atomic.Int32
	var wg sync.WaitGroup
	wg.Add(1)
	var once sync.Once
	var s *RemapScheduler
	s = NewRemapScheduler(AfterFuncDeferrer{Delay: 5 * time.Millisecond}, func(tok uint64) {
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		active.Add(-1)
		if tok == s.Token() {
			once.Do(wg.Done)
		}
	}, zerolog.Nop())

	for i := 0; i < 50; i++ {
		s.Trigger()
	}
	wg.Wait()
	assert.LessOrEqual(t, maxActive.Load(), int32(1))
	assert.GreaterOrEqual(t, s.Applied(), uint64(1))
}

type versioned uint64

func (v versioned) Version() uint64 { return uint64(v) }

func TestObservableRejectsStalePublish(t *testing.T) {
	t.Parallel()

	o := NewObservable[versioned]()
	_, ok := o.Current()
	require.False(t, ok)

	var seen []versioned
	unsubscribe := o.Subscribe(func(v versioned) { seen = append(seen, v) })

	assert.True(t, o.Publish(3))
	assert.False(t, o.Publish(2), "older generation must not replace newer")
	assert.False(t, o.Publish(3), "same generation is not newer")
	assert.True(t, o.Publish(5))

	cur, ok := o.Current()
	require.True(t, ok)
	assert.Equal(t, versioned(5), cur)
	assert.Equal(t, []versioned{3, 5}, seen)

	unsubscribe()
	o.Publish(8)
	assert.Len(t, seen, 2)
}

func TestTodayCacheIsMonotonicWithinDay(t *testing.T) {
	t.Parallel()

	c := NewTodayCache()
	day := testEnd
	assert.Equal(t, 1200.0, c.Observe("steps", day, 1200))
	assert.Equal(t, 1200.0, c.Observe("steps", day, 900), "partial read must not lower the value")
	assert.Equal(t, 3000.0, c.Observe("steps", day, 3000))
	assert.Equal(t, 40.0, c.Observe("carbs", day, 40))
	assert.Zero(t, c.Observe("fat", day, -5))

	next := day.AddDays(1)
	assert.Equal(t, 100.0, c.Observe("steps", next, 100), "new day resets the cache")
	assert.Equal(t, 5.0, c.Observe("carbs", next, 5))
	assert.Equal(t, next, c.Day())
}

func TestResolveDateIgnoresSign(t *testing.T) {
	t.Parallel()

	assert.Equal(t, testEnd, ResolveDate(0, testEnd))
	assert.Equal(t, testEnd.AddDays(-2), ResolveDate(-2, testEnd))
	assert.Equal(t, testEnd.AddDays(-2), ResolveDate(2, testEnd))
	assert.Equal(t, DayContextToday, DayContextFor(0))
	assert.Equal(t, DayContextYesterday, DayContextFor(-1))
	assert.Equal(t, DayContextDayBefore, DayContextFor(-2))
	assert.Equal(t, DayContextDayBefore, DayContextFor(-9))
	assert.Equal(t, -3, ClampOffset(3))
	assert.Equal(t, -1, ClampOffset(-1))
}
