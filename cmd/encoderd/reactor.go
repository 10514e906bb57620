package main

import (
	"context"
	"log/slog"
	"math"
	"time"
)

// ============================================================================
// Reactor - Single-Threaded Dispatch Loop
// ============================================================================
// All timer firings, input-edge deliveries, and queued callbacks run on one
// goroutine. Classifier state and the script queue therefore need no locking;
// the only synchronization point is the inbound event channel.
//
// Timekeeping is monotonic seconds (float64). GPIO edge events carry kernel
// CLOCK_MONOTONIC timestamps, and Now() reads the same clock, so hardware
// timestamps and timer waketimes share one timebase.
// ============================================================================

// Never is the waketime sentinel for a timer that should not fire.
// Rearming a timer to Never is the only cancellation primitive.
const Never = math.MaxFloat64

// timerCallback runs when a timer fires and returns the timer's next
// waketime, or Never to leave it dormant.
type timerCallback func(eventtime float64) float64

// Timer is an owned handle to a reactor timer. Arm and cancel it with
// Reactor.UpdateTimer.
type Timer struct {
	callback timerCallback
	waketime float64
}

// timerHost is the subset of the reactor the classifiers schedule against.
// Split out so tests can drive timers by hand.
type timerHost interface {
	RegisterTimer(cb timerCallback) *Timer
	UpdateTimer(t *Timer, waketime float64)
}

// callbackScheduler queues a one-shot callback onto the dispatch goroutine.
// The script queue uses this to schedule its drain task.
type callbackScheduler interface {
	RegisterCallback(cb func(eventtime float64))
}

// pushedEvent is an externally produced event awaiting dispatch.
type pushedEvent struct {
	eventtime float64 // 0 means "stamp with Now at delivery"
	cb        func(eventtime float64)
}

// Reactor owns the dispatch goroutine.
//
// RegisterTimer, UpdateTimer and RegisterCallback must only be called before
// Run or from callbacks already running on the dispatch goroutine. Other
// goroutines hand work in through Push.
type Reactor struct {
	logger *slog.Logger

	timers    []*Timer
	callbacks []func(eventtime float64)

	events chan pushedEvent
}

// NewReactor constructs a reactor. Call Run to start dispatching.
func NewReactor(logger *slog.Logger) *Reactor {
	return &Reactor{
		logger: logger,
		events: make(chan pushedEvent, 64),
	}
}

// Now returns the current monotonic time in seconds.
func (r *Reactor) Now() float64 {
	return monotonic()
}

// RegisterTimer creates a dormant timer for cb. Arm it with UpdateTimer.
func (r *Reactor) RegisterTimer(cb timerCallback) *Timer {
	t := &Timer{callback: cb, waketime: Never}
	r.timers = append(r.timers, t)
	return t
}

// UpdateTimer reschedules t to fire at the absolute waketime, or cancels it
// when waketime is Never.
func (r *Reactor) UpdateTimer(t *Timer, waketime float64) {
	t.waketime = waketime
}

// RegisterCallback queues cb to run on the dispatch goroutine after the
// current callback completes. Callbacks run in registration order.
func (r *Reactor) RegisterCallback(cb func(eventtime float64)) {
	r.callbacks = append(r.callbacks, cb)
}

// Push hands an event to the dispatch goroutine from any other goroutine.
// cb runs with the supplied eventtime, or with Now at delivery when
// eventtime is 0. Blocks if the reactor is saturated.
func (r *Reactor) Push(eventtime float64, cb func(eventtime float64)) {
	r.events <- pushedEvent{eventtime: eventtime, cb: cb}
}

// checkTimers fires every due timer and returns the next pending waketime.
func (r *Reactor) checkTimers(eventtime float64) float64 {
	next := Never
	for _, t := range r.timers {
		if t.waketime <= eventtime {
			t.waketime = Never
			t.waketime = t.callback(eventtime)
		}
		if t.waketime < next {
			next = t.waketime
		}
	}
	return next
}

// runCallbacks drains the pending one-shot callback queue. Callbacks may
// register further callbacks; those run in the same drain.
func (r *Reactor) runCallbacks() {
	for len(r.callbacks) > 0 {
		cb := r.callbacks[0]
		r.callbacks = r.callbacks[1:]
		cb(r.Now())
	}
}

// Run dispatches until ctx is canceled. It must be the only goroutine
// touching reactor-owned state once started.
func (r *Reactor) Run(ctx context.Context) error {
	wait := time.NewTimer(time.Hour)
	defer wait.Stop()

	for {
		r.runCallbacks()
		next := r.checkTimers(r.Now())
		r.runCallbacks()

		if !wait.Stop() {
			select {
			case <-wait.C:
			default:
			}
		}
		if next != Never {
			d := time.Duration((next - r.Now()) * float64(time.Second))
			if d < 0 {
				d = 0
			}
			wait.Reset(d)
		} else {
			// Nothing scheduled; sleep until an event arrives.
			wait.Reset(time.Hour)
		}

		select {
		case <-ctx.Done():
			r.logger.Debug("reactor stopping", "reason", ctx.Err())
			return nil

		case ev := <-r.events:
			eventtime := ev.eventtime
			if eventtime == 0 {
				eventtime = r.Now()
			}
			ev.cb(eventtime)

		case <-wait.C:
			// Loop re-checks timers.
		}
	}
}
