package main

import "log/slog"

// ============================================================================
// Script Dispatch Queue + Event Router
// ============================================================================
// Classified events resolve to script templates which are queued unrendered;
// rendering happens at drain time against the timestamp of the event that
// queued the entry. The queue is owned by the dispatch goroutine:
// enqueue calls come from classifier callbacks and the drain task is a
// reactor callback, so there is no locking and no two enqueues can race.
// ============================================================================

// queuedScript is one pending entry: the template plus the event that
// produced it, captured for the render context.
type queuedScript struct {
	template  *ScriptTemplate
	event     string
	eventtime float64
}

// scriptQueue serializes script execution in strict arrival order.
//
// Invariant: at most one drain task is in flight. The queue transitions
// empty -> non-empty exactly once per drain cycle, and only that transition
// schedules a drain.
type scriptQueue struct {
	scheduler callbackScheduler
	executor  GCodeExecutor
	logger    *slog.Logger

	pending []queuedScript
}

func newScriptQueue(scheduler callbackScheduler, executor GCodeExecutor, logger *slog.Logger) *scriptQueue {
	return &scriptQueue{
		scheduler: scheduler,
		executor:  executor,
		logger:    logger,
	}
}

// Enqueue appends an entry and schedules a drain if the queue was empty.
func (q *scriptQueue) Enqueue(tmpl *ScriptTemplate, event string, eventtime float64) {
	if len(q.pending) == 0 {
		q.scheduler.RegisterCallback(q.drain)
	}
	q.pending = append(q.pending, queuedScript{
		template:  tmpl,
		event:     event,
		eventtime: eventtime,
	})
}

// drain renders and executes queued entries head-first until the queue is
// empty. A render or execution failure is logged and the entry is skipped;
// later entries still run. The head entry is popped only after execution so
// the queue stays non-empty while a script runs and no second drain can be
// scheduled mid-execution.
func (q *scriptQueue) drain(_ float64) {
	for len(q.pending) > 0 {
		entry := q.pending[0]

		script, err := entry.template.Render(TemplateContext{
			Event:     entry.event,
			Eventtime: entry.eventtime,
		})
		if err != nil {
			q.logger.Error("script render failed", "event", entry.event, "error", err)
		} else if script != "" {
			if err := q.executor.RunScript(script); err != nil {
				q.logger.Error("script execution failed", "event", entry.event, "script", script, "error", err)
			}
		}

		q.pending = q.pending[1:]
	}
}

// eventRouter maps classified events to their configured script templates.
type eventRouter struct {
	scripts ScriptTable
	queue   *scriptQueue
	logger  *slog.Logger
}

func newEventRouter(scripts ScriptTable, queue *scriptQueue, logger *slog.Logger) *eventRouter {
	return &eventRouter{scripts: scripts, queue: queue, logger: logger}
}

// Dispatch enqueues the script configured for kind. Absent or empty
// templates are a no-op.
func (rt *eventRouter) Dispatch(kind EventKind, eventtime float64) {
	tmpl := rt.scripts[kind]
	if tmpl == nil || tmpl.Empty() {
		return
	}
	rt.logger.Debug("event", "kind", kind.String(), "eventtime", eventtime)
	rt.queue.Enqueue(tmpl, kind.String(), eventtime)
}
