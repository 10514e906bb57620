package main

// ============================================================================
// Click Classifier
// ============================================================================
// Turns a stream of press/release edges into click, double_click and
// long_click events using two reactor timers.
//
// Policy (pinned by tests in click_test.go):
//   - A short press does not emit immediately; it opens a double-click
//     window. If the window expires quietly, a single `click` is emitted.
//   - A second press inside the window cancels the pending single click;
//     its release emits `double_click`.
//   - Holding any press past the long-press duration emits `long_click`
//     and the eventual release is ignored.
// At most one terminal event is emitted per press cycle. Both timers are
// rearmed to Never on every terminal classification so no stale firing can
// land in a reset state.
// ============================================================================

type clickState int

const (
	clickIdle        clickState = iota
	clickFirstDown              // first press held, long-press timer armed
	clickWaitSecond             // released short, double-click window open
	clickSecondDown             // second press held, long-press timer armed
	clickLongFired              // long_click emitted, awaiting ignored release
)

// clickClassifier is single-threaded: all methods run on the dispatch
// goroutine, either from pin-edge delivery or from timer callbacks.
type clickClassifier struct {
	timers timerHost
	emit   func(kind EventKind, eventtime float64)

	longPressDuration   float64
	doubleClickDuration float64

	state       clickState
	longTimer   *Timer
	doubleTimer *Timer
}

func newClickClassifier(timers timerHost, longPress, doubleClick float64, emit func(EventKind, float64)) *clickClassifier {
	c := &clickClassifier{
		timers:              timers,
		emit:                emit,
		longPressDuration:   longPress,
		doubleClickDuration: doubleClick,
	}
	c.longTimer = timers.RegisterTimer(c.longPressFired)
	c.doubleTimer = timers.RegisterTimer(c.doubleWindowExpired)
	return c
}

// onButton is the edge callback registered with the input driver.
func (c *clickClassifier) onButton(eventtime float64, pressed bool) {
	if pressed {
		c.onPress(eventtime)
	} else {
		c.onRelease(eventtime)
	}
}

func (c *clickClassifier) onPress(eventtime float64) {
	switch c.state {
	case clickIdle:
		c.state = clickFirstDown
		c.timers.UpdateTimer(c.longTimer, eventtime+c.longPressDuration)

	case clickWaitSecond:
		// Second press inside the window: the pending single click is off
		// the table, this press resolves to double_click or long_click.
		c.state = clickSecondDown
		c.timers.UpdateTimer(c.doubleTimer, Never)
		c.timers.UpdateTimer(c.longTimer, eventtime+c.longPressDuration)

	default:
		// Duplicate press edge without an intervening release; ignore.
	}
}

func (c *clickClassifier) onRelease(eventtime float64) {
	switch c.state {
	case clickFirstDown:
		// Short press: hold the click until the double-click window closes.
		c.state = clickWaitSecond
		c.timers.UpdateTimer(c.longTimer, Never)
		c.timers.UpdateTimer(c.doubleTimer, eventtime+c.doubleClickDuration)

	case clickSecondDown:
		c.reset()
		c.emit(EventDoubleClick, eventtime)

	case clickLongFired:
		// Release after a long click carries no event.
		c.state = clickIdle

	default:
		// Release without a tracked press (e.g. pressed before startup).
	}
}

// longPressFired is the long-press timer callback.
func (c *clickClassifier) longPressFired(eventtime float64) float64 {
	if c.state == clickFirstDown || c.state == clickSecondDown {
		c.timers.UpdateTimer(c.doubleTimer, Never)
		c.state = clickLongFired
		c.emit(EventLongClick, eventtime)
	}
	return Never
}

// doubleWindowExpired is the double-click window timer callback.
func (c *clickClassifier) doubleWindowExpired(eventtime float64) float64 {
	if c.state == clickWaitSecond {
		c.state = clickIdle
		c.emit(EventClick, eventtime)
	}
	return Never
}

// reset cancels both timers and returns to idle.
func (c *clickClassifier) reset() {
	c.state = clickIdle
	c.timers.UpdateTimer(c.longTimer, Never)
	c.timers.UpdateTimer(c.doubleTimer, Never)
}
