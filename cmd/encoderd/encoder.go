package main

// Direction of a decoded encoder detent.
type Direction int

const (
	Clockwise Direction = iota
	CounterClockwise
)

func (d Direction) String() string {
	if d == Clockwise {
		return "cw"
	}
	return "ccw"
}

// rateDetector classifies consecutive same-direction detents as fast or
// normal. Each direction is tracked independently; there is no
// cross-direction state.
type rateDetector struct {
	fastRate float64 // seconds; deltas at or below this are "fast"
	emit     func(kind EventKind, eventtime float64)

	// Last event timestamps default to 0, so the very first detent after
	// startup is compared against time 0. On a host whose monotonic clock is
	// within fastRate of 0 that first event would classify as fast; accepted
	// boundary quirk, not worth special-casing.
	lastCW  float64
	lastCCW float64
}

func newRateDetector(fastRate float64, emit func(EventKind, float64)) *rateDetector {
	return &rateDetector{fastRate: fastRate, emit: emit}
}

// classify records a detent and returns its event kind. The last-seen
// timestamp is updated unconditionally, so only the second and later events
// of a rapid burst classify as fast, never the first.
func (d *rateDetector) classify(dir Direction, eventtime float64) EventKind {
	if dir == Clockwise {
		fast := eventtime-d.lastCW <= d.fastRate
		d.lastCW = eventtime
		if fast {
			return EventFastUp
		}
		return EventUp
	}

	fast := eventtime-d.lastCCW <= d.fastRate
	d.lastCCW = eventtime
	if fast {
		return EventFastDown
	}
	return EventDown
}

// onClockwise and onCounterClockwise are the detent callbacks registered
// with the quadrature decoder.
func (d *rateDetector) onClockwise(eventtime float64) {
	d.emit(d.classify(Clockwise, eventtime), eventtime)
}

func (d *rateDetector) onCounterClockwise(eventtime float64) {
	d.emit(d.classify(CounterClockwise, eventtime), eventtime)
}
