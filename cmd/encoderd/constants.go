package main

// Button/encoder timing defaults.
//
// Two historical firmware builds used 0.800s and 0.400s for the double-click
// window; the shorter value keeps single clicks responsive and is the default
// here. Both the long-press and double-click durations are configurable.
const (
	defaultLongPressDuration   = 1.500 // seconds a press must be held to count as a long click
	defaultDoubleClickDuration = 0.400 // seconds after a release to wait for a second press

	defaultEncoderFastRate       = 0.030 // seconds between detents below which rotation is "fast"
	defaultEncoderStepsPerDetent = 4

	// Reserved input range knobs. Parsed and validated but not consumed by
	// any classification logic; kept for config compatibility.
	defaultInputMin  = 0.0
	defaultInputMax  = 1.0
	defaultInputStep = 0.01
)

// Moonraker / IPC defaults.
const (
	defaultMoonrakerWsURL = "ws://127.0.0.1:7125/websocket"
	defaultReadTimeoutMS  = 500 // timeout for reading websocket responses (ms)

	defaultIPCSocketPath = "/tmp/encoderd.sock"
)
