//go:build !linux

package main

import "time"

var clockEpoch = time.Now()

// monotonic returns seconds since process start. Non-Linux builds have no
// GPIO input, so an arbitrary epoch is fine; only deltas matter.
func monotonic() float64 {
	return time.Since(clockEpoch).Seconds()
}
