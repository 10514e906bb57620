//go:build linux

package main

import "golang.org/x/sys/unix"

// monotonic returns CLOCK_MONOTONIC in seconds. GPIO line events are stamped
// with the same kernel clock, so edge timestamps compare directly against
// reactor waketimes.
func monotonic() float64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return float64(ts.Sec) + float64(ts.Nsec)/1e9
}
