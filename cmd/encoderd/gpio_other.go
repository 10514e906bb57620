//go:build !linux

package main

import (
	"context"
	"errors"
	"log/slog"
)

// GPIO character devices only exist on Linux. Other platforms can still run
// the daemon with IPC event injection, just not with hardware pins.
func watchPins(ctx context.Context, pins []PinSpec, reactor *Reactor, mgr *pinManager, logger *slog.Logger) error {
	return errors.New("gpio input requires linux")
}
