//go:build linux

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/warthog618/go-gpiocdev"
)

// watchPins requests every registered pin as an edge-triggered input and
// forwards level changes into the reactor. Edge timestamps come from the
// kernel (CLOCK_MONOTONIC), the same clock the reactor runs on, so
// classification sees hardware timing rather than delivery timing.
//
// Blocks until ctx is canceled; line requests are released on return.
func watchPins(ctx context.Context, pins []PinSpec, reactor *Reactor, mgr *pinManager, logger *slog.Logger) error {
	lines := make([]*gpiocdev.Line, 0, len(pins))
	defer func() {
		for _, l := range lines {
			l.Close()
		}
	}()

	for i, pin := range pins {
		index := i // captured by the handler

		opts := []gpiocdev.LineReqOption{
			gpiocdev.AsInput,
			gpiocdev.WithBothEdges,
			gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
				level := 0
				if evt.Type == gpiocdev.LineEventRisingEdge {
					level = 1
				}
				reactor.Push(evt.Timestamp.Seconds(), func(eventtime float64) {
					mgr.HandleEdge(index, level, eventtime)
				})
			}),
		}
		if pin.Pullup {
			opts = append(opts, gpiocdev.WithPullUp)
		}
		if pin.Invert {
			opts = append(opts, gpiocdev.AsActiveLow)
		}

		line, err := gpiocdev.RequestLine(pin.Chip, pin.Offset, opts...)
		if err != nil {
			return fmt.Errorf("request line %s: %w", pin, err)
		}
		lines = append(lines, line)
		logger.Debug("watching pin", "pin", pin.String(), "pullup", pin.Pullup, "invert", pin.Invert)
	}

	<-ctx.Done()
	return nil
}
