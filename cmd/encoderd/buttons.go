package main

import (
	"fmt"
	"strconv"
	"strings"
)

// ============================================================================
// Input Driver - Pins and Quadrature Decoding
// ============================================================================
// The GPIO watcher (gpio.go) delivers per-line edge events into the reactor;
// this layer tracks combined pin state per registered group and decodes
// quadrature transitions into cw/ccw detent callbacks.
// ============================================================================

const defaultGpioChip = "gpiochip0"

// PinSpec is one parsed pin reference. Syntax follows printer firmware
// conventions: optional ^ (pull-up) and ! (invert) prefixes, then
// "chip:offset" or a bare line offset on the default chip.
type PinSpec struct {
	Chip   string
	Offset int
	Pullup bool
	Invert bool
}

func (p PinSpec) String() string {
	return fmt.Sprintf("%s:%d", p.Chip, p.Offset)
}

// parsePin parses a single pin reference.
func parsePin(s string) (PinSpec, error) {
	spec := PinSpec{Chip: defaultGpioChip}

	raw := strings.TrimSpace(s)
	for {
		if strings.HasPrefix(raw, "^") {
			spec.Pullup = true
			raw = strings.TrimSpace(raw[1:])
			continue
		}
		if strings.HasPrefix(raw, "!") {
			spec.Invert = true
			raw = strings.TrimSpace(raw[1:])
			continue
		}
		break
	}
	if raw == "" {
		return spec, fmt.Errorf("empty pin")
	}

	if chip, offset, ok := strings.Cut(raw, ":"); ok {
		if chip == "" {
			return spec, fmt.Errorf("pin %q: empty chip name", s)
		}
		spec.Chip = chip
		raw = offset
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return spec, fmt.Errorf("pin %q: invalid line offset %q", s, raw)
	}
	spec.Offset = n
	return spec, nil
}

// parseEncoderPins parses the two-pin quadrature spec. Anything other than
// exactly two comma-separated tokens is a configuration error.
func parseEncoderPins(s string) (PinSpec, PinSpec, error) {
	tokens := strings.Split(s, ",")
	if len(tokens) != 2 {
		return PinSpec{}, PinSpec{}, fmt.Errorf("unable to parse encoder_pins %q: expected two comma-separated pins, got %d", s, len(tokens))
	}
	pin1, err := parsePin(tokens[0])
	if err != nil {
		return PinSpec{}, PinSpec{}, fmt.Errorf("encoder_pins: %w", err)
	}
	pin2, err := parsePin(tokens[1])
	if err != nil {
		return PinSpec{}, PinSpec{}, fmt.Errorf("encoder_pins: %w", err)
	}
	return pin1, pin2, nil
}

// groupCallback receives the group's combined pin state bits (pin i of the
// group in bit i) whenever any member line changes.
type groupCallback func(eventtime float64, state int)

// pinGroup tracks the level bits of a small set of lines.
type pinGroup struct {
	pins     []PinSpec
	state    int
	callback groupCallback
}

// pinManager owns all registered pin groups and fans edge events out to
// them. Registration happens at init; handleEdge runs on the dispatch
// goroutine only.
type pinManager struct {
	groups []*pinGroup
	// flat registration order; the gpio watcher identifies lines by index
	flat []PinSpec
}

func newPinManager() *pinManager {
	return &pinManager{}
}

// RegisterGroup registers a set of pins sharing one state callback and
// returns nothing; pin indices are assigned in registration order.
func (m *pinManager) RegisterGroup(pins []PinSpec, cb groupCallback) {
	m.groups = append(m.groups, &pinGroup{pins: pins, callback: cb})
	m.flat = append(m.flat, pins...)
}

// Pins returns every registered pin in watcher index order.
func (m *pinManager) Pins() []PinSpec {
	return m.flat
}

// HandleEdge applies a level change on the flat pin index and invokes the
// owning group's callback with the new combined state.
func (m *pinManager) HandleEdge(index, level int, eventtime float64) {
	base := 0
	for _, g := range m.groups {
		n := len(g.pins)
		if index < base+n {
			bit := index - base
			if level != 0 {
				g.state |= 1 << bit
			} else {
				g.state &^= 1 << bit
			}
			g.callback(eventtime, g.state)
			return
		}
		base += n
	}
}

// ============================================================================
// Quadrature decoders
// ============================================================================
// Transition-table decoders for 4-steps-per-detent (full step) and
// 2-steps-per-detent (half step) encoders. The tables consume the two-bit
// pin state and emit a direction flag only on a complete detent, which
// rejects bounce and illegal transitions without any timing logic.
// ============================================================================

const (
	encoderStart  = 0x0
	encoderDirCW  = 0x10
	encoderDirCCW = 0x20
	encoderDirMsk = 0x30
)

// Full-step decoder states.
const (
	fsCWFinal = iota + 1
	fsCWBegin
	fsCWNext
	fsCCWBegin
	fsCCWFinal
	fsCCWNext
)

var fullStepTable = [7][4]int{
	{encoderStart, fsCWBegin, fsCCWBegin, encoderStart},
	{fsCWNext, encoderStart, fsCWFinal, encoderStart | encoderDirCW},
	{fsCWNext, fsCWBegin, encoderStart, encoderStart},
	{fsCWNext, fsCWBegin, fsCWFinal, encoderStart},
	{fsCCWNext, encoderStart, fsCCWBegin, encoderStart},
	{fsCCWNext, fsCCWFinal, encoderStart, encoderStart | encoderDirCCW},
	{fsCCWNext, fsCCWFinal, fsCCWBegin, encoderStart},
}

// Half-step decoder states.
const (
	hsCCWBegin = iota + 1
	hsCWBegin
	hsStartM
	hsCWBeginM
	hsCCWBeginM
)

var halfStepTable = [6][4]int{
	{hsStartM, hsCWBegin, hsCCWBegin, encoderStart},
	{hsStartM | encoderDirCCW, encoderStart, hsCCWBegin, encoderStart},
	{hsStartM | encoderDirCW, hsCWBegin, encoderStart, encoderStart},
	{hsStartM, hsCCWBeginM, hsCWBeginM, encoderStart},
	{hsStartM, hsStartM, hsCWBeginM, encoderStart | encoderDirCW},
	{hsStartM, hsCCWBeginM, hsStartM, encoderStart | encoderDirCCW},
}

// quadratureDecoder maps two-bit pin states onto detent callbacks.
type quadratureDecoder struct {
	table [][4]int
	state int

	onCW  func(eventtime float64)
	onCCW func(eventtime float64)
}

// newQuadratureDecoder builds a decoder for the given steps-per-detent
// divisor; only 2 and 4 are supported.
func newQuadratureDecoder(stepsPerDetent int, onCW, onCCW func(float64)) (*quadratureDecoder, error) {
	d := &quadratureDecoder{onCW: onCW, onCCW: onCCW, state: encoderStart}
	switch stepsPerDetent {
	case 2:
		d.table = halfStepTable[:]
	case 4:
		d.table = fullStepTable[:]
	default:
		return nil, fmt.Errorf("%d steps per detent not supported", stepsPerDetent)
	}
	return d, nil
}

// HandleState consumes the encoder pin pair's combined state. Satisfies
// groupCallback.
func (d *quadratureDecoder) HandleState(eventtime float64, state int) {
	next := d.table[d.state&0xf][state&0x3]
	d.state = next
	switch next & encoderDirMsk {
	case encoderDirCW:
		if d.onCW != nil {
			d.onCW(eventtime)
		}
	case encoderDirCCW:
		if d.onCCW != nil {
			d.onCCW(eventtime)
		}
	}
}
