package main

import (
	"encoding/json"
	"fmt"
)

// ============================================================================
// Event Kinds - Closed Enumeration
// ============================================================================
// Each physical gesture the daemon can classify maps to exactly one EventKind.
// The script table is an array indexed by kind, so every kind has a slot by
// construction and routing never goes through string lookups.
// ============================================================================

// EventKind identifies a classified input event.
type EventKind int

const (
	EventClick EventKind = iota
	EventDoubleClick
	EventLongClick
	EventRelease
	EventUp
	EventFastUp
	EventDown
	EventFastDown

	numEventKinds // must be last
)

// String returns the stable event name used in logs and template contexts.
func (k EventKind) String() string {
	switch k {
	case EventClick:
		return "click"
	case EventDoubleClick:
		return "double_click"
	case EventLongClick:
		return "long_click"
	case EventRelease:
		return "release"
	case EventUp:
		return "up"
	case EventFastUp:
		return "fast_up"
	case EventDown:
		return "down"
	case EventFastDown:
		return "fast_down"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// configKey returns the configuration option holding the kind's script.
func (k EventKind) configKey() string {
	return k.String() + "_gcode"
}

// ScriptTable maps every event kind to its configured script template.
// A nil or empty entry means "no action" for that kind. Immutable after init.
type ScriptTable [numEventKinds]*ScriptTemplate

// ============================================================================
// Actions - IPC Event Injection
// ============================================================================
// Actions are synthetic inputs delivered over the IPC socket. They let
// external tools and tests drive the classifiers without hardware attached.
// The daemon loop consumes these and replays them as if they were pin events.
// ============================================================================

// Action is a marker interface for all injectable IPC commands.
type Action interface {
	actionMarker()
}

// InjectTurn replays one or more encoder detents in the given direction.
type InjectTurn struct {
	Direction string `json:"direction"`       // "cw" or "ccw"
	Steps     int    `json:"steps,omitempty"` // default 1
}

func (InjectTurn) actionMarker() {}

// InjectButton replays a button edge.
type InjectButton struct {
	Pressed bool `json:"pressed"`
}

func (InjectButton) actionMarker() {}

// InjectScript enqueues a raw script for execution, bypassing classification.
type InjectScript struct {
	Script string `json:"script"`
}

func (InjectScript) actionMarker() {}

// ActionEnvelope wraps an action with a type discriminator for JSON framing.
type ActionEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalAction deserializes a JSON envelope into a concrete Action.
func UnmarshalAction(data []byte) (Action, error) {
	var env ActionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "inject_turn":
		var a InjectTurn
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal InjectTurn: %w", err)
		}
		if a.Direction != "cw" && a.Direction != "ccw" {
			return nil, fmt.Errorf("inject_turn: direction must be \"cw\" or \"ccw\", got %q", a.Direction)
		}
		return a, nil

	case "inject_button":
		var a InjectButton
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal InjectButton: %w", err)
		}
		return a, nil

	case "inject_script":
		var a InjectScript
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal InjectScript: %w", err)
		}
		if a.Script == "" {
			return nil, fmt.Errorf("inject_script: script must not be empty")
		}
		return a, nil

	default:
		return nil, fmt.Errorf("unknown action type: %q", env.Type)
	}
}

// MarshalAction serializes an Action into a JSON envelope.
func MarshalAction(a Action) ([]byte, error) {
	var env ActionEnvelope

	switch a := a.(type) {
	case InjectTurn:
		env.Type = "inject_turn"
		data, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("marshal InjectTurn: %w", err)
		}
		env.Data = data

	case InjectButton:
		env.Type = "inject_button"
		data, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("marshal InjectButton: %w", err)
		}
		env.Data = data

	case InjectScript:
		env.Type = "inject_script"
		data, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("marshal InjectScript: %w", err)
		}
		env.Data = data

	default:
		return nil, fmt.Errorf("unsupported action type: %T", a)
	}

	return json.Marshal(env)
}
