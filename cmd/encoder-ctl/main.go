package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
)

// ============================================================================
// encoder-ctl - Command-line IPC Client
// ============================================================================
// This tool injects synthetic input events into the encoderd daemon via IPC.
//
// Usage:
//   encoder-ctl turn cw 3
//   encoder-ctl press
//   encoder-ctl release
//   encoder-ctl click
//   encoder-ctl script "M117 hello"
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/encoderd.sock)
// ============================================================================

// Action types (duplicated from main package for standalone binary)
type Action interface{}

type InjectTurn struct {
	Direction string `json:"direction"`
	Steps     int    `json:"steps,omitempty"`
}

type InjectButton struct {
	Pressed bool `json:"pressed"`
}

type InjectScript struct {
	Script string `json:"script"`
}

// ActionEnvelope wraps actions for JSON
type ActionEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// IPCResponse represents the daemon's response
type IPCResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func main() {
	socketPath := "/tmp/encoderd.sock"

	// Parse arguments
	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// Check for -socket flag
	if args[0] == "-socket" || args[0] == "--socket" {
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: -socket requires an argument\n")
			os.Exit(1)
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// Parse command
	var actions []Action

	switch args[0] {
	case "turn":
		if len(args) < 2 || (args[1] != "cw" && args[1] != "ccw") {
			fmt.Fprintf(os.Stderr, "error: turn requires a direction: cw or ccw\n")
			os.Exit(1)
		}
		steps := 1
		if len(args) >= 3 {
			n, err := strconv.Atoi(args[2])
			if err != nil || n < 1 {
				fmt.Fprintf(os.Stderr, "error: invalid step count: %s\n", args[2])
				os.Exit(1)
			}
			steps = n
		}
		actions = []Action{InjectTurn{Direction: args[1], Steps: steps}}

	case "press":
		actions = []Action{InjectButton{Pressed: true}}

	case "release":
		actions = []Action{InjectButton{Pressed: false}}

	case "click":
		// Full press+release cycle
		actions = []Action{
			InjectButton{Pressed: true},
			InjectButton{Pressed: false},
		}

	case "script":
		if len(args) < 2 || args[1] == "" {
			fmt.Fprintf(os.Stderr, "error: script requires a G-code string\n")
			os.Exit(1)
		}
		actions = []Action{InjectScript{Script: args[1]}}

	case "help", "-h", "--help":
		printUsage()
		os.Exit(0)

	default:
		fmt.Fprintf(os.Stderr, "error: unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}

	// Send actions
	for _, action := range actions {
		if err := sendAction(socketPath, action); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Println("ok")
}

func sendAction(socketPath string, action Action) error {
	// Connect to socket
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	// Marshal action
	data, err := marshalAction(action)
	if err != nil {
		return fmt.Errorf("marshal action: %w", err)
	}

	// Send action (line-delimited JSON)
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return fmt.Errorf("send action: %w", err)
	}

	// Read response
	var response IPCResponse
	decoder := json.NewDecoder(conn)
	if err := decoder.Decode(&response); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	// Check response status
	if response.Status == "error" {
		return fmt.Errorf("daemon error: %s", response.Error)
	}

	return nil
}

func marshalAction(action Action) ([]byte, error) {
	var env ActionEnvelope

	switch a := action.(type) {
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
		return nil, fmt.Errorf("unknown action type: %T", action)
	}

	return json.Marshal(env)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `encoder-ctl - Inject input events into the encoderd daemon via IPC

Usage:
  encoder-ctl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: /tmp/encoderd.sock)

Commands:
  turn <cw|ccw> [n]       Simulate n encoder detents (default 1)
  press                   Simulate button press
  release                 Simulate button release
  click                   Simulate a full press+release cycle
  script <gcode>          Queue a raw G-code script for execution
  help, -h, --help        Show this help message

Examples:
  encoder-ctl turn cw 3
  encoder-ctl click
  encoder-ctl script "M117 hello"
  encoder-ctl -socket /var/run/encoderd.sock press
`)
}
