package main

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func startIPCServer(t *testing.T, inject func(Action) error) string {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), "encoderd.sock")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = runIPCServer(ctx, socketPath, inject, testLogger())
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("IPC server did not stop")
		}
	})

	// Wait for the listener to come up.
	deadline := time.Now().Add(time.Second)
	for {
		conn, err := net.Dial("unix", socketPath)
		if err == nil {
			conn.Close()
			return socketPath
		}
		if time.Now().After(deadline) {
			t.Fatalf("IPC server never started: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// TestIPC_InjectTurn tests a turn action round-trips through the socket.
func TestIPC_InjectTurn(t *testing.T) {
	var mu sync.Mutex
	var got []Action
	socketPath := startIPCServer(t, func(a Action) error {
		mu.Lock()
		got = append(got, a)
		mu.Unlock()
		return nil
	})

	if err := SendIPCAction(socketPath, InjectTurn{Direction: "cw", Steps: 3}); err != nil {
		t.Fatalf("SendIPCAction: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("expected 1 injected action, got %d", len(got))
	}
	turn, ok := got[0].(InjectTurn)
	if !ok {
		t.Fatalf("expected InjectTurn, got %T", got[0])
	}
	if turn.Direction != "cw" || turn.Steps != 3 {
		t.Errorf("expected cw/3, got %+v", turn)
	}
}

// TestIPC_InjectButtonAndScript tests the remaining action types.
func TestIPC_InjectButtonAndScript(t *testing.T) {
	var mu sync.Mutex
	var got []Action
	socketPath := startIPCServer(t, func(a Action) error {
		mu.Lock()
		got = append(got, a)
		mu.Unlock()
		return nil
	})

	if err := SendIPCAction(socketPath, InjectButton{Pressed: true}); err != nil {
		t.Fatalf("SendIPCAction(button): %v", err)
	}
	if err := SendIPCAction(socketPath, InjectScript{Script: "M117 hi"}); err != nil {
		t.Fatalf("SendIPCAction(script): %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(got))
	}
	if b, ok := got[0].(InjectButton); !ok || !b.Pressed {
		t.Errorf("expected pressed InjectButton, got %+v", got[0])
	}
	if s, ok := got[1].(InjectScript); !ok || s.Script != "M117 hi" {
		t.Errorf("expected InjectScript, got %+v", got[1])
	}
}

// TestIPC_InjectErrorReported tests that an inject failure surfaces as an
// error response without closing the connection.
func TestIPC_InjectErrorReported(t *testing.T) {
	socketPath := startIPCServer(t, func(a Action) error {
		return errors.New("daemon busy")
	})

	err := SendIPCAction(socketPath, InjectButton{Pressed: true})
	if err == nil {
		t.Fatal("expected error response")
	}
	if !strings.Contains(err.Error(), "daemon busy") {
		t.Errorf("expected daemon error text, got %v", err)
	}
}

// TestIPC_MalformedAction tests that garbage input gets an error response.
func TestIPC_MalformedAction(t *testing.T) {
	socketPath := startIPCServer(t, func(a Action) error { return nil })

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("not json\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	buf := make([]byte, 256)
	conn.SetReadDeadline(time.Now().Add(time.Second))
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if !strings.Contains(string(buf[:n]), `"error"`) {
		t.Errorf("expected error response, got %s", buf[:n])
	}
}

// TestUnmarshalAction_Validation tests envelope validation rules.
func TestUnmarshalAction_Validation(t *testing.T) {
	cases := []struct {
		name string
		line string
	}{
		{"unknown type", `{"type":"reboot"}`},
		{"bad direction", `{"type":"inject_turn","data":{"direction":"sideways"}}`},
		{"empty script", `{"type":"inject_script","data":{"script":""}}`},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := UnmarshalAction([]byte(tt.line)); err == nil {
				t.Fatal("expected error, got none")
			}
		})
	}

	a, err := UnmarshalAction([]byte(`{"type":"inject_turn","data":{"direction":"ccw","steps":2}}`))
	if err != nil {
		t.Fatalf("valid action rejected: %v", err)
	}
	if turn := a.(InjectTurn); turn.Direction != "ccw" || turn.Steps != 2 {
		t.Errorf("expected ccw/2, got %+v", turn)
	}
}
