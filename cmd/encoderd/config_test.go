package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "encoderd.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// TestDefaultConfig tests that defaults validate as-is.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Encoder.LongPressDuration != 1.5 {
		t.Errorf("expected long_press_duration 1.5, got %v", cfg.Encoder.LongPressDuration)
	}
	if cfg.Encoder.EncoderStepsPerDetent != 4 {
		t.Errorf("expected 4 steps per detent, got %d", cfg.Encoder.EncoderStepsPerDetent)
	}
}

// TestLoadConfigFile tests file values layered over defaults.
func TestLoadConfigFile(t *testing.T) {
	path := writeConfigFile(t, `
encoder:
  encoder_pins: "^gpiochip0:16,^gpiochip0:20"
  click_pin: "^gpiochip0:21"
  up_gcode: "M117 up"
  fast_up_gcode: |
    M117 fast {{.Event}}
moonraker:
  ws_url: "ws://printer.local:7125/websocket"
logging:
  level: debug
`)

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Encoder.EncoderPins != "^gpiochip0:16,^gpiochip0:20" {
		t.Errorf("encoder_pins not loaded: %q", cfg.Encoder.EncoderPins)
	}
	if cfg.Encoder.UpGcode != "M117 up" {
		t.Errorf("up_gcode not loaded: %q", cfg.Encoder.UpGcode)
	}
	// Untouched sections keep their defaults.
	if cfg.Encoder.LongPressDuration != defaultLongPressDuration {
		t.Errorf("expected default long_press_duration, got %v", cfg.Encoder.LongPressDuration)
	}
	if cfg.IPC.SocketPath != defaultIPCSocketPath {
		t.Errorf("expected default socket path, got %q", cfg.IPC.SocketPath)
	}
	if cfg.Moonraker.WsURL != "ws://printer.local:7125/websocket" {
		t.Errorf("ws_url not loaded: %q", cfg.Moonraker.WsURL)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level not loaded: %q", cfg.Logging.Level)
	}
}

// TestLoadConfigFile_UnknownKey tests strict decoding catches typos.
func TestLoadConfigFile_UnknownKey(t *testing.T) {
	path := writeConfigFile(t, `
encoder:
  encoder_pin: "16,20"
`)
	if _, err := LoadConfigFile(path); err == nil {
		t.Fatal("expected error for unknown key 'encoder_pin'")
	}
}

// TestLoadConfigFile_Missing tests a helpful error for a missing file.
func TestLoadConfigFile_Missing(t *testing.T) {
	if _, err := LoadConfigFile("/nonexistent/encoderd.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

// TestConfigValidate_Failures tests each validation rule in isolation.
func TestConfigValidate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"bad encoder pins", func(c *Config) { c.Encoder.EncoderPins = "16" }, "encoder_pins"},
		{"bad steps per detent", func(c *Config) { c.Encoder.EncoderStepsPerDetent = 3 }, "steps_per_detent"},
		{"zero fast rate", func(c *Config) { c.Encoder.EncoderFastRate = 0 }, "fast_rate"},
		{"zero input step", func(c *Config) { c.Encoder.InputStep = 0 }, "input_step"},
		{"inverted input range", func(c *Config) { c.Encoder.InputMin = 2; c.Encoder.InputMax = 1 }, "input_min"},
		{"bad click pin", func(c *Config) { c.Encoder.ClickPin = ":x" }, "click_pin"},
		{"zero long press", func(c *Config) { c.Encoder.LongPressDuration = 0 }, "long_press_duration"},
		{"zero double click", func(c *Config) { c.Encoder.DoubleClickDuration = 0 }, "double_click_duration"},
		{"double exceeds long", func(c *Config) { c.Encoder.DoubleClickDuration = 2.0 }, "double_click_duration"},
		{"empty ws url", func(c *Config) { c.Moonraker.WsURL = "" }, "ws_url"},
		{"zero timeout", func(c *Config) { c.Moonraker.TimeoutMS = 0 }, "timeout_ms"},
		{"empty socket path", func(c *Config) { c.IPC.SocketPath = "" }, "socket_path"},
		{"empty log level", func(c *Config) { c.Logging.Level = "" }, "level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got none")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("expected error mentioning %q, got %v", tt.wantSub, err)
			}
		})
	}
}

// TestFlagOverrides_Apply tests that only set pointers override.
func TestFlagOverrides_Apply(t *testing.T) {
	cfg := DefaultConfig()

	pins := "16,20"
	level := "debug"
	FlagOverrides{
		EncoderPins: &pins,
		LogLevel:    &level,
	}.Apply(&cfg)

	if cfg.Encoder.EncoderPins != "16,20" {
		t.Errorf("encoder pins override not applied: %q", cfg.Encoder.EncoderPins)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level override not applied: %q", cfg.Logging.Level)
	}
	if cfg.Moonraker.WsURL != defaultMoonrakerWsURL {
		t.Errorf("unset override must not change ws_url: %q", cfg.Moonraker.WsURL)
	}
}

// TestExpandPath tests tilde expansion.
func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	if got := ExpandPath("~/encoderd.yaml"); got != filepath.Join(home, "encoderd.yaml") {
		t.Errorf("expected expansion under home, got %q", got)
	}
	if got := ExpandPath("/etc/encoderd.yaml"); got != "/etc/encoderd.yaml" {
		t.Errorf("absolute path must pass through, got %q", got)
	}
}
