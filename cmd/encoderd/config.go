package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the encoderd daemon.
//
// The config file is the primary configuration surface; flags exist for
// small overrides and environments where a file is awkward. Defaults and
// validation are centralized here so the rest of the code can assume a
// well-formed config.
type Config struct {
	// Encoder/button input configuration
	Encoder EncoderConfig `yaml:"encoder"`

	// Moonraker G-code execution configuration
	Moonraker MoonrakerConfig `yaml:"moonraker"`

	// IPC configuration (event injection socket)
	IPC IPCConfig `yaml:"ipc"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// EncoderConfig mirrors the printer-firmware option names for the encoder
// and click button, including the per-event script templates.
type EncoderConfig struct {
	EncoderPins           string  `yaml:"encoder_pins,omitempty"` // two comma-separated pins; empty disables the encoder
	EncoderStepsPerDetent int     `yaml:"encoder_steps_per_detent"`
	EncoderFastRate       float64 `yaml:"encoder_fast_rate"` // seconds

	// Reserved pass-through knobs; parsed and validated, not consumed by
	// any classification logic.
	InputMin  float64 `yaml:"input_min"`
	InputMax  float64 `yaml:"input_max"`
	InputStep float64 `yaml:"input_step"`

	ClickPin string `yaml:"click_pin,omitempty"` // empty disables the button

	LongPressDuration   float64 `yaml:"long_press_duration"`   // seconds
	DoubleClickDuration float64 `yaml:"double_click_duration"` // seconds

	ClickGcode       string `yaml:"click_gcode,omitempty"`
	DoubleClickGcode string `yaml:"double_click_gcode,omitempty"`
	LongClickGcode   string `yaml:"long_click_gcode,omitempty"`
	ReleaseGcode     string `yaml:"release_gcode,omitempty"`
	UpGcode          string `yaml:"up_gcode,omitempty"`
	FastUpGcode      string `yaml:"fast_up_gcode,omitempty"`
	DownGcode        string `yaml:"down_gcode,omitempty"`
	FastDownGcode    string `yaml:"fast_down_gcode,omitempty"`
}

type MoonrakerConfig struct {
	WsURL     string `yaml:"ws_url"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config with defaults.
// Keep this aligned with constants.go.
func DefaultConfig() Config {
	return Config{
		Encoder: EncoderConfig{
			EncoderStepsPerDetent: defaultEncoderStepsPerDetent,
			EncoderFastRate:       defaultEncoderFastRate,
			InputMin:              defaultInputMin,
			InputMax:              defaultInputMax,
			InputStep:             defaultInputStep,
			LongPressDuration:     defaultLongPressDuration,
			DoubleClickDuration:   defaultDoubleClickDuration,
		},
		Moonraker: MoonrakerConfig{
			WsURL:     defaultMoonrakerWsURL,
			TimeoutMS: defaultReadTimeoutMS,
		},
		IPC: IPCConfig{
			SocketPath: defaultIPCSocketPath,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file.
//
// Unknown fields are rejected (helps catch typos) via KnownFields(true), and
// trailing garbage after the document is an error.
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides applies flag values on top of a loaded config. Each override
// pointer is only applied when non-nil, so the config file remains the
// primary configuration source.
type FlagOverrides struct {
	EncoderPins *string
	ClickPin    *string

	MoonrakerWsURL     *string
	MoonrakerTimeoutMS *int

	IPCSocketPath *string

	LogLevel *string
}

// Apply merges the overrides into cfg. Nil pointers are ignored.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.EncoderPins != nil {
		cfg.Encoder.EncoderPins = *o.EncoderPins
	}
	if o.ClickPin != nil {
		cfg.Encoder.ClickPin = *o.ClickPin
	}
	if o.MoonrakerWsURL != nil {
		cfg.Moonraker.WsURL = *o.MoonrakerWsURL
	}
	if o.MoonrakerTimeoutMS != nil {
		cfg.Moonraker.TimeoutMS = *o.MoonrakerTimeoutMS
	}
	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants and returns a user-friendly error.
// Intended to be called after defaults + file + overrides are applied.
// Pin-spec problems surface here, before anything touches hardware.
func (c *Config) Validate() error {
	// Encoder
	if c.Encoder.EncoderPins != "" {
		if _, _, err := parseEncoderPins(c.Encoder.EncoderPins); err != nil {
			return err
		}
	}
	if n := c.Encoder.EncoderStepsPerDetent; n != 2 && n != 4 {
		return fmt.Errorf("encoder.encoder_steps_per_detent must be 2 or 4, got %d", n)
	}
	if c.Encoder.EncoderFastRate <= 0 {
		return errors.New("encoder.encoder_fast_rate must be > 0")
	}
	if c.Encoder.InputStep <= 0 {
		return errors.New("encoder.input_step must be > 0")
	}
	if c.Encoder.InputMin > c.Encoder.InputMax {
		return errors.New("encoder.input_min must be <= encoder.input_max")
	}
	if c.Encoder.ClickPin != "" {
		if _, err := parsePin(c.Encoder.ClickPin); err != nil {
			return fmt.Errorf("encoder.click_pin: %w", err)
		}
	}
	if c.Encoder.LongPressDuration <= 0 {
		return errors.New("encoder.long_press_duration must be > 0")
	}
	if c.Encoder.DoubleClickDuration <= 0 {
		return errors.New("encoder.double_click_duration must be > 0")
	}
	if c.Encoder.DoubleClickDuration >= c.Encoder.LongPressDuration {
		return errors.New("encoder.double_click_duration must be < encoder.long_press_duration")
	}

	// Moonraker
	if c.Moonraker.WsURL == "" {
		return errors.New("moonraker.ws_url must not be empty")
	}
	if c.Moonraker.TimeoutMS <= 0 {
		return errors.New("moonraker.timeout_ms must be > 0")
	}

	// IPC
	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}

	// Logging
	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}

	return nil
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
