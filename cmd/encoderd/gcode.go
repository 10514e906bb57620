package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// GCodeExecutor runs a rendered G-code script against the printer host.
// Execution is synchronous; a non-nil error means the script faulted.
// Implemented by MoonrakerClient, mocked in tests.
type GCodeExecutor interface {
	RunScript(script string) error
	Close() error
}

// MoonrakerClient executes G-code scripts over the Moonraker JSON-RPC
// websocket API.
type MoonrakerClient struct {
	mu          sync.Mutex
	conn        *websocket.Conn
	url         string
	logger      *slog.Logger
	readTimeout time.Duration
	nextID      uint64
}

// rpcRequest is a JSON-RPC 2.0 request frame.
type rpcRequest struct {
	Jsonrpc string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      uint64 `json:"id"`
}

// rpcResponse is the subset of a JSON-RPC response frame we care about.
// Frames without an ID are server notifications and are skipped.
type rpcResponse struct {
	ID     *uint64         `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("moonraker error %d: %s", e.Code, e.Message)
}

// NewMoonrakerClient creates a client and establishes the initial
// connection, retrying briefly so daemon and printer host can start in any
// order.
func NewMoonrakerClient(wsURL string, logger *slog.Logger, readTimeoutMS int) (*MoonrakerClient, error) {
	if _, err := url.Parse(wsURL); err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}

	client := &MoonrakerClient{
		url:         wsURL,
		logger:      logger,
		readTimeout: time.Duration(readTimeoutMS) * time.Millisecond,
	}

	if err := client.connectWithRetry(); err != nil {
		return nil, err
	}

	return client, nil
}

func (c *MoonrakerClient) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	d := websocket.Dialer{
		HandshakeTimeout: 2 * time.Second,
	}

	conn, _, err := d.Dial(c.url, nil)
	if err != nil {
		return err
	}

	c.conn = conn
	return nil
}

func (c *MoonrakerClient) connectWithRetry() error {
	var lastErr error
	for attempt := 0; attempt < 10; attempt++ {
		err := c.connect()
		if err == nil {
			c.logger.Info("connected to moonraker", "url", c.url)
			return nil
		}
		lastErr = err
		c.logger.Warn("moonraker connection failed; retrying...", "error", err, "attempt", attempt+1)
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("failed to connect after 10 attempts: %w", lastErr)
}

func (c *MoonrakerClient) ensureConnected() error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	c.logger.Warn("moonraker connection lost; reconnecting...")
	return c.connectWithRetry()
}

// call sends one request and waits for the matching response, skipping any
// interleaved server notifications.
func (c *MoonrakerClient) call(method string, params any) (json.RawMessage, error) {
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, fmt.Errorf("no websocket connection")
	}

	c.nextID++
	id := c.nextID

	payload, err := json.Marshal(rpcRequest{
		Jsonrpc: "2.0",
		Method:  method,
		Params:  params,
		ID:      id,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.conn = nil // mark connection as broken
		return nil, err
	}

	deadline := time.Now().Add(c.readTimeout)
	c.conn.SetReadDeadline(deadline)
	defer c.conn.SetReadDeadline(time.Time{})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			c.conn = nil // mark connection as broken
			return nil, err
		}

		var resp rpcResponse
		if err := json.Unmarshal(message, &resp); err != nil {
			c.logger.Warn("failed to parse moonraker frame", "error", err)
			continue
		}
		if resp.ID == nil || *resp.ID != id {
			// Status notification or stale response; keep reading.
			continue
		}
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	}
}

// RunScript executes a G-code script via printer.gcode.script.
func (c *MoonrakerClient) RunScript(script string) error {
	start := time.Now()
	_, err := c.call("printer.gcode.script", map[string]any{"script": script})
	if err != nil {
		return fmt.Errorf("run script: %w", err)
	}
	c.logger.Debug("script executed", "script", script, "took", time.Since(start))
	return nil
}

// Close closes the websocket connection.
func (c *MoonrakerClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	return nil
}
