// Command navwatch-mcp exposes a running navwatch server to stdio MCP
// clients by relaying each JSON-RPC line to its /mcp endpoint.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/bobmcallan/navwatch/internal/common"
)

// Relay forwards newline-delimited JSON-RPC messages to an HTTP MCP endpoint.
type Relay struct {
	endpoint   string
	httpClient *http.Client
	logger     *common.Logger
}

// NewRelay creates a relay for the navwatch server at serverURL.
func NewRelay(serverURL string, logger *common.Logger) *Relay {
	return &Relay{
		endpoint:   serverURL + "/mcp",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

func main() {
	serverURL := os.Getenv("NAVWATCH_SERVER_URL")
	if serverURL == "" {
		serverURL = "http://localhost:3000"
	}

	level := os.Getenv("NAVWATCH_LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	// stdout carries the protocol; the logger writes to stderr
	logger := common.NewLogger(level)

	if err := NewRelay(serverURL, logger).Run(os.Stdin, os.Stdout); err != nil {
		logger.Error().Err(err).Msg("Relay stopped")
		os.Exit(1)
	}
}

// Run relays every non-blank line from r and writes one response line to w.
// Notifications produce no response line.
func (p *Relay) Run(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		resp, err := p.forward(line)
		if err != nil {
			p.logger.Warn().Err(err).Str("endpoint", p.endpoint).Msg("Relay request failed")
			resp = rpcError(requestID(line), -32000, err.Error())
		}
		if len(resp) == 0 {
			continue
		}
		if _, err := w.Write(append(resp, '\n')); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (p *Relay) forward(msg []byte) ([]byte, error) {
	req, err := http.NewRequest(http.MethodPost, p.endpoint, bytes.NewReader(msg))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("navwatch unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return bytes.TrimSpace(body), nil
	case http.StatusAccepted, http.StatusNoContent:
		return nil, nil
	default:
		return nil, fmt.Errorf("navwatch returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
}

// requestID extracts the JSON-RPC id, or null when absent.
func requestID(msg []byte) json.RawMessage {
	var req struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(msg, &req); err != nil || req.ID == nil {
		return json.RawMessage("null")
	}
	return req.ID
}

func rpcError(id json.RawMessage, code int, message string) []byte {
	data, _ := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	})
	return data
}
