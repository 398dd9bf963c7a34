// Package client implements the tool-call side of the MCP-style
// transport: session continuity via the Mcp-Session-Id header, a
// monotonic request id, JSON-first response decoding with an SSE
// compatibility fallback, and result unwrapping.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/supawit-m/deskmesh/mcp"
)

var (
	ErrRPC       = errors.New("rpc error")
	ErrTransport = errors.New("tool-call transport failure")
)

type Config struct {
	URL     string        `split_words:"true" default:"http://localhost:8003"`
	Timeout time.Duration `split_words:"true" default:"30s"`
}

// Client is one tool-call handle. The session id is assigned by the
// server on first contact and echoed on every later request; request
// ids increase monotonically and are never reused.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu        sync.Mutex
	sessionID string
	nextID    int64
}

func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("tool server url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid tool server url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func MustNew(cfg Config) *Client {
	c, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

// SessionID exposes the current session for diagnostics.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Call performs one JSON-RPC round trip and returns the result member.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	var rawParams json.RawMessage
	if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("%w: marshal params: %v", ErrTransport, err)
		}
		rawParams = encoded
	}

	c.mu.Lock()
	c.nextID++
	req := mcp.Request{
		JSONRPC: mcp.Version,
		ID:      c.nextID,
		Method:  method,
		Params:  rawParams,
	}
	sessionID := c.sessionID
	c.mu.Unlock()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrTransport, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+mcp.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrTransport, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		httpReq.Header.Set(mcp.SessionHeader, sessionID)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}

	if issued := httpResp.Header.Get(mcp.SessionHeader); issued != "" {
		c.mu.Lock()
		c.sessionID = issued
		c.mu.Unlock()
	}

	resp, err := decodeResponse(httpResp.Header.Get("Content-Type"), raw)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: code=%d %s", ErrRPC, resp.Error.Code, resp.Error.Message)
	}
	return resp.Result, nil
}

// decodeResponse negotiates the body format: direct JSON first, then a
// server-sent-events body whose data: line carries the same payload.
func decodeResponse(contentType string, raw []byte) (*mcp.Response, error) {
	switch {
	case strings.Contains(contentType, "application/json"), strings.Contains(contentType, "text/json"):
		var resp mcp.Response
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("%w: decode json body: %v", ErrTransport, err)
		}
		return &resp, nil
	case strings.Contains(contentType, "text/event-stream"):
		return decodeSSE(raw)
	default:
		var resp mcp.Response
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("%w: unexpected content type %q", ErrTransport, contentType)
		}
		return &resp, nil
	}
}

func decodeSSE(raw []byte) (*mcp.Response, error) {
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		var resp mcp.Response
		if err := json.Unmarshal([]byte(payload), &resp); err != nil {
			log.Warn().Err(err).Str("line", truncate(line, 100)).Msg("skipping unparsable sse line")
			continue
		}
		return &resp, nil
	}
	return nil, fmt.Errorf("%w: no data line in sse response", ErrTransport)
}

// Initialize opens the session and logs the advertised server info.
func (c *Client) Initialize(ctx context.Context) error {
	raw, err := c.Call(ctx, mcp.MethodInitialize, map[string]any{})
	if err != nil {
		return err
	}
	var info mcp.InitializeResult
	if err := json.Unmarshal(raw, &info); err != nil {
		return fmt.Errorf("%w: decode initialize result: %v", ErrTransport, err)
	}
	log.Info().
		Str("server", info.ServerInfo.Name).
		Str("protocol", info.ProtocolVersion).
		Msg("tool-call session initialized")
	return nil
}

// ListTools returns the server's static tool catalog.
func (c *Client) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	raw, err := c.Call(ctx, mcp.MethodToolsList, map[string]any{})
	if err != nil {
		return nil, err
	}
	var result mcp.ToolsListResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: decode tool catalog: %v", ErrTransport, err)
	}
	return result.Tools, nil
}

// CallTool invokes a named tool and unwraps content[0].text as embedded
// JSON, falling back to a {"raw": <text>} object when the text does not
// parse.
func (c *Client) CallTool(ctx context.Context, name string, arguments any) (json.RawMessage, error) {
	args, err := json.Marshal(arguments)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal tool arguments: %v", ErrTransport, err)
	}
	raw, err := c.Call(ctx, mcp.MethodToolsCall, mcp.CallParams{Name: name, Arguments: args})
	if err != nil {
		return nil, err
	}

	var result mcp.CallResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: decode call result: %v", ErrTransport, err)
	}
	if len(result.Content) == 0 {
		return json.RawMessage("{}"), nil
	}

	text := result.Content[0].Text
	if json.Valid([]byte(text)) {
		return json.RawMessage(text), nil
	}
	fallback, err := json.Marshal(map[string]string{"raw": text})
	if err != nil {
		return nil, fmt.Errorf("%w: wrap raw text: %v", ErrTransport, err)
	}
	return fallback, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
