// Package mcp defines the JSON-RPC 2.0-shaped wire format shared by
// the tool-call client and server, including the session header both
// sides echo.
package mcp

import "encoding/json"

const (
	Version = "2.0"

	// Endpoint is the HTTP path both transports agree on.
	Endpoint = "/mcp"

	// SessionHeader carries the session id in both directions.
	SessionHeader = "Mcp-Session-Id"

	MethodInitialize = "initialize"
	MethodToolsList  = "tools/list"
	MethodToolsCall  = "tools/call"

	ProtocolVersion = "2024-11-05"
)

// JSON-RPC error codes used on the wire.
const (
	CodeMethodNotFound = -32601
	CodeInternalError  = -32603
)

type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Tool describes one callable data operation in the catalog.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

type ToolsListResult struct {
	Tools []Tool `json:"tools"`
}

type CallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ContentItem wraps a tool result as embedded JSON text, per the
// tools/call response convention.
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type CallResult struct {
	Content []ContentItem `json:"content"`
}

type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type InitializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      ServerInfo     `json:"serverInfo"`
}
