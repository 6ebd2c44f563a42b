// Package rpc implements the Agent RPC Dispatcher: a stateless
// request/response service exposing the validation orchestrator over a
// line-delimited JSON-RPC 2.0 transport on standard input/output
// (spec.md §4.11, §6).
//
// It generalizes codeNERD's StdioTransport (internal/mcp/transport_stdio.go)
// — a bufio.Scanner read loop framing JSON-RPC requests/responses one line
// at a time — turned from a client dialing an external MCP server into the
// server huskycat itself exposes, and borrows internal/tools/types.go's
// ToolSchema/Property shape for describing tools/list entries.
package rpc

import "encoding/json"

// Request is one incoming JSON-RPC 2.0 request or notification. A
// notification omits ID; the dispatcher never replies to one.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether req carries no id, per JSON-RPC 2.0.
func (r Request) IsNotification() bool {
	return len(r.ID) == 0
}

// Response is one outgoing JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// ErrorObject is a JSON-RPC 2.0 error object. Code is one of the standard
// JSON-RPC 2.0 error codes below; Kind carries the huskyerr.Kind name
// (spec.md §7: "Errors follow JSON-RPC error-object conventions with kinds
// enumerated in §7").
type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

// Standard JSON-RPC 2.0 error codes, used for transport-level faults
// (malformed JSON, unknown method) distinct from huskyerr.Kind-carrying
// application errors.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Property describes one JSON-Schema-style input property, matching the
// shape codeNERD's tools/types.go used for LLM tool-calling schemas.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// InputSchema describes a tools/list entry's accepted arguments: every
// validate_* tool takes a required "path" and an optional "fix" (spec.md
// §8 S8: "a stable inputSchema naming path (string) and optional fix
// (boolean)").
type InputSchema struct {
	Type       string              `json:"type"`
	Required   []string            `json:"required"`
	Properties map[string]Property `json:"properties"`
}

// ToolDescriptor is one entry in a tools/list response.
type ToolDescriptor struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

func defaultInputSchema() InputSchema {
	return InputSchema{
		Type:     "object",
		Required: []string{"path"},
		Properties: map[string]Property{
			"path": {Type: "string", Description: "file or directory path to validate"},
			"fix":  {Type: "boolean", Description: "invoke supports-fix tools with their fix flag"},
		},
	}
}

// ContentBlock is the agent-protocol text-block convention every
// tools/call response wraps its payload in (spec.md §6: "the content field
// uses the text-block convention from the agent-protocol spec").
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallToolResult is the result payload of a tools/call response.
type CallToolResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}
