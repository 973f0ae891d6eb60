// Package mcp serves order insights to assistants over the Model Context
// Protocol: newline-delimited JSON-RPC 2.0 on stdio.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blackwell-systems/orderwatch/internal/insights"
	"github.com/blackwell-systems/orderwatch/internal/order"
	"github.com/blackwell-systems/orderwatch/internal/suggest"
)

// protocolVersion is the MCP revision the server speaks.
const protocolVersion = "2024-11-05"

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

// maxLine bounds a single request line.
const maxLine = 1 << 20

// Server is an MCP stdio server. Each call re-reads the order source and
// runs the insights pipeline, so answers always reflect the current data.
type Server struct {
	tools  []toolDef
	source order.Source
	engine *suggest.Engine
	opts   Options
}

// Options configures the insight tools.
type Options struct {
	// Window is used when a call does not name one.
	Window   insights.Window
	Location *time.Location
	Now      func() time.Time
	Version  string
}

type toolDef struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     toolHandler
}

type toolHandler func(ctx context.Context, args json.RawMessage) (any, error)

type jsonrpcRequest struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id,omitempty"`
	Method  string           `json:"method"`
	Params  json.RawMessage  `json:"params,omitempty"`
}

type jsonrpcResponse struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id,omitempty"`
	Result  any              `json:"result,omitempty"`
	Error   *jsonrpcError    `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type toolsCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// toolsCallResult wraps a tool result as MCP text content. Tool failures
// are reported here with IsError, not as JSON-RPC errors.
type toolsCallResult struct {
	Content []mcpContent `json:"content"`
	IsError bool         `json:"isError"`
}

type mcpContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type toolListEntry struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

func textResult(text string, isError bool) toolsCallResult {
	return toolsCallResult{Content: []mcpContent{{Type: "text", Text: text}}, IsError: isError}
}

// NewServer constructs a Server that evaluates orders from source.
func NewServer(source order.Source, engine *suggest.Engine, opts Options) *Server {
	if opts.Window == "" {
		opts.Window = insights.WindowLast30Days
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	s := &Server{
		source: source,
		engine: engine,
		opts:   opts,
	}
	addTools(s)
	return s
}

func (s *Server) registerTool(def toolDef) {
	s.tools = append(s.tools, def)
}

func (s *Server) lookup(name string) (toolDef, bool) {
	for _, t := range s.tools {
		if t.Name == name {
			return t, true
		}
	}
	return toolDef{}, false
}

// Run reads one request per line from r and writes one response per line to
// w until ctx is cancelled or r reaches EOF, both of which return nil.
// Requests are handled in order.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	bw := bufio.NewWriter(w)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			scanErr <- err
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return fmt.Errorf("reading requests: %w", err)
				default:
					return nil
				}
			}
			if err := s.handleLine(ctx, line, bw); err != nil {
				return err
			}
		}
	}
}

// handleLine decodes one request and writes its response. Notifications
// (requests without an id) get no response.
func (s *Server) handleLine(ctx context.Context, line string, bw *bufio.Writer) error {
	if line == "" {
		return nil
	}

	var req jsonrpcRequest
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		return writeResponse(bw, jsonrpcResponse{
			JSONRPC: "2.0",
			Error:   &jsonrpcError{Code: codeParseError, Message: "Parse error"},
		})
	}
	if req.ID == nil {
		return nil
	}

	resp := jsonrpcResponse{JSONRPC: "2.0", ID: req.ID}
	if req.JSONRPC != "2.0" || req.Method == "" {
		resp.Error = &jsonrpcError{Code: codeInvalidRequest, Message: "Invalid Request"}
		return writeResponse(bw, resp)
	}
	resp.Result, resp.Error = s.dispatch(ctx, req)
	return writeResponse(bw, resp)
}

func (s *Server) dispatch(ctx context.Context, req jsonrpcRequest) (any, *jsonrpcError) {
	switch req.Method {
	case "initialize":
		return map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities": map[string]any{
				"tools": map[string]any{},
			},
			"serverInfo": map[string]any{
				"name":    "orderwatch",
				"version": s.opts.Version,
			},
		}, nil

	case "ping":
		return map[string]any{}, nil

	case "tools/list":
		entries := make([]toolListEntry, 0, len(s.tools))
		for _, t := range s.tools {
			entries = append(entries, toolListEntry{
				Name:        t.Name,
				Description: t.Description,
				InputSchema: t.InputSchema,
			})
		}
		return map[string]any{"tools": entries}, nil

	case "tools/call":
		var params toolsCallParams
		if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
			return nil, &jsonrpcError{Code: codeInvalidParams, Message: "Invalid params"}
		}
		return s.callTool(ctx, params), nil
	}
	return nil, &jsonrpcError{Code: codeMethodNotFound, Message: "Method not found"}
}

func (s *Server) callTool(ctx context.Context, params toolsCallParams) toolsCallResult {
	tool, ok := s.lookup(params.Name)
	if !ok {
		return textResult(fmt.Sprintf("unknown tool: %s", params.Name), true)
	}

	args := params.Arguments
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	result, err := tool.Handler(ctx, args)
	if err != nil {
		slog.Default().DebugContext(ctx, "tool call failed", slog.String("tool", tool.Name), slog.String("err", err.Error()))
		return textResult(err.Error(), true)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return textResult(err.Error(), true)
	}
	return textResult(string(data), false)
}

// writeResponse writes resp as a single line and flushes.
func writeResponse(bw *bufio.Writer, resp jsonrpcResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if _, err := bw.Write(data); err != nil {
		return err
	}
	return bw.Flush()
}
