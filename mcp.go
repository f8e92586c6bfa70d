package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/engine"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/kits"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/mcpio"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/signals"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/view"
)

const mcpProtocolVersion = "2024-11-05"

// JSON-RPC 2.0 structures
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

const (
	rpcParseError     = -32700
	rpcInvalidRequest = -32600
	rpcMethodNotFound = -32601
	rpcInvalidParams  = -32602
)

type InitializeResult struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ServerInfo      ServerInfo             `json:"serverInfo"`
	Instructions    string                 `json:"instructions,omitempty"`
}

type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type toolContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type toolResult struct {
	Content []toolContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

func newMCPCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "MCP server for coding agents",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve MCP (JSON-RPC 2.0) on stdin/stdout",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s := newMCPServer(a.stdin, a.stdout, a.root(), a.logger)
				if err := s.serve(); err != nil {
					return failed(fmt.Errorf("MCP read failed: %w", err))
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "selftest",
			Short: "Run an in-process MCP handshake",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if !a.runSelftest() {
					return failed(nil)
				}
				return nil
			},
		},
	)
	return cmd
}

type mcpServer struct {
	codec  *mcpio.Codec
	an     *engine.Analyzer
	root   string
	logger *slog.Logger
}

func newMCPServer(r io.Reader, w io.Writer, root string, logger *slog.Logger) *mcpServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &mcpServer{
		codec:  mcpio.NewCodec(r, w),
		an:     engine.NewAnalyzer(nil),
		root:   root,
		logger: logger,
	}
}

// serve handles requests until the peer closes its end.
func (s *mcpServer) serve() error {
	for {
		msg, err := s.codec.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		var req JSONRPCRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.sendError(nil, rpcParseError, "Parse error", err.Error())
			continue
		}
		if req.JSONRPC != "2.0" || req.Method == "" {
			s.sendError(req.ID, rpcInvalidRequest, "Invalid Request", nil)
			continue
		}
		s.logger.Debug("mcp request", "method", req.Method)
		s.handleRequest(&req)
	}
}

func (s *mcpServer) handleRequest(req *JSONRPCRequest) {
	switch req.Method {
	case "initialize":
		s.sendResult(req.ID, InitializeResult{
			ProtocolVersion: mcpProtocolVersion,
			Capabilities: map[string]interface{}{
				"tools":     map[string]interface{}{"listChanged": false},
				"resources": map[string]interface{}{"listChanged": false},
			},
			ServerInfo: ServerInfo{Name: "antislop", Version: Version},
			Instructions: "Grade HTML, JSX, CSS and copy for template patterns. " +
				"Call quick_check on a file before shipping UI; use suggest for replacements.",
		})

	case "initialized", "notifications/initialized", "notifications/cancelled":
		// Notification, no response needed

	case "tools/list":
		s.sendResult(req.ID, map[string]interface{}{"tools": toolDefinitions()})

	case "tools/call":
		var params struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil {
			s.sendError(req.ID, rpcInvalidParams, "Invalid params", err.Error())
			return
		}
		tool, ok := mcpTools[params.Name]
		if !ok {
			s.sendError(req.ID, rpcMethodNotFound, "Method not found", fmt.Sprintf("Unknown tool: %s", params.Name))
			return
		}
		args := params.Arguments
		if len(args) == 0 || string(args) == "null" {
			args = json.RawMessage("{}")
		}
		out, err := tool(s, args)
		if err != nil {
			s.sendResult(req.ID, toolResult{Content: []toolContent{{Type: "text", Text: err.Error()}}, IsError: true})
			return
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			s.sendError(req.ID, -32603, "Internal error", err.Error())
			return
		}
		s.sendResult(req.ID, toolResult{Content: []toolContent{{Type: "text", Text: string(data)}}})

	case "resources/list":
		s.sendResult(req.ID, map[string]interface{}{
			"resources": []map[string]interface{}{
				{"uri": "antislop://catalog", "name": "Signal catalog", "mimeType": "application/json"},
				{"uri": "antislop://kits", "name": "Built-in design kits", "mimeType": "application/json"},
			},
		})

	case "resources/read":
		var params struct {
			URI string `json:"uri"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil {
			s.sendError(req.ID, rpcInvalidParams, "Invalid params", err.Error())
			return
		}
		var body interface{}
		switch params.URI {
		case "antislop://catalog":
			body = signals.Default().List()
		case "antislop://kits":
			body = kits.All()
		default:
			s.sendError(req.ID, rpcInvalidParams, "Unknown resource", params.URI)
			return
		}
		data, _ := json.MarshalIndent(body, "", "  ")
		s.sendResult(req.ID, map[string]interface{}{
			"contents": []map[string]interface{}{
				{"uri": params.URI, "mimeType": "application/json", "text": string(data)},
			},
		})

	case "ping":
		s.sendResult(req.ID, map[string]interface{}{})

	default:
		if req.ID == nil {
			return
		}
		s.sendError(req.ID, rpcMethodNotFound, "Method not found", fmt.Sprintf("Unknown method: %s", req.Method))
	}
}

func (s *mcpServer) sendResult(id interface{}, result interface{}) {
	s.send(JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: result})
}

func (s *mcpServer) sendError(id interface{}, code int, message string, data interface{}) {
	s.send(JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &RPCError{Code: code, Message: message, Data: data},
	})
}

func (s *mcpServer) send(resp JSONRPCResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("MCP encode failed", "error", err)
		return
	}
	if err := s.codec.Write(data); err != nil {
		s.logger.Error("MCP write failed", "error", err)
	}
}

type toolFunc func(s *mcpServer, args json.RawMessage) (interface{}, error)

var mcpTools = map[string]toolFunc{
	"analyze":      toolAnalyze,
	"quick_check":  toolQuickCheck,
	"validate_kit": toolValidateKit,
	"suggest":      toolSuggest,
	"list_signals": toolListSignals,
}

// documentArgs names a document: inline markup, or a path under the
// workspace.
type documentArgs struct {
	HTML     string `json:"html"`
	Path     string `json:"path"`
	Source   string `json:"source"`
	Severity string `json:"severity"`
	Top      int    `json:"top"`
}

func (s *mcpServer) document(args json.RawMessage) (view.DocumentView, *engine.Analyzer, documentArgs, error) {
	var in documentArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, nil, in, fmt.Errorf("invalid arguments: %w", err)
	}
	an := s.an
	if in.Severity != "" {
		min, err := signals.ParseSeverity(in.Severity)
		if err != nil {
			return nil, nil, in, err
		}
		copied := *s.an
		copied.MinSeverity = min
		an = &copied
	}
	switch {
	case in.Path != "" && in.HTML != "":
		return nil, nil, in, errors.New("pass either html or path, not both")
	case in.Path != "":
		path := in.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(s.root, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, in, err
		}
		return view.ParseString(in.Path, view.Decode(data, "")), an, in, nil
	default:
		source := in.Source
		if source == "" {
			source = "input.html"
		}
		return view.ParseString(source, in.HTML), an, in, nil
	}
}

func toolAnalyze(s *mcpServer, args json.RawMessage) (interface{}, error) {
	doc, an, _, err := s.document(args)
	if err != nil {
		return nil, err
	}
	return an.Analyze(doc), nil
}

func toolQuickCheck(s *mcpServer, args json.RawMessage) (interface{}, error) {
	doc, an, in, err := s.document(args)
	if err != nil {
		return nil, err
	}
	top := in.Top
	if top <= 0 {
		top = 3
	}
	return an.QuickCheck(doc, top), nil
}

func toolValidateKit(s *mcpServer, args json.RawMessage) (interface{}, error) {
	var in struct {
		Name string    `json:"name"`
		Kit  *kits.Kit `json:"kit"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	var k kits.Kit
	switch {
	case in.Kit != nil:
		k = *in.Kit
	case in.Name != "":
		found, err := kits.Lookup(in.Name)
		if err != nil {
			return nil, err
		}
		k = found
	default:
		return nil, errors.New("name or kit is required")
	}
	return kits.Validate(k, s.an), nil
}

func toolSuggest(s *mcpServer, args json.RawMessage) (interface{}, error) {
	var in struct {
		Category string `json:"category"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	cat, err := signals.ParseCategory(in.Category)
	if err != nil {
		return nil, err
	}
	alts, err := signals.Alternatives(cat)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"category": cat, "alternatives": alts}, nil
}

func toolListSignals(s *mcpServer, args json.RawMessage) (interface{}, error) {
	var in struct {
		Category string `json:"category"`
		Severity string `json:"severity"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	list, err := filterSignals(s.an.Catalog, in.Category, in.Severity)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"catalogVersion": s.an.Catalog.Version(),
		"count":          len(list),
		"signals":        list,
	}, nil
}

func toolDefinitions() []map[string]interface{} {
	str := func(desc string) map[string]interface{} {
		return map[string]interface{}{"type": "string", "description": desc}
	}
	docProps := map[string]interface{}{
		"html":     str("Markup, JSX, CSS or copy to grade"),
		"path":     str("File to grade, relative to the workspace"),
		"source":   str("Name for inline html; its extension picks the parser"),
		"severity": str("Minimum severity: info, warning, critical"),
	}
	quickProps := map[string]interface{}{
		"top": map[string]interface{}{"type": "integer", "description": "Fixes to return (default 3)"},
	}
	for k, v := range docProps {
		quickProps[k] = v
	}
	return []map[string]interface{}{
		{
			"name":        "analyze",
			"description": "Grade a document: score, grade, every detection with its location",
			"inputSchema": map[string]interface{}{"type": "object", "properties": docProps},
		},
		{
			"name":        "quick_check",
			"description": "Grade a document and return the top fixes to apply first",
			"inputSchema": map[string]interface{}{"type": "object", "properties": quickProps},
		},
		{
			"name":        "validate_kit",
			"description": "Validate a built-in design kit by name, or a kit object",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name": str("Built-in kit name"),
					"kit":  map[string]interface{}{"type": "object", "description": "Kit definition"},
				},
			},
		},
		{
			"name":        "suggest",
			"description": "Replacement tokens for a category",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"category": str("One of: " + categoryList()),
				},
				"required": []string{"category"},
			},
		},
		{
			"name":        "list_signals",
			"description": "List catalog signals, optionally filtered",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"category": str("Only this category"),
					"severity": str("Only this severity and above"),
				},
			},
		},
	}
}

// runSelftest drives a handshake through an in-memory server and checks
// every reply.
func (a *app) runSelftest() bool {
	out := a.stdout
	fmt.Fprintln(out, "antislop MCP Self-Test")
	fmt.Fprintln(out, "======================")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "[OK] Version: %s (catalog %s)\n", Version, signals.Version)
	if a.cfgPath != "" {
		fmt.Fprintf(out, "[OK] Config loaded: %s\n", a.cfgPath)
	} else {
		fmt.Fprintln(out, "[INFO] Using default config")
	}

	requests := []string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"analyze","arguments":{"html":"<h1 style=\"color: #8B5CF6\">Unlock seamless growth</h1>"}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"ping"}`,
	}
	var in, resp bytes.Buffer
	for _, r := range requests {
		_ = mcpio.WriteMessage(&in, []byte(r))
	}
	if err := newMCPServer(&in, &resp, a.root(), a.logger).serve(); err != nil {
		fmt.Fprintf(out, "[FAIL] Serve: %v\n", err)
		return false
	}

	replies, err := readReplies(&resp)
	if err != nil {
		fmt.Fprintf(out, "[FAIL] Framing: %v\n", err)
		return false
	}
	if len(replies) != 4 {
		fmt.Fprintf(out, "[FAIL] Expected 4 replies, got %d\n", len(replies))
		return false
	}
	checks := []struct {
		name string
		ok   func(JSONRPCResponse) bool
	}{
		{"initialize", func(r JSONRPCResponse) bool { return r.Error == nil && r.Result != nil }},
		{"tools/list", func(r JSONRPCResponse) bool {
			m, _ := r.Result.(map[string]interface{})
			tools, _ := m["tools"].([]interface{})
			return len(tools) == len(mcpTools)
		}},
		{"tools/call analyze", func(r JSONRPCResponse) bool {
			res, err := decodeToolResult(r)
			return err == nil && res.Score > 0
		}},
		{"ping", func(r JSONRPCResponse) bool { return r.Error == nil }},
	}
	allOK := true
	for i, c := range checks {
		if c.ok(replies[i]) {
			fmt.Fprintf(out, "[OK] %s\n", c.name)
			continue
		}
		allOK = false
		fmt.Fprintf(out, "[FAIL] %s\n", c.name)
	}
	fmt.Fprintln(out)
	if allOK {
		fmt.Fprintln(out, "All tests passed!")
	}
	return allOK
}

func readReplies(r io.Reader) ([]JSONRPCResponse, error) {
	codec := mcpio.NewCodec(r, io.Discard)
	var out []JSONRPCResponse
	for {
		msg, err := codec.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		var resp JSONRPCResponse
		if err := json.Unmarshal(msg, &resp); err != nil {
			return out, err
		}
		out = append(out, resp)
	}
}

// decodeToolResult unwraps the AnalysisResult embedded in a tool reply.
func decodeToolResult(r JSONRPCResponse) (engine.AnalysisResult, error) {
	var res engine.AnalysisResult
	raw, err := json.Marshal(r.Result)
	if err != nil {
		return res, err
	}
	var tr toolResult
	if err := json.Unmarshal(raw, &tr); err != nil {
		return res, err
	}
	if tr.IsError || len(tr.Content) == 0 {
		return res, errors.New("tool returned an error")
	}
	err = json.Unmarshal([]byte(tr.Content[0].Text), &res)
	return res, err
}
