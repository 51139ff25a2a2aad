package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sunfmin/mcp-code-runner/pkg/debugger"
	"github.com/sunfmin/mcp-code-runner/pkg/logger"
	"github.com/sunfmin/mcp-code-runner/pkg/runner"
	"github.com/sunfmin/mcp-code-runner/pkg/smoke"
	"github.com/sunfmin/mcp-code-runner/pkg/types"
	"github.com/sunfmin/mcp-code-runner/pkg/verify"
)

// ServerName is reported to MCP clients
const ServerName = "Code Runner MCP"

// MCPRunServer encapsulates the MCP server with code running functionality
type MCPRunServer struct {
	server      *server.MCPServer
	runner      *runner.Runner
	debugClient *debugger.Client
	version     string
}

// NewMCPRunServer creates a new MCP server backed by r
func NewMCPRunServer(version string, r *runner.Runner) *MCPRunServer {
	if r == nil {
		r = runner.New(nil)
	}
	s := &MCPRunServer{
		server:      server.NewMCPServer(ServerName, version),
		runner:      r,
		debugClient: debugger.NewClient(),
		version:     version,
	}

	// Register all tools
	s.registerTools()

	return s
}

// Server returns the underlying MCP server
func (s *MCPRunServer) Server() *server.MCPServer {
	return s.server
}

// Runner returns the runner used by the tools
func (s *MCPRunServer) Runner() *runner.Runner {
	return s.runner
}

func (s *MCPRunServer) registerTools() {
	s.server.AddTool(mcp.NewTool("ping",
		mcp.WithDescription("Simple ping tool to test connection"),
	), s.Ping)

	s.server.AddTool(mcp.NewTool("list_languages",
		mcp.WithDescription("List the languages that can be run and their run commands"),
	), s.ListLanguages)

	s.server.AddTool(mcp.NewTool("get_run_command",
		mcp.WithDescription("Show the command and working directory used to run a file, without running it"),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("Path to the source file"),
		),
		mcp.WithString("language",
			mcp.Description("Language ID; detected from the file extension when omitted"),
		),
	), s.GetRunCommand)

	s.server.AddTool(mcp.NewTool("status_item",
		mcp.WithDescription("Get the run button state for a language ID"),
		mcp.WithString("language",
			mcp.Description("Language ID of the active file; empty when no file is open"),
		),
	), s.StatusItem)

	s.server.AddTool(mcp.NewTool("run_file",
		mcp.WithDescription("Run a source file and capture its stdout, stderr and exit code"),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("Path to the source file"),
		),
		mcp.WithString("language",
			mcp.Description("Language ID; detected from the file extension when omitted"),
		),
		mcp.WithString("cwd",
			mcp.Description("Working directory; defaults to the file's workspace root"),
		),
		mcp.WithArray("args",
			mcp.Description("Arguments to pass to the program"),
		),
	), s.RunFile)

	s.server.AddTool(mcp.NewTool("get_run_output",
		mcp.WithDescription("Get the result of the most recent run"),
	), s.GetRunOutput)

	s.server.AddTool(mcp.NewTool("get_captured_output",
		mcp.WithDescription("Get the output lines captured since the last call, in the order they were printed"),
	), s.GetCapturedOutput)

	s.server.AddTool(mcp.NewTool("smoke",
		mcp.WithDescription("Return the smoke transcript produced in-process"),
	), s.Smoke)

	s.server.AddTool(mcp.NewTool("verify_smoke",
		mcp.WithDescription("Run the smoke program and diff its output against the expected transcript"),
		mcp.WithString("file",
			mcp.Description("Smoke program to run (default "+verify.DefaultFile+")"),
		),
	), s.VerifySmoke)

	s.server.AddTool(mcp.NewTool("debug_file",
		mcp.WithDescription("Run a Go source file to completion under the Delve debugger"),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("Absolute Path to the Go source file"),
		),
		mcp.WithArray("args",
			mcp.Description("Arguments to pass to the program"),
		),
	), s.DebugFile)
}

// newErrorResult creates a tool result that represents an error
func newErrorResult(format string, args ...interface{}) *mcp.CallToolResult {
	result := mcp.NewToolResultText(fmt.Sprintf("Error: "+format, args...))
	result.IsError = true
	return result
}

func newToolResultJSON(data interface{}) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return newErrorResult("failed to serialize data: %v", err), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func stringArg(request mcp.CallToolRequest, name string) string {
	v, _ := request.Params.Arguments[name].(string)
	return v
}

func stringsArg(request mcp.CallToolRequest, name string) []string {
	argsArray, ok := request.Params.Arguments[name].([]interface{})
	if !ok {
		return nil
	}
	args := make([]string, len(argsArray))
	for i, arg := range argsArray {
		args[i] = fmt.Sprintf("%v", arg)
	}
	return args
}

// Ping handles the ping command
func (s *MCPRunServer) Ping(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("Received ping request")
	return mcp.NewToolResultText("pong - Code Runner is connected!"), nil
}

// ListLanguages handles the list_languages command
func (s *MCPRunServer) ListLanguages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("Received list_languages request")

	langs := runner.Languages()
	for i := range langs {
		if o := s.runner.Config().Commands[langs[i].ID]; o != "" {
			langs[i].Command = o
		}
	}

	return newToolResultJSON(types.LanguagesResponse{
		Status:    "success",
		Languages: langs,
	})
}

// GetRunCommand handles the get_run_command command
func (s *MCPRunServer) GetRunCommand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("Received get_run_command request")

	resolved, err := s.runner.Resolve(runner.RunRequest{
		File:     stringArg(request, "file"),
		Language: stringArg(request, "language"),
	})
	if err != nil {
		return newErrorResult("%v", err), nil
	}

	return newToolResultJSON(resolved)
}

// StatusItem handles the status_item command
func (s *MCPRunServer) StatusItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("Received status_item request")
	return newToolResultJSON(runner.StatusFor(stringArg(request, "language")))
}

// RunFile handles the run_file command
func (s *MCPRunServer) RunFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("Received run_file request")

	response, err := s.runner.Run(ctx, runner.RunRequest{
		File:     stringArg(request, "file"),
		Language: stringArg(request, "language"),
		Cwd:      stringArg(request, "cwd"),
		Args:     stringsArg(request, "args"),
	})
	if err != nil {
		logger.Error("Failed to run file", "error", err)
		return newErrorResult("failed to run file: %v", err), nil
	}

	return newToolResultJSON(response)
}

// GetRunOutput handles the get_run_output command
func (s *MCPRunServer) GetRunOutput(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("Received get_run_output request")

	last := s.runner.Last()
	if last == nil {
		return newErrorResult("no file has been run yet"), nil
	}

	return newToolResultJSON(last)
}

// capturedOutputResponse lists the lines drained from the runner's output channel
type capturedOutputResponse struct {
	Status   string                 `json:"status"`
	Messages []runner.OutputMessage `json:"messages"`
}

// GetCapturedOutput handles the get_captured_output command
func (s *MCPRunServer) GetCapturedOutput(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("Received get_captured_output request")

	messages := s.runner.GetAllCapturedOutput()
	if messages == nil {
		messages = []runner.OutputMessage{}
	}
	return newToolResultJSON(capturedOutputResponse{Status: "success", Messages: messages})
}

// Smoke handles the smoke command
func (s *MCPRunServer) Smoke(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("Received smoke request")

	return newToolResultJSON(types.SmokeResponse{
		Status: "success",
		Lines:  smoke.Lines(),
		Output: smoke.Expected(),
	})
}

// VerifySmoke handles the verify_smoke command
func (s *MCPRunServer) VerifySmoke(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("Received verify_smoke request")

	response, err := verify.Smoke(ctx, s.runner, stringArg(request, "file"))
	if err != nil {
		logger.Error("Failed to verify smoke program", "error", err)
		return newErrorResult("failed to verify smoke program: %v", err), nil
	}

	return newToolResultJSON(response)
}

// DebugFile handles the debug_file command
func (s *MCPRunServer) DebugFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("Received debug_file request")

	file := stringArg(request, "file")
	if file == "" {
		return newErrorResult("file is required"), nil
	}

	response, err := s.debugClient.DebugSourceFile(ctx, file, stringsArg(request, "args"))
	if err != nil {
		logger.Error("Failed to debug file", "error", err, "file", file)
		return newErrorResult("failed to debug file: %v", err), nil
	}

	return newToolResultJSON(response)
}
