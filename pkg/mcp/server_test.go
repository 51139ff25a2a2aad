package mcp

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sunfmin/mcp-code-runner/pkg/config"
	"github.com/sunfmin/mcp-code-runner/pkg/runner"
	"github.com/sunfmin/mcp-code-runner/pkg/smoke"
	"github.com/sunfmin/mcp-code-runner/pkg/types"
)

// Helper function to create a test Python file
func createTestPythonFile(t *testing.T) string {
	t.Helper()

	pyFile := filepath.Join(t.TempDir(), "hello.py")
	if err := os.WriteFile(pyFile, []byte("print('hi')\n"), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
	return pyFile
}

func getTextContent(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}

	switch tc := result.Content[0].(type) {
	case mcp.TextContent:
		return tc.Text
	case *mcp.TextContent:
		return tc.Text
	}
	return ""
}

func newRequest(args map[string]interface{}) mcp.CallToolRequest {
	request := mcp.CallToolRequest{}
	request.Params.Arguments = args
	return request
}

// newShellServer runs every python file with command through sh.
func newShellServer(t *testing.T, command string) *MCPRunServer {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	cfg := config.Default()
	cfg.Shell = "sh"
	cfg.Commands["python"] = command
	return NewMCPRunServer("test-version", runner.New(cfg))
}

func TestPingCommand(t *testing.T) {
	server := NewMCPRunServer("test-version", nil)

	result, err := server.Ping(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	text := getTextContent(result)
	if text != "pong - Code Runner is connected!" {
		t.Errorf("Unexpected ping response: %s", text)
	}
}

func TestListLanguagesCommand(t *testing.T) {
	cfg := config.Default()
	cfg.Commands["python"] = `python "{file}"`
	server := NewMCPRunServer("test-version", runner.New(cfg))

	result, err := server.ListLanguages(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("ListLanguages failed: %v", err)
	}

	var response types.LanguagesResponse
	if err := json.Unmarshal([]byte(getTextContent(result)), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if len(response.Languages) != 12 {
		t.Fatalf("Expected 12 languages, got %d", len(response.Languages))
	}
	for _, l := range response.Languages {
		if l.ID == "python" && l.Command != `python "{file}"` {
			t.Errorf("Expected python override, got %s", l.Command)
		}
		if l.ID == "cpp" && l.DisplayName != "C++" {
			t.Errorf("Unexpected C++ display name: %s", l.DisplayName)
		}
	}

	// The override must not leak into the built-in table.
	if cmd, _ := runner.RunCommand("python", "a.py"); cmd != `python3 "a.py"` {
		t.Errorf("Built-in table was modified: %s", cmd)
	}
}

func TestGetRunCommand(t *testing.T) {
	server := NewMCPRunServer("test-version", nil)
	pyFile := createTestPythonFile(t)

	result, err := server.GetRunCommand(context.Background(), newRequest(map[string]interface{}{
		"file": pyFile,
	}))
	if err != nil {
		t.Fatalf("GetRunCommand failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("Unexpected error result: %s", getTextContent(result))
	}

	var response types.RunCommandResponse
	if err := json.Unmarshal([]byte(getTextContent(result)), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response.Command != `python3 "hello.py"` {
		t.Errorf("Unexpected command: %s", response.Command)
	}
	if response.Cwd != filepath.Dir(pyFile) {
		t.Errorf("Unexpected cwd: %s", response.Cwd)
	}

	result, _ = server.GetRunCommand(context.Background(), newRequest(map[string]interface{}{
		"file":     pyFile,
		"language": "plaintext",
	}))
	if !result.IsError {
		t.Errorf("Expected error for unsupported language")
	}
}

func TestStatusItemCommand(t *testing.T) {
	server := NewMCPRunServer("test-version", nil)

	result, err := server.StatusItem(context.Background(), newRequest(map[string]interface{}{
		"language": "go",
	}))
	if err != nil {
		t.Fatalf("StatusItem failed: %v", err)
	}

	var item types.StatusItem
	if err := json.Unmarshal([]byte(getTextContent(result)), &item); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if !item.Visible || item.Text != "$(play) Run Go" {
		t.Errorf("Unexpected status item: %+v", item)
	}

	result, _ = server.StatusItem(context.Background(), mcp.CallToolRequest{})
	item = types.StatusItem{}
	if err := json.Unmarshal([]byte(getTextContent(result)), &item); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if item.Visible {
		t.Errorf("Status item should be hidden without an active file")
	}
}

func TestRunFileAndGetRunOutput(t *testing.T) {
	server := newShellServer(t, `echo "ran {file}"; echo "$@"`)
	pyFile := createTestPythonFile(t)
	ctx := context.Background()

	result, _ := server.GetRunOutput(ctx, mcp.CallToolRequest{})
	if !result.IsError {
		t.Errorf("Expected error before any run")
	}

	result, err := server.RunFile(ctx, newRequest(map[string]interface{}{
		"file": pyFile,
	}))
	if err != nil {
		t.Fatalf("RunFile failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("Unexpected error result: %s", getTextContent(result))
	}

	var response types.RunResponse
	if err := json.Unmarshal([]byte(getTextContent(result)), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response.Stdout != "ran hello.py\n\n" {
		t.Errorf("Unexpected stdout: %q", response.Stdout)
	}
	if response.ExitCode != 0 {
		t.Errorf("Unexpected exit code: %d", response.ExitCode)
	}

	result, _ = server.GetRunOutput(ctx, mcp.CallToolRequest{})
	var last types.RunResponse
	if err := json.Unmarshal([]byte(getTextContent(result)), &last); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if last.ID != response.ID {
		t.Errorf("get_run_output returned run %s, want %s", last.ID, response.ID)
	}
}

func TestGetCapturedOutput(t *testing.T) {
	server := newShellServer(t, `echo one; echo two >&2`)
	ctx := context.Background()

	if _, err := server.RunFile(ctx, newRequest(map[string]interface{}{
		"file": createTestPythonFile(t),
	})); err != nil {
		t.Fatalf("RunFile failed: %v", err)
	}

	result, err := server.GetCapturedOutput(ctx, mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("GetCapturedOutput failed: %v", err)
	}
	var response capturedOutputResponse
	if err := json.Unmarshal([]byte(getTextContent(result)), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(response.Messages) != 2 {
		t.Fatalf("Expected 2 captured lines, got %d", len(response.Messages))
	}
	got := map[string]string{}
	for _, m := range response.Messages {
		got[m.Source] = m.Content
	}
	if got["stdout"] != "one" || got["stderr"] != "two" {
		t.Errorf("Unexpected captured lines: %v", got)
	}

	// Lines are handed out once.
	result, _ = server.GetCapturedOutput(ctx, mcp.CallToolRequest{})
	if err := json.Unmarshal([]byte(getTextContent(result)), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(response.Messages) != 0 {
		t.Errorf("Expected no lines on the second call, got %d", len(response.Messages))
	}
}

func TestRunFileMissing(t *testing.T) {
	server := NewMCPRunServer("test-version", nil)

	result, err := server.RunFile(context.Background(), newRequest(map[string]interface{}{
		"file": filepath.Join(t.TempDir(), "missing.py"),
	}))
	if err != nil {
		t.Fatalf("RunFile returned a Go error: %v", err)
	}
	if !result.IsError {
		t.Errorf("Expected error result for missing file")
	}
}

func TestSmokeCommand(t *testing.T) {
	server := NewMCPRunServer("test-version", nil)

	result, err := server.Smoke(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("Smoke failed: %v", err)
	}

	var response types.SmokeResponse
	if err := json.Unmarshal([]byte(getTextContent(result)), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response.Output != smoke.Expected() {
		t.Errorf("Unexpected smoke output: %q", response.Output)
	}
	if len(response.Lines) != 6 {
		t.Errorf("Expected 6 lines, got %d", len(response.Lines))
	}
}

func TestVerifySmokeCommand(t *testing.T) {
	server := newShellServer(t, `echo 'Hello from Python!'`)
	pyFile := createTestPythonFile(t)

	result, err := server.VerifySmoke(context.Background(), newRequest(map[string]interface{}{
		"file": pyFile,
	}))
	if err != nil {
		t.Fatalf("VerifySmoke failed: %v", err)
	}

	var response types.VerifyResponse
	if err := json.Unmarshal([]byte(getTextContent(result)), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response.Status != "fail" || response.Match {
		t.Errorf("Expected a failed verification, got %s", response.Status)
	}
	if response.Diff == "" {
		t.Errorf("Expected a diff")
	}
}

func TestDebugFileRequiresFile(t *testing.T) {
	server := NewMCPRunServer("test-version", nil)

	result, err := server.DebugFile(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("DebugFile returned a Go error: %v", err)
	}
	if !result.IsError {
		t.Errorf("Expected error result without file")
	}
}
