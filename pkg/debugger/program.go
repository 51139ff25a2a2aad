package debugger

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/go-delve/delve/pkg/logflags"
	"github.com/go-delve/delve/pkg/proc"
	"github.com/go-delve/delve/service"
	"github.com/go-delve/delve/service/api"
	"github.com/go-delve/delve/service/debugger"
	"github.com/go-delve/delve/service/rpc2"
	"github.com/go-delve/delve/service/rpccommon"
	"github.com/google/uuid"

	"github.com/sunfmin/mcp-code-runner/pkg/logger"
	"github.com/sunfmin/mcp-code-runner/pkg/runner"
	"github.com/sunfmin/mcp-code-runner/pkg/types"
)

// ErrSessionActive is returned when a second session is started
var ErrSessionActive = errors.New("debug session already active")

// DebugSourceFile compiles a Go source file without optimizations, runs it
// under Delve until the process exits and returns what it printed. The
// session is closed before returning.
func (c *Client) DebugSourceFile(ctx context.Context, sourceFile string, args []string) (*types.RunResponse, error) {
	absPath, err := filepath.Abs(sourceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	if _, err := os.Stat(absPath); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", runner.ErrFileNotFound, absPath)
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", absPath, err)
	}
	if filepath.Ext(absPath) != ".go" {
		return nil, fmt.Errorf("%w: only Go files can be debugged", runner.ErrUnsupportedLanguage)
	}

	// c.mu only guards session state; the build and the run happen unlocked.
	c.mu.Lock()
	if c.running || c.client != nil {
		c.mu.Unlock()
		return nil, ErrSessionActive
	}
	c.running = true
	build := c.build
	if build == nil {
		build = buildDebugBinary
	}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if err := c.closeLocked(); err != nil {
			logger.Debug("Failed to close debug session", "error", err)
		}
		c.running = false
	}()

	tempDir, err := os.MkdirTemp("", "mcp-code-runner-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	binary := filepath.Join(tempDir, "debug_binary")

	c.mu.Lock()
	c.tempDir = tempDir
	c.binary = binary
	c.target = absPath
	c.mu.Unlock()

	logger.Debug("Compiling source file", "file", absPath, "binary", binary)
	if err := build(binary, absPath); err != nil {
		return nil, err
	}

	start := time.Now()
	cwd := runner.WorkspaceRoot(absPath)
	if err := c.launch(binary, args, cwd); err != nil {
		return nil, err
	}

	exitCode, err := c.continueToExit(ctx)
	if err != nil {
		return nil, err
	}

	// Killing the process closes the write ends of the redirect pipes.
	c.mu.Lock()
	if err := c.closeLocked(); err != nil {
		logger.Debug("Failed to close debug session", "error", err)
	}
	c.mu.Unlock()
	c.waitForCapture(2 * time.Second)

	stdout, stderr := c.stdout.String(), c.stderr.String()
	response := &types.RunResponse{
		ID:          uuid.NewString(),
		File:        absPath,
		Language:    "go",
		DisplayName: runner.DisplayName("go"),
		Command:     fmt.Sprintf("dlv debug %s", filepath.Base(absPath)),
		Cwd:         cwd,
		Stdout:      stdout,
		Stderr:      stderr,
		ExitCode:    exitCode,
		Duration:    time.Since(start),
		Process: &types.Process{
			CmdLine:  append([]string{filepath.Base(absPath)}, args...),
			ExitCode: exitCode,
		},
		OutputSummary: generateOutputSummary(stdout, stderr, exitCode),
		Context: types.RunContext{
			Timestamp: time.Now(),
			Operation: "debug",
			Status:    "success",
			Summary:   fmt.Sprintf("Debugged Go file %s", filepath.Base(absPath)),
		},
	}
	if exitCode != 0 {
		response.Context.Status = "failed"
	}
	return response, nil
}

// launch starts a headless Delve server for program and connects to it
func (c *Client) launch(program string, args []string, workingDir string) error {
	logflags.Setup(false, "", "")

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("couldn't start listener: %w", err)
	}

	// Create pipes for stdout and stderr using the proc.Redirector function
	stdoutReader, stdoutRedirect, err := proc.Redirector()
	if err != nil {
		listener.Close()
		return fmt.Errorf("failed to create stdout redirector: %w", err)
	}
	stderrReader, stderrRedirect, err := proc.Redirector()
	if err != nil {
		listener.Close()
		stdoutReader.Close()
		stdoutRedirect.File.Close()
		return fmt.Errorf("failed to create stderr redirector: %w", err)
	}

	c.stdout.reset()
	c.stderr.reset()
	c.capture.Add(2)
	go c.captureOutput(stdoutReader, "stdout", &c.stdout)
	go c.captureOutput(stderrReader, "stderr", &c.stderr)

	config := &service.Config{
		Listener:    listener,
		APIVersion:  2,
		AcceptMulti: true,
		ProcessArgs: append([]string{program}, args...),
		Debugger: debugger.Config{
			WorkingDir:     workingDir,
			Backend:        "default",
			CheckGoVersion: true,
			DisableASLR:    true,
			Stdout:         stdoutRedirect,
			Stderr:         stderrRedirect,
		},
	}

	server := rpccommon.NewServer(config)
	if server == nil {
		stdoutRedirect.File.Close()
		stderrRedirect.File.Close()
		return fmt.Errorf("failed to create debug server")
	}
	c.mu.Lock()
	c.server = server
	c.mu.Unlock()

	serverReady := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			logger.Debug("Debug server error", "error", err)
			serverReady <- err
		}
	}()

	addr := listener.Addr().String()

	// Wait up to 3 seconds for server to be available
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			stdoutRedirect.File.Close()
			stderrRedirect.File.Close()
			return fmt.Errorf("timed out waiting for debug server to start")
		case err := <-serverReady:
			stdoutRedirect.File.Close()
			stderrRedirect.File.Close()
			return fmt.Errorf("debug server failed to start: %w", err)
		default:
			client := rpc2.NewClient(addr)
			state, err := client.GetState()
			if err == nil && state != nil {
				c.mu.Lock()
				c.client = client
				c.mu.Unlock()
				// The debuggee holds its own copies now.
				stdoutRedirect.File.Close()
				stderrRedirect.File.Close()
				logger.Debug("Launched program under debugger", "program", program, "addr", addr)
				return nil
			}
			time.Sleep(100 * time.Millisecond)
		}
	}
}

// continueToExit resumes the program until it exits. Stops at breakpoints
// Delve sets on its own (such as unrecovered panics) are continued past.
func (c *Client) continueToExit(ctx context.Context) (int, error) {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		return 0, fmt.Errorf("no active debug session")
	}
	stop := context.AfterFunc(ctx, func() {
		if _, err := client.Halt(); err != nil {
			logger.Debug("Failed to halt program", "error", err)
		}
	})
	defer stop()

	for {
		var last *api.DebuggerState
		for state := range client.Continue() {
			last = state
		}

		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if last == nil {
			return 0, fmt.Errorf("debugger returned no state")
		}
		if last.Exited {
			logger.Debug("Program has exited", "status", last.ExitStatus)
			return last.ExitStatus, nil
		}
		if last.Err != nil {
			return 0, fmt.Errorf("continue command failed: %w", last.Err)
		}
		if last.CurrentThread != nil {
			logger.Debug("Program stopped before exit, continuing",
				"file", last.CurrentThread.File, "line", last.CurrentThread.Line)
		}
	}
}
