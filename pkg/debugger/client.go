// Package debugger runs Go programs to completion under a headless Delve
// server and collects what they print.
package debugger

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-delve/delve/pkg/gobuild"
	"github.com/go-delve/delve/service/rpc2"
	"github.com/go-delve/delve/service/rpccommon"

	"github.com/sunfmin/mcp-code-runner/pkg/logger"
)

// Client encapsulates the Delve debug client functionality
type Client struct {
	mu sync.Mutex

	running bool
	build   func(binary, sourceFile string) error

	client  *rpc2.RPCClient
	server  *rpccommon.ServerImpl
	target  string
	binary  string
	tempDir string

	stdout  outputBuffer
	stderr  outputBuffer
	capture sync.WaitGroup
}

// NewClient creates a new Delve client wrapper
func NewClient() *Client {
	return &Client{build: buildDebugBinary}
}

// IsConnected reports whether a debug session is active
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running || c.client != nil
}

// buildDebugBinary compiles sourceFile without optimizations
func buildDebugBinary(binary, sourceFile string) error {
	buildCmd, out, err := gobuild.GoBuildCombinedOutput(binary, []string{sourceFile}, "")
	if err != nil {
		logger.Debug("Compilation failed", "command", buildCmd, "output", string(out))
		return fmt.Errorf("failed to compile %s: %w\n%s", sourceFile, err, out)
	}
	return nil
}

// GetTarget returns the program being debugged
func (c *Client) GetTarget() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

// Close terminates the debug session
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Client) closeLocked() error {
	var detachErr error
	if c.client != nil {
		// Create a context with timeout to prevent indefinite hanging
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		errChan := make(chan error, 1)
		client := c.client
		go func() {
			errChan <- client.Detach(true)
		}()

		select {
		case detachErr = <-errChan:
			if detachErr != nil {
				logger.Debug("Failed to detach from debugged process", "error", detachErr)
			}
		case <-ctx.Done():
			logger.Warn("Detach operation timed out after 5 seconds")
			detachErr = ctx.Err()
		}
		c.client = nil
	}

	if c.server != nil {
		stopChan := make(chan error, 1)
		server := c.server
		go func() {
			stopChan <- server.Stop()
		}()

		select {
		case err := <-stopChan:
			if err != nil {
				logger.Debug("Failed to stop debug server", "error", err)
			}
		case <-time.After(5 * time.Second):
			logger.Warn("Server stop operation timed out after 5 seconds")
		}
		c.server = nil
	}

	if c.binary != "" {
		gobuild.Remove(c.binary)
		c.binary = ""
	}
	if c.tempDir != "" {
		logger.Debug("Cleaning up temporary directory", "dir", c.tempDir)
		if err := os.RemoveAll(c.tempDir); err != nil {
			logger.Debug("Failed to remove temporary directory", "error", err)
		}
		c.tempDir = ""
	}
	c.target = ""

	if detachErr != nil {
		return fmt.Errorf("failed to detach: %w", detachErr)
	}
	return nil
}
