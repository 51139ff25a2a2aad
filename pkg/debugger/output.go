package debugger

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sunfmin/mcp-code-runner/pkg/logger"
)

type outputBuffer struct {
	mu sync.Mutex
	sb strings.Builder
}

func (b *outputBuffer) write(s string) {
	b.mu.Lock()
	b.sb.WriteString(s)
	b.mu.Unlock()
}

func (b *outputBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.String()
}

func (b *outputBuffer) reset() {
	b.mu.Lock()
	b.sb.Reset()
	b.mu.Unlock()
}

// captureOutput copies one redirected stream of the debuggee into buf
func (c *Client) captureOutput(r io.ReadCloser, source string, buf *outputBuffer) {
	defer c.capture.Done()
	defer r.Close()

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			buf.write(line)
			logger.Debug("Program output", "source", source, "line", strings.TrimSuffix(line, "\n"))
		}
		if err != nil {
			if err != io.EOF {
				logger.Debug("Output capture stopped", "source", source, "error", err)
			}
			return
		}
	}
}

// waitForCapture gives the capture goroutines a bounded time to drain
func (c *Client) waitForCapture(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		c.capture.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		logger.Warn("Timed out waiting for program output to drain")
	}
}

// Helper function to generate a summary of the output
func generateOutputSummary(stdout, stderr string, exitCode int) string {
	summary := fmt.Sprintf("Program exited with status %d under the debugger. ", exitCode)

	if len(stdout) > 0 {
		summary += fmt.Sprintf("Stdout: %d bytes. ", len(stdout))
	}
	if len(stderr) > 0 {
		summary += fmt.Sprintf("Stderr: %d bytes. ", len(stderr))
	}
	if len(stdout) == 0 && len(stderr) == 0 {
		summary += "No output captured"
	}

	return strings.TrimSpace(summary)
}
