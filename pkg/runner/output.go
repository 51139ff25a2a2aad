package runner

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sunfmin/mcp-code-runner/pkg/logger"
)

// OutputMessage represents a captured output line
type OutputMessage struct {
	RunID     string    `json:"runId"`
	Source    string    `json:"source"` // "stdout" or "stderr"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// lockedBuffer collects one stream of a run.
type lockedBuffer struct {
	mu sync.Mutex
	sb strings.Builder
}

func (b *lockedBuffer) WriteString(s string) {
	b.mu.Lock()
	b.sb.WriteString(s)
	b.mu.Unlock()
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.String()
}

// capture copies r into buf line by line and publishes each line on the
// runner's output channel. Lines keep their trailing newline in buf.
func (r *Runner) capture(runID, source string, rd io.Reader, buf *lockedBuffer) error {
	br := bufio.NewReader(rd)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			buf.WriteString(line)
			r.publish(OutputMessage{
				RunID:     runID,
				Source:    source,
				Content:   strings.TrimSuffix(line, "\n"),
				Timestamp: time.Now(),
			})
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", source, err)
		}
	}
}

func (r *Runner) publish(msg OutputMessage) {
	select {
	case r.outputChan <- msg:
	default:
		logger.Debug("Output channel full, dropping line", "source", msg.Source)
	}
}

// Output returns the channel every captured line is published on. Lines
// left unread when the next run starts are discarded.
func (r *Runner) Output() <-chan OutputMessage {
	return r.outputChan
}

// GetCapturedOutput returns the next captured output message
// Returns nil when there are no more messages
func (r *Runner) GetCapturedOutput() *OutputMessage {
	select {
	case msg := <-r.outputChan:
		return &msg
	default:
		return nil
	}
}

// GetAllCapturedOutput returns all currently available captured output messages
func (r *Runner) GetAllCapturedOutput() []OutputMessage {
	var messages []OutputMessage
	for {
		msg := r.GetCapturedOutput()
		if msg == nil {
			break
		}
		messages = append(messages, *msg)
	}
	return messages
}

// generateOutputSummary produces a short description of a finished run
func generateOutputSummary(stdout, stderr string, exitCode int, timedOut bool) string {
	var summary string
	if timedOut {
		summary = "Program timed out. "
	} else {
		summary = fmt.Sprintf("Program exited with status %d. ", exitCode)
	}

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
