package types

import (
	"time"
)

// RunContext provides shared context across all runner responses
type RunContext struct {
	Timestamp    time.Time `json:"timestamp"`           // Operation timestamp
	Operation    string    `json:"operation,omitempty"` // Operation performed
	ErrorMessage string    `json:"error,omitempty"`     // Error message if any
	Status       string    `json:"status,omitempty"`    // Outcome of the operation
	Summary      string    `json:"summary,omitempty"`   // Summary of the current state
}

// Language describes a language the runner can execute
type Language struct {
	ID          string   `json:"id"`          // Editor language identifier, e.g. "cpp"
	DisplayName string   `json:"displayName"` // Human-readable name, e.g. "C++"
	Extensions  []string `json:"extensions"`  // File extensions mapped to this language
	Command     string   `json:"command"`     // Run command template
}

// StatusItem is the run button state for the active file
type StatusItem struct {
	Visible bool   `json:"visible"`
	Text    string `json:"text,omitempty"`
	Tooltip string `json:"tooltip,omitempty"`
	Command string `json:"command"`
}

// Process represents a finished script process
type Process struct {
	Pid         int      `json:"pid"`                   // Process ID
	CmdLine     []string `json:"cmdLine"`               // Command line arguments
	ExitCode    int      `json:"exitCode"`              // Exit code if process has terminated
	ExitMessage string   `json:"exitMessage,omitempty"` // Exit message if process has terminated
}

// RunResponse is the result of running one file
type RunResponse struct {
	ID          string        `json:"id"`
	Context     RunContext    `json:"context"`
	File        string        `json:"file"`
	Language    string        `json:"language"`
	DisplayName string        `json:"displayName"`
	Command     string        `json:"command"`
	Cwd         string        `json:"cwd"`
	Stdout      string        `json:"stdout"`
	Stderr      string        `json:"stderr"`
	ExitCode    int           `json:"exitCode"`
	TimedOut    bool          `json:"timedOut,omitempty"`
	Duration    time.Duration `json:"duration"`
	Process     *Process      `json:"process,omitempty"`

	OutputSummary string `json:"outputSummary"` // Brief summary of output for LLM
}

// RunCommandResponse reports the command that would run a file
type RunCommandResponse struct {
	Status      string `json:"status"`
	File        string `json:"file"`
	Language    string `json:"language"`
	DisplayName string `json:"displayName"`
	Command     string `json:"command"`
	Cwd         string `json:"cwd"`
}

// LanguagesResponse lists supported languages
type LanguagesResponse struct {
	Status    string     `json:"status"`
	Languages []Language `json:"languages"`
}

// SmokeResponse carries the in-process smoke transcript
type SmokeResponse struct {
	Status string   `json:"status"`
	Lines  []string `json:"lines"`
	Output string   `json:"output"`
}

// VerifyResponse is the result of comparing a run against the smoke transcript
type VerifyResponse struct {
	Status   string       `json:"status"` // "pass" or "fail"
	Context  RunContext   `json:"context"`
	Match    bool         `json:"match"`
	Diff     string       `json:"diff,omitempty"` // Unified diff, expected vs actual
	Expected string       `json:"expected"`
	Run      *RunResponse `json:"run"`
}
