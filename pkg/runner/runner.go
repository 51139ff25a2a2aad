// Package runner resolves how to run a source file and executes it,
// capturing stdout, stderr and the exit code.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sunfmin/mcp-code-runner/pkg/config"
	"github.com/sunfmin/mcp-code-runner/pkg/logger"
	"github.com/sunfmin/mcp-code-runner/pkg/types"
)

const outputBuffer = 1024

// RunRequest describes a file to run. Language and Cwd are optional.
type RunRequest struct {
	File     string
	Language string
	Cwd      string
	Args     []string
}

// Runner executes source files one at a time.
type Runner struct {
	cfg        *config.Config
	outputChan chan OutputMessage

	// workspaceConfig makes each run read config.FileName from the file's
	// workspace root, falling back to cfg.
	workspaceConfig bool

	runMu sync.Mutex

	mu   sync.Mutex
	last *types.RunResponse
}

// New creates a runner. A nil cfg means config.Default().
func New(cfg *config.Config) *Runner {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Runner{
		cfg:        cfg,
		outputChan: make(chan OutputMessage, outputBuffer),
	}
}

// Config returns the runner settings.
func (r *Runner) Config() *config.Config {
	return r.cfg
}

// UseWorkspaceConfig makes later runs prefer the workspace's own
// config file over the settings the runner was created with.
func (r *Runner) UseWorkspaceConfig() *Runner {
	r.workspaceConfig = true
	return r
}

// settingsFor returns the config that applies to files under root.
func (r *Runner) settingsFor(root string) *config.Config {
	if !r.workspaceConfig {
		return r.cfg
	}
	path := filepath.Join(root, config.FileName)
	if _, err := os.Stat(path); err != nil {
		return r.cfg
	}
	cfg, err := config.LoadWorkspace(root)
	if err != nil {
		logger.Warn("Ignoring workspace config", "path", path, "error", err)
		return r.cfg
	}
	logger.Debug("Using workspace config", "path", path)
	return cfg
}

// Last returns the response of the most recent run, or nil.
func (r *Runner) Last() *types.RunResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Resolve validates the request and fills in language, cwd and command
// without running anything.
func (r *Runner) Resolve(req RunRequest) (*types.RunCommandResponse, error) {
	resolved, _, err := r.resolve(req)
	return resolved, err
}

func (r *Runner) resolve(req RunRequest) (*types.RunCommandResponse, *config.Config, error) {
	if req.File == "" {
		return nil, nil, ErrNoActiveFile
	}

	absPath, err := filepath.Abs(req.File)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	if _, err := os.Stat(absPath); errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("%w: %s", ErrFileNotFound, absPath)
	} else if err != nil {
		return nil, nil, fmt.Errorf("failed to stat %s: %w", absPath, err)
	}

	language := req.Language
	if language == "" {
		if language, err = DetectLanguage(absPath); err != nil {
			return nil, nil, err
		}
	}
	if !IsSupported(language) {
		return nil, nil, unsupported(language)
	}

	root := WorkspaceRoot(absPath)
	cfg := r.settingsFor(root)

	cwd := req.Cwd
	if cwd == "" {
		cwd = root
	}

	rel, err := filepath.Rel(cwd, absPath)
	if err != nil {
		rel = absPath
	}

	command, err := runCommand(language, filepath.ToSlash(rel), cfg.Commands)
	if err != nil {
		return nil, nil, err
	}

	return &types.RunCommandResponse{
		Status:      "success",
		File:        absPath,
		Language:    language,
		DisplayName: DisplayName(language),
		Command:     command,
		Cwd:         cwd,
	}, cfg, nil
}

// Run executes req.File and waits for it to finish or time out.
// A non-zero exit status is reported in the response, not as an error.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*types.RunResponse, error) {
	resolved, cfg, err := r.resolve(req)
	if err != nil {
		return nil, err
	}

	r.runMu.Lock()
	defer r.runMu.Unlock()

	if stale := len(r.GetAllCapturedOutput()); stale > 0 {
		logger.Debug("Discarded unread output", "lines", stale)
	}

	runID := uuid.NewString()
	command := resolved.Command
	for _, a := range req.Args {
		command += " " + quoteArg(cfg.Shell, a)
	}

	argv := append(cfg.ShellArgs(), command)
	logger.Info("Running file",
		"id", runID, "language", resolved.Language, "command", command, "cwd", resolved.Cwd)

	runCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = resolved.Cwd
	cmd.WaitDelay = time.Second

	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	var stdout, stderr lockedBuffer
	var g errgroup.Group
	g.Go(func() error { return r.capture(runID, "stdout", stdoutR, &stdout) })
	g.Go(func() error { return r.capture(runID, "stderr", stderrR, &stderr) })

	start := time.Now()
	if err := cmd.Start(); err != nil {
		stdoutW.Close()
		stderrW.Close()
		_ = g.Wait()
		return nil, fmt.Errorf("failed to start %s: %w", argv[0], err)
	}

	waitErr := cmd.Wait()
	stdoutW.Close()
	stderrW.Close()
	if err := g.Wait(); err != nil {
		logger.Warn("Output capture failed", "id", runID, "error", err)
	}
	duration := time.Since(start)

	exitCode := 0
	timedOut := errors.Is(runCtx.Err(), context.DeadlineExceeded)
	var exitErr *exec.ExitError
	switch {
	case waitErr == nil, errors.Is(waitErr, exec.ErrWaitDelay):
	case errors.As(waitErr, &exitErr):
		exitCode = exitErr.ExitCode()
	case timedOut, ctx.Err() != nil:
		exitCode = -1
	default:
		return nil, fmt.Errorf("failed to wait for %s: %w", argv[0], waitErr)
	}

	if ctx.Err() != nil && !timedOut {
		return nil, ctx.Err()
	}

	response := &types.RunResponse{
		ID:          runID,
		File:        resolved.File,
		Language:    resolved.Language,
		DisplayName: resolved.DisplayName,
		Command:     command,
		Cwd:         resolved.Cwd,
		Stdout:      stdout.String(),
		Stderr:      stderr.String(),
		ExitCode:    exitCode,
		TimedOut:    timedOut,
		Duration:    duration,
		Process: &types.Process{
			Pid:      cmd.Process.Pid,
			CmdLine:  argv,
			ExitCode: exitCode,
		},
	}
	if waitErr != nil {
		response.Process.ExitMessage = waitErr.Error()
	}
	response.OutputSummary = generateOutputSummary(response.Stdout, response.Stderr, exitCode, timedOut)
	response.Context = types.RunContext{
		Timestamp: time.Now(),
		Operation: "run",
		Status:    runStatus(exitCode, timedOut),
		Summary:   fmt.Sprintf("Ran %s file %s", resolved.DisplayName, filepath.Base(resolved.File)),
	}

	logger.Debug("Run finished", "id", runID, "exitCode", exitCode, "timedOut", timedOut,
		"stdout", len(response.Stdout), "stderr", len(response.Stderr))

	r.mu.Lock()
	r.last = response
	r.mu.Unlock()

	return response, nil
}

func runStatus(exitCode int, timedOut bool) string {
	switch {
	case timedOut:
		return "timeout"
	case exitCode != 0:
		return "failed"
	default:
		return "success"
	}
}

// WorkspaceRoot returns the nearest ancestor of file holding go.mod or .git,
// or the file's directory when there is none.
func WorkspaceRoot(file string) string {
	dir := filepath.Dir(file)
	for d := dir; ; {
		for _, marker := range []string{"go.mod", ".git"} {
			if _, err := os.Stat(filepath.Join(d, marker)); err == nil {
				return d
			}
		}
		parent := filepath.Dir(d)
		if parent == d {
			return dir
		}
		d = parent
	}
}

// quoteArg quotes s as one argument for shell. cmd.exe gets double quotes
// with embedded quotes doubled; every other shell gets POSIX single quotes.
func quoteArg(shell, s string) string {
	if shell == "cmd" {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
