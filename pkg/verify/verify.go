// Package verify checks that a program run in some environment printed
// exactly the smoke transcript.
package verify

import (
	"context"
	"fmt"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/sunfmin/mcp-code-runner/pkg/logger"
	"github.com/sunfmin/mcp-code-runner/pkg/runner"
	"github.com/sunfmin/mcp-code-runner/pkg/smoke"
	"github.com/sunfmin/mcp-code-runner/pkg/types"
)

// DefaultFile is the smoke program shipped with this repository.
const DefaultFile = "cmd/smoke-hello/main.go"

// Result is the outcome of comparing two outputs.
type Result struct {
	Match bool
	Diff  string
}

// Compare diffs actual against expected line by line.
func Compare(expected, actual string) (Result, error) {
	if expected == actual {
		return Result{Match: true}, nil
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(actual),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  3,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to diff output: %w", err)
	}
	return Result{Diff: diff}, nil
}

// Smoke runs file with r and checks its stdout against the smoke transcript.
// The run must also exit with status 0.
func Smoke(ctx context.Context, r *runner.Runner, file string) (*types.VerifyResponse, error) {
	if file == "" {
		file = DefaultFile
	}

	run, err := r.Run(ctx, runner.RunRequest{File: file})
	if err != nil {
		return nil, fmt.Errorf("failed to run %s: %w", file, err)
	}

	expected := smoke.Expected()
	result, err := Compare(expected, run.Stdout)
	if err != nil {
		return nil, err
	}

	response := &types.VerifyResponse{
		Status:   "pass",
		Match:    result.Match,
		Diff:     result.Diff,
		Expected: expected,
		Run:      run,
		Context: types.RunContext{
			Timestamp: time.Now(),
			Operation: "verify",
		},
	}

	switch {
	case run.ExitCode != 0:
		response.Status = "fail"
		response.Context.ErrorMessage = fmt.Sprintf("program exited with status %d", run.ExitCode)
	case !result.Match:
		response.Status = "fail"
		response.Context.ErrorMessage = "output does not match the expected transcript"
	}
	response.Context.Status = response.Status
	response.Context.Summary = fmt.Sprintf("Smoke check %s for %s", response.Status, file)

	logger.Info("Smoke check finished", "file", file, "status", response.Status, "exitCode", run.ExitCode)
	return response, nil
}
