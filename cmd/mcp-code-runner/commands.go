package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/sunfmin/mcp-code-runner/pkg/logger"
	"github.com/sunfmin/mcp-code-runner/pkg/mcp"
	"github.com/sunfmin/mcp-code-runner/pkg/runner"
	"github.com/sunfmin/mcp-code-runner/pkg/types"
	"github.com/sunfmin/mcp-code-runner/pkg/verify"
	"github.com/sunfmin/mcp-code-runner/pkg/watch"
)

var (
	runLanguage string
	runCwd      string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the runner tools over MCP on stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func serve() error {
	logger.Info("Starting MCP Code Runner", "version", Version)

	runServer := mcp.NewMCPRunServer(Version, newRunner())
	if err := server.ServeStdio(runServer.Server()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

var runCmd = &cobra.Command{
	Use:   "run <file> [-- args...]",
	Short: "Run a source file and exit with its status",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		resp, err := newRunner().Run(ctx, runner.RunRequest{
			File:     args[0],
			Language: runLanguage,
			Cwd:      runCwd,
			Args:     args[1:],
		})
		if err != nil {
			return err
		}
		printRun(resp)

		if resp.ExitCode != 0 || resp.TimedOut {
			return exitCodeError{code: normalizeExitCode(resp.ExitCode)}
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Run a source file each time it is saved",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		r := newRunner()
		rerun := func(ctx context.Context, file string) {
			resp, err := r.Run(ctx, runner.RunRequest{File: file, Language: runLanguage, Cwd: runCwd})
			if err != nil {
				logger.Error("Run failed", "file", file, "error", err)
				return
			}
			printRun(resp)
			logger.Info(resp.OutputSummary, "file", file)
		}

		w, err := watch.New(args[0], watch.DefaultDebounce, rerun)
		if err != nil {
			return err
		}
		defer w.Close()

		rerun(ctx, args[0])
		return w.Run(ctx)
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify [file]",
	Short: "Run the smoke program and compare its output with the expected transcript",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file := verify.DefaultFile
		if len(args) == 1 {
			file = args[0]
		}

		resp, err := verify.Smoke(cmd.Context(), newRunner(), file)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if resp.Match && resp.Status == "pass" {
			fmt.Fprintf(out, "PASS %s (%s)\n", file, resp.Run.Duration)
			return nil
		}

		fmt.Fprintf(out, "FAIL %s: %s\n", file, resp.Context.ErrorMessage)
		if resp.Diff != "" {
			fmt.Fprint(out, resp.Diff)
		}
		if resp.Run.Stderr != "" {
			fmt.Fprintf(out, "stderr:\n%s", resp.Run.Stderr)
		}
		return exitCodeError{code: 1}
	},
}

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List supported languages and their run commands",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tCOMMAND")
		for _, l := range runner.Languages() {
			command := l.Command
			if o := cfg.Commands[l.ID]; o != "" {
				command = o
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", l.ID, l.DisplayName, command)
		}
		return tw.Flush()
	},
}

func init() {
	for _, c := range []*cobra.Command{runCmd, watchCmd} {
		c.Flags().StringVarP(&runLanguage, "language", "l", "", "language ID (detected from the extension by default)")
		c.Flags().StringVar(&runCwd, "cwd", "", "working directory (workspace root by default)")
	}
}

// printRun replays a run's captured streams on this process's stdout and stderr.
func printRun(resp *types.RunResponse) {
	logger.Debug("Run command", "command", resp.Command, "cwd", resp.Cwd)
	fmt.Fprint(os.Stdout, resp.Stdout)
	fmt.Fprint(os.Stderr, resp.Stderr)
	if resp.TimedOut {
		logger.Warn("Program timed out", "file", resp.File, "after", resp.Duration)
	}
}

func normalizeExitCode(code int) int {
	if code <= 0 || code > 255 {
		return 1
	}
	return code
}
