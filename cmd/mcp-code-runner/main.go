package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sunfmin/mcp-code-runner/pkg/config"
	"github.com/sunfmin/mcp-code-runner/pkg/logger"
	"github.com/sunfmin/mcp-code-runner/pkg/runner"
)

// Version is set during build
var Version = "dev"

var (
	configPath string
	verbose    bool

	cfg *config.Config
)

// exitCodeError carries the exit status of a run back to main.
type exitCodeError struct {
	code int
}

func (e exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

var rootCmd = &cobra.Command{
	Use:   "mcp-code-runner",
	Short: "Run source files and capture their output",
	Long: `mcp-code-runner runs source files in a dozen languages and captures
stdout, stderr and the exit code.

Without a subcommand it serves its tools over MCP on stdio.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose || cfg.Debug {
			logger.SetLevel(slog.LevelDebug)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default "+config.FileName+" in each file's workspace root)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd, runCmd, watchCmd, verifyCmd, languagesCmd)
}

// newRunner reads each workspace's own config file unless --config names one.
func newRunner() *runner.Runner {
	r := runner.New(cfg)
	if configPath == "" {
		r.UseWorkspaceConfig()
	}
	return r
}

func main() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	var exitErr exitCodeError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.code)
	}

	logger.Error("Command failed", "error", err)
	os.Exit(1)
}
