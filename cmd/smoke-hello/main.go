package main

import (
	"os"

	"github.com/sunfmin/mcp-code-runner/pkg/logger"
	"github.com/sunfmin/mcp-code-runner/pkg/smoke"
)

func main() {
	if err := smoke.Write(os.Stdout); err != nil {
		logger.Error("Failed to write output", "error", err)
		os.Exit(1)
	}
}
