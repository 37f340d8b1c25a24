package main

import (
	"github.com/edgarlens/edgarlens/internal/cmd"
	"github.com/edgarlens/edgarlens/internal/server/handlers"
)

// Version information set via ldflags during build
// Example: go build -ldflags="-X main.version=1.0.0 -X main.commit=abc123 -X main.buildDate=2026-10-16"
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)
	handlers.SetVersionInfo(version, commit, buildDate)

	if err := cmd.Execute(); err != nil {
		// Upstream outages get their own exit code so scripts can retry
		cmd.ExitWithError(err)
	}
}
