// Package main provides the entry point for the sigauth CLI.
package main

import (
	"context"
	"os"

	"github.com/vitalvas/sigauth/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	info := cli.BuildInfo{Version: version, Commit: commit, Date: date}

	if err := cli.Execute(context.Background(), info); err != nil {
		os.Exit(1)
	}
}
