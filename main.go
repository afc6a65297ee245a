package main

import (
	"log/slog"
	"os"

	"github.com/ytbs/bettersearch/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		slog.Error("ytbs failed", "error", err)
		os.Exit(1)
	}
}
