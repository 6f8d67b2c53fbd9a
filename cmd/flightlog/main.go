package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/flybeeper/flightlog-engine/internal/cli"
)

var (
	// Version будет установлен при сборке через ldflags
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

func main() {
	cli.Version, cli.Commit, cli.BuildTime = Version, Commit, BuildTime

	// Отмена по сигналу прерывает пакетный анализ
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
