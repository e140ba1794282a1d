// File: cmd/sauceprobe/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/qaforge/sauceprobe/cmd"
)

// osExit is replaced in tests.
var osExit = os.Exit

func main() {
	// Set up a context that listens for interrupt signals (SIGINT, SIGTERM) for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code := run(ctx, cmd.Execute)
	stop()
	osExit(code)
}

// run executes the command tree and maps its error to an exit code.
func run(ctx context.Context, execute func(context.Context) error) int {
	err := execute(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stderr, "interrupted")
		return 130
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
}
