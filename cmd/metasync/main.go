package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/metasync/internal/core"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if core.IsUserFacing(err) && !errors.Is(err, context.Canceled) {
			if action := core.MapError(err).Action; action != "" {
				fmt.Fprintln(os.Stderr, "hint:", action)
			}
		}
		stop()
		os.Exit(1)
	}
}
