// Command create-test-data (re)creates the fc_profiler_test.gdb container
// used to exercise fc-profiler.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/miczat/fc-profiler/internal/ui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(nil).ExecuteContext(ctx)
	stop()
	if err != nil {
		ui.New(color.Error).Error("%v", err)
		os.Exit(1)
	}
}
