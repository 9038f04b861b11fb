// Command fc-profiler writes a spreadsheet profile of a feature class: its
// properties on one sheet and its field structure on another.
package main

import (
	"os"

	"github.com/fatih/color"

	"github.com/miczat/fc-profiler/internal/ui"
)

func main() {
	if err := newRootCmd(nil).Execute(); err != nil {
		ui.New(color.Error).Error("%v", err)
		os.Exit(1)
	}
}
