package main

import (
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/miczat/fc-profiler/internal/config"
	"github.com/miczat/fc-profiler/internal/fixture"
	"github.com/miczat/fc-profiler/internal/logger"
	"github.com/miczat/fc-profiler/internal/ui"
)

const programName = "create_test_data"

type options struct {
	configPath    string
	installFolder string
	overwrite     bool
	largeGrid     string
}

func newRootCmd(out io.Writer) *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "create-test-data",
		Short: "Create the fc-profiler test container",
		Long: `Creates <install-folder>/fc_profiler_test.gdb holding feature classes
for every supported coordinate system, geometry type, Z/M combination, field
type and domain, plus two fishnet grids with 602 and 5,000,000 records.`,
		Example: `  # Create the test data under /tmp/fc_profiler_testdata
  $ create-test-data --install-folder /tmp/fc_profiler_testdata

  # Use a smaller polygon grid
  $ create-test-data --large-grid 200x250`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, ui.New(out))
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "config file (default ./fc-profiler.yaml)")
	f.StringVar(&opts.installFolder, "install-folder", "", "folder to create the container in")
	f.BoolVar(&opts.overwrite, "overwrite", true, "replace an existing container")
	f.StringVar(&opts.largeGrid, "large-grid", "", "rows and columns of the polygon grid, as ROWSxCOLS")
	return cmd
}

func run(cmd *cobra.Command, opts options, p *ui.Printer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("install-folder") {
		cfg.Generator.InstallFolder = opts.installFolder
	}
	if cmd.Flags().Changed("overwrite") {
		cfg.Generator.Overwrite = opts.overwrite
	}
	if cmd.Flags().Changed("large-grid") {
		cfg.Generator.LargeGrid = opts.largeGrid
	}
	fo, err := cfg.Generator.Options()
	if err != nil {
		return err
	}

	log, closeLog, err := logger.New(cfg.Log.Logger(programName))
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	start := time.Now()
	log.Info("Start")
	p.Info("Creating %s", fixture.Path(fo.InstallFolder))
	path, err := fixture.Run(cmd.Context(), fo, log)
	if err != nil {
		log.Errorf("%v", err)
		return err
	}
	p.Success("Test data written to %s", path)
	log.Info("Finished")
	log.Infof("Duration %s", time.Since(start))
	return nil
}
