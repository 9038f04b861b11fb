package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/miczat/fc-profiler/internal/config"
	"github.com/miczat/fc-profiler/internal/gdb"
	"github.com/miczat/fc-profiler/internal/logger"
	"github.com/miczat/fc-profiler/internal/profile"
	"github.com/miczat/fc-profiler/internal/report"
	"github.com/miczat/fc-profiler/internal/ui"
)

const programName = "fc_profiler"

type options struct {
	configPath string
	overwrite  bool
	print      bool
}

func newRootCmd(out io.Writer) *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "fc-profiler <feature-class-path> <output-folder>",
		Short: "Profile a feature class into a spreadsheet",
		Long: `Reads the properties and field structure of a feature class and writes
them to <output-folder>/<feature-class>_fc_profile.xlsx.`,
		Example: `  # Profile a feature class into the current folder
  $ fc-profiler /data/fc_profiler_test.gdb/MGAZ56_point .

  # Also print the profile to the console
  $ fc-profiler /data/fc_profiler_test.gdb/GDA94_polygon /tmp/reports --print`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, opts, ui.New(out))
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "config file (default ./fc-profiler.yaml)")
	f.BoolVar(&opts.overwrite, "overwrite", true, "delete an existing report first")
	f.BoolVar(&opts.print, "print", false, "print the profile to the console")
	return cmd
}

func run(cmd *cobra.Command, args []string, opts options, p *ui.Printer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	overwrite, printProfile := cfg.Profiler.Overwrite, cfg.Profiler.Print
	if cmd.Flags().Changed("overwrite") {
		overwrite = opts.overwrite
	}
	if cmd.Flags().Changed("print") {
		printProfile = opts.print
	}

	log, closeLog, err := logger.New(cfg.Log.Logger(programName))
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	start := time.Now()
	log.Info("Start")

	ref, outFolder := args[0], args[1]
	log.Debugf("feature class = %s", ref)
	log.Debugf("output folder = %s", outFolder)

	container := gdb.ContainerPath(ref)
	if !gdb.Exists(container) {
		log.Warnf("Container %s does not exist", container)
		p.Warning("Container %s does not exist", container)
		return fmt.Errorf("container %s does not exist", container)
	}
	if err := writable(outFolder); err != nil {
		log.Warnf("Output folder %s is not writable", outFolder)
		p.Warning("Output folder %s is not writable", outFolder)
		return fmt.Errorf("output folder %s is not writable: %w", outFolder, err)
	}

	r := profile.NewReader(profile.Datastore{}, log)
	a := report.NewAssembler(time.Now, log)
	path, err := report.Generate(r, a, ref, outFolder, overwrite, log)
	if err != nil {
		log.Errorf("%v", err)
		return err
	}

	if printProfile {
		props, err := r.Properties(ref)
		if err != nil {
			return err
		}
		fs, err := r.FieldStructure(ref)
		if err != nil {
			return err
		}
		p.Print(ui.RenderProfile(props, fs))
	}
	p.Success("Profile written to %s", path)

	log.Info("Finished")
	log.Infof("Duration %s", time.Since(start))
	return nil
}

// writable checks that files can be created in dir.
func writable(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a folder", dir)
	}
	f, err := os.CreateTemp(dir, ".fc_profiler_*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
