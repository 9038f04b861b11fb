// Package config loads the run configuration shared by the CLIs.
//
// Values come, in increasing precedence, from defaults, an optional YAML
// file, a .env file in the working directory and FCPROFILER_* environment
// variables. Command-line flags are applied on top by the commands.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/miczat/fc-profiler/internal/fixture"
	"github.com/miczat/fc-profiler/internal/logger"
)

// EnvPrefix is the prefix of environment variables, e.g.
// FCPROFILER_GENERATOR_INSTALL_FOLDER.
const EnvPrefix = "FCPROFILER"

// DefaultName is the config file searched for when none is given.
const DefaultName = "fc-profiler"

// Config is the application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Profiler  ProfilerConfig  `mapstructure:"profiler"`
}

// LogConfig configures the run log.
type LogConfig struct {
	Folder  string `mapstructure:"folder"`
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

// GeneratorConfig configures create-test-data.
type GeneratorConfig struct {
	InstallFolder string `mapstructure:"install_folder"`
	Overwrite     bool   `mapstructure:"overwrite"`
	SmallGrid     string `mapstructure:"small_grid"` // ROWSxCOLS
	LargeGrid     string `mapstructure:"large_grid"` // ROWSxCOLS
}

// ProfilerConfig configures fc-profiler.
type ProfilerConfig struct {
	Overwrite bool `mapstructure:"overwrite"`
	Print     bool `mapstructure:"print"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.folder", ".")
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.console", true)

	v.SetDefault("generator.install_folder", filepath.Join(os.TempDir(), "fc_profiler_testdata"))
	v.SetDefault("generator.overwrite", true)
	v.SetDefault("generator.small_grid", fixture.SmallGrid.String())
	v.SetDefault("generator.large_grid", fixture.LargeGrid.String())

	v.SetDefault("profiler.overwrite", true)
	v.SetDefault("profiler.print", false)
}

// Load loads the configuration. With an empty path the default config
// file is optional; a given path must exist.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks the log level and grid sizes.
func (c *Config) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	if _, err := c.Generator.Options(); err != nil {
		return err
	}
	return nil
}

// Logger returns the logger configuration for a program.
func (l LogConfig) Logger(program string) logger.Config {
	return logger.Config{
		Program: program,
		Folder:  l.Folder,
		Level:   strings.ToLower(l.Level),
		Console: l.Console,
	}
}

// Options returns the generator options.
func (g GeneratorConfig) Options() (fixture.Options, error) {
	small, err := fixture.ParseSize(g.SmallGrid)
	if err != nil {
		return fixture.Options{}, fmt.Errorf("generator.small_grid: %w", err)
	}
	large, err := fixture.ParseSize(g.LargeGrid)
	if err != nil {
		return fixture.Options{}, fmt.Errorf("generator.large_grid: %w", err)
	}
	return fixture.Options{
		InstallFolder: g.InstallFolder,
		Overwrite:     g.Overwrite,
		SmallGrid:     small,
		LargeGrid:     large,
	}, nil
}
