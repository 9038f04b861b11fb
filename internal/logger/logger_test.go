package logger

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_WritesCommaDelimitedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fc_profiler"+FileExt)
	require.NoError(t, os.WriteFile(path, []byte("stale\n"), 0o644))

	log, closeFn, err := New(Config{Program: "fc_profiler", Folder: dir, Level: "debug"})
	require.NoError(t, err)

	log.Info("Start")
	log.Debugf("Total Records: %d", 602)
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	line := regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2},(INFO|DEBUG),"[^"]*"$`)
	for _, l := range lines {
		assert.Regexp(t, line, l)
	}
	assert.True(t, strings.HasSuffix(lines[0], `,INFO,"Start"`))
	assert.True(t, strings.HasSuffix(lines[1], `,DEBUG,"Total Records: 602"`))
}

func TestNew_Level(t *testing.T) {
	dir := t.TempDir()
	log, closeFn, err := New(Config{Program: "p", Folder: dir, Level: "warn"})
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(filepath.Join(dir, "p"+FileExt))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), `WARN,"shown"`)
}

func TestNew_UnwritableFolder(t *testing.T) {
	_, _, err := New(Config{Program: "p", Folder: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

func TestNewWithCore(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewWithCore(core)

	log.Infow("described", "fc", "GDA94_point")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "described", entry.Message)
	assert.Equal(t, "GDA94_point", entry.ContextMap()["fc"])
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() { Nop().Error("ignored") })
}
