// Package logger provides the comma-delimited run log shared by the CLIs.
// Every entry is written as `timestamp,LEVEL,"message"` to a per-run log
// file and to the console.
package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	// TimeLayout is the timestamp layout of log entries.
	TimeLayout = "2006-01-02 15:04:05"
	// FileExt is appended to the program name to form the log file name.
	FileExt = ".log.csv"
)

// Logger wraps zap.SugaredLogger.
type Logger struct {
	*zap.SugaredLogger
}

// Config holds logger configuration.
type Config struct {
	Program string // log file base name
	Folder  string // log file folder, "." when empty
	Level   string // debug, info, warn, error
	Console bool   // also write to stderr
}

// New creates a Logger writing to <Folder>/<Program>.log.csv, truncating
// any previous log, and optionally to the console. The returned close
// function flushes and closes the log file.
func New(cfg Config) (*Logger, func() error, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.DebugLevel
	}

	folder := cfg.Folder
	if folder == "" {
		folder = "."
	}
	path := filepath.Join(folder, cfg.Program+FileExt)
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("the log file %s is read only: %w", path, err)
	}

	enc := newEncoder()
	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.AddSync(file), level)}
	if cfg.Console {
		cores = append(cores, zapcore.NewCore(enc.Clone(), zapcore.Lock(os.Stderr), level))
	}

	zl := zap.New(zapcore.NewTee(cores...))
	closeFn := func() error {
		_ = zl.Sync()
		return file.Close()
	}
	return &Logger{zl.Sugar()}, closeFn, nil
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{zap.NewNop().Sugar()}
}

// NewWithCore returns a Logger over an arbitrary core, used by tests to
// observe entries.
func NewWithCore(core zapcore.Core) *Logger {
	return &Logger{zap.New(core).Sugar()}
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeTime:       zapcore.TimeEncoderOfLayout(TimeLayout),
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: ",",
	}
}

// csvEncoder quotes the message of each entry.
type csvEncoder struct {
	zapcore.Encoder
}

func newEncoder() zapcore.Encoder {
	return csvEncoder{zapcore.NewConsoleEncoder(encoderConfig())}
}

func (e csvEncoder) Clone() zapcore.Encoder {
	return csvEncoder{e.Encoder.Clone()}
}

func (e csvEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	ent.Message = `"` + ent.Message + `"`
	return e.Encoder.EncodeEntry(ent, fields)
}
