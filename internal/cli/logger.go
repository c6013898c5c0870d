package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logMaxSizeMB   = 10
	logMaxBackups  = 5
	logMaxAgeDays  = 30
	logDirPermMode = 0o750
)

func selectLevel(verbose, quiet bool) zerolog.Level {
	switch {
	case verbose:
		return zerolog.DebugLevel
	case quiet:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// selectOutput uses a console writer when w is a terminal and NO_COLOR is
// unset, and plain JSON otherwise.
func selectOutput(w io.Writer) io.Writer {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) && os.Getenv("NO_COLOR") == "" {
		return zerolog.ConsoleWriter{
			Out:        f,
			TimeFormat: time.Kitchen,
		}
	}

	return w
}

// newLogger builds the command logger. When flags.LogFile is set the
// returned closer must be closed to flush the rotated file.
func newLogger(flags *GlobalFlags, console io.Writer) (zerolog.Logger, io.Closer, error) {
	level := selectLevel(flags.Verbose, flags.Quiet)
	writer := selectOutput(console)

	var closer io.Closer

	if flags.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(flags.LogFile), logDirPermMode); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		lj := &lumberjack.Logger{
			Filename:   flags.LogFile,
			MaxSize:    logMaxSizeMB,
			MaxBackups: logMaxBackups,
			MaxAge:     logMaxAgeDays,
			Compress:   true,
		}

		writer = zerolog.MultiLevelWriter(writer, lj)
		closer = lj
	}

	logger := zerolog.New(writer).Level(level).With().Timestamp().Logger()

	return logger, closer, nil
}
