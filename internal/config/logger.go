package config

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger builds the process logger: a console writer on w plus, when
// log.file is set, a size-rotated log file. A nil w writes to stderr, which
// keeps stdout free for command output. The returned closer releases the
// log file and must be called on shutdown.
func NewLogger(cfg *Config, w io.Writer) (zerolog.Logger, io.Closer) {
	if w == nil {
		w = os.Stderr
	}

	writers := []io.Writer{zerolog.ConsoleWriter{
		Out:     w,
		NoColor: false,
	}}

	var closer io.Closer = nopCloser{}
	if cfg != nil && cfg.Log.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
		}
		writers = append(writers, rotating)
		closer = rotating
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()

	// Parse and set log level from config
	level := zerolog.InfoLevel // default
	if cfg != nil && cfg.LogLevel != "" {
		if parsedLevel, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
			level = parsedLevel
		} else {
			logger.Warn().Str("invalid_level", cfg.LogLevel).Msg("Invalid log level, using default 'info'")
		}
	}

	return logger.Level(level), closer
}
