package raopcast

import (
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
)

// NewLogger returns a colored logger that writes into w.
func NewLogger(w io.Writer, config *Config) *slog.Logger {
	replaceAttr := func(_ []string, a slog.Attr) slog.Attr {
		if a.Key == slog.SourceKey {
			source, ok := a.Value.Any().(*slog.Source)
			if !ok {
				return a
			}
			source.File = filepath.Join(filepath.Base(filepath.Dir(source.File)), filepath.Base(source.File))
			return slog.Any(a.Key, source)
		}
		return a
	}

	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:       config.GetSlogLevel(),
		AddSource:   config.GetSlogLevel() == slog.LevelDebug,
		TimeFormat:  time.RFC3339,
		ReplaceAttr: replaceAttr,
	}))
}

// InitLogger installs the default logger.
// Logs are written into w, that must not be the audio output.
func InitLogger(w io.Writer, config *Config) *slog.Logger {
	logger := NewLogger(w, config)
	slog.SetDefault(logger)
	return logger
}
