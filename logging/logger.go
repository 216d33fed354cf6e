package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the process-wide logger.
var Logger = logrus.New()

var once sync.Once

type Options struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Init configures Logger. Only the first call has any effect.
func Init(opts Options) error {
	var initErr error
	once.Do(func() {
		initErr = configure(Logger, opts)
		if initErr == nil {
			Logger.WithField("event_id", "LOGGER_INITIALIZED").Debug("logger initialized")
		}
	})
	return initErr
}

func configure(l *logrus.Logger, opts Options) error {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return err
	}
	l.SetLevel(level)

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown logging.format: %s", opts.Format)
	}

	var out io.Writer = os.Stderr
	if opts.File != "" {
		out = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
	}
	l.SetOutput(out)
	return nil
}

func parseLevel(s string) (logrus.Level, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return logrus.InfoLevel, nil
	}
	level, err := logrus.ParseLevel(s)
	if err != nil {
		return logrus.InfoLevel, fmt.Errorf("invalid logging.level %q: %w", s, err)
	}
	return level, nil
}
