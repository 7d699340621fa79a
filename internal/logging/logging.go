// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the logrus logger every switchboard component logs
// through.
//
// Logs go to a file under the application directory by default so that
// interactive output (REPL, Bubble Tea view) is never painted over. Setting
// the file to "-" sends them to stderr instead. Credentials are never passed
// to the logger; use util.Mask when a hint is needed.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Stderr is the File value that routes logs to standard error.
const Stderr = "-"

// Options selects level, format and destination.
type Options struct {
	Level  string // trace, debug, info, warn, error
	Format string // text or json
	File   string // path, "-" for stderr, "" to discard
}

// Logger wraps a logrus.Logger together with the file it writes to.
type Logger struct {
	*logrus.Logger

	mu   sync.Mutex
	file *os.File
}

// New creates a logger from opts. The log file's directory is created when
// missing.
func New(opts Options) (*Logger, error) {
	l := logrus.New()
	l.SetLevel(ParseLevel(opts.Level))
	l.SetFormatter(formatter(opts.Format))

	lg := &Logger{Logger: l}

	switch opts.File {
	case "":
		l.SetOutput(io.Discard)
	case Stderr:
		l.SetOutput(os.Stderr)
	default:
		if err := os.MkdirAll(filepath.Dir(opts.File), 0700); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		lg.file = f
		l.SetOutput(f)
	}

	return lg, nil
}

// Discard returns a logger that drops everything. Used as the default when a
// component is built without a logger, and in tests.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Apply changes level and format in place, used when settings are reloaded.
func (l *Logger) Apply(level, format string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.SetLevel(ParseLevel(level))
	l.SetFormatter(formatter(format))
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.SetOutput(io.Discard)
	return err
}

// ParseLevel maps a settings string to a logrus level, defaulting to info.
func ParseLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

func formatter(format string) logrus.Formatter {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return &logrus.JSONFormatter{}
	}
	return &logrus.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
	}
}

// Component tags l with the component field.
func Component(l logrus.FieldLogger, name string) logrus.FieldLogger {
	if l == nil {
		l = Discard()
	}
	return l.WithField("component", name)
}
