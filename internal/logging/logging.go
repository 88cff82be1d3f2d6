// SPDX-License-Identifier: MPL-2.0

// Package logging builds the single charm logger used by every packgen stage.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Prefix is printed before every log line.
const Prefix = "packgen"

type (
	// Options configures New.
	Options struct {
		// Level is one of debug, info, warn, error. Empty means info.
		Level string
		// Console receives log lines; nil means os.Stderr.
		Console io.Writer
		// File, when set, receives a copy of every line and is rotated by size.
		File       string
		MaxSizeMB  int
		MaxBackups int
		// Timestamps adds a time column; off by default to keep CLI output short.
		Timestamps bool
	}

	nopCloser struct{}
)

func (nopCloser) Close() error { return nil }

// New returns the logger and a Closer that releases the log file, if any.
// With a file configured the console copy is written without colors, since
// both sinks share one formatter.
func New(opts Options) (*log.Logger, io.Closer, error) {
	level := log.InfoLevel
	if opts.Level != "" {
		lvl, err := log.ParseLevel(opts.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("log level %q: %w", opts.Level, err)
		}
		level = lvl
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	out := console
	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			LocalTime:  true,
		}
		out = io.MultiWriter(console, file)
		closer = file
	}

	logger := log.NewWithOptions(out, log.Options{
		Prefix:          Prefix,
		Level:           level,
		ReportTimestamp: opts.Timestamps || opts.File != "",
	})
	return logger, closer, nil
}

// Discard returns a logger that drops everything; stages use it when the
// caller passes no logger.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
