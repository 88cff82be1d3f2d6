// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/thecrown/packgen/internal/config"
	"github.com/thecrown/packgen/internal/issue"
	"github.com/thecrown/packgen/internal/logging"
	"github.com/thecrown/packgen/internal/pipeline"
	"github.com/thecrown/packgen/pkg/types"
)

type (
	// App wires CLI services and shared dependencies. Every command builder
	// receives the same App.
	App struct {
		Config config.Provider
		stdout io.Writer
		stderr io.Writer

		// verbose and configPath are bound to the root's persistent flags.
		verbose    bool
		configPath string

		cfg *config.Config
	}

	// Dependencies defines the injection points for building an App. Nil fields
	// are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	return &App{Config: deps.Config, stdout: deps.Stdout, stderr: deps.Stderr}
}

// loadConfig loads the layered configuration once per invocation.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: types.FilesystemPath(a.configPath)})
	if err != nil {
		return nil, &ExitError{Code: types.ExitFailure, Err: issue.Explain(err, "load configuration", a.configPath)}
	}
	a.cfg = cfg
	return cfg, nil
}

// isVerbose reports whether the full error chain should be printed.
func (a *App) isVerbose() bool {
	return a.verbose || (a.cfg != nil && a.cfg.UI.Verbose)
}

// newLogger builds the run's logger from cfg. --verbose lowers the level to debug.
func (a *App) newLogger(cfg *config.Config) (*log.Logger, io.Closer, error) {
	level := string(cfg.Log.Level)
	if a.verbose {
		level = string(config.LogLevelDebug)
	}
	logger, closer, err := logging.New(logging.Options{
		Level:      level,
		Console:    a.stderr,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		return nil, nil, &ExitError{Code: types.ExitFailure, Err: issue.Explain(err, "open log file", cfg.Log.File)}
	}
	return logger, closer, nil
}

// fail converts a pipeline or packager error into an ExitError carrying an
// ActionableError for display.
func (a *App) fail(err error, operation, resource string) error {
	code := types.ExitFailure
	if errors.Is(err, context.Canceled) {
		code = types.ExitInterrupted
	}
	var se *pipeline.StageError
	if errors.As(err, &se) {
		operation, resource, err = se.Stage.Operation(), se.Resource, se.Err
	}
	return &ExitError{Code: code, Err: issue.Explain(err, operation, resource)}
}

// renderError is the fang error handler. ActionableErrors are formatted with
// their suggestions; in verbose mode the matching issue page follows.
func (a *App) renderError(w io.Writer, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}
	fmt.Fprintln(w, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, a.isVerbose()))

	if !a.isVerbose() {
		return
	}
	entry := issue.Get(issue.Classify(err))
	if entry == nil {
		return
	}
	style := string(config.ColorSchemeDark)
	if a.cfg != nil && a.cfg.UI.ColorScheme != config.ColorSchemeAuto {
		style = string(a.cfg.UI.ColorScheme)
	}
	rendered, renderErr := entry.Render(style)
	if renderErr != nil {
		fmt.Fprintln(w, WarningStyle.Render("Warning: ")+"cannot render issue help: "+renderErr.Error())
		return
	}
	fmt.Fprint(w, rendered)
}

// formatErrorForDisplay formats an error for user display. ActionableErrors
// use their Format method; verbose mode adds the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
