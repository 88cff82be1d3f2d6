// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the packgen CLI.
//
// The root command is built by NewRootCommand around an App, which holds the
// configuration provider and output streams. Subcommands delegate their work
// to internal/pipeline and pkg/packager and report failures as
// issue.ActionableError values wrapped in an ExitError.
package cmd
