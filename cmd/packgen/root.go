// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/thecrown/packgen/pkg/types"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "packgen",
		Short: "Build Minecraft resource packs from Blockbench models",
		Long: TitleStyle.Render("packgen") + SubtitleStyle.Render(" - Build Minecraft resource packs from Blockbench models") + `

packgen converts every .bbmodel under a directory into a Java item model,
merges the result over a base resource pack and writes a deterministic ZIP
archive along with the item overrides a mapping file asks for.

` + SubtitleStyle.Render("Examples:") + `
  packgen generate bbmodel/ resourcepack/ models/ mappings.cue
  packgen generate bbmodel/ dist/pack.zip models/ mappings.yaml --format items
  packgen validate bbmodel/ mappings.cue
  packgen inspect resourcepack.zip
  packgen config show`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if app.configPath != "" {
				if err := types.FilesystemPath(app.configPath).Validate(); err != nil {
					return usageError(err)
				}
			}
			return nil
		},
	}

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})
	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable debug logging and print the full error chain")
	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default is $HOME/.config/packgen/config.cue)")

	rootCmd.AddCommand(
		newGenerateCommand(app),
		newValidateCommand(app),
		newInspectCommand(app),
		newConfigCommand(app),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Run executes the CLI with ctx and returns the process exit code.
func Run(ctx context.Context, app *App) types.ExitCode {
	err := fang.Execute(
		ctx,
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, _ fang.Styles, err error) {
			app.renderError(w, err)
		}),
	)
	if err == nil {
		return types.ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, context.Canceled) {
		return types.ExitInterrupted
	}
	return types.ExitFailure
}

// Execute runs the CLI against the process arguments and exits.
// This is called by main.main().
func Execute() {
	os.Exit(int(Run(context.Background(), NewApp(Dependencies{}))))
}
