// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/thecrown/packgen/internal/config"
	"github.com/thecrown/packgen/internal/issue"
	"github.com/thecrown/packgen/pkg/types"
)

// newConfigCommand creates the `packgen config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage packgen configuration",
		Long: `Manage packgen configuration.

Settings are merged in this order, later sources winning:
  - built-in defaults
  - the user config file:
      Linux: ~/.config/packgen/config.cue
      macOS: ~/Library/Application Support/packgen/config.cue
      Windows: %APPDATA%\packgen\config.cue
  - packgen.cue in the working directory
  - PACKGEN_* environment variables (PACKGEN_LOG_LEVEL for log.level)

--config replaces both files with the one given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app)
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(app, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration file")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath(app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App) error {
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}
	sources, err := config.Sources(config.LoadOptions{ConfigFilePath: types.FilesystemPath(app.configPath)})
	if err != nil {
		return app.fail(err, "locate configuration", "")
	}

	w := app.stdout
	keyStyle := KeyStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if len(sources) == 0 {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config files"), SubtitleStyle.Render("(using defaults)"))
	} else {
		fmt.Fprintf(w, "%s:\n", keyStyle.Render("Config files"))
		for _, s := range sources {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("namespace"), valueStyle.Render(string(cfg.Namespace)))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("pack_format"), valueStyle.Render(fmt.Sprint(cfg.PackFormat)))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("description"), valueStyle.Render(cfg.Description))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("unreferenced"), valueStyle.Render(cfg.Unreferenced.String()))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("format"), valueStyle.Render(cfg.Format.String()))
	workers := fmt.Sprint(cfg.Workers)
	if cfg.Workers == 0 {
		workers = "0 (one per CPU)"
	}
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("workers"), valueStyle.Render(workers))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("overwrite"), valueStyle.Render(fmt.Sprint(cfg.Overwrite)))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("log"))
	fmt.Fprintf(w, "  level: %s\n", valueStyle.Render(cfg.Log.Level.String()))
	if cfg.Log.File == "" {
		fmt.Fprintf(w, "  file: %s\n", SubtitleStyle.Render("(console only)"))
	} else {
		fmt.Fprintf(w, "  file: %s\n", valueStyle.Render(cfg.Log.File))
		fmt.Fprintf(w, "  max_size_mb: %s\n", valueStyle.Render(fmt.Sprint(cfg.Log.MaxSizeMB)))
		fmt.Fprintf(w, "  max_backups: %s\n", valueStyle.Render(fmt.Sprint(cfg.Log.MaxBackups)))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(w, "  color_scheme: %s\n", valueStyle.Render(cfg.UI.ColorScheme.String()))
	fmt.Fprintf(w, "  verbose: %s\n", valueStyle.Render(fmt.Sprint(cfg.UI.Verbose)))

	return nil
}

func initConfig(app *App, force bool) error {
	path, written, err := config.CreateDefaultConfig(force)
	if err != nil {
		return app.fail(err, "create configuration", path)
	}
	if !written {
		fmt.Fprintf(app.stdout, "%s Configuration already exists at %s (use --force to replace it)\n", WarningStyle.Render("!"), path)
		return nil
	}
	fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}

func showConfigPath(app *App) error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return &ExitError{Code: types.ExitFailure, Err: issue.WrapWithOperation(err, "locate configuration")}
	}
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	fmt.Fprintf(app.stdout, "Config directory: %s\n", cfgDir)
	fmt.Fprintf(app.stdout, "Config file: %s\n", filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))
	fmt.Fprintf(app.stdout, "Project file: %s\n", filepath.Join(cwd, config.ProjectFileName))
	return nil
}
