// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thecrown/packgen/internal/pipeline"
)

func newValidateCommand(app *App) *cobra.Command {
	var modelsDir string
	cmd := &cobra.Command{
		Use:   "validate <bbmodelDir> <mappings>",
		Short: "Check models and mappings without writing a pack",
		Long: `Check models and mappings without writing a pack.

Loads the mapping file, parses every model and checks that each mapping
entry names a model that exists. Every problem found is reported, not only
the first.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(2)(cmd, args); err != nil {
				return usageError(err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := app.loadConfig(ctx)
			if err != nil {
				return err
			}
			logger, closer, err := app.newLogger(cfg)
			if err != nil {
				return err
			}
			defer closer.Close()

			p := pipeline.New(pipeline.Options{
				BBModelDir:   args[0],
				ModelsDir:    modelsDir,
				MappingsPath: args[1],
				Workers:      cfg.Workers,
				Logger:       logger,
			})
			report, err := p.Validate(ctx)
			if report != nil {
				printValidateReport(app.stdout, report, err == nil)
			}
			if err != nil {
				return app.fail(err, "validate models", args[0])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&modelsDir, "models", "", "also check that this structural models directory is readable")
	return cmd
}

func printValidateReport(w io.Writer, r *pipeline.ValidateReport, ok bool) {
	if ok {
		fmt.Fprintln(w, SuccessStyle.Render("✓")+" "+TitleStyle.Render("Models and mappings are consistent"))
	}
	fmt.Fprintf(w, "  %s%d\n", summaryKeyStyle.Render("mappings"), r.Mappings)
	fmt.Fprintf(w, "  %s%d\n", summaryKeyStyle.Render("models"), len(r.Models))

	if len(r.Unreferenced) > 0 {
		fmt.Fprintln(w, WarningStyle.Render(fmt.Sprintf("! %d model(s) not referenced by any mapping: %s",
			len(r.Unreferenced), strings.Join(r.Unreferenced, ", "))))
	}
	for _, group := range r.Shared {
		models := make([]string, len(group))
		for i, e := range group {
			models[i] = e.Model
		}
		fmt.Fprintln(w, WarningStyle.Render(fmt.Sprintf("! %s share %s; only %s is reachable in game",
			strings.Join(models, ", "), group[0].Target, models[len(models)-1])))
	}
}
