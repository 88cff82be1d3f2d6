// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/thecrown/packgen/internal/pipeline"
	"github.com/thecrown/packgen/internal/watch"
)

// watchGenerate builds once, then rebuilds on every batch of source changes
// until ctx is canceled. A failed build is reported and watching continues.
// A rebuild whose content matches the last successful one keeps its archive.
// The watcher never runs build concurrently with itself.
func watchGenerate(ctx context.Context, app *App, flags *generateFlags, opts pipeline.Options) error {
	var last *pipeline.Report
	build := func(ctx context.Context) {
		run := opts
		run.Previous = last
		report, err := pipeline.Run(ctx, run)
		if err != nil {
			if ctx.Err() == nil {
				app.renderError(app.stderr, app.fail(err, "generate resource pack", opts.ResourcePackDir))
			}
			return
		}
		last = report
		printGenerateSummary(app.stdout, report, opts.Format, app.isVerbose())
	}

	w, err := watch.New(watch.Config{
		Targets:  opts.Sources(),
		Ignore:   flags.ignore,
		Exclude:  opts.Outputs(),
		Debounce: flags.debounce,
		Logger:   opts.Logger,
		OnChange: func(ctx context.Context, changed []string) error {
			fmt.Fprintf(app.stdout, "%s Detected %d change(s), rebuilding\n", VerboseStyle.Render("→"), len(changed))
			build(ctx)
			fmt.Fprintf(app.stdout, "\n%s Watching for changes...\n\n", VerboseStyle.Render("→"))
			return nil
		},
	})
	if err != nil {
		return app.fail(err, "watch sources", opts.BBModelDir)
	}

	build(ctx)
	fmt.Fprintf(app.stdout, "\n%s Watching for changes (Ctrl+C to stop)...\n\n", VerboseStyle.Render("→"))
	if err := w.Run(ctx); err != nil {
		return app.fail(err, "watch sources", opts.BBModelDir)
	}
	return nil
}
