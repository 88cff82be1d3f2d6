// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/thecrown/packgen/internal/config"
	"github.com/thecrown/packgen/internal/pipeline"
	"github.com/thecrown/packgen/internal/watch"
	"github.com/thecrown/packgen/pkg/assemble"
	"github.com/thecrown/packgen/pkg/types"
)

// generateFlags holds the generate command's flag values. Values whose flag
// was not given on the command line come from the configuration instead.
type generateFlags struct {
	output       string
	overwrite    bool
	unreferenced string
	namespace    string
	format       string
	workers      int
	export       string
	emitMappings string
	info         string
	watch        bool
	debounce     time.Duration
	ignore       []string
}

func newGenerateCommand(app *App) *cobra.Command {
	flags := &generateFlags{}
	cmd := &cobra.Command{
		Use:   "generate <bbmodelDir> <resourcepackDir> <modelsDir> <mappings>",
		Short: "Build the resource pack archive",
		Long: `Build the resource pack archive.

Every .bbmodel under bbmodelDir becomes an item model; other files there and
the whole of modelsDir are copied through. The contents of resourcepackDir
form the base layer. The archive is written next to it as
<resourcepackDir>.zip unless --output is given. When resourcepackDir itself
ends in .zip it names the archive and there is no base layer.

The mappings file (CUE, YAML, TOML, JSON or JSONC) assigns each model to a
vanilla item and its custom_model_data value.

With --watch the pack is rebuilt whenever a source changes until interrupted.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(4)(cmd, args); err != nil {
				return usageError(err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, app, flags, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.output, "output", "o", "", "archive path (default <resourcepackDir>.zip)")
	f.BoolVar(&flags.overwrite, "overwrite", false, "let generated files replace files from the base layer")
	f.StringVar(&flags.unreferenced, "unreferenced", "", "models without a mapping: skip or include (default from config)")
	f.StringVar(&flags.namespace, "namespace", "", "namespace for generated models, overriding the mapping file")
	f.StringVar(&flags.format, "format", "", "override layout: legacy or items (default from config)")
	f.IntVar(&flags.workers, "workers", 0, "parallel model parsers (default one per CPU)")
	f.StringVar(&flags.export, "export", "", "also write the pack as a directory tree under this directory")
	f.StringVar(&flags.emitMappings, "emit-mappings", "", "write the runtime model mappings JSON to this path")
	f.StringVar(&flags.info, "info", "", "write the archive's uuid, sha1, size and entry count as JSON to this path")
	f.BoolVarP(&flags.watch, "watch", "w", false, "rebuild whenever a source changes")
	f.DurationVar(&flags.debounce, "debounce", watch.DefaultDebounce, "quiet period before a rebuild in --watch mode")
	f.StringSliceVar(&flags.ignore, "ignore", nil, "glob patterns of source changes that never trigger a rebuild (repeatable)")

	return cmd
}

func runGenerate(cmd *cobra.Command, app *App, flags *generateFlags, args []string) error {
	ctx := cmd.Context()
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}
	opts, err := flags.options(cmd.Flags().Changed, cfg, args)
	if err != nil {
		return usageError(err)
	}

	logger, closer, err := app.newLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()
	opts.Logger = logger

	if flags.watch {
		return watchGenerate(ctx, app, flags, opts)
	}
	report, err := pipeline.Run(ctx, opts)
	if err != nil {
		return app.fail(err, "generate resource pack", args[1])
	}
	printGenerateSummary(app.stdout, report, opts.Format, app.isVerbose())
	return nil
}

// options merges the command line over cfg. changed reports whether a flag
// was given explicitly.
func (f *generateFlags) options(changed func(string) bool, cfg *config.Config, args []string) (pipeline.Options, error) {
	opts := pipeline.Options{
		BBModelDir:      args[0],
		ResourcePackDir: args[1],
		ModelsDir:       args[2],
		MappingsPath:    args[3],
		Output:          f.output,
		Namespace:       cfg.Namespace,
		PackFormat:      cfg.PackFormat,
		Description:     cfg.Description,
		Format:          assemble.OverrideFormat(cfg.Format),
		Unreferenced:    assemble.UnreferencedPolicy(cfg.Unreferenced),
		Overwrite:       cfg.Overwrite,
		Workers:         cfg.Workers,
		ExportDir:       f.export,
		EmitMappings:    f.emitMappings,
		InfoPath:        f.info,
	}

	var errs []error
	for i, arg := range args {
		if err := types.FilesystemPath(arg).Validate(); err != nil {
			errs = append(errs, fmt.Errorf("argument %d: %w", i+1, err))
		}
	}
	if changed("namespace") {
		ns := types.Namespace(f.namespace)
		if err := ns.Validate(); err != nil {
			errs = append(errs, err)
		}
		opts.Namespace = ns
		opts.PinNamespace = true
	}
	if changed("format") {
		format := config.OverrideFormat(f.format)
		if ok, fieldErrs := format.IsValid(); !ok {
			errs = append(errs, fieldErrs...)
		}
		opts.Format = assemble.OverrideFormat(format)
	}
	if changed("unreferenced") {
		policy := config.UnreferencedPolicy(f.unreferenced)
		if ok, fieldErrs := policy.IsValid(); !ok {
			errs = append(errs, fieldErrs...)
		}
		opts.Unreferenced = assemble.UnreferencedPolicy(policy)
	}
	if changed("workers") {
		if f.workers < 0 {
			errs = append(errs, fmt.Errorf("%w: --workers must not be negative, got %d", config.ErrInvalidWorkers, f.workers))
		}
		opts.Workers = f.workers
	}
	if !f.watch && (changed("debounce") || changed("ignore")) {
		errs = append(errs, errors.New("--debounce and --ignore require --watch"))
	}
	if changed("overwrite") {
		opts.Overwrite = f.overwrite
	}
	return opts, errors.Join(errs...)
}

func printGenerateSummary(w io.Writer, r *pipeline.Report, format assemble.OverrideFormat, verbose bool) {
	line := func(key string, value any) {
		fmt.Fprintf(w, "  %s%v\n", summaryKeyStyle.Render(key), value)
	}

	title := "Resource pack written"
	if r.Reused {
		title = "Resource pack unchanged"
	}
	fmt.Fprintln(w, SuccessStyle.Render("✓")+" "+TitleStyle.Render(title))
	line("path", r.Archive.Path)
	line("entries", r.Archive.Entries)
	line("size", fmt.Sprintf("%d bytes", r.Archive.Size))
	line("sha1", r.Archive.SHA1)
	line("uuid", r.Archive.UUID)
	line("models", fmt.Sprintf("%d (%d mapped)", r.Models, r.Mappings))
	line("overrides", fmt.Sprintf("%d (%s)", len(r.Overrides), format))
	if r.Export != nil {
		line("exported", fmt.Sprintf("%d written, %d unchanged", r.Export.Written, r.Export.Unchanged))
	}

	if len(r.Unreferenced) > 0 {
		fmt.Fprintln(w, WarningStyle.Render(fmt.Sprintf("! %d model(s) not referenced by any mapping: %s",
			len(r.Unreferenced), strings.Join(r.Unreferenced, ", "))))
	}
	if len(r.Skipped) > 0 {
		fmt.Fprintln(w, WarningStyle.Render(fmt.Sprintf("! %d file(s) kept from the base layer; use --overwrite to replace them", len(r.Skipped))))
	}

	if !verbose {
		return
	}
	for _, o := range r.Overrides {
		fmt.Fprintln(w, VerboseStyle.Render(fmt.Sprintf("  override %s: %d entries", o.Path, o.Entries)))
	}
	for _, origin := range pipeline.SortedOrigins(r.Origins) {
		fmt.Fprintln(w, VerboseStyle.Render(fmt.Sprintf("  %s entries: %d", origin, r.Origins[origin])))
	}
	for _, s := range r.Skipped {
		fmt.Fprintln(w, VerboseStyle.Render(fmt.Sprintf("  kept %s over %s", s.Path, s.Source)))
	}
	fmt.Fprintln(w, VerboseStyle.Render(fmt.Sprintf("  fingerprint %016x", r.Fingerprint)))
	fmt.Fprintln(w, VerboseStyle.Render(fmt.Sprintf("  elapsed %s", r.Elapsed.Round(time.Millisecond))))
}
