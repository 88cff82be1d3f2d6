// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/thecrown/packgen/internal/logging"
	"github.com/thecrown/packgen/pkg/assemble"
	"github.com/thecrown/packgen/pkg/bbmodel"
	"github.com/thecrown/packgen/pkg/manifest"
	"github.com/thecrown/packgen/pkg/mapping"
	"github.com/thecrown/packgen/pkg/packager"
	"github.com/thecrown/packgen/pkg/packerr"
	"github.com/thecrown/packgen/pkg/scan"
	"github.com/thecrown/packgen/pkg/types"
)

// ArchiveExt marks a resourcepackDir argument that names the archive itself.
const ArchiveExt = ".zip"

// ErrExportOverlapsBase rejects an export directory that is, or contains, the
// base layer directory.
var ErrExportOverlapsBase = errors.New("export directory contains the resource pack directory")

type (
	// Options configures one run.
	Options struct {
		BBModelDir string
		// ResourcePackDir is the base layer directory. When it ends in .zip it
		// is the archive path instead and there is no base layer.
		ResourcePackDir string
		ModelsDir       string
		MappingsPath    string
		// Output is the archive path. Empty means ResourcePackDir + ".zip".
		Output string

		Namespace types.Namespace
		// PinNamespace keeps Namespace even when the mapping file declares one.
		PinNamespace bool
		PackFormat   int
		Description  string
		Format       assemble.OverrideFormat
		Unreferenced assemble.UnreferencedPolicy
		Overwrite    bool
		Workers      int

		// ExportDir, when set, also receives the pack as a directory tree.
		ExportDir string
		// EmitMappings, when set, receives the runtime mapping document.
		EmitMappings string
		// InfoPath, when set, receives the archive's identity as JSON.
		InfoPath string

		// Previous is the report of an earlier run with the same outputs. When
		// the assembled manifest has the same fingerprint and the archive is
		// still on disk, the archive is kept instead of rewritten.
		Previous *Report

		Logger *log.Logger
	}

	// Report summarizes a successful run.
	Report struct {
		Archive      *packager.Result
		Export       *packager.ExportResult
		Mappings     int
		Models       int
		Overrides    []assemble.Override
		Unreferenced []string
		Skipped      []manifest.Skipped
		Origins      map[manifest.Origin]int
		// Fingerprint identifies the packaged content.
		Fingerprint uint64
		// Reused is set when the archive from Previous was kept.
		Reused  bool
		Elapsed time.Duration
	}

	// ValidateReport summarizes a validation run.
	ValidateReport struct {
		Mappings     int
		Models       []string
		Unreferenced []string
		Shared       [][]mapping.Entry
	}

	// Pipeline runs the stages once. It is safe to query State and Err from
	// another goroutine while Run is in progress.
	Pipeline struct {
		opts   Options
		logger *log.Logger
		now    func() time.Time

		state atomic.Int32
		mu    sync.Mutex
		err   error
	}
)

// New returns an idle pipeline.
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	p := &Pipeline{opts: opts, logger: logger, now: time.Now}
	p.state.Store(int32(StateIdle))
	return p
}

// Sources lists the inputs a run reads: the model and structural model
// directories, the mapping file and the base layer when there is one.
func (o Options) Sources() []string {
	sources := []string{o.BBModelDir, o.ModelsDir, o.MappingsPath}
	if baseDir, _ := ResolveOutput(o.ResourcePackDir, o.Output); baseDir != "" {
		sources = append(sources, baseDir)
	}
	return sources
}

// Outputs lists every path a run writes.
func (o Options) Outputs() []string {
	_, archive := ResolveOutput(o.ResourcePackDir, o.Output)
	outputs := []string{archive}
	for _, p := range []string{o.ExportDir, o.EmitMappings, o.InfoPath} {
		if p != "" {
			outputs = append(outputs, p)
		}
	}
	return outputs
}

// Run is shorthand for New(opts).Run(ctx).
func Run(ctx context.Context, opts Options) (*Report, error) {
	return New(opts).Run(ctx)
}

// State returns the current state.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Err returns the failure reason once the pipeline is in StateFailed.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// ResolveOutput splits the resourcepackDir argument into the base layer
// directory and the archive path, honoring an explicit output.
func ResolveOutput(resourcePackDir, output string) (baseDir, archive string) {
	if strings.EqualFold(filepath.Ext(resourcePackDir), ArchiveExt) {
		if output == "" {
			output = resourcePackDir
		}
		return "", output
	}
	if output == "" {
		output = strings.TrimRight(resourcePackDir, `/\`) + ArchiveExt
	}
	return resourcePackDir, output
}

// Run executes every stage and writes the archive and side outputs. On
// failure the archive, the mapping document and the info file are left
// untouched and the returned error is a *StageError. Export writes in place
// and may be partially applied.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	start := p.now()
	if err := p.transition(StateLoadingMappings); err != nil {
		return nil, err
	}

	table, err := mapping.Load(ctx, p.opts.MappingsPath)
	if err != nil {
		return nil, p.fail(p.opts.MappingsPath, err)
	}
	ns := p.namespace(table)
	p.logger.Info("mappings loaded", "path", p.opts.MappingsPath, "entries", table.Len(), "namespace", ns)

	if err := p.transition(StateScanningModels); err != nil {
		return nil, err
	}
	res, err := p.scan(ctx)
	if err != nil {
		return nil, p.fail(p.opts.BBModelDir, err)
	}

	if err := p.transition(StateAssembling); err != nil {
		return nil, err
	}
	baseDir, archive := ResolveOutput(p.opts.ResourcePackDir, p.opts.Output)
	baseDir = existingDir(baseDir)
	if baseDir != "" && p.opts.ExportDir != "" && types.FilesystemPath(p.opts.ExportDir).Contains(types.FilesystemPath(baseDir)) {
		return nil, p.fail(p.opts.ExportDir, &packerr.OutputPathError{Dir: p.opts.ExportDir, Err: ErrExportOverlapsBase})
	}
	out, err := assemble.Assemble(ctx, assemble.Input{
		Mappings:     table,
		Scan:         res,
		BaseDir:      baseDir,
		Exclude:      p.opts.Outputs(),
		Namespace:    ns,
		PackFormat:   p.opts.PackFormat,
		Description:  p.opts.Description,
		Format:       p.opts.Format,
		Unreferenced: p.opts.Unreferenced,
		Overwrite:    p.opts.Overwrite,
		Logger:       p.logger,
	})
	if err != nil {
		return nil, p.fail(archive, err)
	}
	fingerprint := out.Manifest.Fingerprint()
	p.logger.Debug("manifest assembled", "entries", out.Manifest.Len(), "overrides", len(out.Overrides), "fingerprint", fmt.Sprintf("%016x", fingerprint))

	if err := p.transition(StatePackaging); err != nil {
		return nil, err
	}
	report := &Report{
		Mappings:     table.Len(),
		Models:       len(res.Models),
		Overrides:    out.Overrides,
		Unreferenced: out.Unreferenced,
		Skipped:      out.Manifest.Skipped(),
		Origins:      out.Manifest.CountByOrigin(),
		Fingerprint:  fingerprint,
	}

	// Outputs are staged first and committed together at the end.
	var pending []*packager.Staged
	if prev := p.opts.Previous; p.reusable(prev, archive, fingerprint) {
		report.Archive = prev.Archive
		report.Reused = true
		p.logger.Debug("content unchanged, keeping archive", "path", archive)
	} else {
		written, staged, err := packager.Stage(ctx, out.Manifest, archive)
		if err != nil {
			return nil, p.fail(archive, err)
		}
		defer staged.Discard()
		report.Archive = written
		pending = append(pending, staged)
	}

	if p.opts.EmitMappings != "" {
		staged, err := stageJSON(p.opts.EmitMappings, out.Runtime.JSON)
		if err != nil {
			return nil, p.fail(p.opts.EmitMappings, err)
		}
		defer staged.Discard()
		pending = append(pending, staged)
	}
	if p.opts.InfoPath != "" {
		staged, err := stageJSON(p.opts.InfoPath, report.Archive.JSON)
		if err != nil {
			return nil, p.fail(p.opts.InfoPath, err)
		}
		defer staged.Discard()
		pending = append(pending, staged)
	}
	if p.opts.ExportDir != "" {
		exported, err := packager.Export(ctx, out.Manifest, p.opts.ExportDir)
		if err != nil {
			return nil, p.fail(p.opts.ExportDir, err)
		}
		report.Export = exported
		p.logger.Info("pack exported", "dir", p.opts.ExportDir, "written", exported.Written, "unchanged", exported.Unchanged)
	}

	if err := ctx.Err(); err != nil {
		return nil, p.fail(archive, fmt.Errorf("packaging canceled: %w", err))
	}
	for _, staged := range pending {
		if err := staged.Commit(); err != nil {
			return nil, p.fail(staged.Dest, err)
		}
	}
	report.Elapsed = p.now().Sub(start)
	if err := p.transition(StateDone); err != nil {
		return nil, err
	}
	msg := "resource pack written"
	if report.Reused {
		msg = "resource pack unchanged"
	}
	written := report.Archive
	p.logger.Info(msg,
		"path", written.Path, "entries", written.Entries, "sha1", written.SHA1, "elapsed", report.Elapsed.Round(time.Millisecond))
	return report, nil
}

// Validate runs the loader, the scanner and mapping resolution without
// assembling or writing anything. Every problem found is returned joined.
func (p *Pipeline) Validate(ctx context.Context) (*ValidateReport, error) {
	if err := p.transition(StateLoadingMappings); err != nil {
		return nil, err
	}
	table, err := mapping.Load(ctx, p.opts.MappingsPath)
	if err != nil {
		return nil, p.fail(p.opts.MappingsPath, err)
	}

	if err := p.transition(StateScanningModels); err != nil {
		return nil, err
	}
	res, scanErr := p.scan(ctx)
	var se *packerr.ScanError
	if scanErr != nil && (!errors.As(scanErr, &se) || res == nil) {
		return nil, p.fail(p.opts.BBModelDir, scanErr)
	}

	// Models whose file failed to parse are already reported; don't report
	// them a second time as unresolved.
	failed := make(map[string]bool)
	if se != nil {
		for _, pe := range se.Errors {
			if id, err := bbmodel.IDFromPath(pe.Path); err == nil {
				failed[id] = true
			}
		}
	}
	var missing []string
	for _, e := range table.Entries() {
		if _, ok := res.Lookup(e.Model); !ok && !failed[e.Model] {
			missing = append(missing, e.Model)
		}
	}

	report := &ValidateReport{
		Mappings: table.Len(),
		Models:   res.IDs(),
		Shared:   table.SharedTargets(),
	}
	for _, id := range report.Models {
		if _, ok := table.Lookup(id); !ok {
			report.Unreferenced = append(report.Unreferenced, id)
		}
	}

	var errs []error
	if scanErr != nil {
		errs = append(errs, scanErr)
	}
	if len(missing) > 0 {
		errs = append(errs, &packerr.UnresolvedMappingError{Models: missing})
	}
	if len(errs) > 0 {
		return report, p.fail(p.opts.BBModelDir, errors.Join(errs...))
	}
	if err := p.transition(StateDone); err != nil {
		return nil, err
	}
	return report, nil
}

func (p *Pipeline) scan(ctx context.Context) (*scan.Result, error) {
	res, err := scan.Scan(ctx, scan.Options{
		BBModelDir: p.opts.BBModelDir,
		ModelsDir:  p.opts.ModelsDir,
		Workers:    p.opts.Workers,
		Logger:     p.logger,
	})
	if res != nil {
		p.logger.Info("models scanned", "models", len(res.Models), "assets", len(res.Assets), "structural", len(res.Structural))
	}
	return res, err
}

func (p *Pipeline) namespace(table *mapping.Table) types.Namespace {
	if table.Namespace == "" || p.opts.PinNamespace || table.Namespace == p.opts.Namespace {
		return p.opts.Namespace
	}
	p.logger.Debug("using namespace declared by the mapping file", "namespace", table.Namespace, "configured", p.opts.Namespace)
	return table.Namespace
}

func (p *Pipeline) transition(to State) error {
	from := p.State()
	if !from.next(to) {
		if from == StateIdle || !from.Terminal() {
			return fmt.Errorf("invalid transition %s -> %s", from, to)
		}
		return fmt.Errorf("%w (state %s)", ErrAlreadyRun, from)
	}
	if !p.state.CompareAndSwap(int32(from), int32(to)) {
		return fmt.Errorf("%w (state %s)", ErrAlreadyRun, p.State())
	}
	p.logger.Debug("stage", "from", from, "to", to)
	return nil
}

func (p *Pipeline) fail(resource string, err error) error {
	stage := p.State()
	se := &StageError{Stage: stage, Resource: resource, Err: err}
	p.mu.Lock()
	p.err = se
	p.mu.Unlock()
	p.state.Store(int32(StateFailed))
	for _, line := range packerr.Details(err) {
		p.logger.Error(line, "stage", stage)
	}
	return se
}

// reusable reports whether prev already packaged the same content to archive.
func (p *Pipeline) reusable(prev *Report, archive string, fingerprint uint64) bool {
	return prev != nil && prev.Archive != nil &&
		prev.Fingerprint == fingerprint &&
		prev.Archive.Path == archive &&
		types.FilesystemPath(archive).Exists()
}

func existingDir(dir string) string {
	if dir == "" || !types.FilesystemPath(dir).IsDir() {
		return ""
	}
	return dir
}

func stageJSON(path string, encode func() ([]byte, error)) (*packager.Staged, error) {
	data, err := encode()
	if err != nil {
		return nil, err
	}
	return packager.StageFile(path, data)
}

// SortedOrigins lists origins in a fixed order for summaries.
func SortedOrigins(counts map[manifest.Origin]int) []manifest.Origin {
	origins := make([]manifest.Origin, 0, len(counts))
	for o := range counts {
		origins = append(origins, o)
	}
	slices.Sort(origins)
	return origins
}
