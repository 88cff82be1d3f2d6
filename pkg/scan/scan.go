// SPDX-License-Identifier: MPL-2.0

package scan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/thecrown/packgen/internal/logging"
	"github.com/thecrown/packgen/pkg/bbmodel"
	"github.com/thecrown/packgen/pkg/packerr"
	"github.com/thecrown/packgen/pkg/types"
)

type (
	// Options configures a scan.
	Options struct {
		// BBModelDir is the directory holding .bbmodel files and loose textures.
		BBModelDir string
		// ModelsDir holds structural model JSON merged into the pack verbatim.
		// Empty skips it; a non-empty path that does not exist is an error.
		ModelsDir string
		// Workers bounds parallel parsing. Zero or less uses GOMAXPROCS.
		Workers int
		// Logger receives per-file debug output. Nil discards it.
		Logger *log.Logger
	}

	// Asset is a file copied into the pack without interpretation.
	Asset struct {
		// Rel is the slash-separated path relative to the scanned directory.
		Rel  string
		Data []byte
	}

	// Result is the immutable output of a scan.
	Result struct {
		// Models are sorted by source path.
		Models []*bbmodel.Descriptor
		// Assets are non-model files from the model directory, sorted by path.
		// Files consumed as texture references by a model are excluded.
		Assets []Asset
		// Structural are the files of the models directory, sorted by path.
		Structural []Asset

		byID map[string]*bbmodel.Descriptor
	}

	parsed struct {
		desc *bbmodel.Descriptor
		refs []string
		err  error
	}
)

// NewResult builds a Result from already parsed models, for callers that do
// not scan a directory. Models must have distinct identifiers.
func NewResult(models []*bbmodel.Descriptor, assets, structural []Asset) *Result {
	r := &Result{Models: models, Assets: assets, Structural: structural, byID: make(map[string]*bbmodel.Descriptor, len(models))}
	for _, d := range models {
		r.byID[d.ID] = d
	}
	return r
}

// Lookup returns the descriptor with the given identifier.
func (r *Result) Lookup(id string) (*bbmodel.Descriptor, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// IDs returns the identifiers of every model in source-path order.
func (r *Result) IDs() []string {
	ids := make([]string, len(r.Models))
	for i, d := range r.Models {
		ids[i] = d.ID
	}
	return ids
}

// Scan walks opts.BBModelDir and opts.ModelsDir.
//
// A missing directory fails immediately with *packerr.PathError. Model files
// that fail to parse do not stop the walk; they are reported together as a
// *packerr.ScanError once every file has been tried, alongside the partial
// Result so callers can still report on the valid models.
func Scan(ctx context.Context, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	if err := requireDir("model directory", opts.BBModelDir); err != nil {
		return nil, err
	}
	if opts.ModelsDir != "" {
		if err := requireDir("models directory", opts.ModelsDir); err != nil {
			return nil, err
		}
	}

	modelFiles, assetFiles, err := walk(ctx, opts.BBModelDir)
	if err != nil {
		return nil, err
	}

	results := make([]parsed, len(modelFiles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(opts.Workers))
	for i, rel := range modelFiles {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = parseFile(opts.BBModelDir, rel)
			if results[i].err == nil {
				logger.Debug("parsed model", "id", results[i].desc.ID, "elements", len(results[i].desc.Elements))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan canceled: %w", err)
	}

	res := &Result{byID: make(map[string]*bbmodel.Descriptor, len(modelFiles))}
	consumed := make(map[string]bool)
	var parseErrs []*packerr.ModelParseError
	for i, rel := range modelFiles {
		p := results[i]
		if p.err != nil {
			parseErrs = append(parseErrs, &packerr.ModelParseError{Path: rel, Err: p.err})
			continue
		}
		if first, dup := res.byID[p.desc.ID]; dup {
			parseErrs = append(parseErrs, &packerr.ModelParseError{
				Path: rel,
				Err:  fmt.Errorf("model identifier %q is already produced by %s", p.desc.ID, first.Source),
			})
			continue
		}
		res.byID[p.desc.ID] = p.desc
		res.Models = append(res.Models, p.desc)
		for _, ref := range p.refs {
			consumed[ref] = true
		}
	}

	for _, rel := range assetFiles {
		if consumed[rel] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("scan canceled: %w", err)
		}
		data, err := os.ReadFile(filepath.Join(opts.BBModelDir, filepath.FromSlash(rel)))
		if err != nil {
			return nil, &packerr.PathError{Role: "asset", Path: rel, Err: err}
		}
		res.Assets = append(res.Assets, Asset{Rel: rel, Data: data})
	}

	if opts.ModelsDir != "" {
		if res.Structural, err = readTree(ctx, opts.ModelsDir); err != nil {
			return nil, err
		}
	}

	logger.Debug("scan complete", "models", len(res.Models), "assets", len(res.Assets),
		"structural", len(res.Structural), "failed", len(parseErrs))

	if len(parseErrs) > 0 {
		return res, &packerr.ScanError{Errors: parseErrs}
	}
	return res, nil
}

func requireDir(role, dir string) error {
	if types.FilesystemPath(dir).IsDir() {
		return nil
	}
	_, err := os.Stat(dir)
	if err == nil {
		err = errors.New("not a directory")
	}
	return &packerr.PathError{Role: role, Path: dir, Err: err}
}

func workerCount(n int) int {
	if n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}

// walk lists model files and other files under root as sorted slash paths.
func walk(ctx context.Context, root string) (models, assets []string, err error) {
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return &packerr.PathError{Role: "model directory", Path: p, Err: err}
		}
		if cerr := ctx.Err(); cerr != nil {
			return fmt.Errorf("scan canceled: %w", cerr)
		}
		if p == root {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.EqualFold(path.Ext(rel), bbmodel.FileExt) {
			models = append(models, rel)
		} else {
			assets = append(assets, rel)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	slices.Sort(models)
	slices.Sort(assets)
	return models, assets, nil
}

// parseFile reads and parses one model, then loads any textures it references
// by path. Referenced files must stay inside root.
func parseFile(root, rel string) parsed {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return parsed{err: err}
	}
	desc, err := bbmodel.Parse(rel, data)
	if err != nil {
		return parsed{err: err}
	}

	var refs []string
	for i := range desc.Textures {
		t := &desc.Textures[i]
		if t.Embedded() || t.Ref == "" {
			continue
		}
		refRel := path.Join(path.Dir(rel), t.Ref)
		if refRel == ".." || strings.HasPrefix(refRel, "../") {
			return parsed{err: fmt.Errorf("texture %s: %s points outside the model directory", t.Key, t.Ref)}
		}
		img, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(refRel)))
		if err != nil {
			return parsed{err: fmt.Errorf("texture %s: %w", t.Key, err)}
		}
		cfg, err := png.DecodeConfig(bytes.NewReader(img))
		if err != nil {
			return parsed{err: fmt.Errorf("texture %s: %s is not a valid PNG: %w", t.Key, refRel, err)}
		}
		t.Data, t.Width, t.Height = img, cfg.Width, cfg.Height
		refs = append(refs, refRel)
	}
	return parsed{desc: desc, refs: refs}
}

// readTree loads every non-hidden file under root.
func readTree(ctx context.Context, root string) ([]Asset, error) {
	var assets []Asset
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return &packerr.PathError{Role: "models directory", Path: p, Err: err}
		}
		if cerr := ctx.Err(); cerr != nil {
			return fmt.Errorf("scan canceled: %w", cerr)
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return &packerr.PathError{Role: "models directory", Path: p, Err: err}
		}
		assets = append(assets, Asset{Rel: filepath.ToSlash(rel), Data: data})
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(assets, func(a, b Asset) int { return strings.Compare(a.Rel, b.Rel) })
	return assets, nil
}
