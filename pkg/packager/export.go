// SPDX-License-Identifier: MPL-2.0

package packager

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/thecrown/packgen/pkg/manifest"
	"github.com/thecrown/packgen/pkg/packerr"
)

// ExportResult counts what Export did.
type ExportResult struct {
	Written int
	// Unchanged counts files that already held the entry's bytes.
	Unchanged int
}

// Export writes m as a directory tree under dir. Every manifest path ends up
// holding its entry's bytes, so a re-export replaces what an earlier run
// produced. Files under dir that are not in m are left alone.
func Export(ctx context.Context, m *manifest.Manifest, dir string) (*ExportResult, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &packerr.OutputPathError{Dir: dir, Err: err}
	}

	res := &ExportResult{}
	for _, e := range m.Entries() {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("export canceled: %w", err)
		}
		target := filepath.Join(dir, filepath.FromSlash(e.Path))
		current, err := os.ReadFile(target)
		switch {
		case err == nil && bytes.Equal(current, e.Data):
			res.Unchanged++
			continue
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return res, &packerr.PackagingError{Dest: dir, Op: "read " + e.Path, Err: err}
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return res, &packerr.PackagingError{Dest: dir, Op: "create directory for " + e.Path, Err: err}
		}
		if err := os.WriteFile(target, e.Data, 0o644); err != nil {
			return res, &packerr.PackagingError{Dest: dir, Op: "write " + e.Path, Err: err}
		}
		res.Written++
	}
	return res, nil
}
