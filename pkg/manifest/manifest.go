// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/thecrown/packgen/pkg/packerr"
	"github.com/thecrown/packgen/pkg/types"
)

const (
	// OriginBase marks files copied from an existing resource pack.
	OriginBase Origin = iota
	// OriginAsset marks files passed through from the model directories.
	OriginAsset
	// OriginGenerated marks files produced from model descriptors and mappings.
	OriginGenerated
)

type (
	// Origin is the layer an entry came from.
	Origin int

	// Entry is one file of the pack.
	Entry struct {
		// Path is slash separated and relative to the pack root.
		Path   string
		Data   []byte
		Origin Origin
		// Source describes where the entry came from, for diagnostics.
		Source string
		// Sum is the xxhash64 of Data.
		Sum uint64
	}

	// Skipped records a generated or asset entry that lost to a base entry.
	Skipped struct {
		Path   string
		Source string
		Kept   string
	}

	// Manifest maps pack paths to entries. It is not safe for concurrent use.
	Manifest struct {
		overwrite bool
		entries   map[string]*Entry
		skipped   []Skipped
	}
)

// String returns the layer name.
func (o Origin) String() string {
	switch o {
	case OriginBase:
		return "base"
	case OriginAsset:
		return "asset"
	case OriginGenerated:
		return "generated"
	default:
		return fmt.Sprintf("origin(%d)", int(o))
	}
}

// New returns an empty manifest. With overwrite, asset and generated entries
// replace base entries at the same path.
func New(overwrite bool) *Manifest {
	return &Manifest{overwrite: overwrite, entries: make(map[string]*Entry)}
}

// Add inserts data at p. It reports whether the manifest now holds data at p;
// false means a base entry was kept and the incoming entry was recorded in
// Skipped.
func (m *Manifest) Add(origin Origin, source, p string, data []byte) (bool, error) {
	clean, err := CleanPath(p)
	if err != nil {
		return false, err
	}

	incoming := &Entry{Path: clean, Data: data, Origin: origin, Source: source, Sum: xxhash.Sum64(data)}
	existing, ok := m.entries[clean]
	if !ok {
		m.entries[clean] = incoming
		return true, nil
	}
	if existing.Sum == incoming.Sum && bytes.Equal(existing.Data, incoming.Data) {
		return true, nil
	}

	baseInvolved := existing.Origin == OriginBase || origin == OriginBase
	if existing.Origin == origin || !baseInvolved {
		return false, &packerr.CollisionError{Path: clean, Existing: existing.Source, Incoming: source}
	}

	base, other := existing, incoming
	if origin == OriginBase {
		base, other = incoming, existing
	}
	if m.overwrite {
		m.entries[clean] = other
		return origin != OriginBase, nil
	}
	m.entries[clean] = base
	m.skipped = append(m.skipped, Skipped{Path: clean, Source: other.Source, Kept: base.Source})
	return origin == OriginBase, nil
}

// AddDir adds every non-hidden file under dir with the given origin. A
// missing dir adds nothing. Files and directories at or under any exclude
// path are skipped, so a run's own outputs never feed back into its input.
func (m *Manifest) AddDir(ctx context.Context, origin Origin, dir string, exclude ...string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return &packerr.PathError{Role: "resource pack directory", Path: p, Err: err}
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if p != dir && (strings.HasPrefix(d.Name(), ".") || isExcluded(p, exclude)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return &packerr.PathError{Role: "resource pack directory", Path: p, Err: err}
		}
		_, err = m.Add(origin, p, filepath.ToSlash(rel), data)
		return err
	})
}

func isExcluded(p string, exclude []string) bool {
	for _, ex := range exclude {
		if ex != "" && types.FilesystemPath(ex).Contains(types.FilesystemPath(p)) {
			return true
		}
	}
	return false
}

// Fingerprint is an xxhash64 over every path and its content sum in path
// order. Two manifests with the same fingerprint package to the same archive.
func (m *Manifest) Fingerprint() uint64 {
	d := xxhash.New()
	var sum [8]byte
	for _, p := range m.Paths() {
		_, _ = d.WriteString(p)
		_, _ = d.Write([]byte{0})
		binary.LittleEndian.PutUint64(sum[:], m.entries[p].Sum)
		_, _ = d.Write(sum[:])
	}
	return d.Sum64()
}

// Get returns the entry at p.
func (m *Manifest) Get(p string) (*Entry, bool) {
	e, ok := m.entries[p]
	return e, ok
}

// Has reports whether p is present.
func (m *Manifest) Has(p string) bool {
	_, ok := m.entries[p]
	return ok
}

// Len returns the number of entries.
func (m *Manifest) Len() int { return len(m.entries) }

// Paths returns every path in lexical order.
func (m *Manifest) Paths() []string {
	paths := make([]string, 0, len(m.entries))
	for p := range m.entries {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Entries returns every entry in path order.
func (m *Manifest) Entries() []*Entry {
	out := make([]*Entry, 0, len(m.entries))
	for _, p := range m.Paths() {
		out = append(out, m.entries[p])
	}
	return out
}

// Skipped returns the entries that lost to a base entry, in insertion order.
func (m *Manifest) Skipped() []Skipped {
	return slices.Clone(m.skipped)
}

// Size returns the total payload size in bytes.
func (m *Manifest) Size() int64 {
	var n int64
	for _, e := range m.entries {
		n += int64(len(e.Data))
	}
	return n
}

// CountByOrigin returns how many entries each layer contributes.
func (m *Manifest) CountByOrigin() map[Origin]int {
	counts := make(map[Origin]int, 3)
	for _, e := range m.entries {
		counts[e.Origin]++
	}
	return counts
}

// CleanPath normalizes a pack path and rejects absolute paths and paths that
// escape the pack root.
func CleanPath(p string) (string, error) {
	slashed := strings.ReplaceAll(p, "\\", "/")
	if slashed == "" || path.IsAbs(slashed) {
		return "", fmt.Errorf("pack path %q must be relative", p)
	}
	clean := path.Clean(slashed)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("pack path %q escapes the pack root", p)
	}
	return clean, nil
}
