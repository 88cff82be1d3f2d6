// SPDX-License-Identifier: MPL-2.0

package packager

import (
	"context"
	"crypto/sha1" //nolint:gosec // the client verifies packs by SHA-1
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"

	"github.com/thecrown/packgen/pkg/manifest"
	"github.com/thecrown/packgen/pkg/packerr"
)

// ModTime is stamped on every archive entry.
var ModTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// PackNamespace is the name-based UUID namespace pack UUIDs are derived in.
var PackNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/thecrown/packgen/resource-pack"))

// Result describes a written archive.
type Result struct {
	Path    string    `json:"path"`
	Entries int       `json:"entries"`
	Size    int64     `json:"size"`
	SHA1    string    `json:"sha1"`
	UUID    uuid.UUID `json:"uuid"`
}

// JSON encodes the result for the server's resource-pack prompt.
func (r *Result) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// PackUUID derives the pack UUID from the archive's SHA-1, so an unchanged
// pack keeps its identity and a changed one gets a new one.
func PackUUID(sum []byte) uuid.UUID {
	return uuid.NewSHA1(PackNamespace, sum)
}

// Staged is a fully written temporary file next to its destination. Nothing
// is visible at Dest until Commit renames it into place.
type Staged struct {
	Dest      string
	tmp       string
	committed bool
}

// Commit renames the staged file over Dest.
func (s *Staged) Commit() error {
	if s.committed {
		return nil
	}
	if err := os.Rename(s.tmp, s.Dest); err != nil {
		return &packerr.PackagingError{Dest: s.Dest, Op: "rename into place", Err: err}
	}
	s.committed = true
	return nil
}

// Discard removes the temporary file unless it was committed. It is safe to
// defer right after a successful stage.
func (s *Staged) Discard() {
	if !s.committed {
		_ = os.Remove(s.tmp)
	}
}

// Stage packages m into a temporary file beside dest and returns the result
// it will have once committed. dest itself is not touched.
//
// It fails with *packerr.OutputPathError when dest's directory cannot be
// created and *packerr.PackagingError on any write failure. Nothing is left
// behind on failure or cancellation.
func Stage(ctx context.Context, m *manifest.Manifest, dest string) (*Result, *Staged, error) {
	tmp, err := createTemp(dest)
	if err != nil {
		return nil, nil, err
	}
	staged := &Staged{Dest: dest, tmp: tmp.Name()}
	ok := false
	defer func() {
		if !ok {
			_ = tmp.Close()
			staged.Discard()
		}
	}()

	hash := sha1.New() //nolint:gosec
	counter := &countingWriter{}
	zw := zip.NewWriter(io.MultiWriter(tmp, hash, counter))

	entries := m.Entries()
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("packaging canceled: %w", err)
		}
		hdr := &zip.FileHeader{Name: e.Path, Method: zip.Deflate, Modified: ModTime}
		hdr.SetMode(0o644)
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return nil, nil, &packerr.PackagingError{Dest: dest, Op: "add " + e.Path, Err: err}
		}
		if _, err := w.Write(e.Data); err != nil {
			return nil, nil, &packerr.PackagingError{Dest: dest, Op: "write " + e.Path, Err: err}
		}
	}
	if err := zw.Close(); err != nil {
		return nil, nil, &packerr.PackagingError{Dest: dest, Op: "finish archive", Err: err}
	}
	if err := finish(tmp, dest); err != nil {
		return nil, nil, err
	}
	ok = true

	sum := hash.Sum(nil)
	return &Result{
		Path:    dest,
		Entries: len(entries),
		Size:    counter.n,
		SHA1:    hex.EncodeToString(sum),
		UUID:    PackUUID(sum),
	}, staged, nil
}

// StageFile writes data to a temporary file beside dest, creating dest's
// directory first. Errors match Stage.
func StageFile(dest string, data []byte) (*Staged, error) {
	tmp, err := createTemp(dest)
	if err != nil {
		return nil, err
	}
	staged := &Staged{Dest: dest, tmp: tmp.Name()}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		staged.Discard()
		return nil, &packerr.PackagingError{Dest: dest, Op: "write", Err: err}
	}
	if err := finish(tmp, dest); err != nil {
		_ = tmp.Close()
		staged.Discard()
		return nil, err
	}
	return staged, nil
}

func createTemp(dest string) (*os.File, error) {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &packerr.OutputPathError{Dir: dir, Err: err}
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".tmp-*")
	if err != nil {
		return nil, &packerr.PackagingError{Dest: dest, Op: "create temporary file", Err: err}
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, &packerr.PackagingError{Dest: dest, Op: "chmod temporary file", Err: err}
	}
	return tmp, nil
}

func finish(tmp *os.File, dest string) error {
	if err := tmp.Sync(); err != nil {
		return &packerr.PackagingError{Dest: dest, Op: "sync", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &packerr.PackagingError{Dest: dest, Op: "close", Err: err}
	}
	return nil
}

type countingWriter struct{ n int64 }

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}
