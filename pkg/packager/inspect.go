// SPDX-License-Identifier: MPL-2.0

package packager

import (
	"crypto/sha1" //nolint:gosec
	"encoding/hex"
	"encoding/json"
	"io"
	"os"

	"github.com/klauspost/compress/zip"

	"github.com/thecrown/packgen/pkg/packerr"
)

type (
	// Info describes an existing archive.
	Info struct {
		Result
		Files []FileInfo `json:"files"`
		// PackFormat and Description come from pack.mcmeta when present.
		PackFormat  int    `json:"pack_format,omitempty"`
		Description string `json:"description,omitempty"`
	}

	// FileInfo is one archive entry.
	FileInfo struct {
		Name           string `json:"name"`
		Size           uint64 `json:"size"`
		CompressedSize uint64 `json:"compressed_size"`
	}
)

// Inspect reads the archive at path.
func Inspect(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &packerr.PathError{Role: "archive", Path: path, Err: err}
	}
	defer f.Close()

	hash := sha1.New() //nolint:gosec
	size, err := io.Copy(hash, f)
	if err != nil {
		return nil, &packerr.PathError{Role: "archive", Path: path, Err: err}
	}

	zr, err := zip.NewReader(f, size)
	if err != nil {
		return nil, &packerr.PathError{Role: "archive", Path: path, Err: err}
	}

	sum := hash.Sum(nil)
	info := &Info{Result: Result{
		Path:    path,
		Entries: len(zr.File),
		Size:    size,
		SHA1:    hex.EncodeToString(sum),
		UUID:    PackUUID(sum),
	}}
	for _, zf := range zr.File {
		info.Files = append(info.Files, FileInfo{
			Name:           zf.Name,
			Size:           zf.UncompressedSize64,
			CompressedSize: zf.CompressedSize64,
		})
		if zf.Name == "pack.mcmeta" {
			readPackMeta(zf, info)
		}
	}
	return info, nil
}

// readPackMeta fills pack metadata; a malformed pack.mcmeta leaves it empty.
func readPackMeta(zf *zip.File, info *Info) {
	rc, err := zf.Open()
	if err != nil {
		return
	}
	defer rc.Close()

	var meta struct {
		Pack struct {
			PackFormat  int             `json:"pack_format"`
			Description json.RawMessage `json:"description"`
		} `json:"pack"`
	}
	if err := json.NewDecoder(rc).Decode(&meta); err != nil {
		return
	}
	info.PackFormat = meta.Pack.PackFormat
	var desc string
	if json.Unmarshal(meta.Pack.Description, &desc) == nil {
		info.Description = desc
	} else {
		info.Description = string(meta.Pack.Description)
	}
}
