// SPDX-License-Identifier: MPL-2.0

package mapping

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/muhammadmuzzammil1998/jsonc"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/thecrown/packgen/pkg/cueutil"
	"github.com/thecrown/packgen/pkg/packerr"
	"github.com/thecrown/packgen/pkg/types"
)

// modelFileSuffix is stripped from model identifiers so entries may name the
// source file ("bulbasaur/bulbasaur.bbmodel") or the bare identifier.
const modelFileSuffix = ".bbmodel"

//go:embed mapping_schema.cue
var schemaBytes []byte

type (
	fileDoc struct {
		Namespace string     `json:"namespace"`
		Mappings  []rawEntry `json:"mappings"`
	}

	rawEntry struct {
		Model           string             `json:"model"`
		Item            string             `json:"item"`
		CustomModelData *int               `json:"custom_model_data,omitempty"`
		Predicates      map[string]float64 `json:"predicates,omitempty"`
	}
)

// Load reads, validates and de-duplicates the mapping file at path.
//
// It fails with *packerr.MappingNotFoundError when path does not exist,
// *packerr.MappingParseError for syntax, schema or predicate errors, and
// *packerr.DuplicateMappingError when a model is mapped to two different
// targets. Repeating an identical entry is accepted and collapsed.
func Load(ctx context.Context, path string) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load mappings canceled: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &packerr.MappingNotFoundError{Path: path}
		}
		return nil, &packerr.PathError{Role: "mapping file", Path: path, Err: err}
	}

	doc, err := decode(path, data)
	if err != nil {
		return nil, &packerr.MappingParseError{Path: path, Err: err}
	}

	return build(path, doc)
}

// decode dispatches on the file extension. Everything that is not YAML or
// TOML is handed to CUE, which also accepts JSON; JSON with comments is
// stripped first.
func decode(path string, data []byte) (*fileDoc, error) {
	name := filepath.Base(path)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, name); err != nil {
			return nil, err
		}
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return validateValue(raw, name)
	case ".toml":
		if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, name); err != nil {
			return nil, err
		}
		var raw map[string]any
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return validateValue(raw, name)
	case ".jsonc":
		return decodeCUE(jsonc.ToJSON(data), name)
	default:
		return decodeCUE(data, name)
	}
}

func decodeCUE(data []byte, name string) (*fileDoc, error) {
	result, err := cueutil.ParseAndDecode[fileDoc](schemaBytes, data, "#Mappings", cueutil.WithFilename(name))
	if err != nil {
		return nil, err
	}
	return result.Value, nil
}

func validateValue(raw map[string]any, name string) (*fileDoc, error) {
	if raw == nil {
		raw = map[string]any{}
	}
	result, err := cueutil.EncodeAndDecode[fileDoc](schemaBytes, raw, "#Mappings", cueutil.WithFilename(name))
	if err != nil {
		return nil, err
	}
	return result.Value, nil
}

func build(path string, doc *fileDoc) (*Table, error) {
	t := &Table{
		Path:    path,
		byModel: make(map[string]int, len(doc.Mappings)),
	}

	if doc.Namespace != "" {
		t.Namespace = types.Namespace(doc.Namespace)
	}

	var predicateErrs []error
	for i, raw := range doc.Mappings {
		item, err := types.ParseResourceLocation(raw.Item, types.MinecraftNamespace)
		if err != nil {
			predicateErrs = append(predicateErrs, fmt.Errorf("mappings[%d].item: %w", i, err))
			continue
		}
		entry := Entry{
			Model: NormalizeModelID(raw.Model),
			Target: Predicate{
				Item:            item,
				CustomModelData: raw.CustomModelData,
				Extra:           raw.Predicates,
			},
		}
		if err := entry.Target.Validate(); err != nil {
			predicateErrs = append(predicateErrs, fmt.Errorf("mappings[%d] (%s): %w", i, entry.Model, err))
			continue
		}
		if err := t.add(entry); err != nil {
			return nil, err
		}
	}

	if len(predicateErrs) > 0 {
		return nil, &packerr.MappingParseError{Path: path, Err: errors.Join(predicateErrs...)}
	}

	return t, nil
}

// add appends e unless an identical entry for the same model exists.
func (t *Table) add(e Entry) error {
	if i, ok := t.byModel[e.Model]; ok {
		existing := t.entries[i]
		if existing.Target.Key() == e.Target.Key() {
			return nil
		}
		return &packerr.DuplicateMappingError{
			Path:   t.Path,
			Model:  e.Model,
			First:  existing.Target.String(),
			Second: e.Target.String(),
		}
	}
	e.Index = len(t.entries)
	t.byModel[e.Model] = e.Index
	t.entries = append(t.entries, e)
	return nil
}

// NormalizeModelID converts a mapping's model reference to the identifier the
// scanner derives from file paths: forward slashes, no ".bbmodel" suffix.
func NormalizeModelID(model string) string {
	id := filepath.ToSlash(strings.TrimSpace(model))
	return strings.TrimSuffix(id, modelFileSuffix)
}
