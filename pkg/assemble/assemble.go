// SPDX-License-Identifier: MPL-2.0

package assemble

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"github.com/charmbracelet/log"

	"github.com/thecrown/packgen/internal/logging"
	"github.com/thecrown/packgen/pkg/bbmodel"
	"github.com/thecrown/packgen/pkg/manifest"
	"github.com/thecrown/packgen/pkg/mapping"
	"github.com/thecrown/packgen/pkg/packerr"
	"github.com/thecrown/packgen/pkg/scan"
	"github.com/thecrown/packgen/pkg/types"
)

const (
	// UnreferencedSkip drops models no mapping entry refers to.
	UnreferencedSkip UnreferencedPolicy = "skip"
	// UnreferencedInclude emits them without an override.
	UnreferencedInclude UnreferencedPolicy = "include"

	// PackMetaPath is the pack metadata file at the archive root.
	PackMetaPath = "pack.mcmeta"
)

// ErrInvalidSettings marks an unknown policy, format or namespace in Input.
var ErrInvalidSettings = errors.New("invalid settings")

type (
	// UnreferencedPolicy decides what happens to models without a mapping.
	UnreferencedPolicy string

	// Input is everything Assemble needs.
	Input struct {
		Mappings *mapping.Table
		Scan     *scan.Result
		// BaseDir is an existing resource pack directory whose files form the
		// base layer. Empty or missing means no base layer.
		BaseDir string
		// Exclude lists paths the base layer walk skips, typically the run's
		// own outputs when they sit inside BaseDir.
		Exclude []string
		// Namespace receives generated models and textures.
		Namespace    types.Namespace
		PackFormat   int
		Description  string
		Format       OverrideFormat
		Unreferenced UnreferencedPolicy
		// Overwrite lets generated entries replace base entries.
		Overwrite bool
		Logger    *log.Logger
	}

	// Output is the assembled pack plus what the run decided along the way.
	Output struct {
		Manifest *manifest.Manifest
		// Unreferenced lists models no mapping refers to, whatever the policy.
		Unreferenced []string
		Overrides    []Override
		Runtime      RuntimeMappings
	}

	packMeta struct {
		Pack struct {
			PackFormat  int    `json:"pack_format"`
			Description string `json:"description"`
		} `json:"pack"`
	}
)

// Validate returns an error for unknown policies.
func (p UnreferencedPolicy) Validate() error {
	switch p {
	case UnreferencedSkip, UnreferencedInclude:
		return nil
	default:
		return fmt.Errorf("%w: unknown unreferenced-model policy %q (want %s or %s)", ErrInvalidSettings, p, UnreferencedSkip, UnreferencedInclude)
	}
}

// Resolve checks that every mapping entry names a scanned model and returns
// *packerr.UnresolvedMappingError listing every one that does not.
func Resolve(table *mapping.Table, res *scan.Result) error {
	var missing []string
	for _, e := range table.Entries() {
		if _, ok := res.Lookup(e.Model); !ok {
			missing = append(missing, e.Model)
		}
	}
	if len(missing) > 0 {
		return &packerr.UnresolvedMappingError{Models: missing}
	}
	return nil
}

// Assemble builds the pack manifest. Mapping resolution runs before anything
// is read from BaseDir, so an unresolved mapping fails without side effects.
func Assemble(ctx context.Context, in Input) (*Output, error) {
	logger := in.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	if err := in.Namespace.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	if err := in.Format.Validate(); err != nil {
		return nil, err
	}
	if err := in.Unreferenced.Validate(); err != nil {
		return nil, err
	}
	if err := Resolve(in.Mappings, in.Scan); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("assemble canceled: %w", err)
	}

	m := manifest.New(in.Overwrite)
	if in.BaseDir != "" {
		if err := m.AddDir(ctx, manifest.OriginBase, in.BaseDir, in.Exclude...); err != nil {
			return nil, err
		}
	}
	out := &Output{Manifest: m}

	if !m.Has(PackMetaPath) {
		var meta packMeta
		meta.Pack.PackFormat = in.PackFormat
		meta.Pack.Description = in.Description
		data, err := json.MarshalIndent(meta, "", "  ")
		if err != nil {
			return nil, err
		}
		if _, err := m.Add(manifest.OriginGenerated, "pack metadata", PackMetaPath, data); err != nil {
			return nil, err
		}
	}

	for _, d := range in.Scan.Models {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("assemble canceled: %w", err)
		}
		if _, mapped := in.Mappings.Lookup(d.ID); !mapped {
			out.Unreferenced = append(out.Unreferenced, d.ID)
			if in.Unreferenced == UnreferencedSkip {
				logger.Warn("model has no mapping entry, skipping", "model", d.ID, "source", d.Source)
				continue
			}
			logger.Info("model has no mapping entry, including without override", "model", d.ID)
		}
		if err := addDescriptor(m, in.Namespace, d); err != nil {
			return nil, err
		}
	}

	for _, a := range in.Scan.Assets {
		p := path.Join("assets", string(in.Namespace), "textures/item", a.Rel)
		if _, err := m.Add(manifest.OriginAsset, "asset "+a.Rel, p, a.Data); err != nil {
			return nil, err
		}
	}
	for _, a := range in.Scan.Structural {
		p := path.Join("assets", string(in.Namespace), "models", a.Rel)
		if _, err := m.Add(manifest.OriginAsset, "structural model "+a.Rel, p, a.Data); err != nil {
			return nil, err
		}
	}

	if err := addOverrides(m, in, out, logger); err != nil {
		return nil, err
	}

	for _, group := range in.Mappings.SharedTargets() {
		models := make([]string, len(group))
		for i, e := range group {
			models[i] = e.Model
		}
		logger.Warn("models share one predicate; only the last is reachable in game",
			"predicate", group[0].Target.String(), "models", models)
	}
	for _, s := range m.Skipped() {
		logger.Warn("kept existing resource pack file", "path", s.Path, "kept", s.Kept, "skipped", s.Source)
	}

	out.Runtime = buildRuntime(in)
	return out, nil
}

func addDescriptor(m *manifest.Manifest, ns types.Namespace, d *bbmodel.Descriptor) error {
	source := "model " + d.Source
	for _, t := range d.Textures {
		if !t.Embedded() {
			return fmt.Errorf("model %s: texture %s has no image data", d.ID, t.Key)
		}
		if _, err := m.Add(manifest.OriginGenerated, source, TexturePath(ns, d.ID, t), t.Data); err != nil {
			return err
		}
	}
	data, err := renderModel(ns, d)
	if err != nil {
		return fmt.Errorf("model %s: %w", d.ID, err)
	}
	_, err = m.Add(manifest.OriginGenerated, source, ModelPath(ns, d.ID), data)
	return err
}

func addOverrides(m *manifest.Manifest, in Input, out *Output, logger *log.Logger) error {
	for _, item := range in.Mappings.Items() {
		entries := in.Mappings.ForItem(item)
		models := make([]types.ResourceLocation, len(entries))
		for i, e := range entries {
			models[i] = ModelLocation(in.Namespace, e.Model)
		}
		if !ascendingCustomModelData(entries) {
			logger.Warn("custom_model_data values for item are not ascending; later lower values shadow earlier ones",
				"item", item)
		}

		data, err := in.Format.renderOverride(item, entries, models)
		if err != nil {
			return err
		}
		p := in.Format.OverridePath(item)
		if _, err := m.Add(manifest.OriginGenerated, "overrides for "+item.String(), p, data); err != nil {
			return err
		}
		out.Overrides = append(out.Overrides, Override{Item: item, Path: p, Entries: len(entries)})
	}
	return nil
}
