// SPDX-License-Identifier: MPL-2.0

package assemble

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/thecrown/packgen/pkg/mapping"
	"github.com/thecrown/packgen/pkg/types"
)

const (
	// FormatLegacy writes assets/<ns>/models/item/<item>.json with an
	// overrides list, read by clients before 1.21.4.
	FormatLegacy OverrideFormat = "legacy"
	// FormatItems writes assets/<ns>/items/<item>.json item model
	// definitions with a range_dispatch on custom model data (1.21.4+).
	FormatItems OverrideFormat = "items"
)

// ErrUnsupportedPredicate is returned when a mapping's conditions cannot be
// written in the selected override format.
var ErrUnsupportedPredicate = errors.New("predicate not supported by override format")

var handheldSuffixes = []string{"_sword", "_axe", "_pickaxe", "_shovel", "_hoe", "stick", "_rod", "mace", "trident"}

type (
	// OverrideFormat selects how item overrides are written.
	OverrideFormat string

	// Override summarizes one written override definition.
	Override struct {
		Item    types.ResourceLocation
		Path    string
		Entries int
	}

	legacyItemModel struct {
		Parent    string            `json:"parent"`
		Textures  map[string]string `json:"textures"`
		Overrides []legacyOverride  `json:"overrides"`
	}

	legacyOverride struct {
		Predicate map[string]float64 `json:"predicate"`
		Model     string             `json:"model"`
	}

	itemDefinition struct {
		Model rangeDispatch `json:"model"`
	}

	rangeDispatch struct {
		Type     string       `json:"type"`
		Property string       `json:"property"`
		Fallback plainModel   `json:"fallback"`
		Entries  []rangeEntry `json:"entries"`
	}

	rangeEntry struct {
		Threshold float64    `json:"threshold"`
		Model     plainModel `json:"model"`
	}

	plainModel struct {
		Type  string `json:"type"`
		Model string `json:"model"`
	}
)

// Validate returns an error for unknown formats.
func (f OverrideFormat) Validate() error {
	switch f {
	case FormatLegacy, FormatItems:
		return nil
	default:
		return fmt.Errorf("%w: unknown override format %q (want %s or %s)", ErrInvalidSettings, f, FormatLegacy, FormatItems)
	}
}

// OverridePath is the pack path of the override definition for item.
func (f OverrideFormat) OverridePath(item types.ResourceLocation) string {
	if f == FormatItems {
		return fmt.Sprintf("assets/%s/items/%s.json", item.Namespace(), item.Path())
	}
	return fmt.Sprintf("assets/%s/models/item/%s.json", item.Namespace(), item.Path())
}

func vanillaItemModel(item types.ResourceLocation) string {
	return types.NewResourceLocation(item.Namespace(), "item/"+item.Path()).String()
}

func itemParent(item types.ResourceLocation) string {
	for _, s := range handheldSuffixes {
		if strings.HasSuffix(item.Path(), s) {
			return "minecraft:item/handheld"
		}
	}
	return "minecraft:item/generated"
}

// renderOverride writes the override definition for one item. entries are in
// mapping order and each carries the model location it selects.
func (f OverrideFormat) renderOverride(item types.ResourceLocation, entries []mapping.Entry, models []types.ResourceLocation) ([]byte, error) {
	if f == FormatItems {
		def := itemDefinition{Model: rangeDispatch{
			Type:     "minecraft:range_dispatch",
			Property: "minecraft:custom_model_data",
			Fallback: plainModel{Type: "minecraft:model", Model: vanillaItemModel(item)},
			Entries:  make([]rangeEntry, 0, len(entries)),
		}}
		for i, e := range entries {
			if e.Target.CustomModelData == nil || len(e.Target.Extra) > 0 {
				return nil, fmt.Errorf("model %s (%s): %w: the items format dispatches on %s only",
					e.Model, e.Target, ErrUnsupportedPredicate, mapping.CustomModelDataKey)
			}
			def.Model.Entries = append(def.Model.Entries, rangeEntry{
				Threshold: float64(*e.Target.CustomModelData),
				Model:     plainModel{Type: "minecraft:model", Model: models[i].String()},
			})
		}
		return json.Marshal(def)
	}

	doc := legacyItemModel{
		Parent:    itemParent(item),
		Textures:  map[string]string{"layer0": vanillaItemModel(item)},
		Overrides: make([]legacyOverride, 0, len(entries)),
	}
	for i, e := range entries {
		doc.Overrides = append(doc.Overrides, legacyOverride{
			Predicate: e.Target.Conditions(),
			Model:     models[i].String(),
		})
	}
	return json.Marshal(doc)
}

// ascendingCustomModelData reports whether the entries' custom model data
// values never decrease. The client uses the last matching override, so a
// lower value after a higher one is shadowed.
func ascendingCustomModelData(entries []mapping.Entry) bool {
	last := -1
	for _, e := range entries {
		if e.Target.CustomModelData == nil {
			continue
		}
		if *e.Target.CustomModelData < last {
			return false
		}
		last = *e.Target.CustomModelData
	}
	return true
}
