// SPDX-License-Identifier: MPL-2.0

package mapping

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/thecrown/packgen/pkg/types"
)

// CustomModelDataKey is the predicate name the client's item-override
// mechanism uses for the custom model data component.
const CustomModelDataKey = "custom_model_data"

type (
	// Predicate is the in-game condition an entry maps its model to: the item
	// whose override list receives the entry, plus the conditions selecting it.
	Predicate struct {
		Item types.ResourceLocation
		// CustomModelData is nil when the entry only uses Extra conditions.
		CustomModelData *int
		// Extra holds additional numeric predicates (e.g. "damaged": 1).
		Extra map[string]float64
	}

	// Entry is one mapping row.
	Entry struct {
		// Model is the model identifier as derived by the scanner from the
		// model file's relative path (e.g. "mobs/cow_model").
		Model  string
		Target Predicate
		// Index is the zero-based position of the entry in the table.
		Index int
	}

	// Table is the ordered, de-duplicated result of loading a mapping file.
	Table struct {
		// Path is the file the table was loaded from.
		Path string
		// Namespace is the optional namespace declared by the file; empty when
		// the file leaves it to configuration.
		Namespace types.Namespace

		entries []Entry
		byModel map[string]int
	}
)

// Conditions returns the predicate conditions as a sorted key/value map,
// including custom model data when set.
func (p Predicate) Conditions() map[string]float64 {
	out := make(map[string]float64, len(p.Extra)+1)
	for k, v := range p.Extra {
		out[k] = v
	}
	if p.CustomModelData != nil {
		out[CustomModelDataKey] = float64(*p.CustomModelData)
	}
	return out
}

// Key is a canonical string identifying the predicate; two predicates with
// the same Key select the same override.
func (p Predicate) Key() string {
	conds := p.Conditions()
	keys := make([]string, 0, len(conds))
	for k := range conds {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(string(p.Item))
	sb.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(strconv.FormatFloat(conds[k], 'g', -1, 64))
	}
	sb.WriteString("}")
	return sb.String()
}

// String renders the predicate for messages.
func (p Predicate) String() string { return p.Key() }

// Validate checks that the predicate is well formed for the destination runtime.
func (p Predicate) Validate() error {
	if err := p.Item.Validate(); err != nil {
		return err
	}
	if p.CustomModelData != nil && *p.CustomModelData < 0 {
		return fmt.Errorf("%s must not be negative, got %d", CustomModelDataKey, *p.CustomModelData)
	}
	if _, dup := p.Extra[CustomModelDataKey]; dup {
		return fmt.Errorf("%s must be given as its own field, not under predicates", CustomModelDataKey)
	}
	if p.CustomModelData == nil && len(p.Extra) == 0 {
		return fmt.Errorf("entry for item %s has no condition: set %s or predicates", p.Item, CustomModelDataKey)
	}
	return nil
}

// Len returns the number of distinct model entries.
func (t *Table) Len() int { return len(t.entries) }

// Entries returns a copy of the entries in file order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Lookup returns the entry for a model identifier.
func (t *Table) Lookup(model string) (Entry, bool) {
	i, ok := t.byModel[model]
	if !ok {
		return Entry{}, false
	}
	return t.entries[i], true
}

// Items returns every target item in order of first appearance.
func (t *Table) Items() []types.ResourceLocation {
	seen := make(map[types.ResourceLocation]bool)
	var items []types.ResourceLocation
	for _, e := range t.entries {
		if !seen[e.Target.Item] {
			seen[e.Target.Item] = true
			items = append(items, e.Target.Item)
		}
	}
	return items
}

// ForItem returns the entries targeting item, in table order.
func (t *Table) ForItem(item types.ResourceLocation) []Entry {
	var out []Entry
	for _, e := range t.entries {
		if e.Target.Item == item {
			out = append(out, e)
		}
	}
	return out
}

// SharedTargets returns groups of entries (two or more) that resolve to the
// same predicate. The override format accepts them, but only the last one of
// each group is reachable in game.
func (t *Table) SharedTargets() [][]Entry {
	groups := make(map[string][]Entry)
	var order []string
	for _, e := range t.entries {
		k := e.Target.Key()
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], e)
	}
	var out [][]Entry
	for _, k := range order {
		if len(groups[k]) > 1 {
			out = append(out, groups[k])
		}
	}
	return out
}

// NewTable builds a table from entries, applying the same duplicate rules as
// Load. It is used by tests and by callers that build mappings in code.
func NewTable(path string, entries []Entry) (*Table, error) {
	t := &Table{Path: path, byModel: make(map[string]int, len(entries))}
	for _, e := range entries {
		if err := t.add(e); err != nil {
			return nil, err
		}
	}
	return t, nil
}
