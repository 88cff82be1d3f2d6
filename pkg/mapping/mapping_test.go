// SPDX-License-Identifier: MPL-2.0

package mapping

import (
	"errors"
	"testing"

	"github.com/thecrown/packgen/pkg/packerr"
	"github.com/thecrown/packgen/pkg/types"
)

func intPtr(i int) *int { return &i }

func TestSharedTargets(t *testing.T) {
	t.Parallel()

	table, err := NewTable("test", []Entry{
		{Model: "cow", Target: Predicate{Item: "minecraft:leather", CustomModelData: intPtr(1)}},
		{Model: "pig", Target: Predicate{Item: "minecraft:leather", CustomModelData: intPtr(2)}},
		{Model: "calf", Target: Predicate{Item: "minecraft:leather", CustomModelData: intPtr(1)}},
	})
	if err != nil {
		t.Fatalf("NewTable() error: %v", err)
	}

	shared := table.SharedTargets()
	if len(shared) != 1 {
		t.Fatalf("SharedTargets() = %v, want one group", shared)
	}
	if shared[0][0].Model != "cow" || shared[0][1].Model != "calf" {
		t.Errorf("group = %+v", shared[0])
	}
}

func TestNewTableRejectsConflictingModel(t *testing.T) {
	t.Parallel()

	_, err := NewTable("test", []Entry{
		{Model: "cow", Target: Predicate{Item: "minecraft:leather", CustomModelData: intPtr(1)}},
		{Model: "cow", Target: Predicate{Item: "minecraft:paper", CustomModelData: intPtr(1)}},
	})
	var dup *packerr.DuplicateMappingError
	if !errors.As(err, &dup) {
		t.Fatalf("NewTable() error = %v, want *DuplicateMappingError", err)
	}
	if dup.Model != "cow" {
		t.Errorf("Model = %q", dup.Model)
	}
}

func TestForItemKeepsTableOrder(t *testing.T) {
	t.Parallel()

	table, err := NewTable("test", []Entry{
		{Model: "b", Target: Predicate{Item: "minecraft:paper", CustomModelData: intPtr(5)}},
		{Model: "a", Target: Predicate{Item: "minecraft:leather", CustomModelData: intPtr(1)}},
		{Model: "c", Target: Predicate{Item: "minecraft:paper", CustomModelData: intPtr(3)}},
	})
	if err != nil {
		t.Fatal(err)
	}

	got := table.ForItem("minecraft:paper")
	if len(got) != 2 || got[0].Model != "b" || got[1].Model != "c" {
		t.Errorf("ForItem(paper) = %+v", got)
	}
	items := table.Items()
	want := []types.ResourceLocation{"minecraft:paper", "minecraft:leather"}
	if len(items) != 2 || items[0] != want[0] || items[1] != want[1] {
		t.Errorf("Items() = %v, want %v", items, want)
	}
}

func TestNormalizeModelID(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"cow_model":                   "cow_model",
		"cow_model.bbmodel":           "cow_model",
		"bulbasaur/bulbasaur.bbmodel": "bulbasaur/bulbasaur",
		"  oldman ":                   "oldman",
	}
	for in, want := range tests {
		if got := NormalizeModelID(in); got != want {
			t.Errorf("NormalizeModelID(%q) = %q, want %q", in, got, want)
		}
	}
}
