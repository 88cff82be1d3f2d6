// SPDX-License-Identifier: MPL-2.0

package assemble

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/thecrown/packgen/internal/testutil/bbmodeltest"
	"github.com/thecrown/packgen/pkg/bbmodel"
	"github.com/thecrown/packgen/pkg/manifest"
	"github.com/thecrown/packgen/pkg/mapping"
	"github.com/thecrown/packgen/pkg/packerr"
	"github.com/thecrown/packgen/pkg/scan"
	"github.com/thecrown/packgen/pkg/types"
)

func intPtr(i int) *int { return &i }

func mustDescriptor(t *testing.T, rel string, opts ...bbmodeltest.Option) *bbmodel.Descriptor {
	t.Helper()
	d, err := bbmodel.Parse(rel, bbmodeltest.New(filepath.Base(rel), opts...))
	if err != nil {
		t.Fatalf("Parse(%s) error: %v", rel, err)
	}
	return d
}

func mustTable(t *testing.T, entries ...mapping.Entry) *mapping.Table {
	t.Helper()
	table, err := mapping.NewTable("test", entries)
	if err != nil {
		t.Fatal(err)
	}
	return table
}

func cmd(model, item string, n int) mapping.Entry {
	loc, err := types.ParseResourceLocation(item, types.MinecraftNamespace)
	if err != nil {
		panic(err)
	}
	return mapping.Entry{Model: model, Target: mapping.Predicate{Item: loc, CustomModelData: intPtr(n)}}
}

func baseInput(t *testing.T, table *mapping.Table, models ...*bbmodel.Descriptor) Input {
	t.Helper()
	return Input{
		Mappings:     table,
		Scan:         scan.NewResult(models, nil, nil),
		Namespace:    "thecrown",
		PackFormat:   46,
		Description:  "test pack",
		Format:       FormatLegacy,
		Unreferenced: UnreferencedSkip,
	}
}

func decode[T any](t *testing.T, m *manifest.Manifest, p string) T {
	t.Helper()
	e, ok := m.Get(p)
	if !ok {
		t.Fatalf("manifest has no %s; paths: %v", p, m.Paths())
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		t.Fatalf("decode %s: %v", p, err)
	}
	return v
}

func TestAssembleCowPigLeather(t *testing.T) {
	t.Parallel()

	in := baseInput(t,
		mustTable(t, cmd("cow_model", "minecraft:leather", 1), cmd("pig_model", "minecraft:leather", 2)),
		mustDescriptor(t, "cow_model.bbmodel"),
		mustDescriptor(t, "pig_model.bbmodel"),
	)

	out, err := Assemble(context.Background(), in)
	if err != nil {
		t.Fatalf("Assemble() error: %v", err)
	}

	if len(out.Overrides) != 1 || out.Overrides[0].Entries != 2 {
		t.Fatalf("Overrides = %+v, want one file with two entries", out.Overrides)
	}
	leather := decode[legacyItemModel](t, out.Manifest, "assets/minecraft/models/item/leather.json")
	if leather.Parent != "minecraft:item/generated" || leather.Textures["layer0"] != "minecraft:item/leather" {
		t.Errorf("leather.json header = %+v", leather)
	}
	want := []legacyOverride{
		{Predicate: map[string]float64{"custom_model_data": 1}, Model: "thecrown:item/cow_model"},
		{Predicate: map[string]float64{"custom_model_data": 2}, Model: "thecrown:item/pig_model"},
	}
	if len(leather.Overrides) != 2 {
		t.Fatalf("overrides = %+v", leather.Overrides)
	}
	for i, w := range want {
		got := leather.Overrides[i]
		if got.Model != w.Model || got.Predicate["custom_model_data"] != w.Predicate["custom_model_data"] {
			t.Errorf("overrides[%d] = %+v, want %+v", i, got, w)
		}
	}

	for _, p := range []string{
		"pack.mcmeta",
		"assets/thecrown/models/item/cow_model.json",
		"assets/thecrown/models/item/pig_model.json",
		"assets/thecrown/textures/item/cow_model/skin.png",
		"assets/thecrown/textures/item/pig_model/skin.png",
	} {
		if !out.Manifest.Has(p) {
			t.Errorf("manifest is missing %s", p)
		}
	}
}

func TestAssembleOneOverridePerItemInMappingOrder(t *testing.T) {
	t.Parallel()

	table := mustTable(t,
		cmd("c", "paper", 30),
		cmd("a", "minecraft:leather", 1),
		cmd("b", "paper", 10),
		cmd("d", "minecraft:stick", 5),
		cmd("e", "paper", 20),
	)
	var models []*bbmodel.Descriptor
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		models = append(models, mustDescriptor(t, id+".bbmodel"))
	}

	out, err := Assemble(context.Background(), baseInput(t, table, models...))
	if err != nil {
		t.Fatalf("Assemble() error: %v", err)
	}

	var items []string
	for _, o := range out.Overrides {
		items = append(items, o.Item.String())
	}
	if !slices.Equal(items, []string{"minecraft:paper", "minecraft:leather", "minecraft:stick"}) {
		t.Errorf("override items = %v", items)
	}

	paper := decode[legacyItemModel](t, out.Manifest, "assets/minecraft/models/item/paper.json")
	var order []string
	for _, o := range paper.Overrides {
		order = append(order, o.Model)
	}
	if !slices.Equal(order, []string{"thecrown:item/c", "thecrown:item/b", "thecrown:item/e"}) {
		t.Errorf("paper overrides = %v", order)
	}

	stick := decode[legacyItemModel](t, out.Manifest, "assets/minecraft/models/item/stick.json")
	if stick.Parent != "minecraft:item/handheld" {
		t.Errorf("stick parent = %q", stick.Parent)
	}
}

func TestAssembleItemsFormat(t *testing.T) {
	t.Parallel()

	in := baseInput(t,
		mustTable(t, cmd("cow_model", "minecraft:leather", 1), cmd("pig_model", "minecraft:leather", 2)),
		mustDescriptor(t, "cow_model.bbmodel"),
		mustDescriptor(t, "pig_model.bbmodel"),
	)
	in.Format = FormatItems

	out, err := Assemble(context.Background(), in)
	if err != nil {
		t.Fatalf("Assemble() error: %v", err)
	}
	def := decode[itemDefinition](t, out.Manifest, "assets/minecraft/items/leather.json")
	if def.Model.Type != "minecraft:range_dispatch" || def.Model.Fallback.Model != "minecraft:item/leather" {
		t.Errorf("definition = %+v", def)
	}
	if len(def.Model.Entries) != 2 || def.Model.Entries[1].Threshold != 2 || def.Model.Entries[1].Model.Model != "thecrown:item/pig_model" {
		t.Errorf("entries = %+v", def.Model.Entries)
	}
	if out.Manifest.Has("assets/minecraft/models/item/leather.json") {
		t.Error("items format should not write the legacy override file")
	}
}

func TestAssembleItemsFormatRejectsExtraPredicates(t *testing.T) {
	t.Parallel()

	table := mustTable(t, mapping.Entry{
		Model:  "cow",
		Target: mapping.Predicate{Item: "minecraft:leather", Extra: map[string]float64{"damaged": 1}},
	})
	in := baseInput(t, table, mustDescriptor(t, "cow.bbmodel"))
	in.Format = FormatItems

	_, err := Assemble(context.Background(), in)
	if !errors.Is(err, ErrUnsupportedPredicate) {
		t.Errorf("Assemble() error = %v, want ErrUnsupportedPredicate", err)
	}
}

func TestAssembleUnresolvedMappingNamesEveryModel(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	in := baseInput(t,
		mustTable(t, cmd("ghost", "paper", 1), cmd("cow", "paper", 2), cmd("phantom", "paper", 3)),
		mustDescriptor(t, "cow.bbmodel"),
	)
	in.BaseDir = base

	_, err := Assemble(context.Background(), in)
	var unresolved *packerr.UnresolvedMappingError
	if !errors.As(err, &unresolved) {
		t.Fatalf("Assemble() error = %v, want *UnresolvedMappingError", err)
	}
	if !slices.Equal(unresolved.Models, []string{"ghost", "phantom"}) {
		t.Errorf("Models = %v", unresolved.Models)
	}
	entries, _ := os.ReadDir(base)
	if len(entries) != 0 {
		t.Errorf("base directory was modified: %v", entries)
	}
}

func TestAssembleUnreferencedPolicy(t *testing.T) {
	t.Parallel()

	for _, policy := range []UnreferencedPolicy{UnreferencedSkip, UnreferencedInclude} {
		t.Run(string(policy), func(t *testing.T) {
			t.Parallel()

			in := baseInput(t, mustTable(t, cmd("cow", "paper", 1)),
				mustDescriptor(t, "cow.bbmodel"),
				mustDescriptor(t, "extra/lonely.bbmodel"),
			)
			in.Unreferenced = policy

			out, err := Assemble(context.Background(), in)
			if err != nil {
				t.Fatalf("Assemble() error: %v", err)
			}
			if !slices.Equal(out.Unreferenced, []string{"extra/lonely"}) {
				t.Errorf("Unreferenced = %v", out.Unreferenced)
			}
			has := out.Manifest.Has("assets/thecrown/models/item/extra/lonely.json")
			if has != (policy == UnreferencedInclude) {
				t.Errorf("lonely model present = %v under %s", has, policy)
			}
			if _, ok := out.Runtime.Models["extra/lonely"]; ok {
				t.Error("runtime mappings should only list mapped models")
			}
		})
	}
}

func TestAssembleBaseLayer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		overwrite bool
	}{
		{name: "preserved"},
		{name: "overwritten", overwrite: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			base := t.TempDir()
			meta := `{"pack":{"pack_format":15,"description":"mine"}}`
			bbmodeltest.WriteFile(t, base, "pack.mcmeta", []byte(meta))
			bbmodeltest.WriteFile(t, base, "assets/minecraft/models/item/paper.json", []byte(`{"parent":"x"}`))
			bbmodeltest.WriteFile(t, base, "assets/minecraft/lang/en_us.json", []byte(`{}`))

			in := baseInput(t, mustTable(t, cmd("cow", "paper", 1)), mustDescriptor(t, "cow.bbmodel"))
			in.BaseDir = base
			in.Overwrite = tt.overwrite

			out, err := Assemble(context.Background(), in)
			if err != nil {
				t.Fatalf("Assemble() error: %v", err)
			}

			e, _ := out.Manifest.Get("pack.mcmeta")
			if string(e.Data) != meta {
				t.Errorf("pack.mcmeta = %s; an existing file is never regenerated", e.Data)
			}
			paper, _ := out.Manifest.Get("assets/minecraft/models/item/paper.json")
			if tt.overwrite != (paper.Origin == manifest.OriginGenerated) {
				t.Errorf("paper.json origin = %s with overwrite=%v", paper.Origin, tt.overwrite)
			}
			if !out.Manifest.Has("assets/minecraft/lang/en_us.json") {
				t.Error("base file not carried over")
			}
		})
	}
}

func TestAssembleGeneratesPackMeta(t *testing.T) {
	t.Parallel()

	out, err := Assemble(context.Background(), baseInput(t, mustTable(t)))
	if err != nil {
		t.Fatalf("Assemble() error: %v", err)
	}
	meta := decode[packMeta](t, out.Manifest, PackMetaPath)
	if meta.Pack.PackFormat != 46 || meta.Pack.Description != "test pack" {
		t.Errorf("pack.mcmeta = %+v", meta)
	}
}

func TestAssemblePassThroughAssets(t *testing.T) {
	t.Parallel()

	in := baseInput(t, mustTable(t))
	in.Scan = scan.NewResult(nil,
		[]scan.Asset{{Rel: "shared/eyes.png", Data: []byte("png")}},
		[]scan.Asset{{Rel: "block/pedestal.json", Data: []byte("{}")}},
	)

	out, err := Assemble(context.Background(), in)
	if err != nil {
		t.Fatalf("Assemble() error: %v", err)
	}
	for _, p := range []string{"assets/thecrown/textures/item/shared/eyes.png", "assets/thecrown/models/block/pedestal.json"} {
		e, ok := out.Manifest.Get(p)
		if !ok || e.Origin != manifest.OriginAsset {
			t.Errorf("%s missing or wrong origin: %+v", p, e)
		}
	}
}

func TestRenderModelScalesUVs(t *testing.T) {
	t.Parallel()

	d := &bbmodel.Descriptor{
		ID:         "cow",
		Source:     "cow.bbmodel",
		Resolution: bbmodel.Resolution{Width: 64, Height: 32},
		Textures:   []bbmodel.Texture{{Key: "skin", Data: []byte("x")}},
		Elements: []bbmodel.Element{{
			Name: "body", From: bbmodel.Vec3{0, 0, 0}, To: bbmodel.Vec3{4, 4, 4},
			Rotation: &bbmodel.Rotation{Angle: 22.5, Axis: "y", Origin: bbmodel.Vec3{2, 2, 2}},
			Faces: map[bbmodel.Face]bbmodel.FaceSpec{
				bbmodel.FaceNorth: {UV: [4]float64{0, 0, 32, 16}, Texture: 0, Tint: bbmodel.NoTexture},
				bbmodel.FaceUp:    {UV: [4]float64{0, 0, 64, 32}, Texture: 0, Rotation: 90, Tint: 0},
			},
		}},
		Groups: []bbmodel.Group{{Name: "root", Elements: []int{0}}},
	}

	data, err := renderModel("thecrown", d)
	if err != nil {
		t.Fatalf("renderModel() error: %v", err)
	}
	var m javaModel
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}

	if m.Textures["skin"] != "thecrown:item/cow/skin" || m.Textures["particle"] != "#skin" {
		t.Errorf("textures = %v", m.Textures)
	}
	if m.TextureSize != [2]int{64, 32} {
		t.Errorf("texture_size = %v", m.TextureSize)
	}
	north := m.Elements[0].Faces["north"]
	if north.UV != [4]float64{0, 0, 8, 8} || north.TintIndex != nil || north.Texture != "#skin" {
		t.Errorf("north = %+v", north)
	}
	up := m.Elements[0].Faces["up"]
	if up.UV != [4]float64{0, 0, 16, 16} || up.Rotation != 90 || up.TintIndex == nil || *up.TintIndex != 0 {
		t.Errorf("up = %+v", up)
	}
	if r := m.Elements[0].Rotation; r == nil || r.Axis != "y" || r.Angle != 22.5 {
		t.Errorf("rotation = %+v", r)
	}
	if len(m.Groups) != 1 || m.Groups[0].Name != "root" {
		t.Errorf("groups = %+v", m.Groups)
	}
}

func TestRuntimeMappings(t *testing.T) {
	t.Parallel()

	in := baseInput(t,
		mustTable(t, cmd("cow_model", "minecraft:leather", 1)),
		mustDescriptor(t, "cow_model.bbmodel"),
	)
	out, err := Assemble(context.Background(), in)
	if err != nil {
		t.Fatalf("Assemble() error: %v", err)
	}

	data, err := out.Runtime.JSON()
	if err != nil {
		t.Fatal(err)
	}
	var rt RuntimeMappings
	if err := json.Unmarshal(data, &rt); err != nil {
		t.Fatal(err)
	}
	cow := rt.Models["cow_model"]
	if rt.Namespace != "thecrown" || cow.Item != "minecraft:leather" || *cow.CustomModelData != 1 ||
		cow.Model != "thecrown:item/cow_model" || !slices.Equal(cow.Variants, []string{"body"}) {
		t.Errorf("runtime mappings = %s", data)
	}
}

func TestAssembleRejectsBadSettings(t *testing.T) {
	t.Parallel()

	tests := map[string]func(*Input){
		"namespace": func(in *Input) { in.Namespace = "Bad NS" },
		"format":    func(in *Input) { in.Format = "json" },
		"policy":    func(in *Input) { in.Unreferenced = "drop" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			in := baseInput(t, mustTable(t))
			mutate(&in)
			_, err := Assemble(context.Background(), in)
			if !errors.Is(err, ErrInvalidSettings) {
				t.Errorf("Assemble() error = %v, want ErrInvalidSettings", err)
			}
		})
	}
}
