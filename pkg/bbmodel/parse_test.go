// SPDX-License-Identifier: MPL-2.0

package bbmodel_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/thecrown/packgen/internal/testutil/bbmodeltest"
	"github.com/thecrown/packgen/pkg/bbmodel"
)

func TestParseDefaultProject(t *testing.T) {
	t.Parallel()

	d, err := bbmodel.Parse("mobs/Cow_Model.bbmodel", bbmodeltest.New("cow"))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if d.ID != "mobs/cow_model" {
		t.Errorf("ID = %q, want mobs/cow_model", d.ID)
	}
	if d.Source != "mobs/Cow_Model.bbmodel" {
		t.Errorf("Source = %q", d.Source)
	}
	if d.FormatVersion != "4.10" {
		t.Errorf("FormatVersion = %q", d.FormatVersion)
	}
	if d.Resolution != (bbmodel.Resolution{Width: 16, Height: 16}) {
		t.Errorf("Resolution = %+v", d.Resolution)
	}
	if len(d.Elements) != 1 || len(d.Elements[0].Faces) != 6 {
		t.Fatalf("Elements = %+v", d.Elements)
	}
	if len(d.Textures) != 1 || !d.Textures[0].Embedded() || d.Textures[0].Key != "skin" {
		t.Errorf("Textures = %+v", d.Textures)
	}
	if d.Textures[0].Width != 16 || d.Textures[0].Height != 16 {
		t.Errorf("texture size = %dx%d, want 16x16", d.Textures[0].Width, d.Textures[0].Height)
	}
	if got := d.Variants(); len(got) != 1 || got[0] != "body" {
		t.Errorf("Variants() = %v", got)
	}
	if len(d.Groups[0].Elements) != 1 || d.Groups[0].Elements[0] != 0 {
		t.Errorf("group elements = %v", d.Groups[0].Elements)
	}
	if len(d.Animations) != 1 || d.Animations[0] != "animation.cow.idle" {
		t.Errorf("Animations = %v", d.Animations)
	}
}

func TestParseRotation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		rotation []float64
		wantAxis string
		wantErr  string
	}{
		{name: "none", rotation: []float64{0, 0, 0}},
		{name: "y 22.5", rotation: []float64{0, 22.5, 0}, wantAxis: "y"},
		{name: "x -45", rotation: []float64{-45, 0, 0}, wantAxis: "x"},
		{name: "two axes", rotation: []float64{22.5, 0, 45}, wantErr: "more than one axis"},
		{name: "bad angle", rotation: []float64{0, 0, 30}, wantErr: "not one of"},
		{name: "short", rotation: []float64{0, 45}, wantErr: "triple"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data := bbmodeltest.New("m", bbmodeltest.WithElements(bbmodeltest.Element{
				Name: "head", UUID: "u1",
				From: []float64{4, 4, 4}, To: []float64{12, 12, 12},
				Origin:   []float64{8, 8, 8},
				Rotation: tt.rotation,
				Faces:    bbmodeltest.AllFaces(),
			}))
			d, err := bbmodel.Parse("m.bbmodel", data)

			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Parse() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}
			r := d.Elements[0].Rotation
			if tt.wantAxis == "" {
				if r != nil {
					t.Errorf("Rotation = %+v, want nil", r)
				}
				return
			}
			if r == nil || r.Axis != tt.wantAxis || r.Origin != (bbmodel.Vec3{8, 8, 8}) {
				t.Errorf("Rotation = %+v, want axis %s", r, tt.wantAxis)
			}
		})
	}
}

func TestParseTextureReferences(t *testing.T) {
	t.Parallel()

	two := bbmodeltest.WithTextures(
		bbmodeltest.Texture{Name: "skin.png", ID: "0", Source: bbmodeltest.DataURI(bbmodeltest.PNG(16, 16))},
		bbmodeltest.Texture{Name: "eyes.png", ID: "eyes", RelativePath: "../shared/eyes.png"},
	)
	cube := func(faces map[string]any) bbmodeltest.Option {
		return bbmodeltest.WithElements(bbmodeltest.Element{
			Name: "c", UUID: "c", From: []float64{0, 0, 0}, To: []float64{1, 1, 1}, Faces: faces,
		})
	}

	t.Run("index id and null", func(t *testing.T) {
		t.Parallel()

		d, err := bbmodel.Parse("m.bbmodel", bbmodeltest.New("m", two, cube(map[string]any{
			"north": 0, "south": "eyes", "up": nil,
		})))
		if err != nil {
			t.Fatalf("Parse() error: %v", err)
		}
		faces := d.Elements[0].Faces
		if faces[bbmodel.FaceNorth].Texture != 0 || faces[bbmodel.FaceSouth].Texture != 1 {
			t.Errorf("faces = %+v", faces)
		}
		if _, ok := faces[bbmodel.FaceUp]; ok {
			t.Error("untextured face should be dropped")
		}
		if d.Textures[1].Embedded() || d.Textures[1].Ref != "../shared/eyes.png" {
			t.Errorf("reference texture = %+v", d.Textures[1])
		}
		if got := d.UsedTextures(); len(got) != 2 {
			t.Errorf("UsedTextures() = %v", got)
		}
	})

	t.Run("dangling index", func(t *testing.T) {
		t.Parallel()

		_, err := bbmodel.Parse("m.bbmodel", bbmodeltest.New("m", cube(map[string]any{"north": 3})))
		if err == nil || !strings.Contains(err.Error(), "texture index 3") {
			t.Errorf("Parse() error = %v", err)
		}
	})

	t.Run("dangling id", func(t *testing.T) {
		t.Parallel()

		_, err := bbmodel.Parse("m.bbmodel", bbmodeltest.New("m", cube(map[string]any{"north": "nope"})))
		if err == nil || !strings.Contains(err.Error(), `"nope"`) {
			t.Errorf("Parse() error = %v", err)
		}
	})
}

func TestParseInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		data    []byte
		wantErr string
	}{
		{name: "malformed json", file: "m.bbmodel", data: []byte(`{"meta": `), wantErr: "malformed JSON"},
		{name: "not a project", file: "m.bbmodel", data: []byte(`{"name": "x"}`), wantErr: "format_version"},
		{
			name:    "missing format version",
			file:    "m.bbmodel",
			data:    bbmodeltest.New("m", bbmodeltest.WithFormatVersion(nil)),
			wantErr: "format_version",
		},
		{name: "bad file name", file: "My Cow.bbmodel", data: bbmodeltest.New("m"), wantErr: "model identifier"},
		{
			name: "broken data uri",
			file: "m.bbmodel",
			data: bbmodeltest.New("m", bbmodeltest.WithTextures(
				bbmodeltest.Texture{Name: "a.png", Source: "data:image/png;base64,!!!"},
			)),
			wantErr: "base64",
		},
		{
			name: "not png",
			file: "m.bbmodel",
			data: bbmodeltest.New("m", bbmodeltest.WithTextures(
				bbmodeltest.Texture{Name: "a.png", Source: "data:image/png;base64,aGVsbG8="},
			)),
			wantErr: "not a valid PNG",
		},
		{
			name: "jpeg data uri",
			file: "m.bbmodel",
			data: bbmodeltest.New("m", bbmodeltest.WithTextures(
				bbmodeltest.Texture{Name: "a.jpg", Source: "data:image/jpeg;base64,aGVsbG8="},
			)),
			wantErr: "PNG data URI",
		},
		{
			name: "mesh",
			file: "m.bbmodel",
			data: bbmodeltest.New("m", bbmodeltest.WithElements(bbmodeltest.Element{
				Name: "blob", UUID: "b", Type: "mesh",
			})),
			wantErr: "mesh",
		},
		{
			name: "missing from",
			file: "m.bbmodel",
			data: bbmodeltest.New("m", bbmodeltest.WithElements(bbmodeltest.Element{
				Name: "c", UUID: "c", To: []float64{1, 1, 1}, Faces: bbmodeltest.AllFaces(),
			})),
			wantErr: "from must be",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := bbmodel.Parse(tt.file, tt.data)
			if !errors.Is(err, bbmodel.ErrInvalidModel) {
				t.Fatalf("Parse() error = %v, want ErrInvalidModel", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseCollectsAllProblems(t *testing.T) {
	t.Parallel()

	data := bbmodeltest.New("m", bbmodeltest.WithElements(
		bbmodeltest.Element{Name: "a", UUID: "a", From: []float64{0}, To: []float64{1, 1, 1}, Faces: bbmodeltest.AllFaces()},
		bbmodeltest.Element{Name: "b", UUID: "b", From: []float64{0, 0, 0}, To: []float64{1, 1, 1}, Rotation: []float64{10, 0, 0}},
	))
	_, err := bbmodel.Parse("m.bbmodel", data)
	var invalid *bbmodel.InvalidModelError
	if !errors.As(err, &invalid) {
		t.Fatalf("Parse() error = %v, want *InvalidModelError", err)
	}
	if len(invalid.Problems) != 2 {
		t.Errorf("Problems = %v, want 2", invalid.Problems)
	}
}

func TestParseLocatorsAndNestedGroups(t *testing.T) {
	t.Parallel()

	data := bbmodeltest.New("m",
		bbmodeltest.WithElements(
			bbmodeltest.Element{Name: "body", UUID: "b", From: []float64{0, 0, 0}, To: []float64{4, 4, 4}, Faces: bbmodeltest.AllFaces()},
			bbmodeltest.Element{Name: "mount", UUID: "l", Type: "locator"},
			bbmodeltest.Element{Name: "head", UUID: "h", From: []float64{0, 4, 0}, To: []float64{4, 8, 4}, Faces: bbmodeltest.AllFaces()},
		),
		bbmodeltest.WithGroups(bbmodeltest.Group{
			Name:     "root",
			Children: []any{"b", "l", bbmodeltest.Group{Name: "neck", Children: []any{"h"}}},
		}),
	)

	d, err := bbmodel.Parse("m.bbmodel", data)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(d.Elements) != 2 {
		t.Fatalf("locator should be skipped, got %d elements", len(d.Elements))
	}
	root := d.Groups[0]
	if len(root.Elements) != 1 || root.Elements[0] != 0 {
		t.Errorf("root elements = %v", root.Elements)
	}
	if len(root.Groups) != 1 || root.Groups[0].Elements[0] != 1 {
		t.Errorf("nested group = %+v", root.Groups)
	}
	if got := strings.Join(d.Variants(), ","); got != "root,neck" {
		t.Errorf("Variants() = %s", got)
	}
}

func TestParseDisplay(t *testing.T) {
	t.Parallel()

	d, err := bbmodel.Parse("m.bbmodel", bbmodeltest.New("m",
		bbmodeltest.WithDisplay("head", []float64{0, 180, 0}, nil, []float64{1.5, 1.5, 1.5}),
	))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	head, ok := d.Display["head"]
	if !ok || head.Rotation == nil || head.Translation != nil || head.Scale == nil || head.Scale[0] != 1.5 {
		t.Errorf("Display[head] = %+v", head)
	}
}

func TestParseNumericFormatVersion(t *testing.T) {
	t.Parallel()

	d, err := bbmodel.Parse("m.bbmodel", bbmodeltest.New("m", bbmodeltest.WithFormatVersion(3.6)))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if d.FormatVersion != "3.6" {
		t.Errorf("FormatVersion = %q", d.FormatVersion)
	}
}

func TestTextureKeysAreUnique(t *testing.T) {
	t.Parallel()

	uri := bbmodeltest.DataURI(bbmodeltest.PNG(4, 4))
	d, err := bbmodel.Parse("m.bbmodel", bbmodeltest.New("m", bbmodeltest.WithTextures(
		bbmodeltest.Texture{Name: "Skin.png", Source: uri},
		bbmodeltest.Texture{Name: "skin.png", Source: uri},
		bbmodeltest.Texture{Name: "", Source: uri},
	)))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	want := []string{"skin", "skin_1", "texture_2"}
	for i, w := range want {
		if d.Textures[i].Key != w {
			t.Errorf("Textures[%d].Key = %q, want %q", i, d.Textures[i].Key, w)
		}
	}
}

func TestIDFromPath(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"cow.bbmodel":                 "cow",
		"Mobs/Cow.bbmodel":            "mobs/cow",
		"bulbasaur/bulbasaur.bbmodel": "bulbasaur/bulbasaur",
	}
	for in, want := range tests {
		got, err := bbmodel.IDFromPath(in)
		if err != nil || got != want {
			t.Errorf("IDFromPath(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
}
