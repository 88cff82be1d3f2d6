// SPDX-License-Identifier: MPL-2.0

package bbmodel

// Face names, as used by both Blockbench and Java model JSON.
const (
	FaceNorth Face = "north"
	FaceEast  Face = "east"
	FaceSouth Face = "south"
	FaceWest  Face = "west"
	FaceUp    Face = "up"
	FaceDown  Face = "down"
)

// NoTexture marks a face or tint slot without a value.
const NoTexture = -1

type (
	// Face is one side of a cube element.
	Face string

	// Vec3 is an x/y/z triple in model units (1/16 block).
	Vec3 [3]float64

	// Resolution is the UV space of the project.
	Resolution struct {
		Width  int
		Height int
	}

	// Descriptor is the parsed, validated form of one model file. It is not
	// modified after Parse returns.
	Descriptor struct {
		// ID is derived from the file's path relative to the scanned
		// directory: slash separated, lower case, without extension.
		ID string
		// Source is the relative path the descriptor was parsed from.
		Source        string
		Name          string
		FormatVersion string
		Resolution    Resolution
		Elements      []Element
		// Groups is the outliner bone hierarchy. Each group is a display
		// variant the runtime can toggle.
		Groups     []Group
		Animations []string
		Textures   []Texture
		// Display holds item display transforms keyed by context
		// ("thirdperson_righthand", "head", ...).
		Display map[string]Transform
	}

	// Element is a cube.
	Element struct {
		Name     string
		UUID     string
		From     Vec3
		To       Vec3
		Rotation *Rotation
		Faces    map[Face]FaceSpec
	}

	// Rotation is a single-axis element rotation.
	Rotation struct {
		Angle  float64
		Axis   string
		Origin Vec3
	}

	// FaceSpec describes the texture mapping of one face.
	FaceSpec struct {
		UV [4]float64
		// Texture is an index into Descriptor.Textures, or NoTexture.
		Texture  int
		Rotation int
		// Tint is the tint index, or NoTexture when the face is untinted.
		Tint int
	}

	// Group is an outliner bone.
	Group struct {
		Name   string
		Origin Vec3
		// Elements are indices into Descriptor.Elements.
		Elements []int
		Groups   []Group
	}

	// Texture is an image used by the model's faces.
	Texture struct {
		// Key is unique within the descriptor and safe to use as a file name
		// stem.
		Key  string
		Name string
		ID   string
		// Data holds the PNG bytes of an embedded texture.
		Data   []byte
		Width  int
		Height int
		// Ref is the path, relative to the model file, of a texture that is
		// not embedded. Empty when Data is set.
		Ref string
	}

	// Transform is an item display transform.
	Transform struct {
		Rotation    *Vec3
		Translation *Vec3
		Scale       *Vec3
	}
)

// Embedded reports whether the texture carries its own image data.
func (t Texture) Embedded() bool { return len(t.Data) > 0 }

// Variants returns the names of every outliner group, depth first.
func (d *Descriptor) Variants() []string {
	var names []string
	var walk func([]Group)
	walk = func(groups []Group) {
		for _, g := range groups {
			names = append(names, g.Name)
			walk(g.Groups)
		}
	}
	walk(d.Groups)
	return names
}

// UsedTextures returns the indices of textures referenced by at least one
// face, in ascending order.
func (d *Descriptor) UsedTextures() []int {
	used := make([]bool, len(d.Textures))
	for _, e := range d.Elements {
		for _, f := range e.Faces {
			if f.Texture >= 0 && f.Texture < len(used) {
				used[f.Texture] = true
			}
		}
	}
	var out []int
	for i, u := range used {
		if u {
			out = append(out, i)
		}
	}
	return out
}
