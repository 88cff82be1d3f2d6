// SPDX-License-Identifier: MPL-2.0

package assemble

import (
	"encoding/json"
	"fmt"

	"github.com/thecrown/packgen/pkg/bbmodel"
	"github.com/thecrown/packgen/pkg/types"
)

// uvScale is the UV space of Java models, independent of texture size.
const uvScale = 16

type (
	javaModel struct {
		Credit      string                   `json:"credit,omitempty"`
		TextureSize [2]int                   `json:"texture_size"`
		Textures    map[string]string        `json:"textures,omitempty"`
		Elements    []javaElement            `json:"elements"`
		Groups      []javaGroup              `json:"groups,omitempty"`
		Display     map[string]javaTransform `json:"display,omitempty"`
	}

	javaElement struct {
		Name     string              `json:"name,omitempty"`
		From     bbmodel.Vec3        `json:"from"`
		To       bbmodel.Vec3        `json:"to"`
		Rotation *javaRotation       `json:"rotation,omitempty"`
		Faces    map[string]javaFace `json:"faces"`
	}

	javaRotation struct {
		Angle  float64      `json:"angle"`
		Axis   string       `json:"axis"`
		Origin bbmodel.Vec3 `json:"origin"`
	}

	javaFace struct {
		UV        [4]float64 `json:"uv"`
		Texture   string     `json:"texture"`
		Rotation  int        `json:"rotation,omitempty"`
		TintIndex *int       `json:"tintindex,omitempty"`
	}

	javaGroup struct {
		Name     string       `json:"name"`
		Origin   bbmodel.Vec3 `json:"origin"`
		Color    int          `json:"color"`
		Children []any        `json:"children"`
	}

	javaTransform struct {
		Rotation    *bbmodel.Vec3 `json:"rotation,omitempty"`
		Translation *bbmodel.Vec3 `json:"translation,omitempty"`
		Scale       *bbmodel.Vec3 `json:"scale,omitempty"`
	}
)

// ModelLocation is the resource location of a descriptor's generated model.
func ModelLocation(ns types.Namespace, id string) types.ResourceLocation {
	return types.NewResourceLocation(ns, "item/"+id)
}

// ModelPath is the pack path of a descriptor's generated model.
func ModelPath(ns types.Namespace, id string) string {
	return fmt.Sprintf("assets/%s/models/item/%s.json", ns, id)
}

// TexturePath is the pack path of one of a descriptor's textures.
func TexturePath(ns types.Namespace, id string, t bbmodel.Texture) string {
	return fmt.Sprintf("assets/%s/textures/item/%s/%s.png", ns, id, t.Key)
}

func textureLocation(ns types.Namespace, id string, t bbmodel.Texture) types.ResourceLocation {
	return types.NewResourceLocation(ns, fmt.Sprintf("item/%s/%s", id, t.Key))
}

// renderModel converts a descriptor into Java model JSON. UVs are rescaled
// from the project's resolution to the 16x16 model space.
func renderModel(ns types.Namespace, d *bbmodel.Descriptor) ([]byte, error) {
	m := javaModel{
		Credit:      "Generated by packgen from " + d.Source,
		TextureSize: [2]int{d.Resolution.Width, d.Resolution.Height},
		Textures:    make(map[string]string, len(d.Textures)+1),
		Elements:    make([]javaElement, 0, len(d.Elements)),
	}

	for _, t := range d.Textures {
		m.Textures[t.Key] = textureLocation(ns, d.ID, t).String()
	}
	if used := d.UsedTextures(); len(used) > 0 {
		m.Textures["particle"] = "#" + d.Textures[used[0]].Key
	}

	sx := float64(uvScale) / float64(d.Resolution.Width)
	sy := float64(uvScale) / float64(d.Resolution.Height)
	for _, e := range d.Elements {
		je := javaElement{Name: e.Name, From: e.From, To: e.To, Faces: make(map[string]javaFace, len(e.Faces))}
		if e.Rotation != nil {
			je.Rotation = &javaRotation{Angle: e.Rotation.Angle, Axis: e.Rotation.Axis, Origin: e.Rotation.Origin}
		}
		for face, fc := range e.Faces {
			jf := javaFace{
				UV:       [4]float64{fc.UV[0] * sx, fc.UV[1] * sy, fc.UV[2] * sx, fc.UV[3] * sy},
				Texture:  "#" + d.Textures[fc.Texture].Key,
				Rotation: fc.Rotation,
			}
			if fc.Tint != bbmodel.NoTexture {
				tint := fc.Tint
				jf.TintIndex = &tint
			}
			je.Faces[string(face)] = jf
		}
		m.Elements = append(m.Elements, je)
	}

	m.Groups = renderGroups(d.Groups)

	if len(d.Display) > 0 {
		m.Display = make(map[string]javaTransform, len(d.Display))
		for slot, t := range d.Display {
			m.Display[slot] = javaTransform(t)
		}
	}

	return json.Marshal(m)
}

func renderGroups(groups []bbmodel.Group) []javaGroup {
	if len(groups) == 0 {
		return nil
	}
	out := make([]javaGroup, 0, len(groups))
	for _, g := range groups {
		jg := javaGroup{Name: g.Name, Origin: g.Origin, Children: make([]any, 0, len(g.Elements)+len(g.Groups))}
		for _, idx := range g.Elements {
			jg.Children = append(jg.Children, idx)
		}
		for _, sub := range renderGroups(g.Groups) {
			jg.Children = append(jg.Children, sub)
		}
		out = append(out, jg)
	}
	return out
}
