// SPDX-License-Identifier: MPL-2.0

package bbmodeltest

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

type (
	// Project is a minimal Blockbench project document.
	Project struct {
		Name          string
		FormatVersion any
		Textures      []Texture
		Elements      []Element
		Groups        []Group
		Animations    []string
		Display       map[string]map[string][]float64
	}

	// Texture is one entry of the project's texture list.
	Texture struct {
		Name         string
		ID           string
		Source       string
		RelativePath string
	}

	// Element is one entry of the project's element list.
	Element struct {
		Name     string
		UUID     string
		Type     string
		From     []float64
		To       []float64
		Origin   []float64
		Rotation []float64
		// Faces maps a face name to its texture reference (an index, an id
		// string, or nil for an untextured face).
		Faces map[string]any
	}

	// Group is an outliner bone. Children holds element uuids (strings) and
	// nested Groups.
	Group struct {
		Name     string
		Origin   []float64
		Children []any
	}

	// Option configures a Project.
	Option func(*Project)
)

// AllFaces maps every cube face to texture index 0.
func AllFaces() map[string]any {
	return map[string]any{"north": 0, "east": 0, "south": 0, "west": 0, "up": 0, "down": 0}
}

// NewProject returns the default project with opts applied.
func NewProject(name string, opts ...Option) *Project {
	p := &Project{
		Name:          name,
		FormatVersion: "4.10",
		Textures:      []Texture{{Name: "skin.png", ID: "0", Source: DataURI(PNG(16, 16))}},
		Elements: []Element{{
			Name:  "body",
			UUID:  "uuid-body",
			From:  []float64{0, 0, 0},
			To:    []float64{16, 16, 16},
			Faces: AllFaces(),
		}},
		Groups:     []Group{{Name: "body", Origin: []float64{8, 0, 8}, Children: []any{"uuid-body"}}},
		Animations: []string{"animation." + name + ".idle"},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// New returns the JSON of NewProject(name, opts...).
func New(name string, opts ...Option) []byte {
	return NewProject(name, opts...).JSON()
}

// WithTextures replaces the texture list.
func WithTextures(textures ...Texture) Option {
	return func(p *Project) { p.Textures = textures }
}

// WithElements replaces the element list.
func WithElements(elements ...Element) Option {
	return func(p *Project) { p.Elements = elements }
}

// WithGroups replaces the outliner.
func WithGroups(groups ...Group) Option {
	return func(p *Project) { p.Groups = groups }
}

// WithAnimations replaces the animation names.
func WithAnimations(names ...string) Option {
	return func(p *Project) { p.Animations = names }
}

// WithFormatVersion sets meta.format_version; nil removes it.
func WithFormatVersion(v any) Option {
	return func(p *Project) { p.FormatVersion = v }
}

// WithDisplay sets one display slot.
func WithDisplay(slot string, rotation, translation, scale []float64) Option {
	return func(p *Project) {
		if p.Display == nil {
			p.Display = make(map[string]map[string][]float64)
		}
		t := map[string][]float64{}
		if rotation != nil {
			t["rotation"] = rotation
		}
		if translation != nil {
			t["translation"] = translation
		}
		if scale != nil {
			t["scale"] = scale
		}
		p.Display[slot] = t
	}
}

// JSON encodes the project the way Blockbench lays it out.
func (p *Project) JSON() []byte {
	meta := map[string]any{"model_format": "free", "box_uv": false}
	if p.FormatVersion != nil {
		meta["format_version"] = p.FormatVersion
	}

	textures := make([]map[string]any, 0, len(p.Textures))
	for _, t := range p.Textures {
		m := map[string]any{"name": t.Name, "id": t.ID}
		if t.Source != "" {
			m["source"] = t.Source
		}
		if t.RelativePath != "" {
			m["relative_path"] = t.RelativePath
		}
		textures = append(textures, m)
	}

	elements := make([]map[string]any, 0, len(p.Elements))
	for _, e := range p.Elements {
		m := map[string]any{"name": e.Name, "uuid": e.UUID, "from": e.From, "to": e.To}
		if e.Type != "" {
			m["type"] = e.Type
		}
		if e.Origin != nil {
			m["origin"] = e.Origin
		}
		if e.Rotation != nil {
			m["rotation"] = e.Rotation
		}
		faces := map[string]any{}
		for name, tex := range e.Faces {
			faces[name] = map[string]any{"uv": []float64{0, 0, 16, 16}, "texture": tex}
		}
		m["faces"] = faces
		elements = append(elements, m)
	}

	animations := make([]map[string]any, 0, len(p.Animations))
	for _, a := range p.Animations {
		animations = append(animations, map[string]any{"name": a, "loop": "loop", "length": 1})
	}

	doc := map[string]any{
		"meta":       meta,
		"name":       p.Name,
		"resolution": map[string]int{"width": 16, "height": 16},
		"elements":   elements,
		"outliner":   groupsJSON(p.Groups),
		"textures":   textures,
		"animations": animations,
	}
	if p.Display != nil {
		doc["display"] = p.Display
	}

	data, err := json.MarshalIndent(doc, "", "\t")
	if err != nil {
		panic(err)
	}
	return data
}

func groupsJSON(groups []Group) []any {
	out := make([]any, 0, len(groups))
	for _, g := range groups {
		children := make([]any, 0, len(g.Children))
		for _, c := range g.Children {
			if sub, ok := c.(Group); ok {
				children = append(children, groupsJSON([]Group{sub})[0])
				continue
			}
			children = append(children, c)
		}
		m := map[string]any{"name": g.Name, "children": children}
		if g.Origin != nil {
			m["origin"] = g.Origin
		}
		out = append(out, m)
	}
	return out
}

// PNG encodes a solid w x h image.
func PNG(w, h int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.NRGBA{R: 0x8b, G: 0x5a, B: 0x2b, A: 0xff})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// DataURI wraps PNG bytes the way Blockbench embeds them.
func DataURI(data []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
}

// WriteFile writes data to dir/rel, creating parent directories, and returns
// the full path.
func WriteFile(t testing.TB, dir, rel string, data []byte) string {
	t.Helper()
	full := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(full), err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", full, err)
	}
	return full
}
