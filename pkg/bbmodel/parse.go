// SPDX-License-Identifier: MPL-2.0

package bbmodel

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"maps"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/thecrown/packgen/pkg/types"
)

// FileExt is the extension of Blockbench project files.
const FileExt = ".bbmodel"

const (
	pngDataURIPrefix = "data:image/png;base64,"
	defaultUVSize    = 16
)

var (
	// ErrInvalidModel is the sentinel error wrapped by InvalidModelError.
	ErrInvalidModel = errors.New("invalid model")

	allowedAngles = []float64{-45, -22.5, 0, 22.5, 45}
	axisNames     = [3]string{"x", "y", "z"}
	unsafeKeyRe   = regexp.MustCompile(`[^a-z0-9_.-]+`)
)

// InvalidModelError lists every problem found in one model file.
type InvalidModelError struct {
	Problems []string
}

// Error implements the error interface.
func (e *InvalidModelError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid model: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid model: %d problems: %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

// Unwrap returns ErrInvalidModel for errors.Is() compatibility.
func (e *InvalidModelError) Unwrap() error { return ErrInvalidModel }

// IDFromPath derives a model identifier from a path relative to the scanned
// directory: "Mobs/Cow.bbmodel" becomes "mobs/cow".
func IDFromPath(rel string) (string, error) {
	slashed := filepath.ToSlash(rel)
	id := strings.ToLower(strings.TrimSuffix(slashed, path.Ext(slashed)))
	if err := types.ValidatePath(id); err != nil {
		return "", fmt.Errorf("model identifier %q derived from %s: %w", id, rel, err)
	}
	return id, nil
}

type parser struct {
	d        *Descriptor
	problems []string
	byUUID   map[string]int
}

func (p *parser) problem(format string, args ...any) {
	p.problems = append(p.problems, fmt.Sprintf(format, args...))
}

// Parse decodes and validates a Blockbench project. name is the file's path
// relative to the scanned directory and determines the descriptor's ID.
func Parse(name string, data []byte) (*Descriptor, error) {
	id, err := IDFromPath(name)
	if err != nil {
		return nil, &InvalidModelError{Problems: []string{err.Error()}}
	}

	var raw rawModel
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &InvalidModelError{Problems: []string{"malformed JSON: " + err.Error()}}
	}
	if raw.Meta == nil || raw.Meta.FormatVersion == "" {
		return nil, &InvalidModelError{Problems: []string{"meta.format_version is missing; not a Blockbench project"}}
	}

	d := &Descriptor{
		ID:            id,
		Source:        filepath.ToSlash(name),
		Name:          raw.Name,
		FormatVersion: string(raw.Meta.FormatVersion),
		Resolution:    Resolution{Width: raw.Resolution.Width, Height: raw.Resolution.Height},
	}
	if d.Resolution.Width <= 0 {
		d.Resolution.Width = defaultUVSize
	}
	if d.Resolution.Height <= 0 {
		d.Resolution.Height = defaultUVSize
	}

	p := &parser{d: d, byUUID: make(map[string]int)}
	p.parseTextures(raw.Textures)
	p.parseElements(raw.Elements)
	d.Groups = p.parseOutliner(raw.Outliner, "outliner")
	p.parseDisplay(raw.Display)
	for _, a := range raw.Animations {
		if a.Name != "" {
			d.Animations = append(d.Animations, a.Name)
		}
	}

	if len(p.problems) > 0 {
		return nil, &InvalidModelError{Problems: p.problems}
	}
	return d, nil
}

func (p *parser) parseTextures(raw []rawTexture) {
	taken := make(map[string]bool, len(raw))
	for i, rt := range raw {
		label := fmt.Sprintf("textures[%d]", i)
		if rt.Name != "" {
			label += " (" + rt.Name + ")"
		}

		t := Texture{Name: rt.Name, ID: rt.ID, Width: rt.Width, Height: rt.Height}
		switch {
		case strings.HasPrefix(rt.Source, "data:"):
			if !strings.HasPrefix(rt.Source, pngDataURIPrefix) {
				p.problem("%s: embedded texture is not a base64 PNG data URI", label)
				break
			}
			data, err := base64.StdEncoding.DecodeString(rt.Source[len(pngDataURIPrefix):])
			if err != nil {
				p.problem("%s: embedded texture is not valid base64: %v", label, err)
				break
			}
			cfg, err := png.DecodeConfig(bytes.NewReader(data))
			if err != nil {
				p.problem("%s: embedded texture is not a valid PNG: %v", label, err)
				break
			}
			t.Data, t.Width, t.Height = data, cfg.Width, cfg.Height
		case rt.RelativePath != "":
			t.Ref = path.Clean(filepath.ToSlash(rt.RelativePath))
			if path.IsAbs(t.Ref) {
				p.problem("%s: relative_path %q is absolute", label, rt.RelativePath)
			}
		default:
			p.problem("%s: texture has neither embedded data nor a relative path", label)
		}

		t.Key = textureKey(rt.Name, i, taken)
		taken[t.Key] = true
		// Appended even when invalid so face indices keep resolving.
		p.d.Textures = append(p.d.Textures, t)
	}
}

func textureKey(name string, index int, taken map[string]bool) string {
	base := strings.ToLower(strings.TrimSuffix(name, path.Ext(name)))
	base = strings.Trim(unsafeKeyRe.ReplaceAllString(base, "_"), "_.")
	if base == "" {
		base = "texture_" + strconv.Itoa(index)
	}
	key := base
	for n := index; taken[key]; n++ {
		key = base + "_" + strconv.Itoa(n)
	}
	return key
}

func (p *parser) parseElements(raw []rawElement) {
	for i, re := range raw {
		label := fmt.Sprintf("elements[%d]", i)
		if re.Name != "" {
			label += " (" + re.Name + ")"
		}

		switch re.Type {
		case "", "cube":
		case "mesh":
			p.problem("%s: mesh elements cannot be expressed as a Java model", label)
			continue
		default:
			// Locators and null objects carry no geometry.
			continue
		}

		e := Element{Name: re.Name, UUID: re.UUID, Faces: make(map[Face]FaceSpec, len(re.Faces))}
		var ok bool
		if e.From, ok = vec3(re.From); !ok {
			p.problem("%s: from must be an [x, y, z] triple", label)
		}
		if e.To, ok = vec3(re.To); !ok {
			p.problem("%s: to must be an [x, y, z] triple", label)
		}

		var origin Vec3
		if re.Origin != nil {
			if origin, ok = vec3(re.Origin); !ok {
				p.problem("%s: origin must be an [x, y, z] triple", label)
			}
		}
		if re.Rotation != nil {
			if r, ok := vec3(re.Rotation); !ok {
				p.problem("%s: rotation must be an [x, y, z] triple", label)
			} else if axis, angle, err := singleAxis(r); err != nil {
				p.problem("%s: %v", label, err)
			} else if angle != 0 {
				e.Rotation = &Rotation{Angle: angle, Axis: axis, Origin: origin}
			}
		}

		for _, name := range slices.Sorted(maps.Keys(re.Faces)) {
			p.parseFace(label, &e, Face(name), re.Faces[name])
		}

		if re.UUID != "" {
			p.byUUID[re.UUID] = len(p.d.Elements)
		}
		p.d.Elements = append(p.d.Elements, e)
	}
}

func (p *parser) parseFace(label string, e *Element, face Face, rf rawFace) {
	switch face {
	case FaceNorth, FaceEast, FaceSouth, FaceWest, FaceUp, FaceDown:
	default:
		p.problem("%s: unknown face %q", label, face)
		return
	}

	tex, ok, err := p.resolveTexture(rf.Texture)
	if err != nil {
		p.problem("%s.%s: %v", label, face, err)
		return
	}
	if !ok {
		// Faces without a texture are not rendered.
		return
	}

	fs := FaceSpec{Texture: tex, Rotation: rf.Rotation, Tint: NoTexture}
	if rf.UV != nil {
		if len(rf.UV) != 4 {
			p.problem("%s.%s: uv must have four components", label, face)
			return
		}
		copy(fs.UV[:], rf.UV)
	}
	switch rf.Rotation {
	case 0, 90, 180, 270:
	default:
		p.problem("%s.%s: face rotation must be 0, 90, 180 or 270, got %d", label, face, rf.Rotation)
	}
	if rf.Tint != nil && *rf.Tint >= 0 {
		fs.Tint = *rf.Tint
	}
	e.Faces[face] = fs
}

// resolveTexture maps a face's texture reference (an index, a texture id or
// uuid, or null) onto Descriptor.Textures.
func (p *parser) resolveTexture(raw json.RawMessage) (int, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte("false")) {
		return 0, false, nil
	}

	if raw[0] == '"' {
		var ref string
		if err := json.Unmarshal(raw, &ref); err != nil {
			return 0, false, fmt.Errorf("texture reference: %w", err)
		}
		for i, t := range p.d.Textures {
			if t.ID == ref {
				return i, true, nil
			}
		}
		if n, err := strconv.Atoi(ref); err == nil && n >= 0 && n < len(p.d.Textures) {
			return n, true, nil
		}
		return 0, false, fmt.Errorf("texture %q does not resolve to a declared texture", ref)
	}

	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false, fmt.Errorf("texture reference must be an index or id: %w", err)
	}
	if n < 0 || n >= len(p.d.Textures) {
		return 0, false, fmt.Errorf("texture index %d does not resolve to a declared texture (%d declared)", n, len(p.d.Textures))
	}
	return n, true, nil
}

// parseOutliner converts the outliner tree into groups. Bare uuid strings at
// any level reference elements; top-level ones belong to no group.
func (p *parser) parseOutliner(items []json.RawMessage, where string) []Group {
	var groups []Group
	for i, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] == '"' {
			continue
		}
		g, ok := p.parseGroup(item, fmt.Sprintf("%s[%d]", where, i))
		if ok {
			groups = append(groups, g)
		}
	}
	return groups
}

func (p *parser) parseGroup(data json.RawMessage, where string) (Group, bool) {
	var rg rawGroup
	if err := json.Unmarshal(data, &rg); err != nil {
		p.problem("%s: malformed group: %v", where, err)
		return Group{}, false
	}

	g := Group{Name: rg.Name}
	if rg.Origin != nil {
		origin, ok := vec3(rg.Origin)
		if !ok {
			p.problem("%s: origin must be an [x, y, z] triple", where)
		}
		g.Origin = origin
	}

	for i, child := range rg.Children {
		child = bytes.TrimSpace(child)
		if len(child) == 0 {
			continue
		}
		if child[0] != '"' {
			if sub, ok := p.parseGroup(child, fmt.Sprintf("%s.children[%d]", where, i)); ok {
				g.Groups = append(g.Groups, sub)
			}
			continue
		}
		var uuid string
		if err := json.Unmarshal(child, &uuid); err != nil {
			p.problem("%s.children[%d]: %v", where, i, err)
			continue
		}
		// Unknown uuids belong to skipped elements such as locators.
		if idx, ok := p.byUUID[uuid]; ok {
			g.Elements = append(g.Elements, idx)
		}
	}
	return g, true
}

func (p *parser) parseDisplay(raw map[string]rawTransform) {
	if len(raw) == 0 {
		return
	}
	p.d.Display = make(map[string]Transform, len(raw))
	for _, slot := range slices.Sorted(maps.Keys(raw)) {
		rt := raw[slot]
		var t Transform
		for _, f := range []struct {
			name string
			in   []float64
			out  **Vec3
		}{
			{"rotation", rt.Rotation, &t.Rotation},
			{"translation", rt.Translation, &t.Translation},
			{"scale", rt.Scale, &t.Scale},
		} {
			if f.in == nil {
				continue
			}
			v, ok := vec3(f.in)
			if !ok {
				p.problem("display.%s.%s must be an [x, y, z] triple", slot, f.name)
				continue
			}
			*f.out = &v
		}
		p.d.Display[slot] = t
	}
}

func vec3(v []float64) (Vec3, bool) {
	if len(v) != 3 {
		return Vec3{}, false
	}
	return Vec3{v[0], v[1], v[2]}, true
}

// singleAxis returns the one non-zero rotation axis of r and its angle.
func singleAxis(r Vec3) (string, float64, error) {
	axis, angle := "", 0.0
	for i, a := range r {
		if a == 0 {
			continue
		}
		if axis != "" {
			return "", 0, fmt.Errorf("rotation %v uses more than one axis; Java models allow one", r)
		}
		axis, angle = axisNames[i], a
	}
	if !slices.Contains(allowedAngles, angle) {
		return "", 0, fmt.Errorf("rotation angle %g on %s is not one of -45, -22.5, 0, 22.5, 45", angle, axis)
	}
	return axis, angle, nil
}
