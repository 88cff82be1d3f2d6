// SPDX-License-Identifier: MPL-2.0

package bbmodel

import (
	"bytes"
	"encoding/json"
	"strconv"
)

type (
	rawModel struct {
		Meta       *rawMeta                `json:"meta"`
		Name       string                  `json:"name"`
		Resolution rawResolution           `json:"resolution"`
		Elements   []rawElement            `json:"elements"`
		Outliner   []json.RawMessage       `json:"outliner"`
		Textures   []rawTexture            `json:"textures"`
		Display    map[string]rawTransform `json:"display"`
		Animations []rawAnimation          `json:"animations"`
	}

	rawMeta struct {
		FormatVersion looseString `json:"format_version"`
		ModelFormat   string      `json:"model_format"`
	}

	rawResolution struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}

	rawElement struct {
		Name     string             `json:"name"`
		Type     string             `json:"type"`
		UUID     string             `json:"uuid"`
		From     []float64          `json:"from"`
		To       []float64          `json:"to"`
		Origin   []float64          `json:"origin"`
		Rotation []float64          `json:"rotation"`
		Faces    map[string]rawFace `json:"faces"`
	}

	rawFace struct {
		UV       []float64       `json:"uv"`
		Texture  json.RawMessage `json:"texture"`
		Rotation int             `json:"rotation"`
		Tint     *int            `json:"tint"`
	}

	rawGroup struct {
		Name     string            `json:"name"`
		UUID     string            `json:"uuid"`
		Origin   []float64         `json:"origin"`
		Children []json.RawMessage `json:"children"`
	}

	rawTexture struct {
		Name         string `json:"name"`
		ID           string `json:"id"`
		UUID         string `json:"uuid"`
		Source       string `json:"source"`
		RelativePath string `json:"relative_path"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
	}

	rawTransform struct {
		Rotation    []float64 `json:"rotation"`
		Translation []float64 `json:"translation"`
		Scale       []float64 `json:"scale"`
	}

	rawAnimation struct {
		Name string `json:"name"`
	}

	// looseString accepts a JSON string or number; older projects store
	// format_version as a number.
	looseString string
)

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = looseString(str)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return err
	}
	*s = looseString(n.String())
	return nil
}
