// SPDX-License-Identifier: MPL-2.0

package assemble

import "encoding/json"

type (
	// RuntimeMappings tells the game server which item stack displays each
	// model.
	RuntimeMappings struct {
		Namespace string                  `json:"namespace"`
		Models    map[string]RuntimeModel `json:"models"`
	}

	// RuntimeModel is one model's entry in RuntimeMappings.
	RuntimeModel struct {
		Item            string             `json:"item"`
		CustomModelData *int               `json:"custom_model_data,omitempty"`
		Predicates      map[string]float64 `json:"predicates,omitempty"`
		Model           string             `json:"model"`
		Variants        []string           `json:"variants,omitempty"`
		Animations      []string           `json:"animations,omitempty"`
	}
)

// JSON encodes the mappings with stable key order.
func (r RuntimeMappings) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func buildRuntime(in Input) RuntimeMappings {
	rt := RuntimeMappings{
		Namespace: string(in.Namespace),
		Models:    make(map[string]RuntimeModel, in.Mappings.Len()),
	}
	for _, e := range in.Mappings.Entries() {
		rm := RuntimeModel{
			Item:            e.Target.Item.String(),
			CustomModelData: e.Target.CustomModelData,
			Predicates:      e.Target.Extra,
			Model:           ModelLocation(in.Namespace, e.Model).String(),
		}
		if d, ok := in.Scan.Lookup(e.Model); ok {
			rm.Variants = d.Variants()
			rm.Animations = d.Animations
		}
		rt.Models[e.Model] = rm
	}
	return rt
}
