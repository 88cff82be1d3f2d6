// SPDX-License-Identifier: MPL-2.0

// Package mapping loads the table that maps model identifiers to item-override
// predicates.
//
// A mapping file is an ordered list of entries. CUE, JSON, YAML and TOML
// spellings are accepted; all of them are validated against the same embedded
// schema (mapping_schema.cue) before any predicate is checked in Go:
//
//	mappings: [
//		{model: "cow_model", item: "minecraft:leather", custom_model_data: 1},
//		{model: "pig_model", item: "leather", custom_model_data: 2},
//	]
//
// Entry order is preserved; it is the order overrides are written in.
package mapping
