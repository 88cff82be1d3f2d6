// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides shared CUE validation utilities.
//
// Both the mapping loader and the config loader validate user input against an
// embedded CUE schema with the same three steps:
//
//  1. Compile the embedded schema
//  2. Compile (or encode) user data and unify with the schema definition
//  3. Validate and decode to a Go struct
//
// # Usage
//
//	//go:embed mapping_schema.cue
//	var schemaBytes []byte
//
//	result, err := cueutil.ParseAndDecode[File](
//	    schemaBytes,
//	    userFileBytes,
//	    "#Mappings",
//	    cueutil.WithFilename("mappings.cue"),
//	)
//
// Data that arrives in another syntax (YAML, TOML) is decoded into plain Go
// values first and passed to EncodeAndDecode, which validates it against the
// same schema.
package cueutil
