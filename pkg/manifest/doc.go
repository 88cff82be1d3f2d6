// SPDX-License-Identifier: MPL-2.0

// Package manifest holds the in-memory file tree of a resource pack before it
// is packaged.
//
// Entries come from three layers: the base pack on disk, pass-through assets,
// and generated files. Within a layer, and between the asset and generated
// layers, two different payloads for one path are a collision. Between the
// base layer and the others, the base entry wins unless the manifest was
// created with overwrite enabled.
package manifest
