// SPDX-License-Identifier: MPL-2.0

// Package bbmodel parses Blockbench project files (.bbmodel) into immutable
// model descriptors.
//
// Only the subset of the format that maps onto a Java-edition block/item model
// is accepted: cube elements with at most one rotation axis, faces referencing
// declared textures, and textures that are either embedded PNG data URIs or
// references to files next to the project. Locators and other non-geometry
// elements are ignored; meshes are rejected.
package bbmodel
