// SPDX-License-Identifier: MPL-2.0

// Package assemble turns scanned model descriptors and a mapping table into a
// resource-pack manifest: model JSON, textures, item override definitions and
// pack metadata layered over an optional base pack.
package assemble
