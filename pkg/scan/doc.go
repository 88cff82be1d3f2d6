// SPDX-License-Identifier: MPL-2.0

// Package scan walks the model source directory and the structural models
// directory, parsing every Blockbench project in parallel and collecting
// every other file as a pass-through asset.
package scan
