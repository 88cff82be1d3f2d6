// SPDX-License-Identifier: MPL-2.0

// Package pipeline drives one generate run through its four stages:
// loading the mapping table, scanning model sources, assembling the pack
// manifest and packaging it into an archive.
//
// A Pipeline moves through
//
//	Idle -> LoadingMappings -> ScanningModels -> Assembling -> Packaging -> Done
//
// and ends in Failed from any in-progress state. It runs once; there is no
// retry inside a run.
package pipeline
