// SPDX-License-Identifier: MPL-2.0

// Package bbmodeltest builds Blockbench project fixtures for tests.
//
// The defaults describe the smallest valid project: one 16x16 embedded PNG
// texture, one cube using it on every face, one bone and one animation.
package bbmodeltest
