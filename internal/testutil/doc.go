// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Environment helpers (MustSetenv, MustUnsetenv, SetHomeDir) return a restore
// function meant for defer or t.Cleanup. Blockbench project fixtures live in
// the bbmodeltest subpackage.
package testutil
