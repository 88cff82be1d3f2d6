// SPDX-License-Identifier: MPL-2.0

// Package packerr defines the error taxonomy shared by the pack generation stages.
//
// Every concrete error type matches one sentinel through errors.Is, so callers
// can branch on the failure class without caring which stage produced it:
//
//	if errors.Is(err, packerr.ErrUnresolvedMapping) { ... }
//
// Types that carry an underlying cause also expose it, so errors.Is(err, fs.ErrNotExist)
// keeps working through the wrapper.
package packerr
