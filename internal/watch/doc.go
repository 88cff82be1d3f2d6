// SPDX-License-Identifier: MPL-2.0

// Package watch rebuilds on source changes.
//
// A Watcher monitors a set of source directories and files and invokes a
// callback once a debounce window has passed without further events. Events
// inside the window are coalesced so the callback sees every changed path
// exactly once.
package watch
