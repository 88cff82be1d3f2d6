// SPDX-License-Identifier: MPL-2.0

// Package packager writes a pack manifest to disk, either as a deterministic
// ZIP archive or as a directory tree, and inspects archives it produced.
//
// Archives list entries in path order with a fixed modification time and
// compression method, so equal manifests produce byte-identical files.
// Archives and side files are staged in a temporary file next to the
// destination and renamed into place by Commit, so a caller can stage several
// outputs and commit them only once all of them succeeded.
package packager
