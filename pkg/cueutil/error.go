// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue/errors"
)

// SchemaError is a CUE compile or validation failure with one line per
// offending field, each prefixed by its JSON-style path.
type SchemaError struct {
	// FilePath is the file being validated.
	FilePath string
	// Lines holds "<json-path>: <message>" entries, or bare messages when CUE
	// reports no path.
	Lines []string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	if len(e.Lines) == 1 {
		return fmt.Sprintf("%s: %s", e.FilePath, e.Lines[0])
	}
	return fmt.Sprintf("%s: validation failed:\n  %s", e.FilePath, strings.Join(e.Lines, "\n  "))
}

// FormatError converts a CUE error into a SchemaError whose lines read like
//
//	mappings[1].custom_model_data: invalid value -3 (out of bound >=0)
//
// Errors that did not come from CUE are wrapped with the file path unchanged.
func FormatError(err error, filePath string) error {
	if err == nil {
		return nil
	}

	cueErrors := errors.Errors(err)
	if len(cueErrors) == 0 {
		return fmt.Errorf("%s: %w", filePath, err)
	}

	lines := make([]string, 0, len(cueErrors))
	seen := make(map[string]bool, len(cueErrors))
	for _, e := range cueErrors {
		pathStr := formatPath(errors.Path(e))
		msg := e.Error()

		// CUE sometimes repeats the path at the start of the message.
		if pathStr != "" && strings.HasPrefix(msg, pathStr) {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, pathStr), ":"))
		}

		line := msg
		if pathStr != "" {
			line = pathStr + ": " + msg
		}
		if seen[line] {
			continue
		}
		seen[line] = true
		lines = append(lines, line)
	}

	return &SchemaError{FilePath: filePath, Lines: lines}
}

// formatPath converts a CUE error path such as ["mappings", "0", "item"] into
// "mappings[0].item".
func formatPath(path []string) string {
	var result strings.Builder
	for i, part := range path {
		if i > 0 && isIndex(part) {
			result.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			result.WriteString(".")
		}
		result.WriteString(part)
	}
	return result.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// CheckFileSize returns an error when data exceeds maxSize bytes.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if int64(len(data)) > maxSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes",
			filename, len(data), maxSize)
	}
	return nil
}
