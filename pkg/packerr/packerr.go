// SPDX-License-Identifier: MPL-2.0

package packerr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPath is matched by PathError.
	ErrPath = errors.New("path error")
	// ErrMappingNotFound is matched by MappingNotFoundError.
	ErrMappingNotFound = errors.New("mapping file not found")
	// ErrMappingParse is matched by MappingParseError.
	ErrMappingParse = errors.New("mapping parse error")
	// ErrDuplicateMapping is matched by DuplicateMappingError.
	ErrDuplicateMapping = errors.New("duplicate mapping")
	// ErrModelParse is matched by ModelParseError and ScanError.
	ErrModelParse = errors.New("model parse error")
	// ErrUnresolvedMapping is matched by UnresolvedMappingError.
	ErrUnresolvedMapping = errors.New("unresolved mapping")
	// ErrCollision is matched by CollisionError.
	ErrCollision = errors.New("pack entry collision")
	// ErrPackaging is matched by PackagingError.
	ErrPackaging = errors.New("packaging error")
	// ErrOutputPath is matched by OutputPathError.
	ErrOutputPath = errors.New("output path error")
)

type (
	// PathError reports a missing or unreadable input directory or file.
	PathError struct {
		// Role names the input ("bbmodel directory", "models directory", ...).
		Role string
		Path string
		Err  error
	}

	// MappingNotFoundError reports that the mapping file does not exist.
	MappingNotFoundError struct {
		Path string
	}

	// MappingParseError reports malformed mapping syntax or an invalid predicate.
	MappingParseError struct {
		Path string
		Err  error
	}

	// DuplicateMappingError reports one model identifier mapped to two different targets.
	DuplicateMappingError struct {
		Path   string
		Model  string
		First  string
		Second string
	}

	// ModelParseError reports one malformed model-definition file.
	ModelParseError struct {
		// Path is relative to the scanned directory.
		Path string
		Err  error
	}

	// ScanError aggregates every ModelParseError found during one scan.
	ScanError struct {
		Errors []*ModelParseError
	}

	// UnresolvedMappingError lists mapping entries whose model was not found.
	UnresolvedMappingError struct {
		Models []string
	}

	// CollisionError reports two pack entries targeting one path with different content.
	CollisionError struct {
		Path     string
		Existing string
		Incoming string
	}

	// PackagingError reports an I/O failure while writing the archive.
	PackagingError struct {
		Dest string
		Op   string
		Err  error
	}

	// OutputPathError reports that the destination directory cannot be created.
	OutputPathError struct {
		Dir string
		Err error
	}
)

func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Role, e.Path, e.Err)
}

func (e *PathError) Unwrap() []error { return []error{ErrPath, e.Err} }

func (e *MappingNotFoundError) Error() string {
	return fmt.Sprintf("mapping file %s does not exist", e.Path)
}

func (e *MappingNotFoundError) Unwrap() error { return ErrMappingNotFound }

func (e *MappingParseError) Error() string {
	return fmt.Sprintf("parse mapping file %s: %v", e.Path, e.Err)
}

func (e *MappingParseError) Unwrap() []error { return []error{ErrMappingParse, e.Err} }

func (e *DuplicateMappingError) Error() string {
	return fmt.Sprintf("mapping file %s: model %q is mapped to both %s and %s", e.Path, e.Model, e.First, e.Second)
}

func (e *DuplicateMappingError) Unwrap() error { return ErrDuplicateMapping }

func (e *ModelParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ModelParseError) Unwrap() []error { return []error{ErrModelParse, e.Err} }

// Error lists every malformed file, one per line.
func (e *ScanError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d model file(s) failed to parse:", len(e.Errors))
	for _, pe := range e.Errors {
		sb.WriteString("\n  ")
		sb.WriteString(pe.Error())
	}
	return sb.String()
}

// Unwrap exposes each ModelParseError to errors.Is and errors.As.
func (e *ScanError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, pe := range e.Errors {
		errs[i] = pe
	}
	return errs
}

// Paths returns the offending file paths in report order.
func (e *ScanError) Paths() []string {
	paths := make([]string, len(e.Errors))
	for i, pe := range e.Errors {
		paths[i] = pe.Path
	}
	return paths
}

func (e *UnresolvedMappingError) Error() string {
	if len(e.Models) == 1 {
		return fmt.Sprintf("mapping references model %q which was not found in the model directory", e.Models[0])
	}
	return fmt.Sprintf("mapping references %d models which were not found in the model directory: %s",
		len(e.Models), strings.Join(e.Models, ", "))
}

func (e *UnresolvedMappingError) Unwrap() error { return ErrUnresolvedMapping }

func (e *CollisionError) Error() string {
	return fmt.Sprintf("pack entry %s is produced by both %s and %s with different content", e.Path, e.Existing, e.Incoming)
}

func (e *CollisionError) Unwrap() error { return ErrCollision }

func (e *PackagingError) Error() string {
	return fmt.Sprintf("write archive %s: %s: %v", e.Dest, e.Op, e.Err)
}

func (e *PackagingError) Unwrap() []error { return []error{ErrPackaging, e.Err} }

func (e *OutputPathError) Error() string {
	return fmt.Sprintf("output directory %s cannot be created: %v", e.Dir, e.Err)
}

func (e *OutputPathError) Unwrap() []error { return []error{ErrOutputPath, e.Err} }

// Details flattens err into one human-readable line per collected failure.
// Aggregates (ScanError, errors.Join results) are expanded; anything else is a single line.
func Details(err error) []string {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok && isJoin(err) {
		var lines []string
		for _, inner := range joined.Unwrap() {
			lines = append(lines, Details(inner)...)
		}
		return lines
	}
	var scanErr *ScanError
	if errors.As(err, &scanErr) {
		lines := make([]string, 0, len(scanErr.Errors))
		for _, pe := range scanErr.Errors {
			lines = append(lines, pe.Error())
		}
		return lines
	}
	return []string{err.Error()}
}

// isJoin reports whether err was produced by errors.Join rather than one of the
// typed errors above (which also implement Unwrap() []error).
func isJoin(err error) bool {
	switch err.(type) {
	case *PathError, *MappingParseError, *ModelParseError, *ScanError, *PackagingError, *OutputPathError:
		return false
	}
	return true
}
