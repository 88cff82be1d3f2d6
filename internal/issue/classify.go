// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"os"

	"github.com/thecrown/packgen/pkg/assemble"
	"github.com/thecrown/packgen/pkg/packerr"
)

// Classify returns the catalogued issue that best explains err, or 0.
// An ActionableError that already names an issue keeps it.
func Classify(err error) Id {
	if err == nil {
		return 0
	}
	var ae *ActionableError
	if errors.As(err, &ae) && ae.Issue != 0 {
		return ae.Issue
	}
	switch {
	case errors.Is(err, packerr.ErrMappingNotFound):
		return MappingNotFoundId
	case errors.Is(err, packerr.ErrDuplicateMapping):
		return DuplicateMappingId
	case errors.Is(err, packerr.ErrMappingParse):
		return MappingParseErrorId
	case errors.Is(err, packerr.ErrModelParse):
		return ModelParseErrorId
	case errors.Is(err, packerr.ErrUnresolvedMapping):
		return UnresolvedMappingId
	case errors.Is(err, packerr.ErrCollision):
		return EntryCollisionId
	case errors.Is(err, assemble.ErrUnsupportedPredicate):
		return UnsupportedPredicateId
	case errors.Is(err, assemble.ErrInvalidSettings):
		return InvalidSettingsId
	case errors.Is(err, os.ErrPermission):
		return PermissionDeniedId
	case errors.Is(err, packerr.ErrOutputPath):
		return OutputPathId
	case errors.Is(err, packerr.ErrPackaging):
		return PackagingFailedId
	case errors.Is(err, packerr.ErrPath):
		return InputPathNotFoundId
	}
	return 0
}

// Explain wraps err for display, attaching the matching issue and a short
// suggestion. A nil err yields nil.
func Explain(err error, operation, resource string) *ActionableError {
	if err == nil {
		return nil
	}
	var ae *ActionableError
	if errors.As(err, &ae) && ae.Operation != "" {
		if ae.Issue == 0 {
			ae.Issue = Classify(ae.Cause)
		}
		return ae
	}

	id := Classify(err)
	ctx := NewErrorContext().
		WithOperation(operation).
		WithResource(resource).
		WithIssue(id).
		Wrap(err)
	if sug, ok := suggestions[id]; ok {
		ctx.WithSuggestion(sug)
	}
	return ctx.Build()
}

var suggestions = map[Id]string{
	MappingNotFoundId:      "Check the mappings argument; it is the fourth positional argument",
	MappingParseErrorId:    "Run 'packgen validate' to check the mapping file on its own",
	DuplicateMappingId:     "Keep a single target per model identifier",
	InputPathNotFoundId:    "Arguments are: bbmodelDir resourcepackDir modelsDir mappings",
	ModelParseErrorId:      "Re-export the listed files from Blockbench; the others were parsed",
	UnresolvedMappingId:    "Model identifiers are lower-cased paths relative to bbmodelDir, without extension",
	EntryCollisionId:       "Rename one of the conflicting sources",
	UnsupportedPredicateId: "Use --format legacy or drop the extra predicates",
	InvalidSettingsId:      "See 'packgen generate --help' for accepted values",
	PermissionDeniedId:     "Check file ownership and permissions",
	OutputPathId:           "Choose an --output location whose parent is writable",
	PackagingFailedId:      "Check free disk space; the previous archive was left unchanged",
}
