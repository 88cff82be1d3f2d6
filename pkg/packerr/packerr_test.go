// SPDX-License-Identifier: MPL-2.0

package packerr

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
)

func TestSentinels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"path", &PathError{Role: "bbmodel directory", Path: "/x", Err: fs.ErrNotExist}, ErrPath},
		{"mapping not found", &MappingNotFoundError{Path: "m.cue"}, ErrMappingNotFound},
		{"mapping parse", &MappingParseError{Path: "m.cue", Err: errors.New("bad")}, ErrMappingParse},
		{"duplicate", &DuplicateMappingError{Path: "m.cue", Model: "cow", First: "a", Second: "b"}, ErrDuplicateMapping},
		{"model parse", &ModelParseError{Path: "cow.bbmodel", Err: errors.New("bad")}, ErrModelParse},
		{"scan", &ScanError{Errors: []*ModelParseError{{Path: "a", Err: errors.New("x")}}}, ErrModelParse},
		{"unresolved", &UnresolvedMappingError{Models: []string{"cow"}}, ErrUnresolvedMapping},
		{"collision", &CollisionError{Path: "p", Existing: "a", Incoming: "b"}, ErrCollision},
		{"packaging", &PackagingError{Dest: "out.zip", Op: "write", Err: errors.New("disk full")}, ErrPackaging},
		{"output path", &OutputPathError{Dir: "/ro", Err: fs.ErrPermission}, ErrOutputPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			wrapped := fmt.Errorf("stage: %w", tt.err)
			if !errors.Is(wrapped, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", wrapped, tt.sentinel)
			}
		})
	}
}

func TestCausePreserved(t *testing.T) {
	t.Parallel()

	err := &PathError{Role: "models directory", Path: "/missing", Err: fs.ErrNotExist}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("PathError should expose its cause")
	}
	out := &OutputPathError{Dir: "/ro", Err: fs.ErrPermission}
	if !errors.Is(out, fs.ErrPermission) {
		t.Error("OutputPathError should expose its cause")
	}
}

func TestScanErrorNamesEveryFile(t *testing.T) {
	t.Parallel()

	err := &ScanError{Errors: []*ModelParseError{
		{Path: "mobs/cow.bbmodel", Err: errors.New("unexpected end of JSON input")},
		{Path: "mobs/pig.bbmodel", Err: errors.New("element 3: rotation on two axes")},
	}}

	msg := err.Error()
	for _, want := range []string{"2 model file(s)", "mobs/cow.bbmodel", "mobs/pig.bbmodel"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}

	var mpe *ModelParseError
	if !errors.As(err, &mpe) || mpe.Path != "mobs/cow.bbmodel" {
		t.Errorf("errors.As should find the first ModelParseError, got %v", mpe)
	}

	paths := err.Paths()
	if len(paths) != 2 || paths[1] != "mobs/pig.bbmodel" {
		t.Errorf("Paths() = %v", paths)
	}
}

func TestUnresolvedMappingErrorMessage(t *testing.T) {
	t.Parallel()

	one := &UnresolvedMappingError{Models: []string{"cow_model"}}
	if !strings.Contains(one.Error(), `"cow_model"`) {
		t.Errorf("single model message = %q", one.Error())
	}
	many := &UnresolvedMappingError{Models: []string{"cow_model", "pig_model"}}
	if !strings.Contains(many.Error(), "cow_model, pig_model") {
		t.Errorf("multi model message = %q", many.Error())
	}
}

func TestDetails(t *testing.T) {
	t.Parallel()

	scan := &ScanError{Errors: []*ModelParseError{
		{Path: "a.bbmodel", Err: errors.New("x")},
		{Path: "b.bbmodel", Err: errors.New("y")},
	}}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"single", errors.New("boom"), 1},
		{"scan expands", fmt.Errorf("scan models: %w", scan), 2},
		{"join expands", errors.Join(scan, &UnresolvedMappingError{Models: []string{"cow"}}), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Details(tt.err); len(got) != tt.want {
				t.Errorf("Details() = %v (len %d), want len %d", got, len(got), tt.want)
			}
		})
	}
}
