// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"errors"
	"fmt"
)

const (
	// StateIdle is the state of a pipeline that has not run yet.
	StateIdle State = iota
	// StateLoadingMappings reads and validates the mapping file.
	StateLoadingMappings
	// StateScanningModels walks and parses the model directories.
	StateScanningModels
	// StateAssembling builds the pack manifest.
	StateAssembling
	// StatePackaging writes the archive (terminal on success: StateDone).
	StatePackaging
	// StateDone means the archive was written (terminal state).
	StateDone
	// StateFailed means a stage failed; Err holds the reason (terminal state).
	StateFailed
)

// ErrAlreadyRun is returned when Run or Validate is called on a pipeline that left StateIdle.
var ErrAlreadyRun = errors.New("pipeline already run")

type (
	// State is the lifecycle state of a Pipeline.
	State int32

	// StageError reports which stage failed and on which input.
	StageError struct {
		Stage    State
		Resource string
		Err      error
	}
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoadingMappings:
		return "loading-mappings"
	case StateScanningModels:
		return "scanning-models"
	case StateAssembling:
		return "assembling"
	case StatePackaging:
		return "packaging"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Operation is the verb phrase used when reporting a failure in s.
func (s State) Operation() string {
	switch s {
	case StateLoadingMappings:
		return "load mappings"
	case StateScanningModels:
		return "scan models"
	case StateAssembling:
		return "assemble resource pack"
	case StatePackaging:
		return "write resource pack"
	default:
		return "generate resource pack"
	}
}

// next reports whether s may move to to.
func (s State) next(to State) bool {
	if to == StateFailed {
		return !s.Terminal() && s != StateIdle
	}
	switch s {
	case StateIdle:
		return to == StateLoadingMappings
	case StateLoadingMappings:
		return to == StateScanningModels
	case StateScanningModels:
		return to == StateAssembling || to == StateDone
	case StateAssembling:
		return to == StatePackaging
	case StatePackaging:
		return to == StateDone
	default:
		return false
	}
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage.Operation(), e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
