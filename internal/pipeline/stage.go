package pipeline

import (
	"errors"
	"fmt"
)

type Stage int

const (
	StagePromptBuild Stage = iota + 1
	StageSQLGeneration
	StageExecution
	StageSummary
)

var ErrEmptySQL = errors.New("generated SQL was empty")

// Label is the human-readable prefix attached to errors from the stage.
func (s Stage) Label() string {
	switch s {
	case StagePromptBuild:
		return "Prompt Build Error"
	case StageSQLGeneration:
		return "SQL Generation Error"
	case StageExecution:
		return "Query Execution Error"
	case StageSummary:
		return "Summary Error"
	default:
		return "Pipeline Error"
	}
}

func (s Stage) String() string {
	switch s {
	case StagePromptBuild:
		return "prompt_build"
	case StageSQLGeneration:
		return "sql_generation"
	case StageExecution:
		return "execution"
	case StageSummary:
		return "summary"
	default:
		return "unknown"
	}
}

// StageError tags a failure with the stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return e.Stage.Label()
	}
	return fmt.Sprintf("%s: %v", e.Stage.Label(), e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageError(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}
