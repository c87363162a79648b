package schema

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures.
type ErrorKind string

// All error kinds raised or reported by the pipeline.
const (
	InvalidArgument ErrorKind = "INVALID_ARGUMENT"
	JoinAmbiguity   ErrorKind = "JOIN_AMBIGUITY"
	TrainingFailure ErrorKind = "TRAINING_FAILURE"
	DataMismatch    ErrorKind = "DATA_MISMATCH" // reported, never returned
)

// Sentinels matched by PipelineError.Is.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrJoinAmbiguity   = errors.New("join ambiguity")
	ErrTrainingFailure = errors.New("training failure")
)

// ErrSalaryFormat is wrapped when a salary lacks its leading marker or is not an integer.
var ErrSalaryFormat = errors.New("malformed salary")

// PipelineError is a typed failure of a pipeline stage.
type PipelineError struct {
	Kind ErrorKind
	Op   string // Stage that failed, e.g. "join" or "train"
	Err  error
}

// NewError builds a PipelineError with a formatted message.
func NewError(kind ErrorKind, op string, format string, args ...any) *PipelineError {
	return &PipelineError{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// WrapError builds a PipelineError around an existing error.
func WrapError(kind ErrorKind, op string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Op: op, Err: err}
}

func (e *PipelineError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error kind.
func (e *PipelineError) Is(target error) bool {
	switch target {
	case ErrInvalidArgument:
		return e.Kind == InvalidArgument
	case ErrJoinAmbiguity:
		return e.Kind == JoinAmbiguity
	case ErrTrainingFailure:
		return e.Kind == TrainingFailure
	}
	return false
}

// KindOf returns the ErrorKind carried by err, or "" if err is not a PipelineError.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
