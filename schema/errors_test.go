package schema

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPipelineErrorIs(t *testing.T) {
	tests := []struct {
		name     string
		kind     ErrorKind
		sentinel error
	}{
		{"invalid argument", InvalidArgument, ErrInvalidArgument},
		{"join ambiguity", JoinAmbiguity, ErrJoinAmbiguity},
		{"training failure", TrainingFailure, ErrTrainingFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewError(tt.kind, "op", "bad %d", 1)
			wrapped := fmt.Errorf("outer: %w", err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.Equal(t, tt.kind, KindOf(wrapped))
		})
	}
}

func TestPipelineErrorDoesNotMatchOtherKinds(t *testing.T) {
	err := NewError(InvalidArgument, "partition", "group count %d", 0)
	assert.NotErrorIs(t, err, ErrJoinAmbiguity)
	assert.NotErrorIs(t, err, ErrTrainingFailure)
}

func TestPipelineErrorUnwrap(t *testing.T) {
	err := WrapError(JoinAmbiguity, "join", fmt.Errorf("salary %q: %w", "1000", ErrSalaryFormat))
	assert.ErrorIs(t, err, ErrSalaryFormat)
	assert.ErrorIs(t, err, ErrJoinAmbiguity)
	assert.Contains(t, err.Error(), "join JOIN_AMBIGUITY")
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
	assert.Equal(t, ErrorKind(""), KindOf(nil))
}
