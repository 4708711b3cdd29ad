package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/casualjim/conveyor/pipeline"
)

func TestEither_Emit(t *testing.T) {
	t.Parallel()

	result := pipeline.Emit("rec-1")
	assert.True(t, result.IsEntity())
	assert.False(t, result.IsFailure())
	assert.Equal(t, "rec-1", result.Entity())
	assert.Equal(t, pipeline.TraceError{}, result.Failure())
}

func TestEither_Fail(t *testing.T) {
	t.Parallel()

	failure := pipeline.TraceError{Name: "ParseError", Message: "bad row", StackTrace: "..."}
	result := pipeline.Fail(failure)
	assert.True(t, result.IsFailure())
	assert.False(t, result.IsEntity())
	assert.Equal(t, failure, result.Failure())
	assert.Nil(t, result.Entity())
}

func TestEither_ZeroValueIsNeither(t *testing.T) {
	t.Parallel()

	var result pipeline.Either
	assert.False(t, result.IsFailure())
	assert.False(t, result.IsEntity())
}

func TestTraceError_String(t *testing.T) {
	t.Parallel()

	failure := pipeline.TraceError{Name: "ParseError", Message: "bad row"}
	assert.Equal(t, "ParseError: bad row", failure.String())
}

func TestUnhandled(t *testing.T) {
	t.Parallel()

	failure := pipeline.Unhandled(assert.AnError)
	assert.Equal(t, "Unhandled", failure.Name)
	assert.Contains(t, failure.Message, assert.AnError.Error())
	assert.NotEmpty(t, failure.StackTrace)
}
