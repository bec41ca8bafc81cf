package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorWrapping(t *testing.T) {
	cause := ErrNotFound
	err := NewAppError("LOOKUP_FAILED", "no status for job", cause)

	assert.Equal(t, "LOOKUP_FAILED: no status for job: resource not found", err.Error())
	assert.True(t, errors.Is(err, ErrNotFound))

	var appErr *AppError
	assert.True(t, errors.As(error(err), &appErr))
	assert.Equal(t, "LOOKUP_FAILED", appErr.Code)
}

func TestFormattedConstructors(t *testing.T) {
	err := NotFoundf("blueprint %s", "blueprint-abc123def456")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "blueprint-abc123def456")

	assert.True(t, errors.Is(InvalidInputf("bad size %d", -1), ErrInvalidInput))
	assert.True(t, errors.Is(Internalf("boom"), ErrInternal))
}

func TestValidator(t *testing.T) {
	v := NewValidator().
		Field("fileName", "", Required).
		Field("fileSize", int64(0), Positive).
		Field("sessionId", "s1", Required)

	assert.True(t, v.HasErrors())
	assert.Equal(t, []string{"fileName", "fileSize"}, v.Fields())
	assert.True(t, errors.Is(v.Err(), ErrValidation))

	ok := NewValidator().
		Field("fileName", "plan.png", Required).
		Field("fileSize", int64(1024), Positive)
	assert.False(t, ok.HasErrors())
	assert.NoError(t, ok.Err())
}
