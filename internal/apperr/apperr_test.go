package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	err := NotFound("get car", "Car not found")
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, IsKind(err, KindNotFound))
	assert.Equal(t, "Car not found", err.Error())

	wrapped := fmt.Errorf("outer: %w", InvalidState("rent", "Car is already rented"))
	assert.Equal(t, KindInvalidState, KindOf(wrapped))
	assert.Equal(t, "Car is already rented", MessageOf(wrapped))

	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.False(t, IsKind(nil, KindUnknown))
	assert.Equal(t, "", MessageOf(nil))
}

func TestPersistenceKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Persistence("save cars", cause)

	assert.True(t, IsKind(err, KindPersistence))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "storage unavailable", MessageOf(err))
	assert.Contains(t, err.Error(), "disk full")
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "not_found", KindNotFound.String())
	assert.Equal(t, "validation", KindValidation.String())
}
