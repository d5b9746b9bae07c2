package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKinds(t *testing.T) {
	err := Conflict("CreateBooking", "slot %d already booked", 7)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "CreateBooking: slot 7 already booked", err.Error())
	assert.True(t, Expected(err))
}

func TestPersistenceKeepsTypedErrors(t *testing.T) {
	nf := NotFound("GetSlot", "slot %d", 1)
	assert.Same(t, nf, Persistence("store", nf))
	assert.Nil(t, Persistence("store", nil))

	raw := errors.New("connection reset")
	err := Persistence("InsertBooking", fmt.Errorf("exec: %w", raw))
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, raw)
	assert.False(t, Expected(err))
	assert.Equal(t, ErrPersistence, KindOf(err))
}

func TestKindOfForeignError(t *testing.T) {
	assert.Nil(t, KindOf(errors.New("boom")))
	assert.False(t, Expected(errors.New("boom")))
}
