package service

import "errors"

var (
	// ErrResetDeclined is returned when the user does not confirm a reset.
	ErrResetDeclined = errors.New("reset declined")
	// ErrInvalidSlot is returned for a slot id outside 1..slots.
	ErrInvalidSlot = errors.New("invalid slot")
)
