package site

import "errors"

// Error constants
var (
	ErrRender       = errors.New("page render failed")
	ErrNotConfirmed = errors.New("reset not confirmed")
)
