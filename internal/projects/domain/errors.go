package domain

import "errors"

var (
	ErrNotFound          = errors.New("project not found")
	ErrTerminalState     = errors.New("project is in a terminal state")
	ErrInvalidTransition = errors.New("invalid analysis status transition")
)
