package model

import "errors"

// Validation-level sentinel errors shared by model.Validate implementations.
var (
	ErrInvalidFunctionID   = errors.New("invalid function id")
	ErrInvalidVersion      = errors.New("invalid version")
	ErrInvalidFunctionType = errors.New("invalid function type")
)
