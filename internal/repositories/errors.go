package repositories

import "github.com/pkg/errors"

// Common repository errors
var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
	ErrHasReadings   = errors.New("equipment still has readings attached")
)
