package storage

import "errors"

// Common storage errors
var (
	// ErrCollectionNotFound indicates that no snapshot was ever saved
	// for the requested schedule period
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrEmptyPeriod indicates that an empty period key was passed
	ErrEmptyPeriod = errors.New("period key is empty")
)
