package domain

import "errors"

var (
	// ErrInvalidParams is wrapped by every visualization or view validation failure.
	ErrInvalidParams = errors.New("invalid visualization parameters")

	// ErrNotFound is returned by repositories when a record does not exist.
	ErrNotFound = errors.New("not found")
)
