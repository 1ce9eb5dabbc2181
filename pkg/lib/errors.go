package lib

import "errors"

var (
	// ErrNotFound is returned when an instance does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when an instance name or host port is already taken.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned on invalid input or an operation the instance status doesn't allow.
	ErrNotValid = errors.New("not valid")
)
