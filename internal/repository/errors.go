package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict is returned when a write violates a uniqueness rule,
	// such as a second active ride for the same rider or driver.
	ErrConflict = errors.New("conflicting entity exists")

	// ErrDuplicate is returned when a generated ride number is already taken.
	ErrDuplicate = errors.New("ride number already taken")

	// ErrStale is returned when a conditional update matched no row because
	// the entity is no longer in the expected state.
	ErrStale = errors.New("entity changed concurrently")
)
