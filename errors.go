package docfs

import "errors"

var (
	// ErrAlreadyBound is returned when a viewer is opened again without an
	// intervening Close. It signals lifecycle misuse by the caller.
	ErrAlreadyBound = errors.New("viewer already bound")

	// ErrNotFound is returned by outer layers when no node exists at a path
	ErrNotFound = errors.New("node not found")

	// ErrContentNotFound is returned by a [ContentStore] for unknown content
	ErrContentNotFound = errors.New("content not found")
)

var (
	// ErrNotBound is returned by viewer operations that need an open file
	ErrNotBound = errors.New("viewer not bound")

	// ErrIsDir is returned when a file operation targets a directory
	ErrIsDir = errors.New("node is a directory")
)
