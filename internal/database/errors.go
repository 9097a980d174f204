package database

import "errors"

var (
	// ErrConfirmedFaceLocked is returned by the store write path when a
	// caller tries to change the assignment of a confirmed face without the
	// labeling capability. The row is left unmodified.
	ErrConfirmedFaceLocked = errors.New("face is confirmed; assignment can only be changed by explicit labeling")

	// ErrFaceNotFound is returned for operations on unknown face IDs.
	ErrFaceNotFound = errors.New("face not found")

	// ErrPersonNotFound is returned for operations on unknown person IDs.
	ErrPersonNotFound = errors.New("person not found")
)
