package notes

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyExists is returned when creating a note whose slug is taken.
	ErrAlreadyExists = errors.New("task already exists")
	// ErrNotFound is returned when a note that must exist does not.
	ErrNotFound = errors.New("note not found")
	// ErrInvalidStatus is returned for a status outside the vocabulary.
	ErrInvalidStatus = errors.New("invalid status")
)

// MissingNoteError reports which note was missing. It matches ErrNotFound.
type MissingNoteError struct {
	Slug string
	Path string
	// Hint tells the user how to produce the note, if anything can.
	Hint string
}

func (e *MissingNoteError) Error() string {
	msg := fmt.Sprintf("%s for %s: %s", ErrNotFound, e.Slug, e.Path)
	if e.Hint != "" {
		msg += ". " + e.Hint
	}
	return msg
}

func (e *MissingNoteError) Unwrap() error { return ErrNotFound }
