package document

import "errors"

var (
	ErrNotFound          = errors.New("element not found")
	ErrDuplicateID       = errors.New("duplicate element id")
	ErrInvalidGeometry   = errors.New("invalid geometry")
	ErrInvalidElement    = errors.New("invalid element")
	ErrInvalidBackground = errors.New("invalid background")
	ErrLocked            = errors.New("element is locked")
)
