// Package apperr holds the sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrNoActiveDocument = errors.New("no active document")
	ErrNoEditor         = errors.New("no active editor")
	ErrRenameFailed     = errors.New("rename failed")
	ErrInvalidTemplate  = errors.New("invalid template")
	ErrNotPastedImage   = errors.New("not a pasted image")
)
