// Package apperr defines the sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrOutsideVault  = errors.New("path outside vault root")
)
