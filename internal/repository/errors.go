package repository

import "errors"

// ErrNotFound is returned by repositories when the requested row does not
// exist. Callers translate it into their own domain errors.
var ErrNotFound = errors.New("record not found")
