package storage

import "errors"

// ErrRunNotFound is returned when an update targets a run that does not exist.
var ErrRunNotFound = errors.New("run not found")
