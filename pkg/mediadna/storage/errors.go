package storage

import "errors"

// ErrNotFound is returned when a media ID has no record.
var ErrNotFound = errors.New("media not found")

const errDBClientNil = "db client is nil"
