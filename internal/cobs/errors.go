package cobs

import "errors"

// ErrMalformed is returned when a frame body's code bytes describe a
// segment longer than the remaining buffered bytes.
var ErrMalformed = errors.New("cobs: malformed frame body")
