package relay

import "errors"

// ErrResourceResolution is returned when a photo cannot be mapped to a download link.
var ErrResourceResolution = errors.New("resource resolution failed")
