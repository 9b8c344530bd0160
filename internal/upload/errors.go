package upload

import "errors"

var (
	// ErrSessionNotFound indicates the id was never registered or has already been retired.
	ErrSessionNotFound = errors.New("upload session not found")
	// ErrDeliveryUnavailable indicates no delivery transport is configured.
	ErrDeliveryUnavailable = errors.New("delivery transport not configured")
)
