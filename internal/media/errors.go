package media

import "errors"

var (
	// ErrAssetTooLarge indicates the payload exceeds the configured max asset size.
	ErrAssetTooLarge = errors.New("media asset too large")
	// ErrUnexpectedStatus indicates the remote server answered with a non-200 status.
	ErrUnexpectedStatus = errors.New("unexpected download status")
)
