package media

import "errors"

var (
	// ErrAssetTooLarge indicates the payload exceeds the configured max asset size.
	ErrAssetTooLarge = errors.New("media asset too large")
	// ErrFetchFailed indicates a media locator could not be read.
	ErrFetchFailed = errors.New("media fetch failed")
)
