package media

import (
	"fmt"
	"io"
)

const (
	// MaxAssetBytes is the default max size of one fetched media item.
	MaxAssetBytes int64 = 20 * 1024 * 1024
	// MaxItemsPerTurn bounds the number of media locators inlined into one prompt.
	MaxItemsPerTurn = 10
)

// ReadAllWithLimit reads from reader and rejects payloads larger than maxBytes.
func ReadAllWithLimit(reader io.Reader, maxBytes int64) ([]byte, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader is required")
	}
	if maxBytes <= 0 {
		return nil, fmt.Errorf("max bytes must be greater than 0")
	}
	data, err := io.ReadAll(io.LimitReader(reader, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: max %d bytes", ErrAssetTooLarge, maxBytes)
	}
	return data, nil
}
