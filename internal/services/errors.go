package services

import "errors"

// Dataset service errors
var (
	// ErrDatasetNotLoaded is returned before the first successful load.
	ErrDatasetNotLoaded = errors.New("dataset not loaded")

	// ErrReloadFailed wraps a failed reload; the previous table stays in service.
	ErrReloadFailed = errors.New("dataset reload failed")

	// ErrInvalidPage rejects negative offsets and non-positive limits.
	ErrInvalidPage = errors.New("invalid page")
)
