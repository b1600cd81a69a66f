package dataprocessing

import "errors"

// Load errors. Each is fatal for the load attempt; no partial table is
// returned.
var (
	ErrUnreadableSource   = errors.New("source unreadable")
	ErrEmptySource        = errors.New("source has no header row")
	ErrMissingColumn      = errors.New("required column missing")
	ErrMalformedDateParts = errors.New("request year or month is not an integer")
)
