package ziprand

import "errors"

var (
	// ErrFormat is returned when the input does not conform to the ZIP
	// specification: no end-of-central-directory record, a mismatched
	// signature, or a directory that walks past the end of the source.
	ErrFormat = errors.New("ziprand: invalid zip archive")

	// ErrNotFound is returned when no entry with the requested name exists.
	ErrNotFound = errors.New("ziprand: entry not found")

	// ErrCompressed is returned when opening an entry whose compression
	// method is not Store. This library never decompresses.
	ErrCompressed = errors.New("ziprand: entry is compressed")

	// ErrSeekBeyondEnd is returned when a seek would place the cursor past
	// the entry's uncompressed size.
	ErrSeekBeyondEnd = errors.New("ziprand: seek beyond end of entry")

	// ErrClosed is returned by operations on a closed File.
	ErrClosed = errors.New("ziprand: file already closed")

	// ErrInvalidArgument is returned for nil or out-of-range inputs.
	ErrInvalidArgument = errors.New("ziprand: invalid argument")
)
