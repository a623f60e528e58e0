package ziprand

import (
	"errors"
	"fmt"
	"io"
)

// File reads the uncompressed bytes of a single stored entry as a virtual
// byte stream bounded by the entry's declared uncompressed size.
//
// ReadAt is safe for concurrent use. Read, Seek and Tell share the cursor and
// need external synchronization if used from multiple goroutines. Closing a
// File has no effect on the Archive, the Entry, or sibling readers; the
// caller must keep the Archive open for as long as the File is in use.
type File struct {
	src        ByteSource
	entry      *Entry
	dataOffset uint64
	pos        int64
	closed     bool
}

var (
	_ io.ReadSeekCloser = (*File)(nil)
	_ io.ReaderAt       = (*File)(nil)
)

// Name returns the entry's name.
func (f *File) Name() string { return f.entry.Name }

// Size returns the entry's uncompressed size.
func (f *File) Size() int64 { return int64(f.entry.UncompressedSize) }

// Tell returns the current cursor position.
func (f *File) Tell() int64 { return f.pos }

// ReadAt reads from the entry at the given offset, independent of the cursor.
//
// Reads are clipped to the entry's declared size before they reach the byte
// source; the clipped tail is reported as io.EOF. A read starting at or past
// the end returns (0, io.EOF).
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if f.closed {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, fmt.Errorf("%w: negative read offset %d", ErrInvalidArgument, off)
	}

	size := int64(f.entry.UncompressedSize)
	if off >= size {
		return 0, io.EOF
	}

	want := len(p)
	if remaining := size - off; int64(want) > remaining {
		want = int(remaining)
	}

	n, err := f.src.ReadAt(p[:want], int64(f.dataOffset)+off)
	if n == want {
		if want < len(p) {
			return n, io.EOF
		}
		return n, nil
	}

	// The source ran out before the entry's declared size: the directory
	// promises bytes the source does not have.
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

// Read reads from the cursor position and advances the cursor by the number
// of bytes read.
func (f *File) Read(p []byte) (int, error) {
	if f.closed {
		return 0, ErrClosed
	}

	n, err := f.ReadAt(p, f.pos)
	f.pos += int64(n)
	return n, err
}

// Seek moves the cursor. Relative moves (io.SeekCurrent, io.SeekEnd) whose
// target would fall before the start clamp to 0. A target past the entry's
// uncompressed size fails with ErrSeekBeyondEnd and leaves the cursor
// unchanged; a target exactly at the size is valid end-of-data.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return f.pos, ErrClosed
	}

	size := int64(f.entry.UncompressedSize)

	var pos int64
	switch whence {
	case io.SeekStart:
		if offset < 0 {
			return f.pos, fmt.Errorf("%w: negative position %d", ErrInvalidArgument, offset)
		}
		pos = offset
	case io.SeekCurrent:
		if pos = f.pos + offset; pos < 0 {
			pos = 0
		}
	case io.SeekEnd:
		if pos = size + offset; pos < 0 {
			pos = 0
		}
	default:
		return f.pos, fmt.Errorf("%w: unknown whence %d", ErrInvalidArgument, whence)
	}

	if pos > size {
		return f.pos, fmt.Errorf("%w: position %d, entry size %d", ErrSeekBeyondEnd, pos, size)
	}

	f.pos = pos
	return pos, nil
}

// Close marks the file closed. It is idempotent and never affects the archive
// or other readers.
func (f *File) Close() error {
	f.closed = true
	return nil
}
