// Package ziprand provides read-only, random-access inspection of ZIP
// archives through a pluggable byte-range source, without loading the whole
// archive into memory and without decompressing anything.
//
// Open parses only the archive's directory metadata: it scans backward for
// the end-of-central-directory record (following the ZIP64 extension when
// present) and decodes the central directory into an entry table. Entries
// stored without compression can then be opened for bounded seek/read access;
// entries stored with any compression method are refused.
//
// Byte sources are capabilities, not concrete backends: anything satisfying
// ByteSource works, including *os.File (via OpenFile), in-memory buffers
// (NewBytesSource), and the s3source and httpsource packages for remote
// archives.
package ziprand

import (
	"fmt"
	"io"
	"os"
)

// Archive is the long-lived handle to an open ZIP archive. It owns the byte
// source and the entry table.
//
// After Open returns, the archive is read-only apart from each entry's
// one-time payload-offset memoization, so it is safe for concurrent use.
type Archive struct {
	src     ByteSource
	size    int64
	entries []Entry
}

// Open parses the directory metadata from src and returns the archive handle.
// It either returns a fully populated archive or an error; no partially
// constructed state survives a failure.
//
// The archive takes ownership of src: Archive.Close closes it if it
// implements io.Closer.
func Open(src ByteSource) (*Archive, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil byte source", ErrInvalidArgument)
	}

	size := src.Size()
	if size < 0 {
		return nil, fmt.Errorf("%w: source reports negative size %d", ErrInvalidArgument, size)
	}

	dir, err := findDirectory(src)
	if err != nil {
		return nil, err
	}

	entries, err := readDirectory(src, dir)
	if err != nil {
		return nil, err
	}

	return &Archive{src: src, size: size, entries: entries}, nil
}

// OpenFile opens the named file as a ZIP archive. Closing the archive closes
// the file.
func OpenFile(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	src, err := newFileSource(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	a, err := Open(src)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the byte source. Files opened from the archive must not be
// used afterwards.
func (a *Archive) Close() error {
	if c, ok := a.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Size returns the total size of the underlying byte source in bytes.
func (a *Archive) Size() int64 { return a.size }

// EntryCount returns the number of entries in central-directory order.
func (a *Archive) EntryCount() int { return len(a.entries) }

// Entry returns the entry at index i (central-directory order).
func (a *Archive) Entry(i int) (*Entry, error) {
	if i < 0 || i >= len(a.entries) {
		return nil, fmt.Errorf("%w: entry index %d out of range [0, %d)", ErrInvalidArgument, i, len(a.entries))
	}
	return &a.entries[i], nil
}

// FindEntry returns the first entry with the given name. ZIP does not enforce
// unique names; when duplicates exist, the one with the lowest directory
// index wins.
func (a *Archive) FindEntry(name string) (*Entry, error) {
	for i := range a.entries {
		if a.entries[i].Name == name {
			return &a.entries[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// OpenEntry opens e for reading. It fails with ErrCompressed, allocating no
// reader, unless the entry is stored without compression. The payload offset
// is resolved from the local file header on the entry's first open and
// memoized for later opens.
//
// Multiple files may be open concurrently, including over the same entry;
// each has an independent cursor.
func (a *Archive) OpenEntry(e *Entry) (*File, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: nil entry", ErrInvalidArgument)
	}
	if e.Method != Store {
		return nil, fmt.Errorf("%w: %q uses method %d", ErrCompressed, e.Name, e.Method)
	}

	dataOffset, err := e.resolveDataOffset(a.src)
	if err != nil {
		return nil, err
	}

	return &File{src: a.src, entry: e, dataOffset: dataOffset}, nil
}

// OpenName opens the first entry with the given name for reading.
func (a *Archive) OpenName(name string) (*File, error) {
	e, err := a.FindEntry(name)
	if err != nil {
		return nil, err
	}
	return a.OpenEntry(e)
}
