package ziprand

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// ByteSource provides positional access to the raw bytes of an archive.
//
// Implementations must not keep an implicit cursor: ReadAt calls from
// concurrent callers are independent of each other. A read that starts at or
// past the end of the source returns 0 bytes and io.EOF. The size is fixed
// for the lifetime of the source.
//
// If a ByteSource also implements io.Closer, Archive.Close closes it.
type ByteSource interface {
	io.ReaderAt
	Size() int64
}

// NewBytesSource returns a ByteSource reading from b. The caller must not
// mutate b while the source is in use.
func NewBytesSource(b []byte) ByteSource {
	return &bytesSource{r: bytes.NewReader(b), size: int64(len(b))}
}

type bytesSource struct {
	r    *bytes.Reader
	size int64
}

func (s *bytesSource) ReadAt(p []byte, off int64) (int, error) { return s.r.ReadAt(p, off) }

func (s *bytesSource) Size() int64 { return s.size }

// NewReaderAtSource adapts an io.ReaderAt with a known size into a
// ByteSource. If r also implements io.Closer, closing the archive closes r.
func NewReaderAtSource(r io.ReaderAt, size int64) ByteSource {
	return &readerAtSource{r: r, size: size}
}

type readerAtSource struct {
	r    io.ReaderAt
	size int64
}

func (s *readerAtSource) ReadAt(p []byte, off int64) (int, error) { return s.r.ReadAt(p, off) }

func (s *readerAtSource) Size() int64 { return s.size }

func (s *readerAtSource) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// fileSource wraps *os.File, which has ReadAt but no size query, so the size
// is taken from a single Stat at construction.
type fileSource struct {
	f    *os.File
	size int64
}

func newFileSource(f *os.File) (*fileSource, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %q: %w", f.Name(), err)
	}
	return &fileSource{f: f, size: fi.Size()}, nil
}

func (s *fileSource) ReadAt(p []byte, off int64) (int, error) { return s.f.ReadAt(p, off) }

func (s *fileSource) Size() int64 { return s.size }

func (s *fileSource) Close() error { return s.f.Close() }

// readFullAt reads exactly len(p) bytes at off. It is used for fixed-size
// structural records, for which a short read is an I/O error, never a valid
// outcome.
func readFullAt(src ByteSource, p []byte, off uint64) error {
	if off > math.MaxInt64 {
		return fmt.Errorf("%w: offset 0x%x overflows", ErrFormat, off)
	}

	n, err := src.ReadAt(p, int64(off))
	if n == len(p) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("read %d bytes at offset %d: got %d: %w", len(p), off, n, err)
}
