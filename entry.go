package ziprand

import (
	"fmt"
	"sync/atomic"
)

// Compression methods.
const (
	Store   uint16 = 0 // no compression
	Deflate uint16 = 8 // DEFLATE compressed; listed but never readable here
)

const (
	localHeaderSignature = 0x04034b50
	localHeaderLen       = 30
)

// Entry describes one file in the archive. Entries are owned by the Archive
// and handed out by pointer; they stay valid for the archive's lifetime.
//
// Names are recorded as raw bytes from the central directory and are not
// guaranteed unique within an archive.
type Entry struct {
	Name string

	// Method is the compression method. Only Store entries can be opened
	// for reading.
	Method uint16

	CompressedSize   uint64
	UncompressedSize uint64

	// HeaderOffset is where the entry's local file header starts.
	HeaderOffset uint64

	// dataOffset memoizes where the payload starts, 0 meaning unresolved:
	// a payload is always preceded by at least the 30-byte local header,
	// so 0 is never a valid payload offset.
	dataOffset atomic.Uint64
}

// resolveDataOffset returns the payload start offset, reading the local file
// header on first use. Concurrent first uses may both read the header; they
// compute the same value, and the memoizing store is atomic.
//
// The local header's own name/extra lengths drive the offset even when they
// disagree with the central directory copy, matching how archives with
// diverging headers are laid out on disk.
func (e *Entry) resolveDataOffset(src ByteSource) (uint64, error) {
	if off := e.dataOffset.Load(); off != 0 {
		return off, nil
	}

	hdr := make([]byte, localHeaderLen)
	if err := readFullAt(src, hdr, e.HeaderOffset); err != nil {
		return 0, fmt.Errorf("read local header of %q: %w", e.Name, err)
	}

	b := readBuf(hdr)
	if b.uint32() != localHeaderSignature {
		return 0, fmt.Errorf("%w: bad local header signature at offset 0x%x", ErrFormat, e.HeaderOffset)
	}
	nameLen := uint64(b.skip(22).uint16())
	extraLen := uint64(b.uint16())

	off := e.HeaderOffset + localHeaderLen + nameLen + extraLen
	e.dataOffset.Store(off)
	return off, nil
}
