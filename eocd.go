package ziprand

import (
	"encoding/binary"
	"fmt"
)

const (
	eocdSignature         = 0x06054b50
	zip64EOCDSignature    = 0x06064b50
	zip64LocatorSignature = 0x07064b50

	eocdFixedLen    = 22
	zip64LocatorLen = 20
	zip64EOCDLen    = 56

	maxCommentLen = 0xffff

	// eocdScanChunkLen bounds how much of the trailer is read per ReadAt
	// while searching backward for the EOCD signature.
	eocdScanChunkLen = 8 * 1024
)

// directory is what the locator resolves: where the central directory starts
// and how many entries it holds.
type directory struct {
	offset uint64
	count  uint64
}

// findDirectory locates the end-of-central-directory record, following the
// ZIP64 locator when the archive uses one, and returns the central directory
// offset and entry count.
func findDirectory(src ByteSource) (directory, error) {
	size := src.Size()
	if size < eocdFixedLen {
		return directory{}, fmt.Errorf("%w: %d bytes is too small for an archive", ErrFormat, size)
	}

	// The EOCD can be at most 22 + 65535 bytes from the end (fixed record
	// plus the longest possible trailing comment).
	window := int64(eocdFixedLen + maxCommentLen)
	if size < window {
		window = size
	}
	low := size - window

	// Scan the window backward in bounded chunks. Every chunk extends 3
	// bytes past its upper bound so a signature straddling two chunks is
	// still seen.
	eocdOffset := int64(-1)
	buf := make([]byte, eocdScanChunkLen+3)
scan:
	for high := size; high > low; {
		start := high - eocdScanChunkLen
		if start < low {
			start = low
		}
		end := high + 3
		if end > size {
			end = size
		}

		b := buf[:end-start]
		if err := readFullAt(src, b, uint64(start)); err != nil {
			return directory{}, fmt.Errorf("find EOCD: %w", err)
		}

		for i := len(b) - 4; i >= 0; i-- {
			if binary.LittleEndian.Uint32(b[i:]) == eocdSignature && start+int64(i)+eocdFixedLen <= size {
				eocdOffset = start + int64(i)
				break scan
			}
		}

		high = start
	}
	if eocdOffset < 0 {
		return directory{}, fmt.Errorf("%w: end of central directory not found", ErrFormat)
	}

	// Re-read the fixed record directly: the count and offset fields may
	// fall outside the chunk the signature was found in.
	rec := make([]byte, eocdFixedLen)
	if err := readFullAt(src, rec, uint64(eocdOffset)); err != nil {
		return directory{}, fmt.Errorf("read EOCD record: %w", err)
	}

	b := readBuf(rec[10:])
	dir := directory{count: uint64(b.uint16())}
	cdOffset32 := b.skip(4).uint32()

	if cdOffset32 == sentinel32 {
		var err error
		if dir, err = findZip64Directory(src, uint64(eocdOffset)); err != nil {
			return directory{}, err
		}
	} else {
		dir.offset = uint64(cdOffset32)
	}

	if dir.offset >= uint64(size) {
		return directory{}, fmt.Errorf("%w: central directory offset 0x%x past end of source", ErrFormat, dir.offset)
	}
	return dir, nil
}

// findZip64Directory resolves the ZIP64 EOCD record through the locator that
// sits immediately before the ordinary EOCD. Its 64-bit entry count and
// directory offset supersede the 16/32-bit values.
func findZip64Directory(src ByteSource, eocdOffset uint64) (directory, error) {
	// The locator needs 16 bytes from its signature to the end of the
	// record-offset field; probe the 20 bytes preceding the EOCD for it.
	probeLen := uint64(zip64LocatorLen)
	if eocdOffset < probeLen {
		probeLen = eocdOffset
	}
	if probeLen < 16 {
		return directory{}, fmt.Errorf("%w: no room for zip64 locator before EOCD", ErrFormat)
	}

	probe := make([]byte, probeLen)
	if err := readFullAt(src, probe, eocdOffset-probeLen); err != nil {
		return directory{}, fmt.Errorf("read zip64 locator: %w", err)
	}

	recOffset, found := uint64(0), false
	for i := 0; i+16 <= len(probe); i++ {
		if binary.LittleEndian.Uint32(probe[i:]) == zip64LocatorSignature {
			recOffset = binary.LittleEndian.Uint64(probe[i+8:])
			found = true
			break
		}
	}
	if !found {
		return directory{}, fmt.Errorf("%w: zip64 locator not found", ErrFormat)
	}

	rec := make([]byte, zip64EOCDLen)
	if err := readFullAt(src, rec, recOffset); err != nil {
		return directory{}, fmt.Errorf("read zip64 EOCD record: %w", err)
	}

	b := readBuf(rec)
	if b.uint32() != zip64EOCDSignature {
		return directory{}, fmt.Errorf("%w: bad zip64 EOCD signature", ErrFormat)
	}
	count := b.skip(28).uint64()
	offset := b.skip(8).uint64()

	return directory{offset: offset, count: count}, nil
}
