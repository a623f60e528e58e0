package ziprand

import "fmt"

const (
	cdHeaderSignature = 0x02014b50
	cdHeaderLen       = 46

	// zip64ExtraTag marks the extended-information extra sub-record that
	// carries 64-bit replacements for sentinel 32-bit fields.
	zip64ExtraTag = 0x0001

	sentinel32 = 0xffffffff
)

// readDirectory walks the central directory sequentially and decodes dir.count
// entries. Any failure aborts the whole walk.
func readDirectory(src ByteSource, dir directory) ([]Entry, error) {
	// every record needs at least its 46-byte fixed prefix, which bounds how
	// many entries can honestly fit between the directory start and the end
	// of the source. A count beyond that is a lie, not an allocation request.
	if maxEntries := (uint64(src.Size()) - dir.offset) / cdHeaderLen; dir.count > maxEntries {
		return nil, fmt.Errorf("%w: directory claims %d entries but at most %d fit", ErrFormat, dir.count, maxEntries)
	}

	entries := make([]Entry, dir.count)
	offset := dir.offset
	for i := range entries {
		n, err := readDirectoryEntry(src, offset, &entries[i])
		if err != nil {
			return nil, fmt.Errorf("central directory entry %d: %w", i, err)
		}
		offset += n
	}
	return entries, nil
}

// readDirectoryEntry decodes the central directory record at offset into e and
// returns the record's total length, including its variable-length tail.
func readDirectoryEntry(src ByteSource, offset uint64, e *Entry) (uint64, error) {
	hdr := make([]byte, cdHeaderLen)
	if err := readFullAt(src, hdr, offset); err != nil {
		return 0, err
	}

	b := readBuf(hdr)
	if b.uint32() != cdHeaderSignature {
		return 0, fmt.Errorf("%w: bad central directory signature at offset 0x%x", ErrFormat, offset)
	}

	e.Method = b.skip(6).uint16()
	compressed := b.skip(8).uint32()
	uncompressed := b.uint32()
	nameLen := uint64(b.uint16())
	extraLen := uint64(b.uint16())
	commentLen := uint64(b.uint16())
	headerOffset := b.skip(8).uint32()

	name := make([]byte, nameLen)
	if err := readFullAt(src, name, offset+cdHeaderLen); err != nil {
		return 0, fmt.Errorf("read entry name: %w", err)
	}
	e.Name = string(name)

	e.CompressedSize = uint64(compressed)
	e.UncompressedSize = uint64(uncompressed)
	e.HeaderOffset = uint64(headerOffset)

	// Sentinel 32-bit fields signal that the real values live in the ZIP64
	// extra sub-record; the extra field is read only in that case.
	if compressed == sentinel32 || uncompressed == sentinel32 || headerOffset == sentinel32 {
		extra := make([]byte, extraLen)
		if err := readFullAt(src, extra, offset+cdHeaderLen+nameLen); err != nil {
			return 0, fmt.Errorf("read entry extra field: %w", err)
		}
		promoteZip64(extra, compressed, uncompressed, headerOffset, e)
	}

	return cdHeaderLen + nameLen + extraLen + commentLen, nil
}

// promoteZip64 replaces sentinel fields of e with the 64-bit values found in
// the first 0x0001 extra sub-record. Within the sub-record the values appear
// in fixed order (uncompressed size, compressed size, header offset) and each
// is present only when its 32-bit counterpart carried the sentinel; values the
// sub-record is too short to hold keep their 32-bit reading.
func promoteZip64(extra []byte, compressed, uncompressed, headerOffset uint32, e *Entry) {
	for b := readBuf(extra); len(b) >= 4; {
		tag := b.uint16()
		size := int(b.uint16())
		if size > len(b) {
			return
		}

		field := b.sub(size)
		if tag != zip64ExtraTag {
			continue
		}

		if uncompressed == sentinel32 && len(field) >= 8 {
			e.UncompressedSize = field.uint64()
		}
		if compressed == sentinel32 && len(field) >= 8 {
			e.CompressedSize = field.uint64()
		}
		if headerOffset == sentinel32 && len(field) >= 8 {
			e.HeaderOffset = field.uint64()
		}

		// Archives should not repeat the tag; if one does, only the
		// first occurrence is honored.
		return
	}
}
