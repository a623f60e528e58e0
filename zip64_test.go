package ziprand

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// zip64Fixture hand-assembles a single-entry archive that routes through the
// ZIP64 locator: the central directory record carries sentinel size/offset
// fields promoted by a 0x0001 extra sub-record, and the EOCD carries the
// sentinel directory offset.
func zip64Fixture(name string, data []byte) []byte {
	var b []byte
	u16 := func(v uint16) { b = binary.LittleEndian.AppendUint16(b, v) }
	u32 := func(v uint32) { b = binary.LittleEndian.AppendUint32(b, v) }
	u64 := func(v uint64) { b = binary.LittleEndian.AppendUint64(b, v) }

	// local file header and payload
	u32(localHeaderSignature)
	u16(45) // version needed
	u16(0)  // flags
	u16(0)  // method: stored
	u16(0)  // mod time
	u16(0)  // mod date
	u32(0)  // crc-32
	u32(uint32(len(data)))
	u32(uint32(len(data)))
	u16(uint16(len(name)))
	u16(0) // extra length
	b = append(b, name...)
	b = append(b, data...)

	// central directory record with sentinel fields
	cdOffset := uint64(len(b))
	u32(cdHeaderSignature)
	u16(45) // version made by
	u16(45) // version needed
	u16(0)  // flags
	u16(0)  // method: stored
	u16(0)  // mod time
	u16(0)  // mod date
	u32(0)  // crc-32
	u32(sentinel32)
	u32(sentinel32)
	u16(uint16(len(name)))
	u16(28) // extra length
	u16(0)  // comment length
	u16(0)  // disk number start
	u16(0)  // internal attributes
	u32(0)  // external attributes
	u32(sentinel32)
	b = append(b, name...)
	u16(zip64ExtraTag)
	u16(24)
	u64(uint64(len(data))) // uncompressed size
	u64(uint64(len(data))) // compressed size
	u64(0)                 // local header offset
	cdSize := uint64(len(b)) - cdOffset

	// zip64 EOCD record
	zip64Offset := uint64(len(b))
	u32(zip64EOCDSignature)
	u64(44) // size of remaining record
	u16(45) // version made by
	u16(45) // version needed
	u32(0)  // disk number
	u32(0)  // directory start disk
	u64(1)  // entries on this disk
	u64(1)  // entries total
	u64(cdSize)
	u64(cdOffset)

	// zip64 EOCD locator
	u32(zip64LocatorSignature)
	u32(0) // directory start disk
	u64(zip64Offset)
	u32(1) // total disks

	// EOCD: the 16-bit counts are sentinels too, so the values must come
	// from the zip64 record, never from here.
	u32(eocdSignature)
	u16(0)
	u16(0)
	u16(0xffff)
	u16(0xffff)
	u32(uint32(cdSize))
	u32(sentinel32)
	u16(0) // comment length

	return b
}

func TestOpen_Zip64(t *testing.T) {
	want := []byte("sixty-four bit plumbing, eight bit payload")
	data := zip64Fixture("big/blob.bin", want)

	a, err := Open(NewBytesSource(data))
	require.NoError(t, err)
	defer a.Close()

	require.Equal(t, 1, a.EntryCount())

	e, err := a.Entry(0)
	require.NoError(t, err)
	assert.Equal(t, "big/blob.bin", e.Name)
	assert.Equal(t, uint64(len(want)), e.UncompressedSize)
	assert.Equal(t, uint64(len(want)), e.CompressedSize)
	assert.Equal(t, uint64(0), e.HeaderOffset)

	f, err := a.OpenEntry(e)
	require.NoError(t, err)
	defer f.Close()

	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

// An archive whose EOCD carries the sentinel directory offset must resolve
// through the zip64 locator; a corrupted locator is a malformed archive,
// never a silent fall back to the 32-bit value.
func TestOpen_Zip64CorruptLocator(t *testing.T) {
	data := zip64Fixture("a", []byte("abc"))

	locator := len(data) - eocdFixedLen - zip64LocatorLen
	for i := 0; i < 4; i++ {
		data[locator+i] = 0
	}

	_, err := Open(NewBytesSource(data))
	assert.ErrorIs(t, err, ErrFormat)
}

func TestOpen_Zip64CorruptRecordSignature(t *testing.T) {
	data := zip64Fixture("a", []byte("abc"))

	locator := len(data) - eocdFixedLen - zip64LocatorLen
	zip64Offset := binary.LittleEndian.Uint64(data[locator+8:])
	data[zip64Offset] ^= 0xff

	_, err := Open(NewBytesSource(data))
	assert.ErrorIs(t, err, ErrFormat)
}

// Only the first 0x0001 sub-record is honored, and replacement values are
// consumed only for fields that carried the sentinel.
func TestPromoteZip64(t *testing.T) {
	u16 := func(b []byte, v uint16) []byte { return binary.LittleEndian.AppendUint16(b, v) }
	u64 := func(b []byte, v uint64) []byte { return binary.LittleEndian.AppendUint64(b, v) }

	t.Run("partial promotion", func(t *testing.T) {
		// only the uncompressed size was a sentinel; the sub-record
		// holds exactly one value.
		var extra []byte
		extra = u16(extra, zip64ExtraTag)
		extra = u16(extra, 8)
		extra = u64(extra, 1<<40)

		e := &Entry{CompressedSize: 100, UncompressedSize: uint64(sentinel32), HeaderOffset: 7}
		promoteZip64(extra, 100, sentinel32, 7, e)
		assert.Equal(t, uint64(1<<40), e.UncompressedSize)
		assert.Equal(t, uint64(100), e.CompressedSize)
		assert.Equal(t, uint64(7), e.HeaderOffset)
	})

	t.Run("first tag wins", func(t *testing.T) {
		var extra []byte
		extra = u16(extra, zip64ExtraTag)
		extra = u16(extra, 8)
		extra = u64(extra, 111)
		extra = u16(extra, zip64ExtraTag)
		extra = u16(extra, 8)
		extra = u64(extra, 222)

		e := &Entry{UncompressedSize: uint64(sentinel32)}
		promoteZip64(extra, 0, sentinel32, 0, e)
		assert.Equal(t, uint64(111), e.UncompressedSize)
	})

	t.Run("foreign tags skipped", func(t *testing.T) {
		var extra []byte
		extra = u16(extra, 0x5455) // extended timestamp
		extra = u16(extra, 8)
		extra = u64(extra, 0)
		extra = u16(extra, zip64ExtraTag)
		extra = u16(extra, 8)
		extra = u64(extra, 333)

		e := &Entry{UncompressedSize: uint64(sentinel32)}
		promoteZip64(extra, 0, sentinel32, 0, e)
		assert.Equal(t, uint64(333), e.UncompressedSize)
	})

	t.Run("truncated sub-record leaves sentinel", func(t *testing.T) {
		var extra []byte
		extra = u16(extra, zip64ExtraTag)
		extra = u16(extra, 4)
		extra = append(extra, 1, 2, 3, 4)

		e := &Entry{UncompressedSize: uint64(sentinel32)}
		promoteZip64(extra, 0, sentinel32, 0, e)
		assert.Equal(t, uint64(sentinel32), e.UncompressedSize)
	})
}
