package ziprand

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomComment(n int) string {
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		sb.WriteByte(alphabet[rand.Intn(len(alphabet))])
	}
	return sb.String()
}

func TestFindDirectory(t *testing.T) {
	files := []storedFile{
		{name: "a.txt", data: []byte("aaa")},
		{name: "b.txt", data: []byte("bbbbbb")},
		{name: "c.txt", data: []byte("c")},
	}

	tests := []struct {
		name          string
		commentLength int
	}{
		{name: "no comment", commentLength: 0},
		{name: "short comment", commentLength: 100},
		{name: "one chunk", commentLength: 4 * 1024},
		{name: "two chunks", commentLength: 12 * 1024},
		{name: "many chunks", commentLength: 48 * 1024},
		{name: "longest comment", commentLength: 65535},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := buildStored(t, randomComment(tt.commentLength), files)

			dir, err := findDirectory(NewBytesSource(data))
			require.NoError(t, err)
			assert.Equal(t, uint64(len(files)), dir.count)

			entries, err := readDirectory(NewBytesSource(data), dir)
			require.NoError(t, err)
			require.Len(t, entries, len(files))
			for i, f := range files {
				assert.Equal(t, f.name, entries[i].Name)
			}
		})
	}
}

// TestFindDirectory_ChunkBoundary pins the EOCD signature around the backward
// scan's internal chunk boundary, including positions where the 4 signature
// bytes straddle two chunks.
func TestFindDirectory_ChunkBoundary(t *testing.T) {
	files := []storedFile{{name: "x", data: []byte("x")}}

	for commentLength := eocdScanChunkLen - eocdFixedLen - 5; commentLength <= eocdScanChunkLen-eocdFixedLen+5; commentLength++ {
		t.Run(fmt.Sprintf("comment length %d", commentLength), func(t *testing.T) {
			data := buildStored(t, randomComment(commentLength), files)

			dir, err := findDirectory(NewBytesSource(data))
			require.NoError(t, err)
			assert.Equal(t, uint64(1), dir.count)
		})
	}
}

func TestFindDirectory_NoSignature(t *testing.T) {
	_, err := findDirectory(NewBytesSource(make([]byte, 128*1024)))
	assert.ErrorIs(t, err, ErrFormat)
}

// A stray signature in the final 21 bytes cannot be a real EOCD because the
// fixed record would run past the end of the source.
func TestFindDirectory_TruncatedRecord(t *testing.T) {
	data := make([]byte, 1024)
	data[1020] = 0x50
	data[1021] = 0x4b
	data[1022] = 0x05
	data[1023] = 0x06

	_, err := findDirectory(NewBytesSource(data))
	assert.ErrorIs(t, err, ErrFormat)
}

func TestFindDirectory_DirectoryOffsetPastEnd(t *testing.T) {
	data := buildStored(t, "", []storedFile{{name: "x", data: []byte("x")}})

	// stamp an out-of-range directory offset into the EOCD.
	eocd := data[len(data)-eocdFixedLen:]
	eocd[16] = 0xfe
	eocd[17] = 0xff
	eocd[18] = 0xff
	eocd[19] = 0x7f

	_, err := findDirectory(NewBytesSource(data))
	assert.ErrorIs(t, err, ErrFormat)
}
