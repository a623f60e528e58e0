// Package httpsource implements a ziprand.ByteSource on top of HTTP range
// requests, so remote archives can be inspected without downloading them.
//
// Servers without range support are handled by httpreaderat's backing store
// fallback, which spools the response body instead of failing.
package httpsource

import (
	"fmt"
	"net/http"

	bufra "github.com/avvmoto/buf-readerat"
	"github.com/rhythmcache/ziprand"
	"github.com/snabb/httpreaderat"
)

// DefaultBufferSize is the default value for Options.BufferSize.
const DefaultBufferSize = 1024 * 1024

// Options customises New.
type Options struct {
	// BufferSize provides buffered read-ahead so that the many small
	// structural reads of a directory walk don't each become an HTTP
	// request.
	//
	// By default, DefaultBufferSize is used. Pass zero or a negative value
	// to disable buffering.
	BufferSize int
}

// Source reads a remote resource by HTTP range requests.
type Source struct {
	r     *httpreaderat.HTTPReaderAt
	buf   *bufra.BufReaderAt
	store httpreaderat.Store
	size  int64
}

var _ ziprand.ByteSource = (*Source)(nil)

// New returns a Source for the given request. The request must be a GET; the
// resource's size is taken from the initial response.
//
// If client is nil, http.DefaultClient is used. Close releases the backing
// store used for servers without range support.
func New(client *http.Client, req *http.Request, optFns ...func(*Options)) (*Source, error) {
	opts := &Options{BufferSize: DefaultBufferSize}
	for _, fn := range optFns {
		fn(opts)
	}

	store := httpreaderat.NewDefaultStore()
	r, err := httpreaderat.New(client, req, store)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("probe %s error: %w", req.URL, err)
	}

	s := &Source{r: r, store: store, size: r.Size()}
	if opts.BufferSize > 0 {
		s.buf = bufra.NewBufReaderAt(r, opts.BufferSize)
	}
	return s, nil
}

// Size returns the resource's size from the initial response.
func (s *Source) Size() int64 { return s.size }

// ReadAt implements io.ReaderAt over HTTP range requests.
func (s *Source) ReadAt(p []byte, off int64) (int, error) {
	if s.buf != nil {
		return s.buf.ReadAt(p, off)
	}
	return s.r.ReadAt(p, off)
}

// Close releases the backing store.
func (s *Source) Close() error { return s.store.Close() }
