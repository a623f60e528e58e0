// Package sources resolves command-line archive arguments (a local path, an
// s3:// URI, or an http(s):// URL) into byte sources.
package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rhythmcache/ziprand"
	"github.com/rhythmcache/ziprand/httpsource"
	"github.com/rhythmcache/ziprand/s3source"
)

// Open resolves uri into a ByteSource. Anything that is not an s3:// or
// http(s):// URI is treated as a local file path.
//
// The returned source implements io.Closer where there is something to
// release, so handing it to ziprand.Open ties its lifetime to the archive.
func Open(ctx context.Context, uri string) (ziprand.ByteSource, error) {
	switch {
	case strings.HasPrefix(uri, "s3://"):
		return openS3(ctx, uri)
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		return openHTTP(ctx, uri)
	default:
		return openFile(uri)
	}
}

func openS3(ctx context.Context, uri string) (ziprand.ByteSource, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("parse %q error: %w", uri, err)
	}
	bucket, key := u.Host, strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("%q is not a valid s3://bucket/key URI", uri)
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load default config error: %w", err)
	}

	return s3source.New(s3.NewFromConfig(cfg), bucket, key, func(opts *s3source.Options) {
		opts.CtxFn = func() context.Context { return ctx }
	})
}

func openHTTP(ctx context.Context, uri string) (ziprand.ByteSource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("create request for %q error: %w", uri, err)
	}
	return httpsource.New(nil, req)
}

func openFile(path string) (ziprand.ByteSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %q error: %w", path, err)
	}

	return ziprand.NewReaderAtSource(f, fi.Size()), nil
}
