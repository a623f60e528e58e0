// Package s3source implements a ziprand.ByteSource on top of ranged S3
// GetObject calls, so ZIP directory metadata and stored payloads can be read
// from an object without downloading it.
package s3source

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rhythmcache/ziprand"
)

// Client abstracts the S3 APIs needed to implement a byte source.
type Client interface {
	GetObject(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Options customises New.
type Options struct {
	// CtxFn returns a context.Context to be used with every GetObject or
	// HeadObject call.
	//
	// By default, context.Background is used.
	CtxFn func() context.Context

	// ModifyGetObjectInput can be used to modify the GetObject input
	// parameters such as adding ExpectedBucketOwner.
	//
	// Its return value will be used to make the GetObject call.
	ModifyGetObjectInput func(*s3.GetObjectInput) *s3.GetObjectInput

	// ModifyHeadObjectInput can be used to modify the HeadObject input
	// parameters such as adding ExpectedBucketOwner.
	//
	// Its return value will be used to make the HeadObject call.
	ModifyHeadObjectInput func(*s3.HeadObjectInput) *s3.HeadObjectInput
}

// Source reads an S3 object by ranged GetObject. ReadAt calls are independent
// of each other, so concurrent reads are safe.
type Source struct {
	client               Client
	bucket, key          string
	size                 int64
	ctxFn                func() context.Context
	modifyGetObjectInput func(*s3.GetObjectInput) *s3.GetObjectInput
}

var _ ziprand.ByteSource = (*Source)(nil)

// New returns a Source for the given bucket and key.
//
// The object's size is determined once with HeadObject.
func New(client Client, bucket, key string, optFns ...func(*Options)) (*Source, error) {
	opts := &Options{
		CtxFn: context.Background,
		ModifyGetObjectInput: func(input *s3.GetObjectInput) *s3.GetObjectInput {
			return input
		},
		ModifyHeadObjectInput: func(input *s3.HeadObjectInput) *s3.HeadObjectInput {
			return input
		},
	}
	for _, fn := range optFns {
		fn(opts)
	}

	headObjectOutput, err := client.HeadObject(opts.CtxFn(), opts.ModifyHeadObjectInput(&s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}))
	if err != nil {
		return nil, fmt.Errorf("head s3://%s/%s error: %w", bucket, key, err)
	}

	return &Source{
		client:               client,
		bucket:               bucket,
		key:                  key,
		size:                 aws.ToInt64(headObjectOutput.ContentLength),
		ctxFn:                opts.CtxFn,
		modifyGetObjectInput: opts.ModifyGetObjectInput,
	}, nil
}

// Size returns the object's size from the initial HeadObject.
func (s *Source) Size() int64 { return s.size }

// ReadAt implements io.ReaderAt with a single ranged GetObject. The range is
// clipped to the object's size before the request is made; a read starting at
// or past the end returns (0, io.EOF) without a network call.
func (s *Source) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("s3source: negative offset %d", off)
	}
	if off >= s.size {
		return 0, io.EOF
	}

	want := len(p)
	if remaining := s.size - off; int64(want) > remaining {
		want = int(remaining)
	}
	if want == 0 {
		return 0, nil
	}

	getObjectOutput, err := s.client.GetObject(s.ctxFn(), s.modifyGetObjectInput(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, off+int64(want)-1)),
	}))
	if err != nil {
		return 0, fmt.Errorf("get s3://%s/%s error: %w", s.bucket, s.key, err)
	}

	n, err := io.ReadFull(getObjectOutput.Body, p[:want])
	_ = getObjectOutput.Body.Close()
	if err != nil {
		return n, fmt.Errorf("read s3://%s/%s body error: %w", s.bucket, s.key, err)
	}
	if want < len(p) {
		return n, io.EOF
	}
	return n, nil
}
