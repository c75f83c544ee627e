// Package storage holds the BlobStore contract and its backends: an
// S3-compatible object store and an in-process map for local runs and tests.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docgate/docgate/internal/server/models"
)

// ByteRange is an inclusive byte interval of an object.
type ByteRange struct {
	Start int64
	End   int64
}

// Length is the number of bytes covered by r.
func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

// Header renders r as an HTTP Range header value.
func (r ByteRange) Header() string {
	return fmt.Sprintf("bytes=%d-%d", r.Start, r.End)
}

// BlobStore is the object store behind the document gateway. Names are passed
// through verbatim; callers sanitize them first. Operations on a missing
// object return common.ErrorNotFound, except Exists and Delete.
type BlobStore interface {
	Exists(ctx context.Context, name string) (bool, error)
	Metadata(ctx context.Context, name string) (*models.BlobMetadata, error)
	SignedURL(ctx context.Context, name string, expiry time.Duration) (string, error)
	// OpenReader streams the object, or only rng of it when rng is not nil.
	OpenReader(ctx context.Context, name string, rng *ByteRange) (io.ReadCloser, error)
	Write(ctx context.Context, name, contentType string, r io.Reader, size int64) error
	Delete(ctx context.Context, name string) error
	List(ctx context.Context, prefix string) ([]models.BlobReference, error)
}
