package models

import "time"

// BlobReference is a view over an object held in the blob store.
type BlobReference struct {
	Name         string
	Size         int64
	LastModified time.Time
}

// BlobMetadata is what the store reports about a single object.
type BlobMetadata struct {
	ContentType  string
	Size         int64
	LastModified time.Time
}

// BulkDeleteError records why one name in a bulk delete failed.
type BulkDeleteError struct {
	Name   string
	Reason string
}

// BulkDeleteResult partitions the names of a bulk delete by outcome.
// Slices are never nil so they encode as [] rather than null.
type BulkDeleteResult struct {
	Deleted  []string
	NotFound []string
	Errors   []BulkDeleteError
}

// NewBulkDeleteResult returns an empty result.
func NewBulkDeleteResult() *BulkDeleteResult {
	return &BulkDeleteResult{
		Deleted:  []string{},
		NotFound: []string{},
		Errors:   []BulkDeleteError{},
	}
}

// SignedURL is a time-limited, pre-authorized read link.
type SignedURL struct {
	URL       string
	ExpiresAt time.Time
}
