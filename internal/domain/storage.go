package domain

import (
	"context"
	"errors"
	"io"
	"time"
)

// Blob describes a single object returned by a container listing.
type Blob struct {
	Name         string
	Size         int64
	LastModified time.Time
}

type Container struct {
	Name string
}

// BlobStore is the storage API surface the uploader and sweeper consume.
// Listing operations return every entry; implementations drain the
// provider's pagination before returning.
type BlobStore interface {
	ListContainers(ctx context.Context) ([]Container, error)
	ListBlobs(ctx context.Context, container string) ([]Blob, error)
	UploadFile(ctx context.Context, container, blobName, localPath string) error
	UploadStream(ctx context.Context, container, blobName string, r io.Reader) error
	DeleteBlob(ctx context.Context, container, blobName string) error
	URL(container, blobName string) string
}

// ErrNotFound marks a missing blob or container. Adapters wrap provider
// errors with it so callers can test with errors.Is.
var ErrNotFound = errors.New("not found")
