package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/semmidev/blobber/internal/domain"
)

var (
	ErrNoFields        = errors.New("at least one CSV field is required")
	ErrEmptyRemoteName = errors.New("remote file path is empty")
	ErrNoCompressor    = errors.New("compression requested but no compressor configured")
)

// Uploader sends files and byte streams to one container and hands back
// the resulting blob URLs.
type Uploader struct {
	store      domain.BlobStore
	container  string
	prefix     string
	compressor domain.Compressor
	logger     Logger
	metrics    UploadMetrics
}

// NewUploader binds store and container once. prefix is joined with the
// staging file's base name for uploads that set UseFullName. compressor
// may be nil when no upload asks for compression.
func NewUploader(
	store domain.BlobStore,
	container string,
	prefix string,
	compressor domain.Compressor,
	logger Logger,
) *Uploader {
	return &Uploader{
		store:      store,
		container:  container,
		prefix:     prefix,
		compressor: compressor,
		logger:     logger,
		metrics:    nopMetrics{},
	}
}

func (u *Uploader) SetMetrics(m UploadMetrics) {
	if m != nil {
		u.metrics = m
	}
}

func (u *Uploader) Container() string {
	return u.container
}

func (u *Uploader) URL(blobName string) string {
	return u.store.URL(u.container, blobName)
}

func (u *Uploader) ListContainers(ctx context.Context) ([]domain.Container, error) {
	containers, err := u.store.ListContainers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}
	return containers, nil
}

// UploadLocalFile uploads the file at filePath in one call under its base
// name and returns the blob URL.
func (u *Uploader) UploadLocalFile(ctx context.Context, filePath string) (url string, err error) {
	start := time.Now()
	defer func() { u.metrics.ObserveUpload("file", time.Since(start), err) }()

	fullPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", filePath, err)
	}
	blobName := filepath.Base(fullPath)

	if err := u.store.UploadFile(ctx, u.container, blobName, fullPath); err != nil {
		return "", fmt.Errorf("upload %s: %w", blobName, err)
	}

	url = u.URL(blobName)
	u.logger.Infof("Uploaded %s to %s", fullPath, url)
	return url, nil
}

// StreamLocalFile copies r into the blob blobName and returns its URL once
// r is exhausted. Read errors from r fail the upload.
func (u *Uploader) StreamLocalFile(ctx context.Context, blobName string, r io.Reader) (url string, err error) {
	start := time.Now()
	defer func() { u.metrics.ObserveUpload("stream", time.Since(start), err) }()

	return u.stream(ctx, blobName, r)
}

func (u *Uploader) stream(ctx context.Context, blobName string, r io.Reader) (string, error) {
	if blobName == "" {
		return "", ErrEmptyRemoteName
	}
	if err := u.store.UploadStream(ctx, u.container, blobName, r); err != nil {
		return "", fmt.Errorf("stream %s: %w", blobName, err)
	}
	return u.URL(blobName), nil
}

// UploadOptions describes one CSV upload.
type UploadOptions[T any] struct {
	// Fields are the CSV column headers, in order.
	Fields []string
	// LocalFilePath is the staging file. When empty a temporary file is
	// used and removed afterwards.
	LocalFilePath string
	// RemoteFilePath is the blob name, ignored when UseFullName is set.
	RemoteFilePath string
	// UseFullName names the blob after the staging file's base name,
	// joined to the uploader prefix.
	UseFullName bool
	// Transform maps a record to its row. ToRow is used when nil.
	Transform func(T) (Row, error)
	// Compress gzips the staging file and appends ".gz" to the blob name.
	Compress bool
}

// Blobber buffers records of type T and uploads them as a CSV blob.
type Blobber[T any] struct {
	*Uploader

	mu      sync.Mutex
	records []T
}

func NewBlobber[T any](uploader *Uploader) *Blobber[T] {
	return &Blobber[T]{Uploader: uploader}
}

func (b *Blobber[T]) AddRecord(record T) {
	b.mu.Lock()
	b.records = append(b.records, record)
	b.mu.Unlock()
}

func (b *Blobber[T]) AddRecords(records []T) {
	b.mu.Lock()
	b.records = append(b.records, records...)
	b.mu.Unlock()
}

func (b *Blobber[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

// Reset drops every buffered record.
func (b *Blobber[T]) Reset() {
	b.mu.Lock()
	b.records = nil
	b.mu.Unlock()
}

func (b *Blobber[T]) snapshot() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]T, len(b.records))
	copy(out, b.records)
	return out
}

// CreateBlob encodes the records buffered so far into a CSV staging file,
// uploads it and returns the blob URL. Records added while CreateBlob runs
// are kept in the buffer but are not part of this upload.
func (b *Blobber[T]) CreateBlob(ctx context.Context, opts UploadOptions[T]) (url string, err error) {
	start := time.Now()
	defer func() { b.metrics.ObserveUpload("csv", time.Since(start), err) }()

	if len(opts.Fields) == 0 {
		return "", ErrNoFields
	}
	if opts.Compress && b.compressor == nil {
		return "", ErrNoCompressor
	}

	staging := opts.LocalFilePath
	if staging == "" {
		staging = filepath.Join(os.TempDir(), "blobber-"+uuid.NewString()+".csv")
		defer os.Remove(staging)
	}

	remoteName, err := b.remoteName(opts, staging)
	if err != nil {
		return "", err
	}

	transform := opts.Transform
	if transform == nil {
		transform = func(r T) (Row, error) { return ToRow(r) }
	}

	records := b.snapshot()
	size, err := writeCSV(ctx, staging, opts.Fields, records, transform)
	if err != nil {
		return "", err
	}
	b.metrics.AddStagedBytes(size)
	b.logger.Infof("Staged %d record(s) in %s (%d bytes)", len(records), staging, size)

	uploadPath := staging
	if opts.Compress {
		uploadPath = staging + ".gz"
		if err := b.compressor.Compress(staging, uploadPath); err != nil {
			return "", fmt.Errorf("compress staging file: %w", err)
		}
		defer os.Remove(uploadPath)
		remoteName += ".gz"
	}

	f, err := os.Open(uploadPath)
	if err != nil {
		return "", fmt.Errorf("open staging file: %w", err)
	}
	defer f.Close()

	url, err = b.stream(ctx, remoteName, f)
	if err != nil {
		return "", err
	}
	b.logger.Infof("Uploaded %s as %s", staging, url)
	return url, nil
}

func (b *Blobber[T]) remoteName(opts UploadOptions[T], staging string) (string, error) {
	if opts.UseFullName {
		return path.Join(b.prefix, filepath.Base(staging)), nil
	}
	if opts.RemoteFilePath == "" {
		return "", ErrEmptyRemoteName
	}
	return opts.RemoteFilePath, nil
}
