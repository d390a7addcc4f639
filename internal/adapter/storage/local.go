package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/semmidev/blobber/internal/domain"
)

// LocalStorage keeps containers as directories under basePath and blobs as
// files beneath them. Blob names may contain "/" and map to subdirectories.
type LocalStorage struct {
	basePath string
}

func NewLocal(basePath string) (*LocalStorage, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage path: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{basePath: abs}, nil
}

func (l *LocalStorage) blobPath(container, blobName string) (string, error) {
	if container == "" || strings.ContainsAny(container, `/\`) || container == "." || container == ".." {
		return "", fmt.Errorf("invalid container name %q", container)
	}
	clean := filepath.Clean(filepath.FromSlash(blobName))
	if blobName == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid blob name %q", blobName)
	}
	return filepath.Join(l.basePath, container, clean), nil
}

func (l *LocalStorage) ListContainers(ctx context.Context) ([]domain.Container, error) {
	entries, err := os.ReadDir(l.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var containers []domain.Container
	for _, entry := range entries {
		if entry.IsDir() {
			containers = append(containers, domain.Container{Name: entry.Name()})
		}
	}
	return containers, nil
}

func (l *LocalStorage) ListBlobs(ctx context.Context, container string) ([]domain.Blob, error) {
	root := filepath.Join(l.basePath, container)
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("failed to open container %s: %w", container, err)
	}

	var blobs []domain.Blob
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		blobs = append(blobs, domain.Blob{
			Name:         filepath.ToSlash(rel),
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list container %s: %w", container, err)
	}

	sort.Slice(blobs, func(i, j int) bool { return blobs[i].Name < blobs[j].Name })
	return blobs, nil
}

func (l *LocalStorage) UploadFile(ctx context.Context, container, blobName, localPath string) error {
	source, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer source.Close()

	return l.UploadStream(ctx, container, blobName, source)
}

func (l *LocalStorage) UploadStream(ctx context.Context, container, blobName string, r io.Reader) error {
	destPath, err := l.blobPath(container, blobName)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create blob directory: %w", err)
	}

	dest, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create dest: %w", err)
	}

	if _, err := io.Copy(dest, r); err != nil {
		dest.Close()
		return fmt.Errorf("failed to copy: %w", err)
	}
	if err := dest.Close(); err != nil {
		return fmt.Errorf("failed to close dest: %w", err)
	}
	return nil
}

func (l *LocalStorage) DeleteBlob(ctx context.Context, container, blobName string) error {
	path, err := l.blobPath(container, blobName)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to delete file: %w: %w", domain.ErrNotFound, err)
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (l *LocalStorage) URL(container, blobName string) string {
	u := url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(filepath.Join(l.basePath, container, filepath.FromSlash(blobName))),
	}
	return u.String()
}

var _ domain.BlobStore = (*LocalStorage)(nil)
