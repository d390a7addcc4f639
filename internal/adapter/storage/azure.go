package storage

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/semmidev/blobber/internal/domain"
)

// AzureBlobAPI is the subset of the Azure Blob client that AzureStorage
// uses. List methods return every page.
type AzureBlobAPI interface {
	ListContainers(ctx context.Context) ([]string, error)
	ListBlobs(ctx context.Context, containerName string) ([]domain.Blob, error)
	UploadFile(ctx context.Context, containerName, blobName string, file *os.File) error
	UploadStream(ctx context.Context, containerName, blobName string, body io.Reader) error
	DeleteBlob(ctx context.Context, containerName, blobName string) error
	BlobURL(containerName, blobName string) string
}

type AzureStorage struct {
	client AzureBlobAPI
}

// NewAzure connects with the connection string when present, otherwise
// with DefaultAzureCredential against accountURL.
func NewAzure(accountURL, connectionString string) (*AzureStorage, error) {
	client, err := newRealAzureClient(accountURL, connectionString)
	if err != nil {
		return nil, err
	}
	return &AzureStorage{client: client}, nil
}

// NewAzureWithClient is used by tests to inject a fake client.
func NewAzureWithClient(client AzureBlobAPI) *AzureStorage {
	return &AzureStorage{client: client}
}

func (a *AzureStorage) ListContainers(ctx context.Context) ([]domain.Container, error) {
	names, err := a.client.ListContainers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list Azure containers: %w", err)
	}

	containers := make([]domain.Container, 0, len(names))
	for _, name := range names {
		containers = append(containers, domain.Container{Name: name})
	}
	return containers, nil
}

func (a *AzureStorage) ListBlobs(ctx context.Context, container string) ([]domain.Blob, error) {
	blobs, err := a.client.ListBlobs(ctx, container)
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs in %s: %w", container, wrapNotFound(err))
	}
	return blobs, nil
}

func (a *AzureStorage) UploadFile(ctx context.Context, container, blobName, localPath string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if err := a.client.UploadFile(ctx, container, blobName, file); err != nil {
		return fmt.Errorf("failed to upload to Azure Blob: %w", wrapNotFound(err))
	}
	return nil
}

func (a *AzureStorage) UploadStream(ctx context.Context, container, blobName string, r io.Reader) error {
	if err := a.client.UploadStream(ctx, container, blobName, r); err != nil {
		return fmt.Errorf("failed to stream to Azure Blob: %w", wrapNotFound(err))
	}
	return nil
}

func (a *AzureStorage) DeleteBlob(ctx context.Context, container, blobName string) error {
	if err := a.client.DeleteBlob(ctx, container, blobName); err != nil {
		return fmt.Errorf("failed to delete from Azure Blob: %w", wrapNotFound(err))
	}
	return nil
}

func (a *AzureStorage) URL(container, blobName string) string {
	return a.client.BlobURL(container, blobName)
}

func wrapNotFound(err error) error {
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	}
	return err
}

var _ domain.BlobStore = (*AzureStorage)(nil)
