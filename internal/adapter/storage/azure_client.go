package storage

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/semmidev/blobber/internal/domain"
)

// realAzureClient wraps the official Azure SDK client to satisfy AzureBlobAPI.
type realAzureClient struct {
	client *azblob.Client
}

// newRealAzureClient uses connection string auth when connectionString is
// set and DefaultAzureCredential against accountURL otherwise.
func newRealAzureClient(accountURL, connectionString string) (*realAzureClient, error) {
	if connectionString != "" {
		client, err := azblob.NewClientFromConnectionString(connectionString, nil)
		if err != nil {
			return nil, fmt.Errorf("creating Azure Blob client from connection string: %w", err)
		}
		return &realAzureClient{client: client}, nil
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("creating Azure credential: %w", err)
	}

	client, err := azblob.NewClient(accountURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("creating Azure Blob client: %w", err)
	}
	return &realAzureClient{client: client}, nil
}

func (c *realAzureClient) ListContainers(ctx context.Context) ([]string, error) {
	var names []string
	pager := c.client.NewListContainersPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range page.ContainerItems {
			if item.Name != nil {
				names = append(names, *item.Name)
			}
		}
	}
	return names, nil
}

func (c *realAzureClient) ListBlobs(ctx context.Context, containerName string) ([]domain.Blob, error) {
	var blobs []domain.Blob
	pager := c.client.NewListBlobsFlatPager(containerName, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		if page.Segment == nil {
			continue
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			blob := domain.Blob{Name: *item.Name}
			if p := item.Properties; p != nil {
				if p.ContentLength != nil {
					blob.Size = *p.ContentLength
				}
				if p.LastModified != nil {
					blob.LastModified = *p.LastModified
				}
			}
			blobs = append(blobs, blob)
		}
	}
	return blobs, nil
}

func (c *realAzureClient) UploadFile(ctx context.Context, containerName, blobName string, file *os.File) error {
	_, err := c.client.UploadFile(ctx, containerName, blobName, file, nil)
	return err
}

func (c *realAzureClient) UploadStream(ctx context.Context, containerName, blobName string, body io.Reader) error {
	_, err := c.client.UploadStream(ctx, containerName, blobName, body, nil)
	return err
}

func (c *realAzureClient) DeleteBlob(ctx context.Context, containerName, blobName string) error {
	_, err := c.client.DeleteBlob(ctx, containerName, blobName, nil)
	return err
}

func (c *realAzureClient) BlobURL(containerName, blobName string) string {
	return c.client.ServiceClient().NewContainerClient(containerName).NewBlobClient(blobName).URL()
}
