package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	s3manager "github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "github.com/semmidev/blobber/internal/config"
	"github.com/semmidev/blobber/internal/domain"
)

// S3Storage treats each bucket as a container. A custom endpoint switches
// to path-style addressing for S3-compatible servers.
type S3Storage struct {
	client   *s3.Client
	uploader *s3manager.Uploader
	region   string
	endpoint string
}

// NewS3 creates a new S3Storage instance using AWS SDK v2. Static
// credentials are used when both keys are configured, the default chain
// otherwise.
func NewS3(cfg *appconfig.StorageConfig) (*S3Storage, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(context.TODO(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Storage{
		client:   client,
		uploader: s3manager.NewUploader(client),
		region:   cfg.Region,
		endpoint: strings.TrimSuffix(cfg.Endpoint, "/"),
	}, nil
}

func (s *S3Storage) ListContainers(ctx context.Context) ([]domain.Container, error) {
	paginator := s3.NewListBucketsPaginator(s.client, &s3.ListBucketsInput{})

	var containers []domain.Container
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list S3 buckets: %w", err)
		}
		for _, b := range page.Buckets {
			containers = append(containers, domain.Container{Name: aws.ToString(b.Name)})
		}
	}
	return containers, nil
}

func (s *S3Storage) ListBlobs(ctx context.Context, container string) ([]domain.Blob, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(container),
	})

	var blobs []domain.Blob
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list S3 objects: %w", err)
		}
		for _, obj := range page.Contents {
			blob := domain.Blob{
				Name: aws.ToString(obj.Key),
				Size: aws.ToInt64(obj.Size),
			}
			if obj.LastModified != nil {
				blob.LastModified = *obj.LastModified
			}
			blobs = append(blobs, blob)
		}
	}
	return blobs, nil
}

// UploadFile uploads a local file to S3
func (s *S3Storage) UploadFile(ctx context.Context, container, blobName, localPath string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return s.UploadStream(ctx, container, blobName, file)
}

func (s *S3Storage) UploadStream(ctx context.Context, container, blobName string, r io.Reader) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(blobName),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

func (s *S3Storage) DeleteBlob(ctx context.Context, container, blobName string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(blobName),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

func (s *S3Storage) URL(container, blobName string) string {
	key := (&url.URL{Path: blobName}).EscapedPath()
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, container, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", container, s.region, key)
}

var _ domain.BlobStore = (*S3Storage)(nil)
