// Package storage holds the BlobStore implementations: Azure Blob (the
// default), S3 and a local directory tree.
package storage

import (
	"fmt"

	"github.com/semmidev/blobber/internal/config"
	"github.com/semmidev/blobber/internal/domain"
)

func New(cfg *config.StorageConfig) (domain.BlobStore, error) {
	switch cfg.Type {
	case "azure":
		return NewAzure(cfg.AccountURL, cfg.ConnectionString)
	case "s3":
		return NewS3(cfg)
	case "local":
		return NewLocal(cfg.LocalPath)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
