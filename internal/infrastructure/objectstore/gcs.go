// Package objectstore implements repository.ImageStorage on Google Cloud
// Storage, S3 and process memory.
package objectstore

import (
	"context"
	"io"

	"cloud.google.com/go/storage"

	"github.com/oksasatya/adhunt/internal/domain/repository"
	"github.com/oksasatya/adhunt/pkg/helpers"
)

type GCS struct {
	client *storage.Client
	bucket string
}

func NewGCS(client *storage.Client, bucket string) *GCS {
	return &GCS{client: client, bucket: bucket}
}

func (g *GCS) Put(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	return helpers.UploadObject(ctx, g.client, g.bucket, key, contentType, r)
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	return helpers.DeleteObject(ctx, g.client, g.bucket, key)
}

var _ repository.ImageStorage = (*GCS)(nil)
