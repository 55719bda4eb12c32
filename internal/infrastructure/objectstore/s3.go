package objectstore

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/oksasatya/adhunt/internal/domain/repository"
	"github.com/oksasatya/adhunt/pkg/helpers"
)

type S3 struct {
	client  *s3.Client
	bucket  string
	region  string
	baseURL string
}

// NewS3 stores objects in bucket. baseURL overrides the public URL prefix,
// e.g. a CDN or a MinIO endpoint.
func NewS3(client *s3.Client, bucket, region, baseURL string) *S3 {
	return &S3{client: client, bucket: bucket, region: region, baseURL: baseURL}
}

func (s *S3) Put(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	if err := helpers.PutS3Object(ctx, s.client, s.bucket, key, contentType, r); err != nil {
		return "", err
	}
	return helpers.S3PublicURL(s.baseURL, s.bucket, s.region, key), nil
}

func (s *S3) Delete(ctx context.Context, key string) error {
	return helpers.DeleteS3Object(ctx, s.client, s.bucket, key)
}

var _ repository.ImageStorage = (*S3)(nil)
