package helpers

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewS3Client builds an S3 client. A non-empty endpoint switches to
// path-style addressing for S3-compatible stores such as MinIO.
func NewS3Client(cfg aws.Config, endpoint string) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
}

// PutS3Object uploads r to bucket/key.
func PutS3Object(ctx context.Context, client *s3.Client, bucket, key, contentType string, r io.Reader) error {
	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	return err
}

// DeleteS3Object removes bucket/key. S3 reports success for missing keys.
func DeleteS3Object(ctx context.Context, client *s3.Client, bucket, key string) error {
	_, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	return err
}

// S3PublicURL returns the object URL under baseURL, or the virtual-hosted
// AWS URL when baseURL is empty.
func S3PublicURL(baseURL, bucket, region, key string) string {
	if baseURL != "" {
		return strings.TrimRight(baseURL, "/") + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
}
