package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestS3PublicURL(t *testing.T) {
	assert.Equal(t, "https://ads.s3.eu-west-1.amazonaws.com/a/b.png", S3PublicURL("", "ads", "eu-west-1", "a/b.png"))
	assert.Equal(t, "http://minio:9000/ads/a/b.png", S3PublicURL("http://minio:9000/ads/", "ads", "", "a/b.png"))
	assert.Equal(t, "https://storage.googleapis.com/ads/a/b.png", GCSPublicURL("ads", "a/b.png"))
}
