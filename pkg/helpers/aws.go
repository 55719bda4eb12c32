package helpers

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// AWSOptions configures LoadAWSConfig. Static keys are optional; without them
// the default credential chain is used.
type AWSOptions struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// LoadAWSConfig loads the shared AWS configuration for S3 and SQS clients.
func LoadAWSConfig(ctx context.Context, o AWSOptions) (aws.Config, error) {
	region := o.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if o.AccessKeyID != "" && o.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKeyID, o.SecretAccessKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}
