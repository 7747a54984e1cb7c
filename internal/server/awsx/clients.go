// Package awsx builds the shared AWS SDK configuration and service clients
// (S3, KMS, Secrets Manager, Bedrock runtime).
package awsx

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	sc "github.com/m00n5h075/serenya-sub003/internal/server/config"
)

// LoadConfig resolves the base SDK config. Static credentials apply only
// when an access key is configured (local stacks); otherwise the default
// provider chain is used.
func LoadConfig(ctx context.Context, cfg *sc.Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKey, cfg.AWSSecretKey, "")))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// NewS3Client builds the S3 client, honoring a base-endpoint override for
// S3-compatible local stacks.
func NewS3Client(base aws.Config, cfg *sc.Config) *s3.Client {
	return s3.NewFromConfig(base, func(o *s3.Options) {
		if cfg.AWSBaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWSBaseEndpoint)
			o.UsePathStyle = true
		}
	})
}

func NewKMSClient(base aws.Config) *kms.Client {
	return kms.NewFromConfig(base)
}

func NewSecretsClient(base aws.Config) *secretsmanager.Client {
	return secretsmanager.NewFromConfig(base)
}

func NewBedrockClient(base aws.Config) *bedrockruntime.Client {
	return bedrockruntime.NewFromConfig(base)
}
