package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Environment variables for S3 portrait storage.
const (
	EnvS3AccessKeyID     = "PAWTRAIT_S3_ACCESS_KEY_ID"
	EnvS3SecretAccessKey = "PAWTRAIT_S3_SECRET_ACCESS_KEY"
	EnvS3Bucket          = "PAWTRAIT_S3_BUCKET"
	EnvS3Prefix          = "PAWTRAIT_S3_PREFIX"
	EnvS3Region          = "PAWTRAIT_S3_REGION"
	// EnvS3Endpoint points at S3-compatible services such as MinIO or R2.
	EnvS3Endpoint = "PAWTRAIT_S3_ENDPOINT"
)

// portraitURLTTL is how long a shared portrait link stays valid. Seven days
// is the presign maximum for SigV4.
const portraitURLTTL = 7 * 24 * time.Hour

// S3Uploader stores portraits in an S3 bucket and hands out presigned links.
type S3Uploader struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	prefix  string
}

// NewS3Uploader creates an S3Uploader from environment variables.
func NewS3Uploader(ctx context.Context) (*S3Uploader, error) {
	bucket := os.Getenv(EnvS3Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("%s is required for S3 storage", EnvS3Bucket)
	}

	var opts []func(*config.LoadOptions) error
	if region := os.Getenv(EnvS3Region); region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	if id, secret := os.Getenv(EnvS3AccessKeyID), os.Getenv(EnvS3SecretAccessKey); id != "" && secret != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(id, secret, "")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint := os.Getenv(EnvS3Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Uploader{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
		prefix:  os.Getenv(EnvS3Prefix),
	}, nil
}

func (u *S3Uploader) Upload(ctx context.Context, data []byte, mimeType, filename string) (string, string, error) {
	key := u.prefix + filename

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(u.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(mimeType),
		CacheControl: aws.String("public, max-age=604800, immutable"),
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to upload portrait to S3: %w", err)
	}

	req, err := u.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(portraitURLTTL))
	if err != nil {
		_ = u.Delete(ctx, key)
		return "", "", fmt.Errorf("failed to presign portrait URL: %w", err)
	}

	return req.URL, key, nil
}

func (u *S3Uploader) Delete(ctx context.Context, resourceID string) error {
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(resourceID),
	})
	if err != nil {
		return fmt.Errorf("failed to delete portrait from S3: %w", err)
	}
	return nil
}
