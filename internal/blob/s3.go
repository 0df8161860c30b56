package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds the bucket wiring. Endpoint is optional and enables path-style
// addressing for S3-compatible stores such as MinIO.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
}

// S3Uploader writes catalog images to an S3 bucket.
type S3Uploader struct {
	client     *s3.Client
	bucket     string
	publicBase string
	logger     *slog.Logger
}

// NewS3Uploader builds an S3 client from cfg.
func NewS3Uploader(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3Uploader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	publicBase := cfg.PublicBaseURL
	switch {
	case publicBase != "":
	case endpoint != "":
		publicBase = endpoint + "/" + cfg.Bucket
	default:
		publicBase = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
	}

	return &S3Uploader{
		client:     client,
		bucket:     cfg.Bucket,
		publicBase: publicBase,
		logger:     logger,
	}, nil
}

// Upload stores data under key and returns its public URL.
func (u *S3Uploader) Upload(ctx context.Context, data []byte, key, mimeType string) (string, error) {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(mimeType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		u.logger.Error("blob.s3.put.failed", "bucket", u.bucket, "key", key, "error", err)
		return "", &UploadError{Key: key, Err: err}
	}
	u.logger.Debug("blob.s3.put.ok", "bucket", u.bucket, "key", key, "bytes", len(data))
	return PublicURL(u.publicBase, key), nil
}

// Ping checks that the bucket is reachable.
func (u *S3Uploader) Ping(ctx context.Context) error {
	_, err := u.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(u.bucket)})
	if err != nil {
		return fmt.Errorf("failed to reach bucket %s: %w", u.bucket, err)
	}
	return nil
}
