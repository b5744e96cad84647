package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"propflow/api/internal/config"
)

// PresignedUpload is a signed PUT request the client uploads a file with.
type PresignedUpload struct {
	URL       string    `json:"presigned_url"`
	Key       string    `json:"key"`
	PublicURL string    `json:"public_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IS3Storage defines the interface for S3 operations.
type IS3Storage interface {
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (*PresignedUpload, error)
}

// putPresigner is the part of *s3.PresignClient used here.
type putPresigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// s3Storage implements IS3Storage.
type s3Storage struct {
	bucket    string
	region    string
	presigner putPresigner
	now       func() time.Time
}

// NewS3Storage creates a new S3 storage service.
func NewS3Storage(ctx context.Context, cfg *config.Config) (IS3Storage, error) {
	if cfg.AwsS3Bucket == "" {
		return nil, fmt.Errorf("AWS_S3_BUCKET is not set")
	}
	opts := []func(*aws_config.LoadOptions) error{aws_config.WithRegion(cfg.AwsRegion)}
	if cfg.AwsAccessKeyID != "" {
		// Static keys when given, the default chain (IAM role, profile) otherwise.
		opts = append(opts, aws_config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AwsAccessKeyID,
			cfg.AwsSecretAccessKey,
			"",
		)))
	}
	awsCfg, err := aws_config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return newS3Storage(cfg.AwsS3Bucket, cfg.AwsRegion, s3.NewPresignClient(s3.NewFromConfig(awsCfg))), nil
}

func newS3Storage(bucket, region string, presigner putPresigner) *s3Storage {
	return &s3Storage{bucket: bucket, region: region, presigner: presigner, now: time.Now}
}

// PresignPut signs a PUT of key with the given content type. The upload must
// send the same Content-Type header.
func (s *s3Storage) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (*PresignedUpload, error) {
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned PUT URL for key %s: %w", key, err)
	}

	slog.Debug("Generated presigned upload URL", "key", key, "ttl", ttl)
	return &PresignedUpload{
		URL:       req.URL,
		Key:       key,
		PublicURL: s.publicURL(key),
		ExpiresAt: s.now().Add(ttl),
	}, nil
}

func (s *s3Storage) publicURL(key string) string {
	if s.region == "" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
