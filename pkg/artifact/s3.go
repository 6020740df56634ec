package artifact

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// PutObjectAPI is the subset of the S3 client used by S3.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 uploads artifacts to a bucket.
type S3 struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// NewS3 loads the default AWS configuration and returns an S3 sink.
func NewS3(ctx context.Context, region, bucket, prefix string) (*S3, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewS3WithClient(s3.NewFromConfig(cfg), bucket, prefix), nil
}

// NewS3WithClient builds a sink around an existing client.
func NewS3WithClient(client PutObjectAPI, bucket, prefix string) *S3 {
	return &S3{client: client, bucket: bucket, prefix: normalizePrefix(prefix)}
}

// Save uploads the reader to s3://bucket/prefix/name.
func (s *S3) Save(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	clean, err := SanitizeFileName(name)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := applyPrefix(s.prefix, clean)
	input := &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(key),
		Body:                 r,
		ContentType:          aws.String(contentType),
		ServerSideEncryption: s3types.ServerSideEncryptionAes256,
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("s3 put object bucket=%s key=%s: %w", s.bucket, key, err)
	}
	return "s3://" + s.bucket + "/" + key, nil
}

func normalizePrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}

func applyPrefix(prefix, key string) string {
	cleanPrefix := strings.Trim(prefix, "/")
	cleanKey := strings.TrimLeft(key, "/")
	if cleanPrefix == "" {
		return cleanKey
	}
	if cleanKey == "" {
		return cleanPrefix
	}
	return cleanPrefix + "/" + cleanKey
}

var _ Sink = (*S3)(nil)
