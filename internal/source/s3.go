package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Veraticus/musiqhub/internal/common"
	"github.com/Veraticus/musiqhub/internal/service"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const s3Scheme = "s3://"

// S3Config describes how to reach the object store.
type S3Config struct {
	Region          string
	Profile         string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// S3API is the part of the S3 client used to download exports.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 downloads exports addressed as s3://bucket/key.xlsx[#Sheet].
type S3 struct {
	client S3API
	logger *slog.Logger
	retry  service.RetryOptions
}

// NewS3 builds an S3 client from the default AWS credential chain, with
// static keys and a custom endpoint when configured.
func NewS3(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return NewS3WithClient(client, logger), nil
}

// NewS3WithClient wraps an existing client.
func NewS3WithClient(client S3API, logger *slog.Logger) *S3 {
	return &S3{
		client: client,
		logger: common.LoggerOrDefault(logger),
		retry:  service.DefaultRetryOptions(),
	}
}

// Supports reports whether ref is an s3:// URL of a known format.
func (s *S3) Supports(ref string) bool {
	if !strings.HasPrefix(ref, s3Scheme) {
		return false
	}
	name, _ := splitSheet(ref)
	_, ok := FormatOf(name)
	return ok
}

// Fetch downloads the whole object and decodes it.
func (s *S3) Fetch(ctx context.Context, ref string) ([][]string, error) {
	name, sheet := splitSheet(ref)
	bucket, key, err := parseS3(name)
	if err != nil {
		return nil, err
	}
	format, _ := FormatOf(key)

	var body []byte
	err = common.WithRetry(ctx, "fetch "+name, func() error {
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			var noKey *types.NoSuchKey
			var noBucket *types.NoSuchBucket
			if errors.As(err, &noKey) || errors.As(err, &noBucket) {
				return &common.RetryableError{Err: fmt.Errorf("%w: %s: %w", common.ErrNotFound, name, err)}
			}
			return fmt.Errorf("%w: %w", common.ErrSourceUnavailable, err)
		}
		defer func() { _ = out.Body.Close() }()

		body, err = io.ReadAll(out.Body)
		if err != nil {
			return fmt.Errorf("%w: reading %s: %w", common.ErrSourceUnavailable, name, err)
		}
		return nil
	}, s.retry)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", name, err)
	}

	s.logger.Debug("Downloaded export", "bucket", bucket, "key", key, "bytes", len(body))
	return Decode(bytes.NewReader(body), format, sheet)
}

func parseS3(ref string) (string, string, error) {
	rest := strings.TrimPrefix(ref, s3Scheme)
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q is not s3://bucket/key", common.ErrUnsupportedSource, ref)
	}
	return bucket, key, nil
}
