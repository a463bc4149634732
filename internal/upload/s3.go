package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Uploader stores artifacts in an S3/MinIO bucket and hands out presigned
// download URLs.
type S3Uploader struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	prefix    string
	expiry    time.Duration
}

// S3Config holds S3/MinIO connection configuration.
type S3Config struct {
	// Endpoint for MinIO or other S3-compatible stores. Leave empty for AWS.
	Endpoint string

	// Bucket name.
	Bucket string

	// Region (required for AWS, optional for MinIO).
	Region string

	// Credentials.
	AccessKeyID     string
	SecretAccessKey string

	// UseSSL enables HTTPS for custom endpoints.
	UseSSL bool

	// Prefix is prepended to all object keys.
	Prefix string

	// PresignExpiry bounds how long returned URLs stay valid.
	PresignExpiry time.Duration
}

// NewS3Uploader creates an uploader for the configured bucket.
func NewS3Uploader(cfg *S3Config) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		endpoint := cfg.Endpoint
		if !strings.Contains(endpoint, "://") {
			endpoint = fmt.Sprintf("%s://%s", scheme, endpoint)
		}
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true // Required for MinIO
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)

	expiry := cfg.PresignExpiry
	if expiry == 0 {
		expiry = 24 * time.Hour
	}

	return &S3Uploader{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		prefix:    cfg.Prefix,
		expiry:    expiry,
	}, nil
}

// Upload stores the file under <prefix>/<jobID>/<basename> and returns a
// presigned GET URL.
func (u *S3Uploader) Upload(ctx context.Context, jobID, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat artifact: %w", err)
	}

	key := u.key(jobID, filepath.Base(path))

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentType:   aws.String(contentTypeFor(path)),
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	presigned, err := u.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(u.expiry))
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return presigned.URL, nil
}

func (u *S3Uploader) key(jobID, name string) string {
	if u.prefix == "" {
		return jobID + "/" + name
	}
	return u.prefix + "/" + jobID + "/" + name
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}
