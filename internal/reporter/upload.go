package reporter

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// PutObjectAPI is the part of the S3 client the uploader needs
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader copies report artifacts to s3://bucket/prefix
type S3Uploader struct {
	client PutObjectAPI
	bucket string
	prefix string
	logger zerolog.Logger
}

// ParseS3URL splits s3://bucket/prefix
func ParseS3URL(raw string) (bucket, prefix string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("invalid upload URL %q: %w", raw, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("invalid upload URL %q: expected s3://bucket/prefix", raw)
	}
	return u.Host, strings.Trim(u.Path, "/"), nil
}

// NewS3Uploader builds an uploader from the default AWS credential chain
func NewS3Uploader(ctx context.Context, target string, logger zerolog.Logger) (*S3Uploader, error) {
	bucket, prefix, err := ParseS3URL(target)
	if err != nil {
		return nil, err
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("s3 upload: failed to load AWS config: %w", err)
	}

	return NewS3UploaderWithClient(s3.NewFromConfig(cfg), bucket, prefix, logger), nil
}

// NewS3UploaderWithClient uses an existing client
func NewS3UploaderWithClient(client PutObjectAPI, bucket, prefix string, logger zerolog.Logger) *S3Uploader {
	return &S3Uploader{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger.With().Str("component", "s3_upload").Logger(),
	}
}

// Upload puts each file under the prefix and returns the object URLs
func (u *S3Uploader) Upload(ctx context.Context, files []string) ([]string, error) {
	uploaded := make([]string, 0, len(files))
	for _, file := range files {
		key := path.Join(u.prefix, filepath.Base(file))
		if err := u.put(ctx, file, key); err != nil {
			return uploaded, err
		}
		uploaded = append(uploaded, fmt.Sprintf("s3://%s/%s", u.bucket, key))
		u.logger.Debug().Str("file", file).Str("key", key).Msg("artifact uploaded")
	}
	return uploaded, nil
}

func (u *S3Uploader) put(ctx context.Context, file, key string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("s3 upload: failed to open %s: %w", file, err)
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(file))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3 upload: failed to put %s: %w", key, err)
	}
	return nil
}
