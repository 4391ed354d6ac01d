package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// ObjectGetter is the subset of the S3 client S3Source needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source serves assets from an S3 bucket, for deployments where the
// static bundle is published to object storage.
type S3Source struct {
	client ObjectGetter
	bucket string
	prefix string
}

// NewS3Source creates a source reading keys prefix+name from bucket.
func NewS3Source(client ObjectGetter, bucket, prefix string) *S3Source {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Source{client: client, bucket: bucket, prefix: prefix}
}

// S3Config configures the client built by NewS3Client.
type S3Config struct {
	Region string
	// Endpoint overrides the service endpoint, e.g. for MinIO or R2.
	// A custom endpoint switches to path-style addressing.
	Endpoint string
	// Anonymous skips request signing, for public buckets.
	Anonymous bool
	// Credentials are used when Anonymous is false.
	Credentials aws.CredentialsProvider
}

// NewS3Client builds an S3 client from cfg.
func NewS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:      cfg.Region,
		Credentials: cfg.Credentials,
	}
	if cfg.Anonymous || opts.Credentials == nil {
		opts.Credentials = aws.AnonymousCredentials{}
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

// Open implements Source.
func (s *S3Source) Open(ctx context.Context, name string) (io.ReadCloser, ObjectInfo, error) {
	clean, err := CleanName(name)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	key := s.prefix + clean

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, ObjectInfo{}, ErrNotFound
		}
		return nil, ObjectInfo{}, fmt.Errorf("assets: s3 get %s: %w", key, err)
	}

	info := ObjectInfo{
		Name:        clean,
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
		ModTime:     aws.ToTime(out.LastModified),
		ETag:        aws.ToString(out.ETag),
	}
	if info.ContentType == "" || info.ContentType == "binary/octet-stream" {
		if ct := mime.TypeByExtension(path.Ext(clean)); ct != "" {
			info.ContentType = ct
		}
	}
	return out.Body, info, nil
}

func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
