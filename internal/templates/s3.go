package templates

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/docxpress/internal/apperr"
)

// S3Config locates templates in an S3-compatible bucket.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// S3Store serves templates stored as objects under a key prefix.
type S3Store struct {
	client   *minio.Client
	bucket   string
	prefix   string
	initOnce sync.Once
	initErr  error
}

// NewS3Store validates cfg and creates the client. No request is made until
// the first Get or List.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	opts := &minio.Options{Secure: cfg.UseSSL, Region: region}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access != "" || secret != "" {
		if access == "" || secret == "" {
			return nil, fmt.Errorf("s3 access key and secret key must be set together")
		}
		opts.Creds = credentials.NewStaticV4(access, secret, "")
	}

	client, err := minio.New(endpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	prefix := strings.Trim(strings.TrimSpace(cfg.Prefix), "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3Store{client: client, bucket: bucket, prefix: prefix}, nil
}

func (s *S3Store) checkBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = err
			return
		}
		if !exists {
			s.initErr = fmt.Errorf("bucket %s does not exist", s.bucket)
		}
	})
	return s.initErr
}

func (s *S3Store) key(name string) string {
	return s.prefix + name
}

// Get downloads a template object.
func (s *S3Store) Get(ctx context.Context, name string) ([]byte, error) {
	name, err := CleanName(name)
	if err != nil {
		return nil, err
	}
	if err := s.checkBucket(ctx); err != nil {
		return nil, fmt.Errorf("%w: template bucket: %v", apperr.ErrInternal, err)
	}

	obj, err := s.client.GetObject(ctx, s.bucket, s.key(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: get template %s: %v", apperr.ErrInternal, name, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, apperr.NotFound(fmt.Sprintf("Template %s not found", name))
		}
		return nil, fmt.Errorf("%w: read template %s: %v", apperr.ErrInternal, name, err)
	}
	return data, nil
}

// List returns the template names directly under the prefix, sorted.
func (s *S3Store) List(ctx context.Context) ([]string, error) {
	if err := s.checkBucket(ctx); err != nil {
		return nil, fmt.Errorf("%w: template bucket: %v", apperr.ErrInternal, err)
	}

	names := make([]string, 0, 16)
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: s.prefix}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("%w: list templates: %v", apperr.ErrInternal, obj.Err)
		}
		name := strings.TrimPrefix(obj.Key, s.prefix)
		if name == "" || strings.Contains(name, "/") || !IsTemplateFile(name) {
			continue
		}
		names = append(names, path.Base(name))
	}
	sort.Strings(names)
	return names, nil
}
