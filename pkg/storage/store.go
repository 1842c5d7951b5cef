package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	ErrTooLarge        = errors.New("file exceeds upload limit")
	ErrUnsupportedType = errors.New("only image uploads are allowed")
	ErrInvalidUpload   = errors.New("invalid upload")
	ErrNotConfigured   = errors.New("object storage is not configured")
)

// DefaultMaxBytes is the upload limit when none is configured.
const DefaultMaxBytes int64 = 10 << 20

type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	URL(key string) string
}

type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Endpoint        string // optional, for S3-compatible stores
}

func (c S3Config) Configured() bool {
	return c.Region != "" && c.Bucket != "" && c.AccessKeyID != "" && c.SecretAccessKey != ""
}

type S3Store struct {
	client *s3.Client
	bucket string
	region string
}

func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Store{client: client, bucket: cfg.Bucket, region: cfg.Region}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put s3 object %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) URL(key string) string {
	return PublicURL(s.bucket, s.region, key)
}

// MemoryStore keeps objects in memory. Used by tests and local development without S3.
type MemoryStore struct {
	mu      sync.Mutex
	Bucket  string
	Region  string
	objects map[string]MemoryObject
}

type MemoryObject struct {
	Body        []byte
	ContentType string
}

func NewMemoryStore(bucket, region string) *MemoryStore {
	return &MemoryStore{Bucket: bucket, Region: region, objects: map[string]MemoryObject{}}
}

func (m *MemoryStore) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) error {
	raw, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = MemoryObject{Body: raw, ContentType: contentType}
	return nil
}

func (m *MemoryStore) URL(key string) string {
	return PublicURL(m.Bucket, m.Region, key)
}

func (m *MemoryStore) Object(key string) (MemoryObject, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[key]
	return o, ok
}

func (m *MemoryStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for k := range m.objects {
		out = append(out, k)
	}
	return out
}

// Uploader is the single upload path for event images and logos.
type Uploader struct {
	store    ObjectStore
	maxBytes int64
	now      func() time.Time
}

func NewUploader(store ObjectStore, maxBytes int64) *Uploader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Uploader{store: store, maxBytes: maxBytes, now: time.Now}
}

func (u *Uploader) MaxBytes() int64 {
	return u.maxBytes
}

type UploadRequest struct {
	Kind           string
	OrganizationID string
	Filename       string
	ContentType    string
	Size           int64
	Body           io.Reader
}

// Upload checks size and type, stores the object and returns its public URL.
// When Size is unknown (<= 0) the body is buffered up to the limit.
func (u *Uploader) Upload(ctx context.Context, req UploadRequest) (string, error) {
	if u.store == nil {
		return "", ErrNotConfigured
	}
	if !strings.HasPrefix(strings.ToLower(req.ContentType), "image/") {
		return "", fmt.Errorf("content type %q: %w", req.ContentType, ErrUnsupportedType)
	}
	if req.Size > u.maxBytes {
		return "", ErrTooLarge
	}
	body, size := req.Body, req.Size
	if size <= 0 {
		raw, err := io.ReadAll(io.LimitReader(req.Body, u.maxBytes+1))
		if err != nil {
			return "", fmt.Errorf("read upload: %w", err)
		}
		if int64(len(raw)) > u.maxBytes {
			return "", ErrTooLarge
		}
		if len(raw) == 0 {
			return "", fmt.Errorf("empty file: %w", ErrInvalidUpload)
		}
		body, size = bytes.NewReader(raw), int64(len(raw))
	}

	key, err := ObjectKey(req.Kind, req.OrganizationID, req.Filename, u.now())
	if err != nil {
		return "", err
	}
	if err := u.store.Put(ctx, key, body, size, req.ContentType); err != nil {
		return "", err
	}
	return u.store.URL(key), nil
}
