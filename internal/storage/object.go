package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// objectAPI is the subset of the minio client used by ObjectStore.
type objectAPI interface {
	StatObject(ctx context.Context, bucket, object string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucket, object string, opts minio.GetObjectOptions) (*minio.Object, error)
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	RemoveObject(ctx context.Context, bucket, object string, opts minio.RemoveObjectOptions) error
}

// ObjectConfig configures an S3 compatible bucket.
type ObjectConfig struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// ObjectStore keeps posters in an S3 compatible bucket under a prefix.
type ObjectStore struct {
	client objectAPI
	bucket string
	prefix string
	urls   *URLBuilder
	logger *slog.Logger
}

var _ Store = (*ObjectStore)(nil)

// NewObjectStore connects to the bucket described by cfg. The bucket is
// created when it does not exist.
func NewObjectStore(ctx context.Context, cfg ObjectConfig, urls *URLBuilder, logger *slog.Logger) (*ObjectStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return newObjectStore(client, cfg.Bucket, cfg.Prefix, urls, logger), nil
}

func newObjectStore(client objectAPI, bucket, prefix string, urls *URLBuilder, logger *slog.Logger) *ObjectStore {
	if logger == nil {
		logger = slog.Default()
	}
	if urls == nil {
		urls, _ = NewURLBuilder("")
	}
	return &ObjectStore{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		urls:   urls,
		logger: logger.With("component", "object_store", "bucket", bucket),
	}
}

func (s *ObjectStore) key(name string) (string, error) {
	clean, err := SanitizeFilename(name)
	if err != nil {
		return "", err
	}
	if s.prefix == "" {
		return clean, nil
	}
	return path.Join(s.prefix, clean), nil
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.StatusCode == http.StatusNotFound || resp.Code == "NoSuchKey"
}

// Exists implements Store.
func (s *ObjectStore) Exists(ctx context.Context, name string) (bool, error) {
	key, err := s.key(name)
	if err != nil {
		return false, err
	}
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", key, err)
	}
	return true, nil
}

// Put implements Store. The local file is left in place.
func (s *ObjectStore) Put(ctx context.Context, name, localPath string) error {
	key, err := s.key(name)
	if err != nil {
		return err
	}
	_, err = s.client.FPutObject(ctx, s.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: ContentType(name),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// Open implements Store.
func (s *ObjectStore) Open(ctx context.Context, name string) (io.ReadCloser, Info, error) {
	key, err := s.key(name)
	if err != nil {
		return nil, Info{}, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, Info{}, fmt.Errorf("get %s: %w", key, err)
	}
	// GetObject is lazy; Stat surfaces a missing key.
	st, err := obj.Stat()
	if err != nil {
		obj.Close()
		if isNotFound(err) {
			return nil, Info{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, Info{}, fmt.Errorf("stat %s: %w", key, err)
	}
	ct := st.ContentType
	if ct == "" {
		ct = ContentType(name)
	}
	return obj, Info{Name: path.Base(key), Size: st.Size, ModTime: st.LastModified, ContentType: ct}, nil
}

// Cleanup implements Store.
func (s *ObjectStore) Cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	prefix := s.prefix
	if prefix != "" {
		prefix += "/"
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return removed, fmt.Errorf("list posters: %w", obj.Err)
		}
		if obj.LastModified.After(cutoff) {
			continue
		}
		if err := s.client.RemoveObject(ctx, s.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			s.logger.WarnContext(ctx, "failed to delete old poster", "key", obj.Key, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.InfoContext(ctx, "deleted old posters", "count", removed)
	}
	return removed, nil
}

// URL implements Store.
func (s *ObjectStore) URL(name string) string {
	return s.urls.Build(name)
}
