// Package blob stores post images in an S3-compatible object store.
package blob

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"
)

// Object is a stored blob.
type Object struct {
	Key string
	URL string
}

type Store struct {
	cfg    Config
	client *minio.Client
}

func New(cfg Config) (*Store, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "http://"), "https://")
	cl, err := minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
		Transport:    cfg.Transport,
	})
	if err != nil {
		return nil, err
	}

	cfg.Endpoint = endpoint
	return &Store{cfg: cfg, client: cl}, nil
}

// EnsureBucket creates the configured bucket when it does not exist.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return err
	}
	if !exists {
		log.Infof("[blob] creating bucket %s", s.cfg.Bucket)
		return s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region})
	}
	return nil
}

// Upload stores r under a fresh key derived from name and returns its URL.
func (s *Store) Upload(ctx context.Context, name, contentType string, r io.Reader, size int64) (Object, error) {
	key, err := objectKey(name, time.Now())
	if err != nil {
		return Object{}, err
	}

	_, err = s.client.PutObject(ctx, s.cfg.Bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return Object{}, fmt.Errorf("failed to put object %s: %w", key, err)
	}

	return Object{Key: key, URL: s.ObjectURL(key)}, nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.cfg.Bucket, key, minio.RemoveObjectOptions{})
}

// ObjectURL returns the durable URL of key.
func (s *Store) ObjectURL(key string) string {
	if s.cfg.PublicURL != "" {
		return strings.TrimSuffix(s.cfg.PublicURL, "/") + "/" + key
	}

	scheme := "http"
	if s.cfg.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.cfg.Endpoint, s.cfg.Bucket, key)
}

// objectKey builds "<uuid>_<unix millis><ext>" keeping the lowercased
// extension of the uploaded file name.
func objectKey(name string, t time.Time) (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(name))
	return fmt.Sprintf("%s_%d%s", id, t.UnixMilli(), ext), nil
}
