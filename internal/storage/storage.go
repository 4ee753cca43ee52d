package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/shopfront/apiserver/config"
)

const productImagePrefix = "products/"

// ImageCacheControl is the Cache-Control value stored with and served for
// product images.
const ImageCacheControl = "public, max-age=86400"

var (
	// ErrUnsupportedImage is returned for uploads that are not jpg or png files.
	ErrUnsupportedImage = errors.New("only jpg, jpeg and png images are allowed")
	// ErrObjectNotFound is returned when a requested object does not exist.
	ErrObjectNotFound = errors.New("object not found")
)

var imageContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// URL returns the public address of key, or "" when objects are not
	// publicly reachable.
	URL(key string) string
	Bucket() string
}

// ImageStore keeps product images in an object storage backend.
type ImageStore struct {
	backend ObjectStorage
	// fallbackBase prefixes keys when the backend has no public URL.
	fallbackBase string
}

// NewImageStore wraps backend. fallbackBase is the API path images are
// served from when the backend has no public URL.
func NewImageStore(backend ObjectStorage, fallbackBase string) *ImageStore {
	return &ImageStore{backend: backend, fallbackBase: strings.TrimRight(fallbackBase, "/")}
}

// Open connects to the backend selected by cfg.StorageBackend and makes sure
// the bucket exists.
func Open(ctx context.Context, cfg config.Config, fallbackBase string) (*ImageStore, error) {
	var (
		backend ObjectStorage
		err     error
	)
	switch cfg.StorageBackend {
	case "minio":
		backend, err = NewMinioClient(cfg.Minio)
	case "gcs":
		backend, err = NewGCSClient(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
	if err != nil {
		return nil, err
	}
	if err := backend.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", backend.Bucket(), err)
	}
	return NewImageStore(backend, fallbackBase), nil
}

// SaveProductImage stores an uploaded image under a fresh key and returns
// the URL clients should use for it.
func (s *ImageStore) SaveProductImage(ctx context.Context, filename string, r io.Reader, size int64) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	contentType, ok := imageContentTypes[ext]
	if !ok {
		return "", ErrUnsupportedImage
	}

	key := productImagePrefix + uuid.NewString() + ext
	if err := s.backend.Put(ctx, key, r, size, contentType); err != nil {
		return "", err
	}
	return s.url(key), nil
}

// OpenProductImage opens the image stored under name and returns its content type.
func (s *ImageStore) OpenProductImage(ctx context.Context, name string) (io.ReadCloser, string, error) {
	name = path.Base(strings.TrimSpace(name))
	contentType, ok := imageContentTypes[strings.ToLower(path.Ext(name))]
	if !ok {
		return nil, "", ErrUnsupportedImage
	}
	rc, err := s.backend.Get(ctx, productImagePrefix+name)
	if err != nil {
		return nil, "", err
	}
	return rc, contentType, nil
}

// RemoveProductImage deletes the object behind imageURL if it was issued by
// this store. Other URLs are ignored.
func (s *ImageStore) RemoveProductImage(ctx context.Context, imageURL string) error {
	key, ok := s.keyFromURL(imageURL)
	if !ok {
		return nil
	}
	return s.backend.Delete(ctx, key)
}

func (s *ImageStore) url(key string) string {
	if u := s.backend.URL(key); u != "" {
		return u
	}
	return s.fallbackBase + "/" + strings.TrimPrefix(key, productImagePrefix)
}

func (s *ImageStore) keyFromURL(imageURL string) (string, bool) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return "", false
	}
	name := path.Base(imageURL)
	key := productImagePrefix + name
	if s.url(key) != imageURL {
		return "", false
	}
	return key, true
}
