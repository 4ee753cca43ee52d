package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
)

type memoryBackend struct {
	mu        sync.Mutex
	objects   map[string][]byte
	types     map[string]string
	publicURL string
}

func newMemoryBackend(publicURL string) *memoryBackend {
	return &memoryBackend{objects: map[string][]byte{}, types: map[string]string{}, publicURL: publicURL}
}

func (m *memoryBackend) EnsureBucket(context.Context) error { return nil }

func (m *memoryBackend) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memoryBackend) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryBackend) URL(key string) string {
	if m.publicURL == "" {
		return ""
	}
	return m.publicURL + "/" + key
}

func (m *memoryBackend) Bucket() string { return "images" }

func TestSaveProductImageRejectsUnsupportedExtension(t *testing.T) {
	store := NewImageStore(newMemoryBackend(""), "/api/products/images")
	_, err := store.SaveProductImage(context.Background(), "malware.exe", strings.NewReader("x"), 1)
	if !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("expected ErrUnsupportedImage, got %v", err)
	}
}

func TestSaveOpenAndRemoveProductImage(t *testing.T) {
	backend := newMemoryBackend("")
	store := NewImageStore(backend, "/api/products/images/")

	url, err := store.SaveProductImage(context.Background(), "Shoe.PNG", strings.NewReader("png-bytes"), 9)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(url, "/api/products/images/") || !strings.HasSuffix(url, ".png") {
		t.Fatalf("unexpected url %q", url)
	}

	name := url[strings.LastIndex(url, "/")+1:]
	rc, contentType, err := store.OpenProductImage(context.Background(), name)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "png-bytes" || contentType != "image/png" {
		t.Fatalf("unexpected object %q (%s)", data, contentType)
	}

	if err := store.RemoveProductImage(context.Background(), url); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(backend.objects) != 0 {
		t.Fatalf("expected object to be deleted")
	}
	if _, _, err := store.OpenProductImage(context.Background(), name); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound after removal, got %v", err)
	}
}

func TestRemoveProductImageIgnoresForeignURLs(t *testing.T) {
	backend := newMemoryBackend("https://cdn.example.com/images")
	store := NewImageStore(backend, "/api/products/images")

	url, err := store.SaveProductImage(context.Background(), "hat.jpg", strings.NewReader("jpg"), 3)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(url, "https://cdn.example.com/images/products/") {
		t.Fatalf("expected public url, got %q", url)
	}

	if err := store.RemoveProductImage(context.Background(), "https://elsewhere.example.com/hat.jpg"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(backend.objects) != 1 {
		t.Fatalf("foreign url must not delete stored objects")
	}
}
