package services

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
)

type memoryObject struct {
	content     []byte
	contentType string
}

// MemoryStore is an in-memory ObjectStore for tests
type MemoryStore struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string]memoryObject
}

// NewMemoryStore creates an empty store whose presigned URLs point at bucket
func NewMemoryStore(bucket string) *MemoryStore {
	return &MemoryStore{bucket: bucket, objects: make(map[string]memoryObject)}
}

// Put reads body fully; a short body is an error
func (m *MemoryStore) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	content, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	if int64(len(content)) != size {
		return fmt.Errorf("failed to put %s: read %d of %d bytes", key, len(content), size)
	}

	m.mu.Lock()
	m.objects[key] = memoryObject{content: content, contentType: contentType}
	m.mu.Unlock()
	return nil
}

// PresignGet returns a fake presigned URL for a stored object
func (m *MemoryStore) PresignGet(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("object %s not found", key)
	}

	u := url.URL{
		Scheme:   "https",
		Host:     m.bucket + ".s3.amazonaws.com",
		Path:     "/" + key,
		RawQuery: "X-Amz-Expires=3600",
	}
	return u.String(), nil
}

// Delete removes an object
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// Object returns the stored content and content type of key
func (m *MemoryStore) Object(key string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj.content, obj.contentType, ok
}

// Len returns the number of stored objects
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
