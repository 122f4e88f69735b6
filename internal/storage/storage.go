package storage

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// ObjectStore holds profile and group images.
type ObjectStore interface {
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, objectName string) error
	PresignedGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

// MemoryStore is an in-process ObjectStore used when MinIO is disabled.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data        []byte
	contentType string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: map[string]memoryObject{}}
}

func (m *MemoryStore) Upload(_ context.Context, objectName string, reader io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("read object %s: %w", objectName, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectName] = memoryObject{data: data, contentType: contentType}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, objectName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, objectName)
	return nil
}

func (m *MemoryStore) PresignedGetURL(_ context.Context, objectName string, _ time.Duration) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.objects[objectName]; !ok {
		return "", fmt.Errorf("object %s not found", objectName)
	}
	return "memory://" + objectName, nil
}

func (m *MemoryStore) Has(objectName string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[objectName]
	return ok
}
