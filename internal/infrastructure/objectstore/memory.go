package objectstore

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/oksasatya/adhunt/internal/domain/repository"
)

// Memory keeps blobs in a map. URLs are baseURL + "/" + key.
type Memory struct {
	mu      sync.Mutex
	baseURL string
	objects map[string][]byte
}

func NewMemory(baseURL string) *Memory {
	if baseURL == "" {
		baseURL = "memory://images"
	}
	return &Memory{baseURL: strings.TrimRight(baseURL, "/"), objects: make(map[string][]byte)}
}

func (m *Memory) Put(_ context.Context, key, _ string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.objects[key] = b
	m.mu.Unlock()
	return m.baseURL + "/" + key, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// Has reports whether key is stored.
func (m *Memory) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

// Len returns the number of stored objects.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

var _ repository.ImageStorage = (*Memory)(nil)
