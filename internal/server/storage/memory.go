package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/docgate/docgate/internal/common"
	"github.com/docgate/docgate/internal/server/models"
)

type memObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

// MemoryStore is a thread-safe in-process BlobStore.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memObject
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memObject), now: time.Now}
}

func (m *MemoryStore) Exists(_ context.Context, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.objects[name]
	return ok, nil
}

func (m *MemoryStore) Metadata(_ context.Context, name string) (*models.BlobMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[name]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &models.BlobMetadata{ContentType: obj.contentType, Size: int64(len(obj.data)), LastModified: obj.modified}, nil
}

// SignedURL returns a memory:// link; it is only meaningful to this process.
func (m *MemoryStore) SignedURL(_ context.Context, name string, expiry time.Duration) (string, error) {
	return fmt.Sprintf("memory:///%s?expires=%d", url.PathEscape(name), m.now().Add(expiry).Unix()), nil
}

func (m *MemoryStore) OpenReader(_ context.Context, name string, rng *ByteRange) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[name]
	if !ok {
		return nil, common.ErrorNotFound
	}

	data := obj.data
	if rng != nil {
		if rng.Start < 0 || rng.Start >= int64(len(data)) || rng.End < rng.Start {
			return nil, fmt.Errorf("range %s out of bounds", rng.Header())
		}
		end := min(rng.End+1, int64(len(data)))
		data = data[rng.Start:end]
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemoryStore) Write(_ context.Context, name, contentType string, r io.Reader, _ int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[name] = memObject{data: data, contentType: contentType, modified: m.now()}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.objects, name)
	return nil
}

func (m *MemoryStore) List(_ context.Context, prefix string) ([]models.BlobReference, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	refs := make([]models.BlobReference, 0, len(m.objects))
	for name, obj := range m.objects {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		refs = append(refs, models.BlobReference{Name: name, Size: int64(len(obj.data)), LastModified: obj.modified})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}
