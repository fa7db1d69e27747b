package document

import (
	"context"
	"testing"

	"github.com/kailas-cloud/tenderdraft/internal/db"
	"github.com/kailas-cloud/tenderdraft/internal/domain"
	domdoc "github.com/kailas-cloud/tenderdraft/internal/domain/document"
)

// mockStore is an in-memory stand-in for the consumer interface.
type mockStore struct {
	hashes map[string]map[string]string
	blobs  map[string][]byte

	pingErr error
	setErr  error
	scanErr error
}

func newMockStore() *mockStore {
	return &mockStore{hashes: map[string]map[string]string{}, blobs: map[string][]byte{}}
}

func (m *mockStore) Ping(context.Context) error { return m.pingErr }

func (m *mockStore) HSet(_ context.Context, key string, fields map[string]string) error {
	h := m.hashes[key]
	if h == nil {
		h = map[string]string{}
		m.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *mockStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	h, ok := m.hashes[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return h, nil
}

func (m *mockStore) HGetAllMulti(_ context.Context, keys []string) ([]map[string]string, error) {
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		out[i] = m.hashes[k]
	}
	return out, nil
}

func (m *mockStore) Get(_ context.Context, key string) ([]byte, error) {
	b, ok := m.blobs[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return b, nil
}

func (m *mockStore) Set(_ context.Context, key string, value []byte) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.blobs[key] = value
	return nil
}

func (m *mockStore) Del(_ context.Context, keys ...string) (int64, error) {
	var n int64
	for _, k := range keys {
		if _, ok := m.hashes[k]; ok {
			delete(m.hashes, k)
			n++
		}
		if _, ok := m.blobs[k]; ok {
			delete(m.blobs, k)
			n++
		}
	}
	return n, nil
}

func (m *mockStore) Scan(_ context.Context, pattern string) ([]string, error) {
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	prefix := pattern[:len(pattern)-1]
	var keys []string
	for k := range m.hashes {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	for k := range m.blobs {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := newMockStore()
	return New(ms), ms
}

func textDoc(t *testing.T, id string, cat domdoc.Category, text string, at int64) domdoc.Document {
	t.Helper()
	d, err := domdoc.New(id, id+".txt", cat, domain.TextPart{Text: text}, "text/plain", id+".txt", at, int64(len(text)))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}
	return d
}
