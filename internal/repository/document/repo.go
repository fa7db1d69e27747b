package document

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/tenderdraft/internal/db"
	"github.com/kailas-cloud/tenderdraft/internal/domain"
	domdoc "github.com/kailas-cloud/tenderdraft/internal/domain/document"
)

var (
	metaPrefix    = domain.KeyPrefix + "doc:meta:"
	contentPrefix = domain.KeyPrefix + "doc:content:"
)

// store is the consumer interface for documents (ISP).
type store interface {
	Ping(ctx context.Context) error
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, keys ...string) (int64, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements usecase/document.Store on Redis/Valkey:
// a metadata hash plus a content blob key per document.
type Repo struct {
	store store
}

// New creates a document repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Init verifies the backing store is reachable.
func (r *Repo) Init(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return fmt.Errorf("init document store: %w", err)
	}
	return nil
}

// Put writes the content blob first, then the metadata hash that makes the document visible.
func (r *Repo) Put(ctx context.Context, doc domdoc.Document) error {
	id := doc.ID()
	if err := r.store.Set(ctx, contentPrefix+id, contentBytes(doc.Body())); err != nil {
		return fmt.Errorf("set content %s: %w", id, err)
	}
	if err := r.store.HSet(ctx, metaPrefix+id, buildHashFields(&doc)); err != nil {
		return fmt.Errorf("hset metadata %s: %w", id, err)
	}
	return nil
}

// Get returns a document by ID.
func (r *Repo) Get(ctx context.Context, id string) (domdoc.Document, error) {
	meta, err := r.store.HGetAll(ctx, metaPrefix+id)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domdoc.Document{}, domain.ErrDocumentNotFound
		}
		return domdoc.Document{}, fmt.Errorf("hgetall %s: %w", id, err)
	}
	return r.hydrate(ctx, id, meta)
}

// Delete removes a document. ErrDocumentNotFound when it was absent.
func (r *Repo) Delete(ctx context.Context, id string) error {
	n, err := r.store.Del(ctx, metaPrefix+id, contentPrefix+id)
	if err != nil {
		return fmt.Errorf("del %s: %w", id, err)
	}
	if n == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// List returns all documents of a category (all when empty), oldest first.
func (r *Repo) List(ctx context.Context, category domdoc.Category) ([]domdoc.Document, error) {
	keys, err := r.store.Scan(ctx, metaPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan documents: %w", err)
	}
	metas, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	docs := make([]domdoc.Document, 0, len(keys))
	for i, meta := range metas {
		if meta == nil {
			continue
		}
		if category != "" && domdoc.Category(meta[fieldCategory]) != category {
			continue
		}
		id := strings.TrimPrefix(keys[i], metaPrefix)
		doc, err := r.hydrate(ctx, id, meta)
		if err != nil {
			if errors.Is(err, domain.ErrDocumentNotFound) {
				continue
			}
			return nil, err
		}
		docs = append(docs, doc)
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].UploadedAt() < docs[j].UploadedAt()
	})
	return docs, nil
}

// Clear deletes every stored document.
func (r *Repo) Clear(ctx context.Context) error {
	for _, pattern := range []string{metaPrefix + "*", contentPrefix + "*"} {
		keys, err := r.store.Scan(ctx, pattern)
		if err != nil {
			return fmt.Errorf("scan %s: %w", pattern, err)
		}
		if _, err := r.store.Del(ctx, keys...); err != nil {
			return fmt.Errorf("clear documents: %w", err)
		}
	}
	return nil
}

func (r *Repo) hydrate(ctx context.Context, id string, meta map[string]string) (domdoc.Document, error) {
	content, err := r.store.Get(ctx, contentPrefix+id)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domdoc.Document{}, domain.ErrDocumentNotFound
		}
		return domdoc.Document{}, fmt.Errorf("get content %s: %w", id, err)
	}
	return parseHashFields(id, meta, content), nil
}
