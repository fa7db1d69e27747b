package summary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/tenderdraft/internal/db"
	"github.com/kailas-cloud/tenderdraft/internal/domain"
	domsummary "github.com/kailas-cloud/tenderdraft/internal/domain/summary"
)

var keyPrefix = domain.KeyPrefix + "summary:"

// store is the consumer interface for the summary cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, keys ...string) (int64, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements usecase/analyzer.Cache as JSON values keyed by document ID.
// Concurrent writers for one document are last-writer-wins.
type Repo struct {
	store store
}

// New creates a summary repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Get returns the cached summary or domain.ErrNotFound.
func (r *Repo) Get(ctx context.Context, documentID string) (domsummary.Summary, error) {
	raw, err := r.store.Get(ctx, keyPrefix+documentID)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domsummary.Summary{}, domain.ErrNotFound
		}
		return domsummary.Summary{}, fmt.Errorf("get summary %s: %w", documentID, err)
	}
	var s domsummary.Summary
	if err := json.Unmarshal(raw, &s); err != nil {
		return domsummary.Summary{}, fmt.Errorf("decode summary %s: %w", documentID, err)
	}
	return s, nil
}

// Put stores a summary.
func (r *Repo) Put(ctx context.Context, s domsummary.Summary) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := r.store.Set(ctx, keyPrefix+s.DocumentID, raw); err != nil {
		return fmt.Errorf("set summary %s: %w", s.DocumentID, err)
	}
	return nil
}

// Delete invalidates one document's summary.
func (r *Repo) Delete(ctx context.Context, documentID string) error {
	if _, err := r.store.Del(ctx, keyPrefix+documentID); err != nil {
		return fmt.Errorf("delete summary %s: %w", documentID, err)
	}
	return nil
}

// Clear invalidates every summary.
func (r *Repo) Clear(ctx context.Context) error {
	keys, err := r.store.Scan(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("scan summaries: %w", err)
	}
	if _, err := r.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("clear summaries: %w", err)
	}
	return nil
}
