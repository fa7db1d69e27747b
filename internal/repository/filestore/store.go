// Package filestore keeps documents on the local filesystem, one directory per category.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/kailas-cloud/tenderdraft/internal/domain"
	domdoc "github.com/kailas-cloud/tenderdraft/internal/domain/document"
)

const (
	metadataSuffix = "-metadata.json"
	contentSuffix  = "-content"
)

var categories = []domdoc.Category{domdoc.CategoryRequirements, domdoc.CategoryCapabilities}

type metadata struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Category   string `json:"category"`
	MIMEType   string `json:"mimeType"`
	FileName   string `json:"fileName"`
	UploadedAt int64  `json:"uploadedAt"`
	Size       int64  `json:"size"`
	Binary     bool   `json:"binary"`
	BodyMIME   string `json:"bodyMimeType,omitempty"`
}

// Store implements usecase/document.Store on a directory tree:
// <root>/<category>/<id>-metadata.json and <root>/<category>/<id>-content.
type Store struct {
	root string
	mu   sync.RWMutex
}

// New creates a filesystem store rooted at root.
func New(root string) *Store {
	return &Store{root: root}
}

// Init creates the category directories.
func (s *Store) Init(_ context.Context) error {
	for _, c := range categories {
		if err := os.MkdirAll(s.dir(c), 0o750); err != nil {
			return fmt.Errorf("create %s: %w", s.dir(c), err)
		}
	}
	return nil
}

// Put writes content then metadata; the metadata file makes the document visible.
func (s *Store) Put(ctx context.Context, doc domdoc.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	meta := metadata{
		ID:         doc.ID(),
		Title:      doc.Title(),
		Category:   string(doc.Category()),
		MIMEType:   doc.MIMEType(),
		FileName:   doc.FileName(),
		UploadedAt: doc.UploadedAt(),
		Size:       doc.Size(),
	}
	var content []byte
	switch b := doc.Body().(type) {
	case domain.TextPart:
		content = []byte(b.Text)
	case domain.FilePart:
		content = b.Data
		meta.Binary = true
		meta.BodyMIME = b.MIMEType
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.dir(doc.Category())
	if err := writeFile(filepath.Join(dir, doc.ID()+contentSuffix), content); err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, doc.ID()+metadataSuffix), raw)
}

// Get returns a document by ID from whichever category holds it.
func (s *Store) Get(ctx context.Context, id string) (domdoc.Document, error) {
	if err := ctx.Err(); err != nil {
		return domdoc.Document{}, err
	}
	if !validID(id) {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range categories {
		doc, err := s.read(c, id)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return doc, err
	}
	return domdoc.Document{}, domain.ErrDocumentNotFound
}

// Delete removes both files. ErrDocumentNotFound when no metadata existed.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validID(id) {
		return domain.ErrDocumentNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for _, c := range categories {
		dir := s.dir(c)
		err := os.Remove(filepath.Join(dir, id+metadataSuffix))
		switch {
		case err == nil:
			found = true
		case !errors.Is(err, fs.ErrNotExist):
			return fmt.Errorf("remove metadata %s: %w", id, err)
		}
		if err := os.Remove(filepath.Join(dir, id+contentSuffix)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove content %s: %w", id, err)
		}
	}
	if !found {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// List returns documents of one category (all when empty), oldest first.
func (s *Store) List(ctx context.Context, category domdoc.Category) ([]domdoc.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []domdoc.Document
	for _, c := range categories {
		if category != "" && c != category {
			continue
		}
		entries, err := os.ReadDir(s.dir(c))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", s.dir(c), err)
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || !strings.HasSuffix(name, metadataSuffix) {
				continue
			}
			doc, err := s.read(c, strings.TrimSuffix(name, metadataSuffix))
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				return nil, err
			}
			docs = append(docs, doc)
		}
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].UploadedAt() < docs[j].UploadedAt()
	})
	return docs, nil
}

// Clear removes every document file and recreates empty category directories.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	for _, c := range categories {
		if err := os.RemoveAll(s.dir(c)); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("remove %s: %w", s.dir(c), err)
		}
	}
	s.mu.Unlock()
	return s.Init(ctx)
}

func (s *Store) dir(c domdoc.Category) string {
	return filepath.Join(s.root, string(c))
}

func (s *Store) read(c domdoc.Category, id string) (domdoc.Document, error) {
	dir := s.dir(c)
	raw, err := os.ReadFile(filepath.Join(dir, id+metadataSuffix))
	if err != nil {
		return domdoc.Document{}, err //nolint:wrapcheck // callers test fs.ErrNotExist
	}
	var meta metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return domdoc.Document{}, fmt.Errorf("parse metadata %s: %w", id, err)
	}
	content, err := os.ReadFile(filepath.Join(dir, id+contentSuffix))
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("read content %s: %w", id, err)
	}

	var body domain.Part = domain.TextPart{Text: string(content)}
	if meta.Binary {
		body = domain.FilePart{MIMEType: meta.BodyMIME, Data: content}
	}
	return domdoc.Reconstruct(
		meta.ID, meta.Title, domdoc.Category(meta.Category), body,
		meta.MIMEType, meta.FileName, meta.UploadedAt, meta.Size,
	), nil
}

// writeFile writes via a temp file and rename so readers never see partial content.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// validID rejects path separators and dot segments.
func validID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}
