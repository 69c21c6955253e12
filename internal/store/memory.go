package store

import (
	"context"
	"sync"

	"github.com/jackzampolin/lumina/internal/types"
)

// MemoryStore keeps books in process memory. Used by tests and by the
// "memory" driver.
type MemoryStore struct {
	mu    sync.RWMutex
	books map[string]*types.Book
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{books: make(map[string]*types.Book)}
}

// Put stores a deep copy of book.
func (s *MemoryStore) Put(ctx context.Context, book *types.Book) error {
	if err := ctx.Err(); err != nil {
		return Wrap("put", "", err)
	}
	if err := Validate(book); err != nil {
		return Wrap("put", "", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books[book.ID] = book.Clone()
	return nil
}

// Get returns a deep copy of the stored book.
func (s *MemoryStore) Get(ctx context.Context, id string) (*types.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, Wrap("get", id, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[id]
	if !ok {
		return nil, ErrNotFound
	}
	return b.Clone(), nil
}

// ListForUser returns copies of the user's books without source documents.
func (s *MemoryStore) ListForUser(ctx context.Context, userID string) ([]*types.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, Wrap("list", "", err)
	}
	s.mu.RLock()
	out := make([]*types.Book, 0)
	for _, b := range s.books {
		if b.OwnerID != userID {
			continue
		}
		c := b.Clone()
		c.SourceDocument = nil
		out = append(out, c)
	}
	s.mu.RUnlock()

	SortNewestFirst(out)
	return out, nil
}

// Delete removes a book.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return Wrap("delete", id, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.books[id]; !ok {
		return ErrNotFound
	}
	delete(s.books, id)
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

var _ BookStore = (*MemoryStore)(nil)
