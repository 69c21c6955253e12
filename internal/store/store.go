// Package store persists whole book records.
//
// A book is written by replacing the entire record. Callers serialize writes
// per book id; the store itself is last-writer-wins.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackzampolin/lumina/internal/types"
)

// ErrNotFound is returned when a book does not exist.
var ErrNotFound = errors.New("book not found")

// BookStore is a keyed record store for books.
type BookStore interface {
	// Put inserts or replaces the whole record.
	Put(ctx context.Context, book *types.Book) error

	// Get returns the book including its source document.
	Get(ctx context.Context, id string) (*types.Book, error)

	// ListForUser returns the user's books, newest first. Source documents
	// are not loaded.
	ListForUser(ctx context.Context, userID string) ([]*types.Book, error)

	// Delete removes the record. Deleting a missing book returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	Close() error
}

// PersistenceError wraps a failure of the backing store.
type PersistenceError struct {
	Op     string
	BookID string
	Err    error
}

func (e *PersistenceError) Error() string {
	if e.BookID == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, e.BookID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Wrap returns err as a PersistenceError unless it is nil or ErrNotFound.
func Wrap(op, bookID string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, BookID: bookID, Err: err}
}

// Validate checks the fields every backend requires.
func Validate(book *types.Book) error {
	if book == nil {
		return fmt.Errorf("book is nil")
	}
	if book.ID == "" {
		return fmt.Errorf("book id is required")
	}
	if book.OwnerID == "" {
		return fmt.Errorf("book owner is required")
	}
	return nil
}

// SortNewestFirst orders books by creation time descending, then id.
func SortNewestFirst(books []*types.Book) {
	sort.SliceStable(books, func(i, j int) bool {
		if !books[i].CreatedAt.Equal(books[j].CreatedAt) {
			return books[i].CreatedAt.After(books[j].CreatedAt)
		}
		return books[i].ID < books[j].ID
	})
}
