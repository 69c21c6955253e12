// Package badger provides the Badger-backed book store.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/jackzampolin/lumina/internal/store"
	"github.com/jackzampolin/lumina/internal/types"
)

const (
	bookPrefix       = "book:"
	sourcePrefix     = "src:"
	ownerIndexPrefix = "idx:books:owner:"
)

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// Open opens (or creates) a Badger database in dir.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil      // Disable Badger's internal logging
	opts.SyncWrites = true // Sync writes so a crash cannot lose a saved book

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	logger.Info("badger book store opened", "path", dir)
	return &Store{db: db, logger: logger}, nil
}

// Close gracefully closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func bookKey(id string) []byte   { return []byte(bookPrefix + id) }
func sourceKey(id string) []byte { return []byte(sourcePrefix + id) }

func ownerKey(owner, id string) []byte {
	return []byte(ownerIndexPrefix + owner + ":" + id)
}

func ownerPrefix(owner string) []byte {
	return []byte(ownerIndexPrefix + owner + ":")
}

// Put inserts or replaces a book and keeps the owner index in step.
func (s *Store) Put(ctx context.Context, book *types.Book) error {
	if err := ctx.Err(); err != nil {
		return store.Wrap("put", "", err)
	}
	if err := store.Validate(book); err != nil {
		return store.Wrap("put", "", err)
	}

	data, err := json.Marshal(book)
	if err != nil {
		return store.Wrap("put", book.ID, fmt.Errorf("marshal book: %w", err))
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		prev, err := getBook(txn, book.ID)
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			return err
		case prev.OwnerID != book.OwnerID:
			if err := txn.Delete(ownerKey(prev.OwnerID, book.ID)); err != nil {
				return err
			}
		}

		if err := txn.Set(bookKey(book.ID), data); err != nil {
			return err
		}
		if len(book.SourceDocument) > 0 {
			if err := txn.Set(sourceKey(book.ID), book.SourceDocument); err != nil {
				return err
			}
		} else if err := txn.Delete(sourceKey(book.ID)); err != nil {
			return err
		}
		return txn.Set(ownerKey(book.OwnerID, book.ID), []byte{})
	})
	return store.Wrap("put", book.ID, err)
}

// Get returns a book including its source document.
func (s *Store) Get(ctx context.Context, id string) (*types.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.Wrap("get", id, err)
	}

	var book *types.Book
	err := s.db.View(func(txn *badger.Txn) error {
		b, err := getBook(txn, id)
		if err != nil {
			return err
		}

		item, err := txn.Get(sourceKey(id))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			src, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			b.SourceDocument = src
		}
		book = b
		return nil
	})
	if err != nil {
		return nil, store.Wrap("get", id, err)
	}
	return book, nil
}

// ListForUser scans the owner index and returns books newest first.
func (s *Store) ListForUser(ctx context.Context, userID string) ([]*types.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.Wrap("list", "", err)
	}

	books := make([]*types.Book, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := ownerPrefix(userID)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		var ids []string
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(prefix):]))
		}

		for _, id := range ids {
			b, err := getBook(txn, id)
			if errors.Is(err, store.ErrNotFound) {
				s.logger.Warn("owner index points at missing book", "book_id", id, "owner", userID)
				continue
			}
			if err != nil {
				return err
			}
			books = append(books, b)
		}
		return nil
	})
	if err != nil {
		return nil, store.Wrap("list", "", err)
	}

	store.SortNewestFirst(books)
	return books, nil
}

// Delete removes a book, its source document and its index entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return store.Wrap("delete", id, err)
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		b, err := getBook(txn, id)
		if err != nil {
			return err
		}
		for _, key := range [][]byte{bookKey(id), sourceKey(id), ownerKey(b.OwnerID, id)} {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	return store.Wrap("delete", id, err)
}

// getBook reads the record without its source document.
func getBook(txn *badger.Txn, id string) (*types.Book, error) {
	item, err := txn.Get(bookKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var b types.Book
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &b)
	})
	if err != nil {
		return nil, fmt.Errorf("unmarshal book: %w", err)
	}
	return &b, nil
}

var _ store.BookStore = (*Store)(nil)
