// Package sqlite provides the SQLite-backed book store.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackzampolin/lumina/internal/store"
	"github.com/jackzampolin/lumina/internal/types"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store provides SQLite-backed persistence for books.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates a new SQLite store at the given path.
// It configures WAL mode, sets pragmas, and runs schema migrations.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	logger.Info("sqlite book store opened", "path", path)
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put inserts or replaces a book record.
func (s *Store) Put(ctx context.Context, book *types.Book) error {
	if err := store.Validate(book); err != nil {
		return store.Wrap("put", "", err)
	}

	chapters, err := json.Marshal(book.Chapters)
	if err != nil {
		return store.Wrap("put", book.ID, fmt.Errorf("marshal chapters: %w", err))
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO books (id, owner_id, title, created_at, updated_at, chapters, source)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			title = excluded.title,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			chapters = excluded.chapters,
			source = excluded.source`,
		book.ID,
		book.OwnerID,
		book.Title,
		book.CreatedAt.UnixNano(),
		formatTime(time.Now()),
		string(chapters),
		book.SourceDocument,
	)
	return store.Wrap("put", book.ID, err)
}

// Get returns a book including its source document.
func (s *Store) Get(ctx context.Context, id string) (*types.Book, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, title, created_at, chapters, source FROM books WHERE id = ?`, id)

	var (
		b         types.Book
		createdAt int64
		chapters  string
		source    []byte
	)
	err := row.Scan(&b.ID, &b.OwnerID, &b.Title, &createdAt, &chapters, &source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, store.Wrap("get", id, err)
	}
	if err := decodeChapters(chapters, &b); err != nil {
		return nil, store.Wrap("get", id, err)
	}
	b.CreatedAt = time.Unix(0, createdAt).UTC()
	if len(source) > 0 {
		b.SourceDocument = source
	}
	return &b, nil
}

// ListForUser returns a user's books, newest first, without source documents.
func (s *Store) ListForUser(ctx context.Context, userID string) ([]*types.Book, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, title, created_at, chapters FROM books
		WHERE owner_id = ?
		ORDER BY created_at DESC, id ASC`, userID)
	if err != nil {
		return nil, store.Wrap("list", "", err)
	}
	defer rows.Close()

	books := make([]*types.Book, 0)
	for rows.Next() {
		var (
			b         types.Book
			createdAt int64
			chapters  string
		)
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Title, &createdAt, &chapters); err != nil {
			return nil, store.Wrap("list", "", err)
		}
		if err := decodeChapters(chapters, &b); err != nil {
			return nil, store.Wrap("list", b.ID, err)
		}
		b.CreatedAt = time.Unix(0, createdAt).UTC()
		books = append(books, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Wrap("list", "", err)
	}
	return books, nil
}

// Delete removes a book record.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return store.Wrap("delete", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.Wrap("delete", id, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func decodeChapters(raw string, b *types.Book) error {
	if err := json.Unmarshal([]byte(raw), &b.Chapters); err != nil {
		return fmt.Errorf("unmarshal chapters: %w", err)
	}
	return nil
}

// formatTime formats a time.Time to RFC3339Nano for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

var _ store.BookStore = (*Store)(nil)
