package sqlite

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackzampolin/lumina/internal/store"
	"github.com/jackzampolin/lumina/internal/store/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(dbPath, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.BookStore {
		return newTestStore(t)
	})
}

func TestReopenKeepsBooks(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "books.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := Open(dbPath, logger)
	require.NoError(t, err)
	book := storetest.MakeBook("b1", "u1", time.Date(2025, 1, 2, 3, 4, 5, 6, time.UTC))
	require.NoError(t, s.Put(ctx, book))
	require.NoError(t, s.Close())

	s, err = Open(dbPath, logger)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, book, got)
}
