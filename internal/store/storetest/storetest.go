// Package storetest provides a conformance suite run against every
// store.BookStore backend.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackzampolin/lumina/internal/store"
	"github.com/jackzampolin/lumina/internal/types"
)

// Factory opens a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) store.BookStore

// MakeBook returns a book with two chapters for tests.
func MakeBook(id, owner string, created time.Time) *types.Book {
	ts := 42.5
	return &types.Book{
		ID:             id,
		OwnerID:        owner,
		Title:          "Book " + id,
		SourceDocument: []byte("%PDF-1.4 test " + id),
		CreatedAt:      created.UTC(),
		Chapters: []types.Chapter{
			{
				ID:       "chapter-1",
				Title:    "One",
				Summary:  "First.",
				Status:   types.StatusCompleted,
				Progress: 100,
				AudioParts: []types.AudioPart{
					{ID: "chapter-1-part-0", URL: "/a/0", Label: "Part 1", File: "part_0000.wav", Duration: 3.5, LastTimestamp: &ts},
					{ID: "chapter-1-part-1", URL: "/a/1", Label: "Part 2", File: "part_0001.wav", Duration: 1.25},
				},
			},
			{ID: "chapter-2", Title: "Two", Summary: "Second.", Status: types.StatusIdle},
		},
	}
}

// Run executes the conformance suite.
func Run(t *testing.T, open Factory) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("put and get", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		book := MakeBook("b1", "u1", base)
		require.NoError(t, s.Put(ctx, book))

		got, err := s.Get(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, book, got)
	})

	t.Run("get missing", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		_, err := s.Get(ctx, "nope")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("put replaces whole record", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		book := MakeBook("b1", "u1", base)
		require.NoError(t, s.Put(ctx, book))

		book.Title = "Renamed"
		book.Chapters = book.Chapters[:1]
		book.Chapters[0].AudioParts = nil
		book.Chapters[0].Status = types.StatusError
		book.Chapters[0].Error = "boom"
		require.NoError(t, s.Put(ctx, book))

		got, err := s.Get(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Title)
		require.Len(t, got.Chapters, 1)
		assert.Empty(t, got.Chapters[0].AudioParts)
		assert.Equal(t, "boom", got.Chapters[0].Error)
	})

	t.Run("stored copy is isolated", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		book := MakeBook("b1", "u1", base)
		require.NoError(t, s.Put(ctx, book))
		book.Chapters[0].Title = "mutated after put"

		got, err := s.Get(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, "One", got.Chapters[0].Title)
	})

	t.Run("list for user newest first", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		require.NoError(t, s.Put(ctx, MakeBook("old", "u1", base)))
		require.NoError(t, s.Put(ctx, MakeBook("new", "u1", base.Add(time.Hour))))
		require.NoError(t, s.Put(ctx, MakeBook("mid", "u1", base.Add(time.Minute))))
		require.NoError(t, s.Put(ctx, MakeBook("other", "u2", base.Add(2*time.Hour))))

		books, err := s.ListForUser(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, books, 3)
		assert.Equal(t, "new", books[0].ID)
		assert.Equal(t, "mid", books[1].ID)
		assert.Equal(t, "old", books[2].ID)
		for _, b := range books {
			assert.Nil(t, b.SourceDocument, "list must not load source documents")
			assert.Len(t, b.Chapters, 2)
		}

		empty, err := s.ListForUser(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("owner change moves book between users", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		book := MakeBook("b1", "u1", base)
		require.NoError(t, s.Put(ctx, book))
		book.OwnerID = "u2"
		require.NoError(t, s.Put(ctx, book))

		u1, err := s.ListForUser(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, u1)
		u2, err := s.ListForUser(ctx, "u2")
		require.NoError(t, err)
		assert.Len(t, u2, 1)
	})

	t.Run("delete", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		require.NoError(t, s.Put(ctx, MakeBook("b1", "u1", base)))
		require.NoError(t, s.Delete(ctx, "b1"))

		_, err := s.Get(ctx, "b1")
		assert.ErrorIs(t, err, store.ErrNotFound)
		books, err := s.ListForUser(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, books)

		assert.ErrorIs(t, s.Delete(ctx, "b1"), store.ErrNotFound)
	})

	t.Run("rejects invalid book", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		err := s.Put(ctx, &types.Book{OwnerID: "u1"})
		var pe *store.PersistenceError
		assert.ErrorAs(t, err, &pe)
	})

	t.Run("concurrent puts", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				b := MakeBook(fmt.Sprintf("b%d", i), "u1", base.Add(time.Duration(i)*time.Second))
				assert.NoError(t, s.Put(ctx, b))
			}(i)
		}
		wg.Wait()

		books, err := s.ListForUser(ctx, "u1")
		require.NoError(t, err)
		assert.Len(t, books, 10)
		assert.Equal(t, "b9", books[0].ID)
	})
}
