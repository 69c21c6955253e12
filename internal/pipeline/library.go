package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/lumina/internal/events"
	"github.com/jackzampolin/lumina/internal/store"
	"github.com/jackzampolin/lumina/internal/types"
)

// ErrNotPDF is returned when an upload is not a PDF document.
var ErrNotPDF = errors.New("only PDF documents are supported")

// ErrInvalidPosition is returned for a negative playback position.
var ErrInvalidPosition = errors.New("playback position must not be negative")

// pdfMagic starts every PDF file.
var pdfMagic = []byte("%PDF-")

// ChapterSegmenter identifies the chapters of a book from its full text.
type ChapterSegmenter interface {
	Identify(ctx context.Context, fullText string) ([]types.Chapter, error)
}

// IsPDF reports whether document starts with the PDF header.
func IsPDF(document []byte) bool {
	return bytes.HasPrefix(document, pdfMagic)
}

// TitleFromFilename derives a book title from an uploaded file name.
func TitleFromFilename(name string) string {
	base := filepath.Base(name)
	if ext := filepath.Ext(base); strings.EqualFold(ext, ".pdf") {
		base = base[:len(base)-len(ext)]
	}
	base = strings.TrimSpace(base)
	if base == "" || base == "." {
		return "Untitled"
	}
	return base
}

// Import creates a book from an uploaded PDF: extract the text, identify
// chapters and persist the record. Nothing is stored when any step fails.
func (o *Orchestrator) Import(ctx context.Context, user types.User, title string, document []byte) (*types.Book, error) {
	if o.cfg.Segmenter == nil {
		return nil, fmt.Errorf("import requires a chapter segmenter")
	}
	if !IsPDF(document) {
		return nil, ErrNotPDF
	}

	fullText, err := o.cfg.Extractor.ExtractFullText(ctx, document)
	if err != nil {
		return nil, err
	}
	chs, err := o.cfg.Segmenter.Identify(ctx, fullText)
	if err != nil {
		return nil, err
	}

	book := &types.Book{
		ID:             uuid.NewString(),
		OwnerID:        user.ID,
		Title:          title,
		SourceDocument: document,
		Chapters:       chs,
		CreatedAt:      time.Now().UTC(),
	}

	unlock := o.books.Lock(book.ID)
	defer unlock()

	if err := o.cfg.Home.EnsureBookDir(book.ID); err != nil {
		return nil, fmt.Errorf("failed to create book dir: %w", err)
	}
	if err := os.WriteFile(o.cfg.Home.SourcePath(book.ID), document, 0o644); err != nil {
		_ = o.cfg.Home.RemoveBook(book.ID)
		return nil, fmt.Errorf("failed to write source document: %w", err)
	}
	if err := o.cfg.Store.Put(ctx, book); err != nil {
		_ = o.cfg.Home.RemoveBook(book.ID)
		return nil, err
	}

	o.cfg.Logger.Info("book imported",
		"book_id", book.ID,
		"user_id", user.ID,
		"chapters", len(chs),
		"text_chars", len([]rune(fullText)))
	o.cfg.Events.Publish(events.Event{Type: events.TypeBookCreated, UserID: user.ID, BookID: book.ID})
	return book, nil
}

// Book returns one of the user's books prepared for display.
func (o *Orchestrator) Book(ctx context.Context, user types.User, bookID string) (*types.Book, error) {
	book, err := o.loadBook(ctx, user, bookID)
	if err != nil {
		return nil, err
	}
	o.View(book)
	return book, nil
}

// Books returns the user's books, newest first, prepared for display.
func (o *Orchestrator) Books(ctx context.Context, user types.User) ([]*types.Book, error) {
	books, err := o.cfg.Store.ListForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	for _, b := range books {
		o.View(b)
	}
	return books, nil
}

// PartFile returns the on-disk path of a published audio part.
func (o *Orchestrator) PartFile(ctx context.Context, user types.User, bookID, chapterID, partID string) (string, *types.AudioPart, error) {
	book, err := o.loadBook(ctx, user, bookID)
	if err != nil {
		return "", nil, err
	}
	ch := book.Chapter(chapterID)
	if ch == nil {
		return "", nil, ErrChapterNotFound
	}
	part := ch.Part(partID)
	if part == nil || part.File == "" {
		return "", nil, ErrPartNotFound
	}
	return filepath.Join(o.cfg.Home.ChapterAudioDir(bookID, chapterID), part.File), part, nil
}

// UpdatePosition records the playback position of an audio part. It touches
// only the part's timestamp and is serialized with pipeline writes to the
// same book.
func (o *Orchestrator) UpdatePosition(ctx context.Context, user types.User, bookID, chapterID, partID string, seconds float64) (*types.AudioPart, error) {
	if seconds < 0 {
		return nil, ErrInvalidPosition
	}

	unlock := o.books.Lock(bookID)
	defer unlock()

	book, err := o.loadBook(ctx, user, bookID)
	if err != nil {
		return nil, err
	}
	ch := book.Chapter(chapterID)
	if ch == nil {
		return nil, ErrChapterNotFound
	}
	part := ch.Part(partID)
	if part == nil {
		return nil, ErrPartNotFound
	}
	ts := seconds
	part.LastTimestamp = &ts
	if err := o.cfg.Store.Put(ctx, book); err != nil {
		return nil, err
	}

	out := *part
	return &out, nil
}

// DeleteBook removes the record and every file stored for the book. Runs in
// flight for the book fail once their output directory is gone.
func (o *Orchestrator) DeleteBook(ctx context.Context, user types.User, bookID string) error {
	unlock := o.books.Lock(bookID)
	defer unlock()

	if _, err := o.loadBook(ctx, user, bookID); err != nil {
		return err
	}
	if err := o.cfg.Store.Delete(ctx, bookID); err != nil {
		return err
	}
	if err := o.cfg.Home.RemoveBook(bookID); err != nil {
		o.cfg.Logger.Warn("failed to remove book files", "book_id", bookID, "error", err)
	}

	o.cfg.Logger.Info("book deleted", "book_id", bookID, "user_id", user.ID)
	o.cfg.Events.Publish(events.Event{Type: events.TypeBookDeleted, UserID: user.ID, BookID: bookID})
	return nil
}

// IsNotFound reports whether err means the requested book, chapter or part
// does not exist for the caller.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound) ||
		errors.Is(err, ErrChapterNotFound) ||
		errors.Is(err, ErrPartNotFound)
}
