// Package types provides the book, chapter and audio part records shared across packages.
// This package has no dependencies on other lumina packages to avoid import cycles.
package types

import "time"

// ChapterStatus is the generation state of a chapter.
type ChapterStatus string

const (
	StatusIdle       ChapterStatus = "idle"
	StatusProcessing ChapterStatus = "processing"
	StatusCompleted  ChapterStatus = "completed"
	StatusError      ChapterStatus = "error"
)

// Book is a whole persisted book record. It is always replaced wholesale.
type Book struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"owner_id"`
	Title          string    `json:"title"`
	SourceDocument []byte    `json:"-"`
	Chapters       []Chapter `json:"chapters"`
	CreatedAt      time.Time `json:"created_at"`
}

// Chapter is one narratable section of a book.
type Chapter struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Summary    string        `json:"summary"`
	Status     ChapterStatus `json:"status"`
	Progress   int           `json:"progress"`
	AudioParts []AudioPart   `json:"audio_parts,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// AudioPart is the playable artifact produced from one text chunk.
type AudioPart struct {
	ID            string   `json:"id"`
	URL           string   `json:"url"`
	Label         string   `json:"label"`
	File          string   `json:"file"`             // Name within the chapter audio directory
	Duration      float64  `json:"duration_seconds"` // Playback length
	LastTimestamp *float64 `json:"last_timestamp,omitempty"`
}

// User is an authenticated or guest identity.
type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture,omitempty"`
}

// Guest identity values.
const (
	GuestUserID    = "guest_user_123"
	GuestUserName  = "Guest User"
	GuestUserEmail = "guest@example.com"
)

// GuestUser returns the fixed synthetic guest identity.
func GuestUser() User {
	return User{ID: GuestUserID, Name: GuestUserName, Email: GuestUserEmail}
}

// Chapter returns a pointer to the chapter with the given id, or nil.
func (b *Book) Chapter(id string) *Chapter {
	for i := range b.Chapters {
		if b.Chapters[i].ID == id {
			return &b.Chapters[i]
		}
	}
	return nil
}

// Part returns a pointer to the audio part with the given id, or nil.
func (c *Chapter) Part(id string) *AudioPart {
	for i := range c.AudioParts {
		if c.AudioParts[i].ID == id {
			return &c.AudioParts[i]
		}
	}
	return nil
}

// Normalize repairs chapters left in processing by an interrupted run.
func (b *Book) Normalize() {
	for i := range b.Chapters {
		b.Chapters[i].Normalize()
	}
}

// Normalize restores a chapter stuck in processing: chapters with audio
// become completed, the rest idle.
func (c *Chapter) Normalize() {
	if c.Status != StatusProcessing {
		return
	}
	if len(c.AudioParts) > 0 {
		c.Status = StatusCompleted
		c.Progress = 100
	} else {
		c.Status = StatusIdle
		c.Progress = 0
	}
}

// Clone returns a deep copy of the book so callers can mutate it freely.
func (b *Book) Clone() *Book {
	out := *b
	if b.SourceDocument != nil {
		out.SourceDocument = append([]byte(nil), b.SourceDocument...)
	}
	if b.Chapters == nil {
		return &out
	}
	out.Chapters = make([]Chapter, len(b.Chapters))
	for i, ch := range b.Chapters {
		out.Chapters[i] = ch
		if ch.AudioParts != nil {
			parts := make([]AudioPart, len(ch.AudioParts))
			for j, p := range ch.AudioParts {
				parts[j] = p
				if p.LastTimestamp != nil {
					ts := *p.LastTimestamp
					parts[j].LastTimestamp = &ts
				}
			}
			out.Chapters[i].AudioParts = parts
		}
	}
	return &out
}
