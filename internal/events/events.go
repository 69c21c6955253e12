// Package events fans out chapter generation progress to connected clients.
package events

import (
	"time"

	"github.com/jackzampolin/lumina/internal/types"
)

// Type identifies the kind of event.
type Type string

const (
	TypeChapterProgress Type = "chapter.progress"
	TypeChapterStatus   Type = "chapter.status"
	TypeBookCreated     Type = "book.created"
	TypeBookDeleted     Type = "book.deleted"
	TypeHeartbeat       Type = "heartbeat"
)

// Event is one message delivered to subscribers.
// UserID scopes delivery; an empty UserID reaches every subscriber.
type Event struct {
	Type      Type                `json:"type"`
	UserID    string              `json:"-"`
	BookID    string              `json:"book_id,omitempty"`
	ChapterID string              `json:"chapter_id,omitempty"`
	Status    types.ChapterStatus `json:"status,omitempty"`
	Progress  int                 `json:"progress"`
	Error     string              `json:"error,omitempty"`
	Time      time.Time           `json:"time"`
}

// ChapterEvent builds a progress or status event for one chapter.
func ChapterEvent(typ Type, userID, bookID string, ch *types.Chapter) Event {
	return Event{
		Type:      typ,
		UserID:    userID,
		BookID:    bookID,
		ChapterID: ch.ID,
		Status:    ch.Status,
		Progress:  ch.Progress,
		Error:     ch.Error,
		Time:      time.Now().UTC(),
	}
}

// NewHeartbeatEvent creates a keep-alive event for all subscribers.
func NewHeartbeatEvent() Event {
	return Event{Type: TypeHeartbeat, Time: time.Now().UTC()}
}
