package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackzampolin/lumina/internal/id"
)

// DefaultBufferSize is the per-subscriber event buffer.
const DefaultBufferSize = 100

// Publisher is the narrow interface the pipeline publishes through.
type Publisher interface {
	Publish(Event)
}

// Subscriber is one connected client.
type Subscriber struct {
	ID          string
	UserID      string
	Events      chan Event
	ConnectedAt time.Time
}

// Broker delivers events to subscribers filtered by user.
// Delivery never blocks: a subscriber whose buffer is full misses the event.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	closed      bool

	logger     *slog.Logger
	bufferSize int
}

// NewBroker creates a new Broker.
func NewBroker(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		subscribers: make(map[string]*Subscriber),
		logger:      logger,
		bufferSize:  DefaultBufferSize,
	}
}

// Subscribe registers a subscriber for a user's events.
// The returned function removes the subscriber and closes its channel.
func (b *Broker) Subscribe(userID string) (*Subscriber, func(), error) {
	subID, err := id.Generate("sub")
	if err != nil {
		return nil, nil, err
	}
	sub := &Subscriber{
		ID:          subID,
		UserID:      userID,
		Events:      make(chan Event, b.bufferSize),
		ConnectedAt: time.Now(),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.Events)
		return sub, func() {}, nil
	}
	b.subscribers[sub.ID] = sub
	total := len(b.subscribers)
	b.mu.Unlock()

	b.logger.Info("event subscriber connected",
		"subscriber_id", sub.ID,
		"user_id", userID,
		"total_subscribers", total)

	return sub, func() { b.unsubscribe(sub.ID) }, nil
}

func (b *Broker) unsubscribe(subID string) {
	b.mu.Lock()
	sub, ok := b.subscribers[subID]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(b.subscribers, subID)
	total := len(b.subscribers)
	close(sub.Events)
	b.mu.Unlock()

	b.logger.Info("event subscriber disconnected",
		"subscriber_id", subID,
		"duration", time.Since(sub.ConnectedAt),
		"total_subscribers", total)
}

// Publish delivers an event to every matching subscriber.
func (b *Broker) Publish(event Event) {
	if b == nil {
		return
	}
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}

	var delivered, dropped int

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	for _, sub := range b.subscribers {
		if event.UserID != "" && sub.UserID != event.UserID {
			continue
		}
		select {
		case sub.Events <- event:
			delivered++
		default:
			dropped++
			b.logger.Warn("dropped event for slow subscriber",
				"subscriber_id", sub.ID,
				"event_type", string(event.Type))
		}
	}

	if event.Type != TypeHeartbeat {
		b.logger.Debug("event published",
			"event_type", string(event.Type),
			"book_id", event.BookID,
			"chapter_id", event.ChapterID,
			"delivered", delivered,
			"dropped", dropped)
	}
}

// Count returns the number of connected subscribers.
func (b *Broker) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Heartbeat publishes a heartbeat at the given interval until ctx is done.
func (b *Broker) Heartbeat(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			b.Publish(NewHeartbeatEvent())
		case <-ctx.Done():
			return
		}
	}
}

// Close disconnects every subscriber. Later publishes are ignored.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for subID, sub := range b.subscribers {
		close(sub.Events)
		delete(b.subscribers, subID)
	}
	b.logger.Info("event broker closed")
}
