package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is a single admin audit trail entry. ActorKeyID identifies the
// API key that performed the action; entity fields point at the feature
// or rule that changed.
type Event struct {
	ID         string         `json:"id"`
	ActorKeyID string         `json:"actorKeyId,omitempty"`
	Action     string         `json:"action"`
	EntityType string         `json:"entityType"`
	EntityID   string         `json:"entityId"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// Validate checks the event carries the fields every trail entry needs.
func (e *Event) Validate() error {
	if e.Action == "" {
		return fmt.Errorf("%w: action is required", ErrInvalidEvent)
	}
	if e.EntityType == "" {
		return fmt.Errorf("%w: entity type is required", ErrInvalidEvent)
	}
	return nil
}

// Storage persists and lists audit events. Implementations must return
// events newest first.
type Storage interface {
	Store(ctx context.Context, event Event) error
	List(ctx context.Context, filter Filter) ([]Event, error)
}

// Filter narrows List results. Zero values mean "any".
type Filter struct {
	EntityType string
	EntityID   string
	Action     string
	Limit      int
	Offset     int
}

const defaultListLimit = 50

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

// ActorExtractor pulls the acting API key id out of a request context.
type ActorExtractor func(context.Context) (string, bool)

// Logger writes admin actions to a Storage backend.
type Logger struct {
	storage Storage
	actor   ActorExtractor
}

// Option configures a Logger.
type Option func(*Logger)

// WithActorExtractor wires the context lookup that attributes events to
// the authenticated API key.
func WithActorExtractor(fn ActorExtractor) Option {
	return func(l *Logger) { l.actor = fn }
}

// NewLogger creates an audit logger over the given storage.
func NewLogger(storage Storage, opts ...Option) *Logger {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}
	l := &Logger{storage: storage}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record satisfies the mutation paths' auditor hook: each feature or rule
// change lands here with the entity it touched and a metadata snapshot.
func (l *Logger) Record(ctx context.Context, action, entityType, entityID string, metadata map[string]any) {
	event := Event{
		ID:         uuid.New().String(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   metadata,
		CreatedAt:  time.Now().UTC(),
	}
	if l.actor != nil {
		if keyID, ok := l.actor(ctx); ok {
			event.ActorKeyID = keyID
		}
	}
	if err := event.Validate(); err != nil {
		return
	}
	// Audit failures never block the mutation that triggered them.
	_ = l.storage.Store(ctx, event)
}

// List returns trail entries matching the filter, newest first.
func (l *Logger) List(ctx context.Context, filter Filter) ([]Event, error) {
	return l.storage.List(ctx, filter)
}
