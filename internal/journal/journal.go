// internal/journal/journal.go

// Package journal keeps an in-memory, append-only record of library events.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrConcurrencyConflict = errors.New("concurrency conflict: version mismatch")
	ErrInvalidVersion      = errors.New("invalid version number")
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Event represents a recorded domain event with its metadata.
type Event struct {
	Sequence      int64           `json:"sequence"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	EventData     json.RawMessage `json:"event_data"`
	Version       int             `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewEvent encodes data as the payload of an event of the given type.
func NewEvent(eventType string, data any) (Event, error) {
	raw, err := codec.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal event data: %w", err)
	}
	return Event{EventType: eventType, EventData: raw}, nil
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	return codec.Unmarshal(e.EventData, v)
}

// Journal stores events per aggregate with optimistic concurrency control.
type Journal struct {
	mu       sync.RWMutex
	events   []Event
	versions map[uuid.UUID]int
	now      func() time.Time
	tracer   trace.Tracer
}

// Option configures a Journal.
type Option func(*Journal)

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(j *Journal) { j.tracer = tp.Tracer("librarium/journal") }
}

func WithClock(now func() time.Time) Option {
	return func(j *Journal) { j.now = now }
}

func New(opts ...Option) *Journal {
	j := &Journal{
		versions: make(map[uuid.UUID]int),
		now:      time.Now,
		tracer:   otel.Tracer("librarium/journal"),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Append atomically appends events after checking the aggregate is at expectedVersion.
func (j *Journal) Append(ctx context.Context, aggregateID uuid.UUID, aggregateType string, expectedVersion int, events ...Event) error {
	_, span := j.tracer.Start(ctx, "journal.append",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID.String()),
			attribute.String("aggregate.type", aggregateType),
			attribute.Int("expected.version", expectedVersion),
			attribute.Int("event.count", len(events)),
		),
	)
	defer span.End()

	if expectedVersion < 0 {
		return ErrInvalidVersion
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	currentVersion := j.versions[aggregateID]
	if currentVersion != expectedVersion {
		span.SetAttributes(
			attribute.Int("actual.version", currentVersion),
			attribute.Bool("conflict.detected", true),
		)
		return ErrConcurrencyConflict
	}

	createdAt := j.now().UTC()
	for i, event := range events {
		event.Sequence = int64(len(j.events)) + 1
		event.AggregateID = aggregateID
		event.AggregateType = aggregateType
		event.Version = expectedVersion + i + 1
		event.CreatedAt = createdAt
		j.events = append(j.events, event)

		span.AddEvent("event.appended", trace.WithAttributes(
			attribute.Int64("event.sequence", event.Sequence),
			attribute.Int("event.version", event.Version),
			attribute.String("event.type", event.EventType),
		))
	}
	j.versions[aggregateID] = expectedVersion + len(events)

	span.SetAttributes(attribute.Bool("append.success", true))
	return nil
}

// Record appends events at whatever version the aggregate is currently at.
func (j *Journal) Record(ctx context.Context, aggregateID uuid.UUID, aggregateType string, events ...Event) error {
	for {
		version, err := j.CurrentVersion(ctx, aggregateID)
		if err != nil {
			return err
		}
		err = j.Append(ctx, aggregateID, aggregateType, version, events...)
		if !errors.Is(err, ErrConcurrencyConflict) {
			return err
		}
	}
}

// Load returns the events of one aggregate between two versions, inclusive.
// A toVersion of zero means no upper bound.
func (j *Journal) Load(ctx context.Context, aggregateID uuid.UUID, fromVersion, toVersion int) ([]Event, error) {
	_, span := j.tracer.Start(ctx, "journal.load",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID.String()),
			attribute.Int("from.version", fromVersion),
			attribute.Int("to.version", toVersion),
		),
	)
	defer span.End()

	j.mu.RLock()
	defer j.mu.RUnlock()

	events := []Event{}
	for _, event := range j.events {
		if event.AggregateID != aggregateID || event.Version < fromVersion {
			continue
		}
		if toVersion > 0 && event.Version > toVersion {
			continue
		}
		events = append(events, event)
	}

	span.SetAttributes(attribute.Int("events.loaded", len(events)))
	return events, nil
}

// CurrentVersion returns the latest version for an aggregate, zero if unknown.
func (j *Journal) CurrentVersion(ctx context.Context, aggregateID uuid.UUID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.versions[aggregateID], nil
}

// Stream returns up to batchSize events recorded after fromSequence.
func (j *Journal) Stream(ctx context.Context, fromSequence int64, batchSize int) ([]Event, error) {
	_, span := j.tracer.Start(ctx, "journal.stream",
		trace.WithAttributes(
			attribute.Int64("from.sequence", fromSequence),
			attribute.Int("batch.size", batchSize),
		),
	)
	defer span.End()

	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	start := fromSequence
	if start < 0 {
		start = 0
	}
	if start > int64(len(j.events)) {
		start = int64(len(j.events))
	}
	end := start + int64(batchSize)
	if end > int64(len(j.events)) {
		end = int64(len(j.events))
	}

	events := make([]Event, end-start)
	copy(events, j.events[start:end])

	span.SetAttributes(attribute.Int("events.streamed", len(events)))
	return events, nil
}
