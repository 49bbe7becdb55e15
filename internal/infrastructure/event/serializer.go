package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/admarket/backend/internal/domain/shared"
)

// ErrUnknownEventType means an outbox row names a type no factory decodes,
// typically an event renamed or removed after it was written.
var ErrUnknownEventType = errors.New("unknown event type")

// EventFactory returns a zero event to decode a payload into.
type EventFactory func() shared.DomainEvent

// EventSerializer encodes events as JSON outbox payloads and decodes them
// back into their concrete types by event type name.
type EventSerializer struct {
	mu        sync.RWMutex
	factories map[string]EventFactory
}

func NewEventSerializer() *EventSerializer {
	return &EventSerializer{factories: make(map[string]EventFactory)}
}

func (s *EventSerializer) Register(eventType string, factory EventFactory) {
	s.mu.Lock()
	s.factories[eventType] = factory
	s.mu.Unlock()
}

func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event.EventType(), err)
	}
	return payload, nil
}

// Deserialize decodes data as eventType. Both failure modes are permanent
// for a stored payload: retrying the same bytes cannot succeed.
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	factory, ok := s.factories[eventType]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, eventType)
	}

	event := factory()
	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("decode %s: %w", eventType, err)
	}
	return event, nil
}

func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.factories[eventType]
	return ok
}

// RegisteredTypes lists the decodable types in sorted order.
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.factories))
}
