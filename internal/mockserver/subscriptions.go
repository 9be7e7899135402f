package mockserver

import (
	"fmt"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Subscriptions is a bounded registry of subscription id to resource uri.
// The oldest subscription is evicted once capacity is reached.
type Subscriptions struct {
	entries *lru.Cache[string, string]
}

// NewSubscriptions creates a registry holding at most capacity subscriptions
func NewSubscriptions(capacity int) (*Subscriptions, error) {
	cache, err := lru.New[string, string](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription registry: %w", err)
	}
	return &Subscriptions{entries: cache}, nil
}

// Subscribe registers uri and returns a fresh subscription id
func (s *Subscriptions) Subscribe(uri string) string {
	id := uuid.New().String()
	s.entries.Add(id, uri)
	return id
}

// Unsubscribe removes id, reporting whether it was known
func (s *Subscriptions) Unsubscribe(id string) (string, bool) {
	uri, ok := s.entries.Peek(id)
	if !ok {
		return "", false
	}
	s.entries.Remove(id)
	return uri, true
}

// Len returns the number of live subscriptions
func (s *Subscriptions) Len() int {
	return s.entries.Len()
}
