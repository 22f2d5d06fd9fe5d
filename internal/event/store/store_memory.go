// Package store persists events and RSVPs.
package store

import (
	"context"
	"sort"
	"sync"

	"treehouse/internal/event/models"
	"treehouse/pkg/domain"
	"treehouse/pkg/platform/sentinel"
)

// InMemoryStore is the test/dev twin of the Postgres store.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[domain.EventID]models.Event
	rsvps  map[domain.EventID][]models.RSVP
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		events: make(map[domain.EventID]models.Event),
		rsvps:  make(map[domain.EventID][]models.RSVP),
	}
}

// Seed inserts an event. Test-facing.
func (s *InMemoryStore) Seed(event models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ID] = event
}

// SeedRSVP inserts an RSVP. Test-facing.
func (s *InMemoryStore) SeedRSVP(rsvp models.RSVP) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rsvps[rsvp.EventID] = append(s.rsvps[rsvp.EventID], rsvp)
}

func (s *InMemoryStore) FindEvent(_ context.Context, id domain.EventID) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.events[id]; ok {
		event := e
		return &event, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListRSVPs(_ context.Context, eventID domain.EventID) ([]models.RSVP, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.RSVP, len(s.rsvps[eventID]))
	copy(out, s.rsvps[eventID])
	sort.Slice(out, func(i, j int) bool { return out[i].ParticipantID < out[j].ParticipantID })
	return out, nil
}
