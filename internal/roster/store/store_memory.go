// Package store provides roster lookups. In-memory for tests and dev,
// Postgres for deployments; both satisfy the service-side interfaces.
package store

import (
	"context"
	"sync"

	"treehouse/internal/roster/models"
	"treehouse/pkg/domain"
	"treehouse/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu           sync.RWMutex
	participants map[domain.ParticipantID]models.Participant
	households   map[domain.HouseholdID]models.Household
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		participants: make(map[domain.ParticipantID]models.Participant),
		households:   make(map[domain.HouseholdID]models.Household),
	}
}

// Seed inserts or replaces a participant. Test- and dev-facing; the core
// never creates participants at runtime.
func (s *InMemoryStore) Seed(p models.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants[p.ID] = p
}

// SeedHousehold inserts or replaces a household.
func (s *InMemoryStore) SeedHousehold(h models.Household) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.households[h.ID] = h
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.ParticipantID) (*models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.participants[id]; ok {
		return &p, nil
	}
	return nil, sentinel.ErrNotFound
}

// FindByIDs resolves a batch of participants. Missing IDs are simply absent
// from the result map; callers decide whether that is an error.
func (s *InMemoryStore) FindByIDs(_ context.Context, ids []domain.ParticipantID) (map[domain.ParticipantID]models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.ParticipantID]models.Participant, len(ids))
	for _, id := range ids {
		if p, ok := s.participants[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// ListByCapability returns every participant holding the capability.
func (s *InMemoryStore) ListByCapability(_ context.Context, cap domain.Capability) ([]models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Participant
	for _, p := range s.participants {
		if p.Capabilities.Has(cap) {
			out = append(out, p)
		}
	}
	return out, nil
}

// FindHousehold returns a household by ID.
func (s *InMemoryStore) FindHousehold(_ context.Context, id domain.HouseholdID) (*models.Household, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if h, ok := s.households[id]; ok {
		return &h, nil
	}
	return nil, sentinel.ErrNotFound
}
