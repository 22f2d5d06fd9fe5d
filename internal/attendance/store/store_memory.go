// Package store implements the visit ledger: the durable home of visits and
// raw badge events. The ledger is the only writer of either; everything else
// reads.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"treehouse/internal/attendance/models"
	"treehouse/pkg/domain"
	"treehouse/pkg/platform/sentinel"
)

// InMemoryLedger is the test/dev twin of the Postgres ledger. Callers get
// copies; internal state never escapes.
type InMemoryLedger struct {
	mu        sync.RWMutex
	visits    map[domain.VisitID]models.Visit
	scans     []models.RawScanEvent
	nextVisit int64
	nextScan  int64
}

func NewInMemory() *InMemoryLedger {
	return &InMemoryLedger{visits: make(map[domain.VisitID]models.Visit)}
}

func (s *InMemoryLedger) RecordScan(_ context.Context, scan models.RawScanEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextScan++
	scan.ID = s.nextScan
	s.scans = append(s.scans, scan)
	return nil
}

// Scans returns a copy of the raw badge log, in recorded order. Test-facing.
func (s *InMemoryLedger) Scans() []models.RawScanEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.RawScanEvent, len(s.scans))
	copy(out, s.scans)
	return out
}

func (s *InMemoryLedger) FindOpenVisit(_ context.Context, participantID domain.ParticipantID) (*models.Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.visits {
		if v.ParticipantID == participantID && v.Open() {
			visit := v
			return &visit, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryLedger) CreateVisit(_ context.Context, visit *models.Visit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if visit.Open() {
		for _, v := range s.visits {
			if v.ParticipantID == visit.ParticipantID && v.Open() {
				return sentinel.ErrConflict
			}
		}
	}
	s.nextVisit++
	visit.ID = domain.VisitID(s.nextVisit)
	s.visits[visit.ID] = *visit
	return nil
}

func (s *InMemoryLedger) UpdateVisit(_ context.Context, visit *models.Visit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.visits[visit.ID]; !ok {
		return sentinel.ErrNotFound
	}
	if visit.Open() {
		for id, v := range s.visits {
			if id != visit.ID && v.ParticipantID == visit.ParticipantID && v.Open() {
				return sentinel.ErrConflict
			}
		}
	}
	s.visits[visit.ID] = *visit
	return nil
}

func (s *InMemoryLedger) FindVisit(_ context.Context, id domain.VisitID) (*models.Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.visits[id]; ok {
		visit := v
		return &visit, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryLedger) ListOpenVisits(_ context.Context) ([]models.Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Visit
	for _, v := range s.visits {
		if v.Open() {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Arrived.After(out[j].Arrived) })
	return out, nil
}

// CloseAllOpen closes every still-open visit with the same departure
// timestamp and returns the closed visits. The caller closes the departing
// keyholder's own visit first, so "every other open visit" falls out.
func (s *InMemoryLedger) CloseAllOpen(_ context.Context, departed time.Time) ([]models.Visit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var closed []models.Visit
	for id, v := range s.visits {
		if v.Open() {
			v.Depart(departed)
			s.visits[id] = v
			closed = append(closed, v)
		}
	}
	sort.Slice(closed, func(i, j int) bool { return closed[i].ID < closed[j].ID })
	return closed, nil
}

// FindReconcilable returns the participant's first visit with no event
// association whose interval overlaps [start, end].
func (s *InMemoryLedger) FindReconcilable(_ context.Context, participantID domain.ParticipantID, start, end time.Time) (*models.Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var candidates []models.Visit
	for _, v := range s.visits {
		if v.ParticipantID == participantID && v.EventID == nil && v.Overlaps(start, end) {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		return nil, sentinel.ErrNotFound
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Arrived.Before(candidates[j].Arrived) })
	visit := candidates[0]
	return &visit, nil
}

// ListByEvent returns every visit associated with the event.
func (s *InMemoryLedger) ListByEvent(_ context.Context, eventID domain.EventID) ([]models.Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Visit
	for _, v := range s.visits {
		if v.EventID != nil && *v.EventID == eventID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListRecent returns the most recent visits by arrival, newest first.
func (s *InMemoryLedger) ListRecent(_ context.Context, limit int) ([]models.Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Visit, 0, len(s.visits))
	for _, v := range s.visits {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Arrived.After(out[j].Arrived) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
