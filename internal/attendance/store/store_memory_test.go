package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treehouse/internal/attendance/models"
	"treehouse/pkg/domain"
	"treehouse/pkg/platform/sentinel"
)

var base = time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)

func TestCreateVisitEnforcesOneOpen(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	first := models.NewVisit(1, base)
	require.NoError(t, s.CreateVisit(ctx, first))
	assert.NotZero(t, first.ID)

	second := models.NewVisit(1, base.Add(time.Minute))
	err := s.CreateVisit(ctx, second)
	assert.ErrorIs(t, err, sentinel.ErrConflict)

	// A closed visit for the same participant is fine.
	closed := models.NewVisit(1, base.Add(-2*time.Hour))
	closed.Depart(base.Add(-time.Hour))
	assert.NoError(t, s.CreateVisit(ctx, closed))
}

func TestUpdateVisitReopenConflicts(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	first := models.NewVisit(1, base)
	require.NoError(t, s.CreateVisit(ctx, first))
	first.Depart(base.Add(time.Hour))
	require.NoError(t, s.UpdateVisit(ctx, first))

	second := models.NewVisit(1, base.Add(2*time.Hour))
	require.NoError(t, s.CreateVisit(ctx, second))

	first.Departed = nil
	assert.ErrorIs(t, s.UpdateVisit(ctx, first), sentinel.ErrConflict)
}

func TestFindOpenVisit(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	_, err := s.FindOpenVisit(ctx, 1)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	visit := models.NewVisit(1, base)
	require.NoError(t, s.CreateVisit(ctx, visit))

	found, err := s.FindOpenVisit(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, visit.ID, found.ID)
}

func TestCloseAllOpen(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	for pid := domain.ParticipantID(1); pid <= 3; pid++ {
		require.NoError(t, s.CreateVisit(ctx, models.NewVisit(pid, base)))
	}
	already := models.NewVisit(4, base)
	require.NoError(t, s.CreateVisit(ctx, already))
	already.Depart(base.Add(time.Minute))
	require.NoError(t, s.UpdateVisit(ctx, already))

	departed := base.Add(time.Hour)
	closed, err := s.CloseAllOpen(ctx, departed)
	require.NoError(t, err)
	assert.Len(t, closed, 3)
	for _, v := range closed {
		assert.Equal(t, departed, *v.Departed)
	}

	open, err := s.ListOpenVisits(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestFindReconcilable(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	start := base
	end := base.Add(2 * time.Hour)

	t.Run("no overlap", func(t *testing.T) {
		v := models.NewVisit(1, end.Add(time.Hour))
		require.NoError(t, s.CreateVisit(ctx, v))
		_, err := s.FindReconcilable(ctx, 1, start, end)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("overlapping visit matched", func(t *testing.T) {
		v := models.NewVisit(2, start.Add(30*time.Minute))
		v.Depart(start.Add(time.Hour))
		require.NoError(t, s.CreateVisit(ctx, v))

		found, err := s.FindReconcilable(ctx, 2, start, end)
		require.NoError(t, err)
		assert.Equal(t, v.ID, found.ID)
	})

	t.Run("already associated visit skipped", func(t *testing.T) {
		v := models.NewVisit(3, start.Add(30*time.Minute))
		v.Depart(start.Add(time.Hour))
		v.Associate(7)
		require.NoError(t, s.CreateVisit(ctx, v))

		_, err := s.FindReconcilable(ctx, 3, start, end)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("earliest arrival wins", func(t *testing.T) {
		early := models.NewVisit(5, start.Add(10*time.Minute))
		early.Depart(start.Add(20 * time.Minute))
		require.NoError(t, s.CreateVisit(ctx, early))
		late := models.NewVisit(5, start.Add(time.Hour))
		late.Depart(start.Add(90 * time.Minute))
		require.NoError(t, s.CreateVisit(ctx, late))

		found, err := s.FindReconcilable(ctx, 5, start, end)
		require.NoError(t, err)
		assert.Equal(t, early.ID, found.ID)
	})
}

func TestListRecent(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		v := models.NewVisit(domain.ParticipantID(i+1), base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, s.CreateVisit(ctx, v))
	}

	visits, err := s.ListRecent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, visits, 3)
	assert.Equal(t, domain.ParticipantID(5), visits[0].ParticipantID)
	assert.True(t, visits[0].Arrived.After(visits[1].Arrived))
}
