package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReviewRepo struct {
	events       []Event
	err          error
	lastResource [2]string
	lastActor    string
	lastLimit    int
	lastOffset   int
}

func (s *stubReviewRepo) ListByResource(ctx context.Context, resourceType, resourceID string, limit, offset int) ([]Event, error) {
	s.lastResource = [2]string{resourceType, resourceID}
	s.lastLimit, s.lastOffset = limit, offset
	return s.page(limit), s.err
}

func (s *stubReviewRepo) ListByActor(ctx context.Context, actorProfileID string, limit, offset int) ([]Event, error) {
	s.lastActor = actorProfileID
	s.lastLimit, s.lastOffset = limit, offset
	return s.page(limit), s.err
}

func (s *stubReviewRepo) page(limit int) []Event {
	if len(s.events) > limit {
		return s.events[:limit]
	}
	return s.events
}

func sampleEvents(n int) []Event {
	out := make([]Event, n)
	for i := range out {
		out[i] = Event{
			EventID:        "evt",
			ActorProfileID: "prof-1",
			ResourceType:   "supplier",
			ResourceID:     "sup-1",
			Action:         ActionView,
			Justification:  "active relationship",
			OccurredAt:     time.Date(2025, 5, 1, 10, i, 0, 0, time.UTC),
			Sequence:       int64(n - i),
		}
	}
	return out
}

func TestReviewPagingByResource(t *testing.T) {
	repo := &stubReviewRepo{events: sampleEvents(3)}
	svc := NewService(repo)

	result, err := svc.Review(context.Background(), Filters{ResourceType: "supplier", ResourceID: "sup-1", Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, result.Events, 2)
	assert.True(t, result.Paging.HasNext)
	assert.Equal(t, 2, result.Paging.NextPage)
	assert.Zero(t, result.Paging.PrevPage)
	assert.Equal(t, 3, repo.lastLimit)
	assert.Equal(t, 0, repo.lastOffset)
	assert.Equal(t, [2]string{"supplier", "sup-1"}, repo.lastResource)
}

func TestReviewByActorClampsPageSize(t *testing.T) {
	repo := &stubReviewRepo{events: sampleEvents(1)}
	svc := NewService(repo)

	result, err := svc.Review(context.Background(), Filters{ActorProfileID: " prof-1 ", Page: 3, PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, "prof-1", repo.lastActor)
	assert.Equal(t, 51, repo.lastLimit)
	assert.Equal(t, 100, repo.lastOffset)
	assert.False(t, result.Paging.HasNext)
	assert.Equal(t, 2, result.Paging.PrevPage)
	assert.Equal(t, 50, result.Paging.PageSize)
}

func TestReviewDefaults(t *testing.T) {
	repo := &stubReviewRepo{}
	svc := NewService(repo)

	result, err := svc.Review(context.Background(), Filters{ActorProfileID: "prof-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Paging.Page)
	assert.Equal(t, 20, result.Paging.PageSize)
	assert.Equal(t, 21, repo.lastLimit)
	assert.NotNil(t, result.Events)
}

func TestReviewRequiresFilter(t *testing.T) {
	svc := NewService(&stubReviewRepo{})
	_, err := svc.Review(context.Background(), Filters{ResourceType: "supplier"})
	require.ErrorIs(t, err, ErrFilterRequired)
}

func TestReviewPropagatesRepositoryError(t *testing.T) {
	boom := errors.New("boom")
	svc := NewService(&stubReviewRepo{err: boom})
	_, err := svc.Review(context.Background(), Filters{ActorProfileID: "prof-1"})
	require.ErrorIs(t, err, boom)
}

func TestWriteCSV(t *testing.T) {
	events := sampleEvents(1)
	events[0].FieldsAccessed = []string{"phone", "email"}
	events[0].Hash = "abc"

	out, err := WriteCSV(events)
	require.NoError(t, err)
	assert.Equal(t,
		"sequence,occurred_at,actor_profile_id,resource_type,resource_id,action,fields_accessed,justification,hash\n"+
			"1,2025-05-01T10:00:00Z,prof-1,supplier,sup-1,view,phone;email,active relationship,abc\n",
		string(out))
}
