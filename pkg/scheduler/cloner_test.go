package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/meetdesk/meetdesk/pkg/logger"
	"github.com/meetdesk/meetdesk/pkg/models"
	"github.com/meetdesk/meetdesk/pkg/pgstore"
	"github.com/stretchr/testify/require"
)

func TestClonerRebasesTimeOfDay(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m := completedDailyMeeting(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	m.StartTime = timePtr(time.Date(2024, 4, 28, 14, 30, 15, 0, time.UTC))
	m.EndTime = timePtr(time.Date(2024, 4, 28, 16, 0, 0, 0, time.UTC))
	m = store.addMeeting(m)

	c := NewCloner(logger.NewLogger(), store)
	next := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	newID, err := c.CloneForNextOccurrence(ctx, m.ID, next)
	require.NoError(t, err)

	clone := store.meetings[newID]
	require.Equal(t, time.Date(2024, 5, 1, 14, 30, 15, 0, time.UTC), *clone.StartTime)
	require.Equal(t, time.Date(2024, 5, 1, 16, 0, 0, 0, time.UTC), *clone.EndTime)
	require.Equal(t, next, *clone.NextSchedule)
}

func TestClonerDefaultsMissingTimes(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m := store.addMeeting(completedDailyMeeting(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))

	c := NewCloner(logger.NewLogger(), store)
	next := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	newID, err := c.CloneForNextOccurrence(ctx, m.ID, next)
	require.NoError(t, err)

	clone := store.meetings[newID]
	require.Equal(t, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), *clone.StartTime)
	require.Equal(t, time.Date(2024, 5, 1, 17, 0, 0, 0, time.UTC), *clone.EndTime)
}

func TestClonerCopiesMetadataAndMembers(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	templateID := 3
	customDays := 4
	m := models.Meeting{
		TemplateID:   &templateID,
		Name:         "review",
		Description:  "weekly review",
		Priority:     "high",
		Venue:        "main hall",
		CreatedBy:    7,
		RepeatType:   models.RepeatCustomDay,
		CustomDays:   &customDays,
		NextSchedule: timePtr(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)),
		Status:       models.StatusCompleted,
	}
	m = store.addMeeting(m)
	store.members[m.ID] = []models.MeetingMember{
		{MeetingID: m.ID, UserID: 7, Role: "organizer"},
		{MeetingID: m.ID, UserID: 9, Role: "secretary"},
	}

	c := NewCloner(logger.NewLogger(), store)
	newID, err := c.CloneForNextOccurrence(ctx, m.ID, *m.NextSchedule)
	require.NoError(t, err)

	clone := store.meetings[newID]
	require.Equal(t, m.Name, clone.Name)
	require.Equal(t, m.Description, clone.Description)
	require.Equal(t, m.Priority, clone.Priority)
	require.Equal(t, m.Venue, clone.Venue)
	require.Equal(t, m.CreatedBy, clone.CreatedBy)
	require.Equal(t, m.RepeatType, clone.RepeatType)
	require.Equal(t, customDays, *clone.CustomDays)
	require.Equal(t, templateID, *clone.TemplateID)
	require.Equal(t, models.StatusNotStarted, clone.Status)

	members := store.members[newID]
	require.Len(t, members, 2)
	require.Equal(t, "secretary", members[1].Role)
}

func TestClonerMissingMeeting(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	c := NewCloner(logger.NewLogger(), store)

	_, err := c.CloneForNextOccurrence(ctx, 42, time.Now())
	require.ErrorIs(t, err, pgstore.ErrMeetingNotFound)
}

func TestClonerInsertFailureReturnsError(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m := store.addMeeting(completedDailyMeeting(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
	store.failInsert = errors.New("constraint violation")

	c := NewCloner(logger.NewLogger(), store)
	_, err := c.CloneForNextOccurrence(ctx, m.ID, *m.NextSchedule)
	require.Error(t, err)
	require.Empty(t, store.occurrences)
}
