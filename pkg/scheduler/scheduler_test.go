package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/meetdesk/meetdesk/pkg/logger"
	"github.com/meetdesk/meetdesk/pkg/models"
	"github.com/meetdesk/meetdesk/pkg/pgstore"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store for driver and cloner tests.
type memStore struct {
	mu          sync.Mutex
	meetings    map[int]models.Meeting
	members     map[int][]models.MeetingMember
	decisions   map[int][]models.ForwardDecision
	occurrences []models.Occurrence
	history     []models.MeetingHistory
	nextID      int
	dueCalls    int
	vanished    map[int]bool
	failDue     error
	failInsert  error
}

func newMemStore() *memStore {
	return &memStore{
		meetings:  make(map[int]models.Meeting),
		members:   make(map[int][]models.MeetingMember),
		decisions: make(map[int][]models.ForwardDecision),
		vanished:  make(map[int]bool),
		nextID:    1,
	}
}

func (s *memStore) addMeeting(m models.Meeting) models.Meeting {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = s.nextID
	s.nextID++
	s.meetings[m.ID] = m
	return m
}

func (s *memStore) CompletedDueMeetings(_ context.Context, asOf time.Time) ([]models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dueCalls++
	if s.failDue != nil {
		return nil, s.failDue
	}
	var due []models.Meeting
	for _, m := range s.meetings {
		if m.Status != models.StatusCompleted || m.NextSchedule == nil {
			continue
		}
		recurring := false
		for _, kind := range models.RecurringKinds {
			if m.RepeatType == kind {
				recurring = true
				break
			}
		}
		if !recurring {
			continue
		}
		if dateOnly(*m.NextSchedule).After(dateOnly(asOf)) {
			continue
		}
		due = append(due, m)
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextSchedule.Before(*due[j].NextSchedule) })
	return due, nil
}

func (s *memStore) GetMeeting(_ context.Context, id int) (models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok || s.vanished[id] {
		return models.Meeting{}, pgstore.ErrMeetingNotFound
	}
	return m, nil
}

func (s *memStore) GetMembers(_ context.Context, meetingID int) ([]models.MeetingMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.members[meetingID], nil
}

func (s *memStore) ForwardDecisions(_ context.Context, meetingID, userID int) ([]models.ForwardDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ForwardDecision
	for _, d := range s.decisions[meetingID] {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *memStore) InsertOccurrence(_ context.Context, occ models.Occurrence) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInsert != nil {
		return 0, s.failInsert
	}
	m := occ.Meeting
	m.ID = s.nextID
	s.nextID++
	s.meetings[m.ID] = m
	for _, member := range occ.Members {
		member.MeetingID = m.ID
		s.members[m.ID] = append(s.members[m.ID], member)
	}
	carried := make(map[int]bool, len(occ.Points))
	for _, p := range occ.Points {
		carried[p.OriginPointID] = true
	}
	for meetingID, list := range s.decisions {
		for i, d := range list {
			if carried[d.PointID] && d.UserID == occ.ProcessedBy {
				list[i].Processed = true
			}
		}
		s.decisions[meetingID] = list
	}
	s.occurrences = append(s.occurrences, occ)
	s.history = append(s.history, models.MeetingHistory{
		MeetingID:    m.ID,
		ScheduleDate: occ.ScheduleDate,
		Status:       "scheduled",
		CreatedDate:  time.Now(),
	})
	return m.ID, nil
}

func (s *memStore) UpdateNextSchedule(_ context.Context, meetingID int, next time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[meetingID]
	if !ok {
		return pgstore.ErrMeetingNotFound
	}
	m.NextSchedule = &next
	s.meetings[meetingID] = m
	return nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (n *recordingNotifier) Notify(_ context.Context, message string, _ int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return n.err
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func completedDailyMeeting(next time.Time) models.Meeting {
	return models.Meeting{
		Name:         "standup",
		Priority:     "normal",
		Venue:        "room 4",
		CreatedBy:    7,
		RepeatType:   models.RepeatDaily,
		NextSchedule: timePtr(next),
		Status:       models.StatusCompleted,
	}
}

func newTestScheduler(store *memStore, notify Notifier, now time.Time) *Scheduler {
	s := New(logger.NewLogger(), store, notify)
	s.now = func() time.Time { return now }
	return s
}

func TestSchedulerEndToEnd(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	due := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	m := completedDailyMeeting(due)
	m.StartTime = timePtr(time.Date(2024, 4, 30, 10, 0, 0, 0, time.UTC))
	m.EndTime = timePtr(time.Date(2024, 4, 30, 11, 0, 0, 0, time.UTC))
	m = store.addMeeting(m)
	store.members[m.ID] = []models.MeetingMember{
		{MeetingID: m.ID, UserID: 7, Role: "organizer"},
		{MeetingID: m.ID, UserID: 8, Role: "participant"},
	}
	store.decisions[m.ID] = []models.ForwardDecision{
		{ID: 1, PointID: 11, UserID: 7, ForwardType: models.ForwardTypeNext, Decision: models.DecisionForward, PointName: strPtr("budget")},
	}

	notify := &recordingNotifier{}
	sched := newTestScheduler(store, notify, due)
	require.NoError(t, sched.RunTick(ctx))

	require.Len(t, store.occurrences, 1)
	occ := store.occurrences[0]
	require.Equal(t, models.StatusNotStarted, occ.Meeting.Status)
	require.Equal(t, "standup", occ.Meeting.Name)
	require.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), *occ.Meeting.StartTime)
	require.Equal(t, time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC), *occ.Meeting.EndTime)
	require.Len(t, occ.Members, 2)
	require.Len(t, occ.Points, 1)
	require.Equal(t, 11, occ.Points[0].OriginPointID)

	// processed flag set, pointer advanced, history appended
	require.True(t, store.decisions[m.ID][0].Processed)
	advanced := store.meetings[m.ID].NextSchedule
	require.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), *advanced)
	require.Len(t, store.history, 1)
	require.Len(t, notify.messages, 1)
}

func TestSchedulerSecondTickDoesNotRecarry(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	due := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	m := store.addMeeting(completedDailyMeeting(due))
	store.decisions[m.ID] = []models.ForwardDecision{
		{ID: 1, PointID: 11, UserID: 7, ForwardType: models.ForwardTypeNext, Decision: models.DecisionAgree, PointName: strPtr("budget")},
	}

	sched := newTestScheduler(store, &recordingNotifier{}, due)
	require.NoError(t, sched.RunTick(ctx))
	require.Len(t, store.occurrences, 1)

	// next_schedule advanced past today, so the meeting is no longer due and
	// the carried point stays carried exactly once
	require.NoError(t, sched.RunTick(ctx))
	require.Len(t, store.occurrences, 1)
	require.True(t, store.decisions[m.ID][0].Processed)
}

func TestSchedulerPartialFailureIsolation(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	due := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	m1 := store.addMeeting(completedDailyMeeting(due))
	m2 := store.addMeeting(completedDailyMeeting(due.Add(time.Hour)))
	m3 := store.addMeeting(completedDailyMeeting(due.Add(2 * time.Hour)))
	store.vanished[m2.ID] = true

	sched := newTestScheduler(store, &recordingNotifier{}, due)
	require.NoError(t, sched.RunTick(ctx))

	require.Len(t, store.occurrences, 2)
	require.NotNil(t, store.meetings[m1.ID].NextSchedule)
	require.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), *store.meetings[m1.ID].NextSchedule)
	require.Equal(t, time.Date(2024, 5, 2, 2, 0, 0, 0, time.UTC), *store.meetings[m3.ID].NextSchedule)
	// the vanished meeting keeps its pointer untouched
	require.Equal(t, due.Add(time.Hour), *store.meetings[m2.ID].NextSchedule)
}

func TestSchedulerNoDueMeetingsIsNoop(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	sched := newTestScheduler(store, &recordingNotifier{}, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, sched.RunTick(ctx))
	require.Empty(t, store.occurrences)
	require.Equal(t, 1, store.dueCalls)
}

func TestSchedulerDueQueryFailureAbortsTick(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.failDue = fmt.Errorf("connection refused")
	sched := newTestScheduler(store, &recordingNotifier{}, time.Now())
	err := sched.RunTick(ctx)
	require.Error(t, err)
	require.Empty(t, store.occurrences)
}

func TestSchedulerSkipsOverlappingTick(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	sched := newTestScheduler(store, &recordingNotifier{}, time.Now())

	sched.mu.Lock()
	defer sched.mu.Unlock()
	require.NoError(t, sched.RunTick(ctx))
	require.Equal(t, 0, store.dueCalls)
}

func TestSchedulerToleratesNotifierFailure(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	due := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	m := store.addMeeting(completedDailyMeeting(due))

	notify := &recordingNotifier{err: errors.New("bot down")}
	sched := newTestScheduler(store, notify, due)
	require.NoError(t, sched.RunTick(ctx))

	require.Len(t, store.occurrences, 1)
	require.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), *store.meetings[m.ID].NextSchedule)
}

func TestSchedulerDrainsBacklogOldestFirst(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	today := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)

	store.addMeeting(completedDailyMeeting(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)))
	store.addMeeting(completedDailyMeeting(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))

	sched := newTestScheduler(store, &recordingNotifier{}, today)
	require.NoError(t, sched.RunTick(ctx))

	require.Len(t, store.occurrences, 2)
	// earliest due first
	require.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), store.occurrences[0].ScheduleDate)
	require.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), store.occurrences[1].ScheduleDate)
}
