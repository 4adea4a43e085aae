package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/meetdesk/meetdesk/pkg/models"
	"github.com/sirupsen/logrus"
)

// Store is the persistence surface the scheduler consumes. InsertOccurrence
// must apply its whole payload atomically.
type Store interface {
	CompletedDueMeetings(ctx context.Context, asOf time.Time) ([]models.Meeting, error)
	GetMeeting(ctx context.Context, id int) (models.Meeting, error)
	GetMembers(ctx context.Context, meetingID int) ([]models.MeetingMember, error)
	ForwardDecisions(ctx context.Context, meetingID, userID int) ([]models.ForwardDecision, error)
	InsertOccurrence(ctx context.Context, occ models.Occurrence) (int, error)
	UpdateNextSchedule(ctx context.Context, meetingID int, next time.Time) error
}

const (
	defaultStartHour = 9
	defaultEndHour   = 17
)

// Cloner creates the next occurrence of a completed meeting.
type Cloner struct {
	log      *logrus.Entry
	store    Store
	resolver *Resolver
}

func NewCloner(log *logrus.Logger, store Store) *Cloner {
	return &Cloner{
		log:      log.WithField("component", "cloner"),
		store:    store,
		resolver: NewResolver(log, store),
	}
}

// CloneForNextOccurrence creates a new meeting dated nextSchedule from the
// completed meeting: metadata and membership copied, time of day preserved,
// unresolved NEXT-forwarded points carried with a back-reference to their
// origin, carried decisions flagged processed, one history row appended.
// Returns the new meeting id.
func (c *Cloner) CloneForNextOccurrence(ctx context.Context, meetingID int, nextSchedule time.Time) (int, error) {
	orig, err := c.store.GetMeeting(ctx, meetingID)
	if err != nil {
		return 0, fmt.Errorf("err fetching meeting %d: %w", meetingID, err)
	}

	start := rebaseOnto(nextSchedule, orig.StartTime, defaultStartHour)
	end := rebaseOnto(nextSchedule, orig.EndTime, defaultEndHour)

	members, err := c.store.GetMembers(ctx, meetingID)
	if err != nil {
		return 0, fmt.Errorf("err fetching members of meeting %d: %w", meetingID, err)
	}

	points, err := c.resolver.ResolveForwardedPoints(ctx, meetingID, orig.CreatedBy)
	if err != nil {
		return 0, err
	}

	clone := orig
	clone.ID = 0
	clone.StartTime = &start
	clone.EndTime = &end
	clone.Status = models.StatusNotStarted
	clone.NextSchedule = &nextSchedule

	newID, err := c.store.InsertOccurrence(ctx, models.Occurrence{
		Meeting:      clone,
		Members:      members,
		Points:       points,
		ProcessedBy:  orig.CreatedBy,
		ScheduleDate: nextSchedule,
	})
	if err != nil {
		return 0, fmt.Errorf("err inserting occurrence of meeting %d: %w", meetingID, err)
	}

	c.log.Infof("cloned meeting %d -> %d with %d forwarded point(s)", meetingID, newID, len(points))
	return newID, nil
}

// rebaseOnto keeps orig's time of day on date's calendar day. A missing
// original time gets defaultHour:00:00 on that day.
func rebaseOnto(date time.Time, orig *time.Time, defaultHour int) time.Time {
	y, m, d := date.Date()
	if orig == nil {
		return time.Date(y, m, d, defaultHour, 0, 0, 0, date.Location())
	}
	return time.Date(y, m, d, orig.Hour(), orig.Minute(), orig.Second(), 0, date.Location())
}
