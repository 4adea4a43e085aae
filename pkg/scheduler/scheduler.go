package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/meetdesk/meetdesk/pkg/metrics"
	"github.com/meetdesk/meetdesk/pkg/models"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

type Notifier interface {
	Notify(ctx context.Context, message string, userID int) error
}

// Scheduler finds completed meetings whose next occurrence is due, clones
// them and advances their schedule pointer.
type Scheduler struct {
	log      *logrus.Entry
	store    Store
	cloner   *Cloner
	notifier Notifier
	mu       sync.Mutex
	now      func() time.Time
}

func New(log *logrus.Logger, store Store, notifier Notifier) *Scheduler {
	return &Scheduler{
		log:      log.WithField("component", "scheduler"),
		store:    store,
		cloner:   NewCloner(log, store),
		notifier: notifier,
		now:      time.Now,
	}
}

// Cloner exposes the clone entry point for the manual re-trigger surface.
func (s *Scheduler) Cloner() *Cloner {
	return s.cloner
}

// RunTick processes every due meeting once. A failing meeting is logged and
// skipped, never the whole batch. If a tick is still running when another
// trigger fires, the overlapping invocation returns immediately.
func (s *Scheduler) RunTick(ctx context.Context) error {
	if !s.mu.TryLock() {
		s.log.Debug("tick already running, skipping trigger")
		return nil
	}
	defer s.mu.Unlock()
	metrics.SchedulerTicks.Inc()

	meetings, err := s.store.CompletedDueMeetings(ctx, s.now())
	if err != nil {
		return fmt.Errorf("err querying due meetings: %w", err)
	}
	if len(meetings) == 0 {
		s.log.Debug("no meetings to reschedule")
		return nil
	}
	s.log.Infof("found %d meeting(s) to reschedule", len(meetings))

	var cloned, failed int
	for _, meeting := range meetings {
		if err := s.processMeeting(ctx, meeting); err != nil {
			failed++
			metrics.CloneErrCount.Inc()
			s.log.Errorf("err rescheduling meeting %d: %v", meeting.ID, err)
			continue
		}
		cloned++
		metrics.MeetingsCloned.Inc()
	}
	s.log.Infof("tick done: %d cloned, %d failed", cloned, failed)
	return nil
}

func (s *Scheduler) processMeeting(ctx context.Context, meeting models.Meeting) error {
	if meeting.NextSchedule == nil {
		return fmt.Errorf("meeting %d has no next schedule", meeting.ID)
	}
	due := *meeting.NextSchedule

	newID, err := s.cloner.CloneForNextOccurrence(ctx, meeting.ID, due)
	if err != nil {
		return err
	}

	// Seed the following occurrence from the current pointer, not from now,
	// so a drained backlog keeps its cadence.
	following := NextOccurrence(due, meeting.RepeatType, meeting.CustomDays)
	if err := s.store.UpdateNextSchedule(ctx, meeting.ID, following); err != nil {
		return err
	}

	if s.notifier != nil {
		msg := fmt.Sprintf("meeting %q rescheduled as #%d for %s", meeting.Name, newID, due.Format("2006-01-02 15:04"))
		if err := s.notifier.Notify(ctx, msg, meeting.CreatedBy); err != nil {
			s.log.Warnf("err notifying user %d: %v", meeting.CreatedBy, err)
		}
	}
	return nil
}

// Run starts the periodic trigger and blocks until ctx is cancelled. Stopping
// waits for the in-flight tick to finish.
func (s *Scheduler) Run(ctx context.Context, spec string, loc *time.Location) error {
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(s.log))),
	)
	_, err := c.AddFunc(spec, func() {
		if tickErr := s.RunTick(ctx); tickErr != nil {
			s.log.Errorf("tick failed: %v", tickErr)
		}
	})
	if err != nil {
		return fmt.Errorf("err scheduling tick %q: %w", spec, err)
	}
	s.log.Infof("meeting scheduler started, cadence %q in %s", spec, loc)
	c.Start()
	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	s.log.Info("meeting scheduler stopped")
	return nil
}
