package models

import "time"

const (
	RepeatNone      = `none`
	RepeatDaily     = `daily`
	RepeatWeekly    = `weekly`
	RepeatMonthly   = `monthly`
	RepeatCustomDay = `custom_day`
)

const (
	StatusNotStarted = `not_started`
	StatusInProgress = `in_progress`
	StatusCompleted  = `completed`
)

// RecurringKinds are the repeat types the scheduler picks up. RepeatNone is
// deliberately absent.
var RecurringKinds = []string{RepeatDaily, RepeatWeekly, RepeatMonthly, RepeatCustomDay}

type MeetingRequest struct {
	ID           *int       `json:"id" db:"id"`
	TemplateID   *int       `json:"templateID" db:"template_id"`
	Name         *string    `json:"name" db:"meeting_name"`
	Description  *string    `json:"description" db:"meeting_description"`
	Priority     *string    `json:"priority" db:"priority"`
	Venue        *string    `json:"venue" db:"venue"`
	StartTime    *time.Time `json:"startTime" db:"start_time"`
	EndTime      *time.Time `json:"endTime" db:"end_time"`
	RepeatType   *string    `json:"repeatType" db:"repeat_type"`
	CustomDays   *int       `json:"customDays" db:"custom_days"`
	NextSchedule *time.Time `json:"nextSchedule" db:"next_schedule"`
}

type Meeting struct {
	ID           int        `json:"id" db:"id"`
	TemplateID   *int       `json:"templateID" db:"template_id"`
	Name         string     `json:"name" db:"meeting_name"`
	Description  string     `json:"description" db:"meeting_description"`
	Priority     string     `json:"priority" db:"priority"`
	Venue        string     `json:"venue" db:"venue"`
	StartTime    *time.Time `json:"startTime" db:"start_time"`
	EndTime      *time.Time `json:"endTime" db:"end_time"`
	CreatedBy    int        `json:"createdBy" db:"created_by"`
	RepeatType   string     `json:"repeatType" db:"repeat_type"`
	CustomDays   *int       `json:"customDays" db:"custom_days"`
	NextSchedule *time.Time `json:"nextSchedule" db:"next_schedule"`
	Status       string     `json:"status" db:"meeting_status"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
}

type MeetingMember struct {
	MeetingID int    `json:"meetingID" db:"meeting_id"`
	UserID    int    `json:"userID" db:"user_id"`
	Role      string `json:"role" db:"role"`
}

type MeetingPoint struct {
	ID                   int        `json:"id" db:"id"`
	MeetingID            int        `json:"meetingID" db:"meeting_id"`
	Name                 string     `json:"name" db:"point_name"`
	Responsibility       string     `json:"responsibility" db:"point_responsibility"`
	Deadline             *time.Time `json:"deadline" db:"point_deadline"`
	Remarks              string     `json:"remarks" db:"remarks"`
	ForwardedFromPointID *int       `json:"forwardedFromPointID" db:"forwarded_from_point_id"`
}

type PointRequest struct {
	Name           *string    `json:"name" db:"point_name"`
	Responsibility *string    `json:"responsibility" db:"point_responsibility"`
	Deadline       *time.Time `json:"deadline" db:"point_deadline"`
	Remarks        *string    `json:"remarks" db:"remarks"`
}

type MeetingHistory struct {
	ID           int       `json:"id" db:"id"`
	MeetingID    int       `json:"meetingID" db:"meeting_id"`
	ScheduleDate time.Time `json:"scheduleDate" db:"schedule_date"`
	Status       string    `json:"status" db:"status"`
	CreatedDate  time.Time `json:"createdDate" db:"created_date"`
}
