package models

import "time"

const (
	ForwardTypeNil      = `NIL`
	ForwardTypeNext     = `NEXT`
	ForwardTypeSpecific = `SPECIFIC_MEETING`
)

const (
	DecisionAgree    = `AGREE`
	DecisionDisagree = `DISAGREE`
	DecisionForward  = `FORWARD`
)

// ForwardDecision is one row of meeting_point_future joined with its origin
// point. The origin point columns are pointers: a decision can outlive the
// point it refers to.
type ForwardDecision struct {
	ID          int    `json:"id" db:"id"`
	PointID     int    `json:"pointID" db:"point_id"`
	UserID      int    `json:"userID" db:"user_id"`
	ForwardType string `json:"forwardType" db:"forward_type"`
	Decision    string `json:"decision" db:"forward_decision"`
	Processed   bool   `json:"processed" db:"-"`

	PointName      *string    `json:"pointName" db:"point_name"`
	Responsibility *string    `json:"responsibility" db:"point_responsibility"`
	Deadline       *time.Time `json:"deadline" db:"point_deadline"`
	Remarks        *string    `json:"remarks" db:"remarks"`
}

type ForwardDecisionRequest struct {
	PointID     *int    `json:"pointID" db:"point_id"`
	ForwardType *string `json:"forwardType" db:"forward_type"`
	Decision    *string `json:"decision" db:"forward_decision"`
}

// PointPayload is a point selected for carrying into the next occurrence.
type PointPayload struct {
	OriginPointID  int        `json:"originPointID"`
	Name           string     `json:"name"`
	Responsibility string     `json:"responsibility"`
	Deadline       *time.Time `json:"deadline"`
	Remarks        string     `json:"remarks"`
}

// Occurrence carries everything the store writes in one transaction when a
// completed meeting is cloned: the new meeting row, its members, the carried
// points and the decisions to flag as processed.
type Occurrence struct {
	Meeting      Meeting
	Members      []MeetingMember
	Points       []PointPayload
	ProcessedBy  int
	ScheduleDate time.Time
}
