package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/meetdesk/meetdesk/pkg/models"
	"github.com/meetdesk/meetdesk/pkg/scheduler"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidInput = errors.New("invalid input")

const tokenTTL = 8 * time.Hour

type Notifier interface {
	Notify(ctx context.Context, message string, userID int) error
}

type Store interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUser(ctx context.Context, id int) (models.User, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)
	CreateMeeting(ctx context.Context, meeting models.Meeting) (models.Meeting, error)
	GetMeetings(ctx context.Context) ([]models.Meeting, error)
	GetMeeting(ctx context.Context, id int) (models.Meeting, error)
	UpdateMeetingStatus(ctx context.Context, id int, status string) (models.Meeting, error)
	AddMember(ctx context.Context, member models.MeetingMember) error
	GetMembers(ctx context.Context, meetingID int) ([]models.MeetingMember, error)
	CreatePoint(ctx context.Context, point models.MeetingPoint) (models.MeetingPoint, error)
	GetPoints(ctx context.Context, meetingID int) ([]models.MeetingPoint, error)
	DeletePoint(ctx context.Context, pointID int) error
	CreateForwardDecision(ctx context.Context, d models.ForwardDecision) (models.ForwardDecision, error)
	GetHistory(ctx context.Context, meetingID int) ([]models.MeetingHistory, error)
}

// MeetingService is the application layer behind the REST handlers.
type MeetingService struct {
	log       *logrus.Entry
	store     Store
	notifier  Notifier
	sched     *scheduler.Scheduler
	jwtSecret []byte
}

func NewMeetingService(log *logrus.Logger, store Store, notifier Notifier, sched *scheduler.Scheduler, jwtSecret string) *MeetingService {
	s := MeetingService{
		log:       log.WithField("component", "service"),
		store:     store,
		notifier:  notifier,
		sched:     sched,
		jwtSecret: []byte(jwtSecret),
	}
	return &s
}

func (s *MeetingService) Register(ctx context.Context, req models.UserRequest) (models.User, error) {
	if req.Name == nil || req.Email == nil || *req.Name == "" || *req.Email == "" {
		return models.User{}, fmt.Errorf("%w: name and email are required", ErrInvalidInput)
	}
	// Admin-created accounts arrive without a password and get a generated one.
	password := uuid.New().String()
	if req.Password != nil && *req.Password != "" {
		password = *req.Password
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("err hashing password: %w", err)
	}
	role := models.RoleParticipant
	if req.Role != nil && *req.Role == models.RoleAdmin {
		role = models.RoleAdmin
	}
	user, err := s.store.CreateUser(ctx, models.User{
		Name:         *req.Name,
		Email:        *req.Email,
		PasswordHash: string(hash),
		Role:         role,
	})
	if err != nil {
		return models.User{}, fmt.Errorf("err creating user: %w", err)
	}
	if err = s.notifier.Notify(ctx, "user registered", user.ID); err != nil {
		s.log.Errorf("err notifying user: %v", err)
	}
	return user, nil
}

func (s *MeetingService) Login(ctx context.Context, email, password string) (models.TokenResponse, error) {
	user, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		return models.TokenResponse{}, models.ErrInvalidCredentials
	}
	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.TokenResponse{}, models.ErrInvalidCredentials
	}
	claims := models.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UserID: user.ID,
		Role:   user.Role,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return models.TokenResponse{}, fmt.Errorf("err signing token: %w", err)
	}
	return models.TokenResponse{Token: token, User: user.Public()}, nil
}

func (s *MeetingService) CreateMeeting(ctx context.Context, creatorID int, req models.MeetingRequest) (models.Meeting, error) {
	if req.Name == nil || *req.Name == "" {
		return models.Meeting{}, fmt.Errorf("%w: meeting name is required", ErrInvalidInput)
	}
	meeting := models.Meeting{
		Name:       *req.Name,
		CreatedBy:  creatorID,
		RepeatType: models.RepeatNone,
		Status:     models.StatusNotStarted,
		Priority:   "normal",
	}
	if req.TemplateID != nil {
		meeting.TemplateID = req.TemplateID
	}
	if req.Description != nil {
		meeting.Description = *req.Description
	}
	if req.Priority != nil {
		meeting.Priority = *req.Priority
	}
	if req.Venue != nil {
		meeting.Venue = *req.Venue
	}
	meeting.StartTime = req.StartTime
	meeting.EndTime = req.EndTime
	if req.RepeatType != nil {
		if !validRepeatType(*req.RepeatType) {
			return models.Meeting{}, fmt.Errorf("%w: unknown repeat type %q", ErrInvalidInput, *req.RepeatType)
		}
		meeting.RepeatType = *req.RepeatType
	}
	meeting.CustomDays = req.CustomDays
	meeting.NextSchedule = req.NextSchedule

	created, err := s.store.CreateMeeting(ctx, meeting)
	if err != nil {
		return models.Meeting{}, fmt.Errorf("err creating meeting: %w", err)
	}
	if err = s.store.AddMember(ctx, models.MeetingMember{MeetingID: created.ID, UserID: creatorID, Role: "organizer"}); err != nil {
		s.log.Errorf("err adding creator to meeting %d: %v", created.ID, err)
	}
	return created, nil
}

func (s *MeetingService) GetMeetings(ctx context.Context) ([]models.Meeting, error) {
	meetings, err := s.store.GetMeetings(ctx)
	if err != nil {
		return nil, fmt.Errorf("err getting meetings from store: %w", err)
	}
	return meetings, nil
}

func (s *MeetingService) GetMeeting(ctx context.Context, id int) (models.Meeting, error) {
	return s.store.GetMeeting(ctx, id)
}

func (s *MeetingService) UpdateMeetingStatus(ctx context.Context, id int, status string) (models.Meeting, error) {
	switch status {
	case models.StatusNotStarted, models.StatusInProgress, models.StatusCompleted:
	default:
		return models.Meeting{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	return s.store.UpdateMeetingStatus(ctx, id, status)
}

func (s *MeetingService) AddMember(ctx context.Context, member models.MeetingMember) error {
	if _, err := s.store.GetMeeting(ctx, member.MeetingID); err != nil {
		return err
	}
	if member.Role == "" {
		member.Role = "participant"
	}
	return s.store.AddMember(ctx, member)
}

func (s *MeetingService) GetMembers(ctx context.Context, meetingID int) ([]models.MeetingMember, error) {
	return s.store.GetMembers(ctx, meetingID)
}

func (s *MeetingService) AddPoint(ctx context.Context, meetingID int, req models.PointRequest) (models.MeetingPoint, error) {
	if req.Name == nil || *req.Name == "" {
		return models.MeetingPoint{}, fmt.Errorf("%w: point name is required", ErrInvalidInput)
	}
	if _, err := s.store.GetMeeting(ctx, meetingID); err != nil {
		return models.MeetingPoint{}, err
	}
	point := models.MeetingPoint{
		MeetingID: meetingID,
		Name:      *req.Name,
		Deadline:  req.Deadline,
	}
	if req.Responsibility != nil {
		point.Responsibility = *req.Responsibility
	}
	if req.Remarks != nil {
		point.Remarks = *req.Remarks
	}
	return s.store.CreatePoint(ctx, point)
}

func (s *MeetingService) GetPoints(ctx context.Context, meetingID int) ([]models.MeetingPoint, error) {
	return s.store.GetPoints(ctx, meetingID)
}

func (s *MeetingService) DeletePoint(ctx context.Context, pointID int) error {
	return s.store.DeletePoint(ctx, pointID)
}

// RecordForwardDecision stores a user's forwarding outcome for one point. The
// scheduler picks up NEXT-type records on its next tick.
func (s *MeetingService) RecordForwardDecision(ctx context.Context, userID, pointID int, req models.ForwardDecisionRequest) (models.ForwardDecision, error) {
	d := models.ForwardDecision{
		PointID:     pointID,
		UserID:      userID,
		ForwardType: models.ForwardTypeNil,
		Decision:    models.DecisionAgree,
	}
	if req.ForwardType != nil {
		switch *req.ForwardType {
		case models.ForwardTypeNil, models.ForwardTypeNext, models.ForwardTypeSpecific:
			d.ForwardType = *req.ForwardType
		default:
			return models.ForwardDecision{}, fmt.Errorf("%w: unknown forward type %q", ErrInvalidInput, *req.ForwardType)
		}
	}
	if req.Decision != nil {
		switch *req.Decision {
		case models.DecisionAgree, models.DecisionDisagree, models.DecisionForward:
			d.Decision = *req.Decision
		default:
			return models.ForwardDecision{}, fmt.Errorf("%w: unknown decision %q", ErrInvalidInput, *req.Decision)
		}
	}
	return s.store.CreateForwardDecision(ctx, d)
}

func (s *MeetingService) GetHistory(ctx context.Context, meetingID int) ([]models.MeetingHistory, error) {
	return s.store.GetHistory(ctx, meetingID)
}

// RunSchedulerTick triggers one scheduler pass outside the periodic cadence.
func (s *MeetingService) RunSchedulerTick(ctx context.Context) error {
	return s.sched.RunTick(ctx)
}

// CloneMeeting re-triggers the clone of a single meeting for the given date.
func (s *MeetingService) CloneMeeting(ctx context.Context, meetingID int, date time.Time) (int, error) {
	return s.sched.Cloner().CloneForNextOccurrence(ctx, meetingID, date)
}

func validRepeatType(t string) bool {
	if t == models.RepeatNone {
		return true
	}
	for _, kind := range models.RecurringKinds {
		if t == kind {
			return true
		}
	}
	return false
}
