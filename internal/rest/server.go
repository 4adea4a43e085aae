package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/meetdesk/meetdesk/pkg/models"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type App interface {
	Register(ctx context.Context, req models.UserRequest) (models.User, error)
	Login(ctx context.Context, email, password string) (models.TokenResponse, error)
	CreateMeeting(ctx context.Context, creatorID int, req models.MeetingRequest) (models.Meeting, error)
	GetMeetings(ctx context.Context) ([]models.Meeting, error)
	GetMeeting(ctx context.Context, id int) (models.Meeting, error)
	UpdateMeetingStatus(ctx context.Context, id int, status string) (models.Meeting, error)
	AddMember(ctx context.Context, member models.MeetingMember) error
	GetMembers(ctx context.Context, meetingID int) ([]models.MeetingMember, error)
	AddPoint(ctx context.Context, meetingID int, req models.PointRequest) (models.MeetingPoint, error)
	GetPoints(ctx context.Context, meetingID int) ([]models.MeetingPoint, error)
	DeletePoint(ctx context.Context, pointID int) error
	RecordForwardDecision(ctx context.Context, userID, pointID int, req models.ForwardDecisionRequest) (models.ForwardDecision, error)
	GetHistory(ctx context.Context, meetingID int) ([]models.MeetingHistory, error)
	RunSchedulerTick(ctx context.Context) error
	CloneMeeting(ctx context.Context, meetingID int, date time.Time) (int, error)
}

type Server struct {
	log       *logrus.Entry
	app       App
	address   string
	version   string
	jwtSecret []byte
}

func NewServer(log *logrus.Logger, app App, address, version, jwtSecret string) *Server {
	return &Server{
		log:       log.WithField("component", "rest"),
		app:       app,
		address:   address,
		version:   version,
		jwtSecret: []byte(jwtSecret),
	}
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{Addr: s.address, Handler: s.routes()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.log.Warnf("err during server shutdown: %v", err)
		}
	}()
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/version", s.versionHandler)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/api", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			r.Post("/auth/register", s.registerHandler)
			r.Post("/auth/login", s.loginHandler)
			r.Group(func(r chi.Router) {
				r.Use(s.jwtAuth)
				r.Get("/meetings", s.getMeetingsHandler)
				r.Post("/meetings", s.createMeetingHandler)
				r.Get("/meetings/{id}", s.getMeetingHandler)
				r.Patch("/meetings/{id}/status", s.updateStatusHandler)
				r.Get("/meetings/{id}/members", s.getMembersHandler)
				r.Post("/meetings/{id}/members", s.addMemberHandler)
				r.Get("/meetings/{id}/points", s.getPointsHandler)
				r.Post("/meetings/{id}/points", s.addPointHandler)
				r.Get("/meetings/{id}/history", s.getHistoryHandler)
				r.Delete("/points/{pointID}", s.deletePointHandler)
				r.Post("/points/{pointID}/forward", s.forwardPointHandler)
				r.Group(func(r chi.Router) {
					r.Use(s.adminOnly)
					r.Post("/scheduler/run", s.runSchedulerHandler)
					r.Post("/meetings/{id}/clone", s.cloneMeetingHandler)
				})
			})
		})
	})
	return r
}
