package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/meetdesk/meetdesk/pkg/models"
	"github.com/meetdesk/meetdesk/pkg/pgstore"
	"github.com/meetdesk/meetdesk/pkg/service"
)

func (s *Server) versionHandler(w http.ResponseWriter, _ *http.Request) {
	_, err := fmt.Fprintf(w, "%s\n", s.version)
	if err != nil {
		s.log.Warnf("err during writing to connection: %v", err)
	}
}

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	user, err := s.app.Register(ctx, req)
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	case err != nil:
		s.log.Warnf("err during registering user: %v", err)
		s.writeResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.writeResponse(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		s.writeResponse(w, http.StatusBadRequest, fmt.Errorf("email and password are required"))
		return
	}
	token, err := s.app.Login(ctx, req.Email, req.Password)
	switch {
	case errors.Is(err, models.ErrInvalidCredentials):
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	case err != nil:
		s.log.Warnf("err during login: %v", err)
		s.writeResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.writeResponse(w, http.StatusOK, token)
}

func (s *Server) getMeetingsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	meetings, err := s.app.GetMeetings(ctx)
	if err != nil {
		s.log.Warnf("err during getting meetings: %v", err)
		s.writeResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.writeResponse(w, http.StatusOK, meetings)
}

func (s *Server) createMeetingHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := s.getClaims(ctx)
	if claims == nil {
		s.writeResponse(w, http.StatusUnauthorized, ErrUnauthorised)
		return
	}
	var req models.MeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	meeting, err := s.app.CreateMeeting(ctx, claims.UserID, req)
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	case err != nil:
		s.log.Warnf("err during creating meeting: %v", err)
		s.writeResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.writeResponse(w, http.StatusCreated, meeting)
}

func (s *Server) getMeetingHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	meeting, err := s.app.GetMeeting(ctx, id)
	switch {
	case errors.Is(err, pgstore.ErrMeetingNotFound):
		s.writeResponse(w, http.StatusNotFound, err)
		return
	case err != nil:
		s.log.Warnf("err during getting meeting: %v", err)
		s.writeResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.writeResponse(w, http.StatusOK, meeting)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) updateStatusHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	meeting, err := s.app.UpdateMeetingStatus(ctx, id, req.Status)
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	case errors.Is(err, pgstore.ErrMeetingNotFound):
		s.writeResponse(w, http.StatusNotFound, err)
		return
	case err != nil:
		s.log.Warnf("err during updating meeting status: %v", err)
		s.writeResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.writeResponse(w, http.StatusOK, meeting)
}

func (s *Server) getMembersHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	members, err := s.app.GetMembers(ctx, id)
	if err != nil {
		s.log.Warnf("err during getting members: %v", err)
		s.writeResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.writeResponse(w, http.StatusOK, members)
}

func (s *Server) addMemberHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	var member models.MeetingMember
	if err := json.NewDecoder(r.Body).Decode(&member); err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	member.MeetingID = id
	err = s.app.AddMember(ctx, member)
	switch {
	case errors.Is(err, pgstore.ErrMeetingNotFound):
		s.writeResponse(w, http.StatusNotFound, err)
		return
	case err != nil:
		s.log.Warnf("err during adding member: %v", err)
		s.writeResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.writeResponse(w, http.StatusCreated, member)
}

func (s *Server) getPointsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	points, err := s.app.GetPoints(ctx, id)
	if err != nil {
		s.log.Warnf("err during getting points: %v", err)
		s.writeResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.writeResponse(w, http.StatusOK, points)
}

func (s *Server) addPointHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	var req models.PointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	point, err := s.app.AddPoint(ctx, id, req)
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	case errors.Is(err, pgstore.ErrMeetingNotFound):
		s.writeResponse(w, http.StatusNotFound, err)
		return
	case err != nil:
		s.log.Warnf("err during adding point: %v", err)
		s.writeResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.writeResponse(w, http.StatusCreated, point)
}

func (s *Server) getHistoryHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	history, err := s.app.GetHistory(ctx, id)
	if err != nil {
		s.log.Warnf("err during getting history: %v", err)
		s.writeResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.writeResponse(w, http.StatusOK, history)
}

func (s *Server) deletePointHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pointID, err := strconv.Atoi(chi.URLParam(r, "pointID"))
	if err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	err = s.app.DeletePoint(ctx, pointID)
	switch {
	case errors.Is(err, pgstore.ErrPointNotFound):
		s.writeResponse(w, http.StatusNotFound, err)
		return
	case err != nil:
		s.log.Warnf("err during deleting point: %v", err)
		s.writeResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.writeResponse(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) forwardPointHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := s.getClaims(ctx)
	if claims == nil {
		s.writeResponse(w, http.StatusUnauthorized, ErrUnauthorised)
		return
	}
	pointID, err := strconv.Atoi(chi.URLParam(r, "pointID"))
	if err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	var req models.ForwardDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	decision, err := s.app.RecordForwardDecision(ctx, claims.UserID, pointID, req)
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	case err != nil:
		s.log.Warnf("err during recording forward decision: %v", err)
		s.writeResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.writeResponse(w, http.StatusCreated, decision)
}

func (s *Server) runSchedulerHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.app.RunSchedulerTick(ctx); err != nil {
		s.log.Warnf("err during manual scheduler run: %v", err)
		s.writeResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.writeResponse(w, http.StatusOK, map[string]bool{"triggered": true})
}

type cloneRequest struct {
	Date string `json:"date"`
}

func (s *Server) cloneMeetingHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	var req cloneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		s.writeResponse(w, http.StatusBadRequest, fmt.Errorf("date must be YYYY-MM-DD: %w", err))
		return
	}
	newID, err := s.app.CloneMeeting(ctx, id, date)
	switch {
	case errors.Is(err, pgstore.ErrMeetingNotFound):
		s.writeResponse(w, http.StatusNotFound, err)
		return
	case err != nil:
		s.log.Warnf("err during cloning meeting %d: %v", id, err)
		s.writeResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.writeResponse(w, http.StatusCreated, map[string]int{"newMeetingID": newID})
}

func (s *Server) writeResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if x, ok := data.(error); ok {
		if err := json.NewEncoder(w).Encode(ErrorResponse{Error: x.Error()}); err != nil {
			s.log.Warnf("err during encoding error: %v", err)
		}
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warnf("err during encoding responce: %v", err)
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}
