package pgstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/meetdesk/meetdesk/pkg/metrics"
	"github.com/meetdesk/meetdesk/pkg/models"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/sirupsen/logrus"
)

//go:embed migrations
var migrations embed.FS

const retries = 3

type Store struct {
	log *logrus.Entry
	db  *sqlx.DB
}

var ErrUserNotFound = fmt.Errorf("user not found")
var ErrMeetingNotFound = fmt.Errorf("meeting not found")
var ErrPointNotFound = fmt.Errorf("point not found")

func NewStore(ctx context.Context, log *logrus.Logger, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &Store{
		log: log.WithField("component", "pgstore"),
		db:  db,
	}, nil
}

func (s *Store) Migrate(direction migrate.MigrationDirection) error {
	assetDir := func() func(string) ([]string, error) {
		return func(path string) ([]string, error) {
			dirEntry, er := migrations.ReadDir(path)
			if er != nil {
				return nil, er
			}
			entries := make([]string, 0)
			for _, e := range dirEntry {
				entries = append(entries, e.Name())
			}

			return entries, nil
		}
	}()
	asset := migrate.AssetMigrationSource{
		Asset:    migrations.ReadFile,
		AssetDir: assetDir,
		Dir:      "migrations",
	}
	_, err := migrate.Exec(s.db.DB, "postgres", asset, direction)
	return err
}

func (s *Store) observe(method string, start time.Time) {
	metrics.PgDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	defer s.observe("CreateUser", time.Now())
	var createdUser models.User
	query := `
INSERT INTO users (name, email, password_hash, role)
VALUES ($1, $2, $3, $4)
RETURNING *;`
	var err error
	for i := 0; i < retries; i++ {
		if err = s.db.GetContext(ctx, &createdUser, query, user.Name, user.Email, user.PasswordHash, user.Role); err != nil {
			continue
		}
		return createdUser, nil
	}
	metrics.PgErrCount.WithLabelValues("CreateUser").Inc()
	return models.User{}, fmt.Errorf("err creating user: %w", err)
}

func (s *Store) GetUser(ctx context.Context, id int) (models.User, error) {
	defer s.observe("GetUser", time.Now())
	var user models.User
	query := `
SELECT * FROM users
WHERE id = $1;`
	var err error
	for i := 0; i < retries; i++ {
		err = s.db.GetContext(ctx, &user, query, id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return models.User{}, ErrUserNotFound
		case err != nil:
			continue
		}
		return user, nil
	}
	metrics.PgErrCount.WithLabelValues("GetUser").Inc()
	return models.User{}, fmt.Errorf("err getting user %d: %w", id, err)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (models.User, error) {
	defer s.observe("UserByEmail", time.Now())
	var user models.User
	query := `
SELECT * FROM users
WHERE email = $1;`
	var err error
	for i := 0; i < retries; i++ {
		err = s.db.GetContext(ctx, &user, query, email)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return models.User{}, ErrUserNotFound
		case err != nil:
			continue
		}
		return user, nil
	}
	metrics.PgErrCount.WithLabelValues("UserByEmail").Inc()
	return models.User{}, fmt.Errorf("err getting user %s: %w", email, err)
}

func (s *Store) CreateMeeting(ctx context.Context, meeting models.Meeting) (models.Meeting, error) {
	defer s.observe("CreateMeeting", time.Now())
	var newMeeting models.Meeting
	query := `
INSERT INTO meeting
    (template_id, meeting_name, meeting_description, priority, venue, start_time, end_time,
     created_by, repeat_type, custom_days, next_schedule, meeting_status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING *;`
	var err error
	for i := 0; i < retries; i++ {
		if err = s.db.GetContext(ctx, &newMeeting, query,
			meeting.TemplateID, meeting.Name, meeting.Description, meeting.Priority, meeting.Venue,
			meeting.StartTime, meeting.EndTime, meeting.CreatedBy, meeting.RepeatType,
			meeting.CustomDays, meeting.NextSchedule, meeting.Status); err != nil {
			continue
		}
		return newMeeting, nil
	}
	metrics.PgErrCount.WithLabelValues("CreateMeeting").Inc()
	return models.Meeting{}, fmt.Errorf("err creating meeting: %w", err)
}

func (s *Store) GetMeetings(ctx context.Context) ([]models.Meeting, error) {
	defer s.observe("GetMeetings", time.Now())
	var meetings []models.Meeting
	var err error
	for i := 0; i < retries; i++ {
		if err = s.db.SelectContext(ctx, &meetings, `SELECT * FROM meeting ORDER BY id`); err != nil {
			continue
		}
		return meetings, nil
	}
	metrics.PgErrCount.WithLabelValues("GetMeetings").Inc()
	return nil, fmt.Errorf("err getting meetings: %w", err)
}

func (s *Store) GetMeeting(ctx context.Context, id int) (models.Meeting, error) {
	defer s.observe("GetMeeting", time.Now())
	var meeting models.Meeting
	query := `
SELECT * FROM meeting
WHERE id = $1;`
	var err error
	for i := 0; i < retries; i++ {
		err = s.db.GetContext(ctx, &meeting, query, id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return models.Meeting{}, ErrMeetingNotFound
		case err != nil:
			continue
		}
		return meeting, nil
	}
	metrics.PgErrCount.WithLabelValues("GetMeeting").Inc()
	return models.Meeting{}, fmt.Errorf("err getting meeting %d: %w", id, err)
}

func (s *Store) UpdateMeetingStatus(ctx context.Context, id int, status string) (models.Meeting, error) {
	defer s.observe("UpdateMeetingStatus", time.Now())
	var updated models.Meeting
	query := `
UPDATE meeting
SET meeting_status = $2,
    updated_at = now()
WHERE id = $1
RETURNING *;`
	var err error
	for i := 0; i < retries; i++ {
		err = s.db.GetContext(ctx, &updated, query, id, status)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return models.Meeting{}, ErrMeetingNotFound
		case err != nil:
			continue
		}
		return updated, nil
	}
	metrics.PgErrCount.WithLabelValues("UpdateMeetingStatus").Inc()
	return models.Meeting{}, fmt.Errorf("err updating meeting %d: %w", id, err)
}

// CompletedDueMeetings returns completed recurring meetings whose
// next_schedule date has arrived, earliest first.
func (s *Store) CompletedDueMeetings(ctx context.Context, asOf time.Time) ([]models.Meeting, error) {
	defer s.observe("CompletedDueMeetings", time.Now())
	var meetings []models.Meeting
	query := `
SELECT * FROM meeting
WHERE meeting_status = 'completed'
  AND repeat_type IN ('daily', 'weekly', 'monthly', 'custom_day')
  AND next_schedule IS NOT NULL
  AND next_schedule::date <= $1::date
ORDER BY next_schedule ASC;`
	var err error
	for i := 0; i < retries; i++ {
		if err = s.db.SelectContext(ctx, &meetings, query, asOf); err != nil {
			continue
		}
		return meetings, nil
	}
	metrics.PgErrCount.WithLabelValues("CompletedDueMeetings").Inc()
	return nil, fmt.Errorf("err getting due meetings: %w", err)
}

func (s *Store) UpdateNextSchedule(ctx context.Context, id int, next time.Time) error {
	defer s.observe("UpdateNextSchedule", time.Now())
	query := `
UPDATE meeting
SET next_schedule = $2,
    updated_at = now()
WHERE id = $1;`
	var err error
	for i := 0; i < retries; i++ {
		var res sql.Result
		if res, err = s.db.ExecContext(ctx, query, id, next); err != nil {
			continue
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrMeetingNotFound
		}
		return nil
	}
	metrics.PgErrCount.WithLabelValues("UpdateNextSchedule").Inc()
	return fmt.Errorf("err updating next schedule for meeting %d: %w", id, err)
}

func (s *Store) AddMember(ctx context.Context, member models.MeetingMember) error {
	defer s.observe("AddMember", time.Now())
	query := `
INSERT INTO meeting_members (meeting_id, user_id, role)
VALUES ($1, $2, $3)
ON CONFLICT (meeting_id, user_id) DO UPDATE SET role = EXCLUDED.role;`
	var err error
	for i := 0; i < retries; i++ {
		if _, err = s.db.ExecContext(ctx, query, member.MeetingID, member.UserID, member.Role); err != nil {
			continue
		}
		return nil
	}
	metrics.PgErrCount.WithLabelValues("AddMember").Inc()
	return fmt.Errorf("err adding member to meeting %d: %w", member.MeetingID, err)
}

func (s *Store) GetMembers(ctx context.Context, meetingID int) ([]models.MeetingMember, error) {
	defer s.observe("GetMembers", time.Now())
	var members []models.MeetingMember
	query := `
SELECT meeting_id, user_id, role FROM meeting_members
WHERE meeting_id = $1
ORDER BY user_id;`
	var err error
	for i := 0; i < retries; i++ {
		if err = s.db.SelectContext(ctx, &members, query, meetingID); err != nil {
			continue
		}
		return members, nil
	}
	metrics.PgErrCount.WithLabelValues("GetMembers").Inc()
	return nil, fmt.Errorf("err getting members of meeting %d: %w", meetingID, err)
}

func (s *Store) CreatePoint(ctx context.Context, point models.MeetingPoint) (models.MeetingPoint, error) {
	defer s.observe("CreatePoint", time.Now())
	var created models.MeetingPoint
	query := `
INSERT INTO meeting_points (meeting_id, point_name, point_responsibility, point_deadline, remarks, forwarded_from_point_id)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING *;`
	var err error
	for i := 0; i < retries; i++ {
		if err = s.db.GetContext(ctx, &created, query,
			point.MeetingID, point.Name, point.Responsibility, point.Deadline, point.Remarks, point.ForwardedFromPointID); err != nil {
			continue
		}
		return created, nil
	}
	metrics.PgErrCount.WithLabelValues("CreatePoint").Inc()
	return models.MeetingPoint{}, fmt.Errorf("err creating point for meeting %d: %w", point.MeetingID, err)
}

func (s *Store) GetPoints(ctx context.Context, meetingID int) ([]models.MeetingPoint, error) {
	defer s.observe("GetPoints", time.Now())
	var points []models.MeetingPoint
	query := `
SELECT * FROM meeting_points
WHERE meeting_id = $1
ORDER BY id;`
	var err error
	for i := 0; i < retries; i++ {
		if err = s.db.SelectContext(ctx, &points, query, meetingID); err != nil {
			continue
		}
		return points, nil
	}
	metrics.PgErrCount.WithLabelValues("GetPoints").Inc()
	return nil, fmt.Errorf("err getting points of meeting %d: %w", meetingID, err)
}

func (s *Store) DeletePoint(ctx context.Context, pointID int) error {
	defer s.observe("DeletePoint", time.Now())
	var err error
	for i := 0; i < retries; i++ {
		var res sql.Result
		if res, err = s.db.ExecContext(ctx, `DELETE FROM meeting_points WHERE id = $1`, pointID); err != nil {
			continue
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrPointNotFound
		}
		return nil
	}
	metrics.PgErrCount.WithLabelValues("DeletePoint").Inc()
	return fmt.Errorf("err deleting point %d: %w", pointID, err)
}

func (s *Store) CreateForwardDecision(ctx context.Context, d models.ForwardDecision) (models.ForwardDecision, error) {
	defer s.observe("CreateForwardDecision", time.Now())
	query := `
INSERT INTO meeting_point_future (point_id, user_id, forward_type, forward_decision, add_point_meeting)
VALUES ($1, $2, $3, $4, 'false')
RETURNING id;`
	var err error
	for i := 0; i < retries; i++ {
		if err = s.db.GetContext(ctx, &d.ID, query, d.PointID, d.UserID, d.ForwardType, d.Decision); err != nil {
			continue
		}
		return d, nil
	}
	metrics.PgErrCount.WithLabelValues("CreateForwardDecision").Inc()
	return models.ForwardDecision{}, fmt.Errorf("err creating forward decision for point %d: %w", d.PointID, err)
}

// forwardDecisionRow mirrors the joined query below; add_point_meeting is the
// legacy loosely-typed column, normalized before the row leaves the store.
type forwardDecisionRow struct {
	ID             int            `db:"id"`
	PointID        int            `db:"point_id"`
	UserID         int            `db:"user_id"`
	ForwardType    string         `db:"forward_type"`
	Decision       string         `db:"forward_decision"`
	AddPointRaw    sql.NullString `db:"add_point_meeting"`
	PointName      *string        `db:"point_name"`
	Responsibility *string        `db:"point_responsibility"`
	Deadline       *time.Time     `db:"point_deadline"`
	Remarks        *string        `db:"remarks"`
}

// parseLegacyFlag normalizes the historical text representations of the
// processed flag: NULL, '', 'false' (any case) and '0' all mean "not yet
// carried".
func parseLegacyFlag(raw sql.NullString) bool {
	if !raw.Valid {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(raw.String)) {
	case "", "false", "0":
		return false
	}
	return true
}

// ForwardDecisions returns one user's forward records for the points of one
// meeting, each joined with its origin point. The join is a LEFT JOIN: a
// decision whose point row was deleted still comes back, with nil point
// fields, so the resolver can apply its own skip policy.
func (s *Store) ForwardDecisions(ctx context.Context, meetingID, userID int) ([]models.ForwardDecision, error) {
	defer s.observe("ForwardDecisions", time.Now())
	query := `
SELECT mpf.id, mpf.point_id, mpf.user_id, mpf.forward_type, mpf.forward_decision, mpf.add_point_meeting,
       mp.point_name, mp.point_responsibility, mp.point_deadline, mp.remarks
FROM meeting_point_future mpf
LEFT JOIN meeting_points mp ON mp.id = mpf.point_id
WHERE mpf.user_id = $2
  AND mpf.point_id IN (SELECT id FROM meeting_points WHERE meeting_id = $1)
ORDER BY mpf.id;`
	var rows []forwardDecisionRow
	var err error
	for i := 0; i < retries; i++ {
		if err = s.db.SelectContext(ctx, &rows, query, meetingID, userID); err != nil {
			continue
		}
		decisions := make([]models.ForwardDecision, 0, len(rows))
		for _, r := range rows {
			decisions = append(decisions, models.ForwardDecision{
				ID:             r.ID,
				PointID:        r.PointID,
				UserID:         r.UserID,
				ForwardType:    r.ForwardType,
				Decision:       r.Decision,
				Processed:      parseLegacyFlag(r.AddPointRaw),
				PointName:      r.PointName,
				Responsibility: r.Responsibility,
				Deadline:       r.Deadline,
				Remarks:        r.Remarks,
			})
		}
		return decisions, nil
	}
	metrics.PgErrCount.WithLabelValues("ForwardDecisions").Inc()
	return nil, fmt.Errorf("err getting forward decisions of meeting %d: %w", meetingID, err)
}

func (s *Store) GetHistory(ctx context.Context, meetingID int) ([]models.MeetingHistory, error) {
	defer s.observe("GetHistory", time.Now())
	var history []models.MeetingHistory
	query := `
SELECT * FROM meeting_history
WHERE meeting_id = $1
ORDER BY id;`
	var err error
	for i := 0; i < retries; i++ {
		if err = s.db.SelectContext(ctx, &history, query, meetingID); err != nil {
			continue
		}
		return history, nil
	}
	metrics.PgErrCount.WithLabelValues("GetHistory").Inc()
	return nil, fmt.Errorf("err getting history of meeting %d: %w", meetingID, err)
}

// InsertOccurrence writes one clone event in a single transaction: the new
// meeting row, its members, the carried points, the processed flags on the
// carried decisions and the history row. Either all of it lands or none.
func (s *Store) InsertOccurrence(ctx context.Context, occ models.Occurrence) (int, error) {
	defer s.observe("InsertOccurrence", time.Now())
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		metrics.PgErrCount.WithLabelValues("InsertOccurrence").Inc()
		return 0, fmt.Errorf("err starting occurrence tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.log.Warnf("err rolling back occurrence tx: %v", rbErr)
			}
		}
	}()

	var newID int
	newID, err = s.insertOccurrenceTx(ctx, tx, occ)
	if err != nil {
		metrics.PgErrCount.WithLabelValues("InsertOccurrence").Inc()
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		metrics.PgErrCount.WithLabelValues("InsertOccurrence").Inc()
		return 0, fmt.Errorf("err committing occurrence tx: %w", err)
	}
	return newID, nil
}

func (s *Store) insertOccurrenceTx(ctx context.Context, tx *sqlx.Tx, occ models.Occurrence) (int, error) {
	m := occ.Meeting
	var newID int
	query := `
INSERT INTO meeting
    (template_id, meeting_name, meeting_description, priority, venue, start_time, end_time,
     created_by, repeat_type, custom_days, next_schedule, meeting_status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING id;`
	if err := tx.GetContext(ctx, &newID, query,
		m.TemplateID, m.Name, m.Description, m.Priority, m.Venue, m.StartTime, m.EndTime,
		m.CreatedBy, m.RepeatType, m.CustomDays, m.NextSchedule, m.Status); err != nil {
		return 0, fmt.Errorf("err inserting cloned meeting: %w", err)
	}

	for _, member := range occ.Members {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO meeting_members (meeting_id, user_id, role) VALUES ($1, $2, $3)`,
			newID, member.UserID, member.Role); err != nil {
			return 0, fmt.Errorf("err copying member %d: %w", member.UserID, err)
		}
	}

	pointIDs := make([]int, 0, len(occ.Points))
	for _, p := range occ.Points {
		originID := p.OriginPointID
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO meeting_points (meeting_id, point_name, point_responsibility, point_deadline, remarks, forwarded_from_point_id)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			newID, p.Name, p.Responsibility, p.Deadline, p.Remarks, originID); err != nil {
			return 0, fmt.Errorf("err carrying point %d: %w", originID, err)
		}
		pointIDs = append(pointIDs, originID)
	}

	if len(pointIDs) > 0 {
		query, args, err := sqlx.In(
			`UPDATE meeting_point_future SET add_point_meeting = 'true' WHERE user_id = ? AND point_id IN (?)`,
			occ.ProcessedBy, pointIDs)
		if err != nil {
			return 0, fmt.Errorf("err building processed update: %w", err)
		}
		if _, err = tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return 0, fmt.Errorf("err marking points processed: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO meeting_history (meeting_id, schedule_date, status, created_date) VALUES ($1, $2, 'scheduled', now())`,
		newID, occ.ScheduleDate); err != nil {
		return 0, fmt.Errorf("err appending history for meeting %d: %w", newID, err)
	}
	return newID, nil
}

func (s *Store) ResetTables(ctx context.Context, tables []string) error {
	_, err := s.db.ExecContext(ctx, `TRUNCATE TABLE `+strings.Join(tables, `, `)+` RESTART IDENTITY CASCADE`)
	return err
}
