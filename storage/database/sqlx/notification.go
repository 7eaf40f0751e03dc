package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/aminpamelo/mudeerbedaie-sub010/core"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/notification"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/timetable"
)

// postgres error codes
const (
	uniqueViolation = "23505"
	undefinedTable  = "42P01"
	undefinedColumn = "42703"
)

const scheduledColumns = `id, class_id, session_id, occurrence_date, occurrence_time, rule_id, status,
	scheduled_at, recipient_count, created_at, updated_at`

const activeStatuses = `('pending', 'processing')`

type notificationRepository struct {
	exec core.DBExecutor
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(exec core.DBExecutor) *notificationRepository {
	return &notificationRepository{exec: exec}
}

func (repo notificationRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == uniqueViolation
}

// wrapErr wraps err with msg. A missing table or column means the schema is behind the code and
// turns into a shutdown error: no request can be served until migrations run.
func wrapErr(err error, msg string) error {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && (pqErr.Code == undefinedTable || pqErr.Code == undefinedColumn) {
		return core.NewShutdownError(fmt.Sprintf("%s: database schema out of date: %s", msg, pqErr.Message))
	}
	return errors.Wrap(err, msg)
}

// scanScheduled maps the selected rows onto ScheduledNotification through its db tags.
func scanScheduled(rows *sql.Rows) ([]notification.ScheduledNotification, error) {
	defer func() { _ = rows.Close() }()

	var res []notification.ScheduledNotification
	if err := sqlx.StructScan(rows, &res); err != nil {
		return nil, err
	}
	for i := range res {
		res[i].ScheduledAt = res[i].ScheduledAt.UTC()
		res[i].CreatedAt = res[i].CreatedAt.UTC()
		res[i].UpdatedAt = res[i].UpdatedAt.UTC()
	}
	return res, nil
}

func (repo notificationRepository) ExistsActive(ctx context.Context, classID string, scheduledAt time.Time, ruleID string, exec ...core.DBExecutor) (bool, error) {
	var exists bool
	err := repo.getExec(exec).QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM scheduled_notification
			WHERE class_id = $1 AND scheduled_at = $2 AND rule_id = $3 AND status IN `+activeStatuses+`
		)`,
		classID, scheduledAt.UTC(), ruleID,
	).Scan(&exists)
	if err != nil {
		return false, wrapErr(err, "checking active notification")
	}
	return exists, nil
}

// InsertIfAbsent re-checks the key and inserts in one transaction. The partial unique index
// scheduled_notification_active_key settles races between concurrent passes.
func (repo notificationRepository) InsertIfAbsent(ctx context.Context, sn notification.ScheduledNotification, exec ...core.DBExecutor) (notification.ScheduledNotification, bool, error) {
	var row notification.ScheduledNotification
	var created bool

	err := core.RunInTx(ctx, repo.getExec(exec), func(tx core.DBExecutor) error {
		exists, err := repo.ExistsActive(ctx, sn.ClassID, sn.ScheduledAt, sn.RuleID, tx)
		if err != nil || exists {
			return err
		}

		rows, err := tx.QueryContext(ctx,
			`INSERT INTO scheduled_notification (`+scheduledColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (class_id, scheduled_at, rule_id) WHERE status IN `+activeStatuses+` DO NOTHING
			RETURNING `+scheduledColumns,
			uuid.New().String(), sn.ClassID, sn.SessionID, sn.OccurrenceDate, sn.OccurrenceTime, sn.RuleID,
			sn.Status, sn.ScheduledAt.UTC(), sn.RecipientCount, sn.CreatedAt.UTC(), sn.UpdatedAt.UTC(),
		)
		if err != nil {
			return err
		}
		inserted, err := scanScheduled(rows)
		if err != nil {
			return err
		}
		if len(inserted) > 0 {
			row, created = inserted[0], true
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return notification.ScheduledNotification{}, false, nil
		}
		return notification.ScheduledNotification{}, false, wrapErr(err, "inserting scheduled notification")
	}
	return row, created, nil
}

func (repo notificationRepository) AttachSession(ctx context.Context, classID string, date time.Time, start timetable.TimeOfDay, sessionID string, at time.Time, exec ...core.DBExecutor) (int64, error) {
	res, err := repo.getExec(exec).ExecContext(ctx,
		`UPDATE scheduled_notification SET session_id = $1, updated_at = $2
		WHERE class_id = $3 AND occurrence_date = $4::date AND occurrence_time = $5
			AND session_id IS NULL AND status IN `+activeStatuses,
		sessionID, at.UTC(), classID, date.Format("2006-01-02"), start,
	)
	if err != nil {
		return 0, wrapErr(err, "attaching session to notifications")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "counting attached notifications")
	}
	return n, nil
}

func (repo notificationRepository) CancelActiveBySession(ctx context.Context, sessionID string, at time.Time, exec ...core.DBExecutor) (int64, error) {
	res, err := repo.getExec(exec).ExecContext(ctx,
		`UPDATE scheduled_notification SET status = $1, updated_at = $2
		WHERE session_id = $3 AND status IN `+activeStatuses,
		notification.StatusCancelled, at.UTC(), sessionID,
	)
	if err != nil {
		return 0, wrapErr(err, "cancelling scheduled notifications")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "counting cancelled notifications")
	}
	return n, nil
}

func (repo notificationRepository) QueryScheduled(ctx context.Context, filter *notification.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]notification.ScheduledNotification, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter != nil {
		if filter.ClassID != "" {
			conds = append(conds, "class_id = ?")
			args = append(args, filter.ClassID)
		}
		if filter.SessionID != "" {
			conds = append(conds, "session_id = ?")
			args = append(args, filter.SessionID)
		}
		if filter.RuleID != "" {
			conds = append(conds, "rule_id = ?")
			args = append(args, filter.RuleID)
		}
		if len(filter.Statuses) > 0 {
			conds = append(conds, "status IN (?)")
			args = append(args, filter.Statuses)
		}
		if !filter.ScheduledFrom.IsZero() {
			conds = append(conds, "scheduled_at >= ?")
			args = append(args, filter.ScheduledFrom.UTC())
		}
		if !filter.ScheduledTo.IsZero() {
			conds = append(conds, "scheduled_at <= ?")
			args = append(args, filter.ScheduledTo.UTC())
		}
	}

	q := "SELECT " + scheduledColumns + " FROM scheduled_notification"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "scheduled_at", Ascending: true}}
	}
	orderBy := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		orderBy = append(orderBy, ord.String())
	}
	q += " ORDER BY " + strings.Join(orderBy, ", ")

	// expand the status list, then switch to postgres bindvars
	q, args, err := sqlx.In(q, args...)
	if err != nil {
		return nil, wrapErr(err, "building notification query")
	}
	rows, err := repo.getExec(exec).QueryContext(ctx, sqlx.Rebind(sqlx.DOLLAR, q), args...)
	if err != nil {
		return nil, wrapErr(err, "querying scheduled notifications")
	}
	res, err := scanScheduled(rows)
	if err != nil {
		return nil, wrapErr(err, "scanning scheduled notifications")
	}
	return res, nil
}

func (repo notificationRepository) GetScheduled(ctx context.Context, id string, exec ...core.DBExecutor) (notification.ScheduledNotification, error) {
	if _, err := uuid.Parse(id); err != nil {
		return notification.ScheduledNotification{}, notification.ErrNotFound
	}
	rows, err := repo.getExec(exec).QueryContext(ctx,
		"SELECT "+scheduledColumns+" FROM scheduled_notification WHERE id = $1", id)
	if err != nil {
		return notification.ScheduledNotification{}, wrapErr(err, "getting scheduled notification")
	}
	res, err := scanScheduled(rows)
	if err != nil {
		return notification.ScheduledNotification{}, wrapErr(err, "scanning scheduled notification")
	}
	if len(res) == 0 {
		return notification.ScheduledNotification{}, notification.ErrNotFound
	}
	return res[0], nil
}
