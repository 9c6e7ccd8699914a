package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-ledger/core"
	"github.com/trezcool/masomo-ledger/core/notification"
)

const intentTable = "notification_intents"

var intentColumns = []string{"id", "recipient_id", "student_id", "attendance_id", "kind", "title", "message", "created_at"}

type intentRow struct {
	ID           string    `db:"id"`
	RecipientID  string    `db:"recipient_id"`
	StudentID    string    `db:"student_id"`
	AttendanceID string    `db:"attendance_id"`
	Kind         string    `db:"kind"`
	Title        string    `db:"title"`
	Message      string    `db:"message"`
	CreatedAt    time.Time `db:"created_at"`
}

type notificationRepository struct {
	repository
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(exec core.DBExecutor, engine string) *notificationRepository {
	return &notificationRepository{repository: newRepository(exec, engine)}
}

// CreateIntents inserts every intent with a single multi-row statement.
func (repo notificationRepository) CreateIntents(ctx context.Context, intents []notification.Intent, exec ...core.DBExecutor) error {
	if len(intents) == 0 {
		return nil
	}

	ib := repo.sb.Insert(intentTable).Columns(intentColumns...)
	for _, in := range intents {
		ib = ib.Values(in.ID, in.RecipientID, in.StudentID, in.AttendanceID, in.Kind, in.Title, in.Message, in.CreatedAt.UTC())
	}
	query, args, err := ib.ToSql()
	if err != nil {
		return errors.Wrap(err, "building insert")
	}
	if _, err = repo.getExec(exec).ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "inserting notification intents")
	}
	return nil
}

func (repo notificationRepository) QueryIntents(ctx context.Context, filter notification.QueryFilter, exec ...core.DBExecutor) ([]notification.Intent, error) {
	eq := sq.Eq{}
	if filter.RecipientID != "" {
		eq["recipient_id"] = filter.RecipientID
	}
	if filter.StudentID != "" {
		eq["student_id"] = filter.StudentID
	}
	if filter.AttendanceID != "" {
		eq["attendance_id"] = filter.AttendanceID
	}

	qb := repo.sb.Select(intentColumns...).From(intentTable)
	if len(eq) > 0 {
		qb = qb.Where(eq)
	}
	query, args, err := qb.OrderBy("created_at ASC", "id ASC").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	rows, err := repo.getExec(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "selecting notification intents")
	}
	defer func() { _ = rows.Close() }()

	var dest []intentRow
	if err = sqlx.StructScan(rows, &dest); err != nil {
		return nil, errors.Wrap(err, "scanning notification intents")
	}

	intents := make([]notification.Intent, 0, len(dest))
	for _, row := range dest {
		intents = append(intents, notification.Intent{
			ID:           row.ID,
			RecipientID:  row.RecipientID,
			StudentID:    row.StudentID,
			AttendanceID: row.AttendanceID,
			Kind:         row.Kind,
			Title:        row.Title,
			Message:      row.Message,
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return intents, nil
}
