package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-ledger/core"
	"github.com/trezcool/masomo-ledger/core/attendance"
)

const attendanceTable = "attendance"

var (
	attendanceColumns = []string{
		"id", "student_id", "class_id", "academic_session_id", "attendance_date", "session_type",
		"status", "late_minutes", "reason", "recorded_by", "modified_by", "created_at", "modified_at",
	}

	// the upsert overwrites the mutable fields only
	attendanceUpsertSuffix = "ON CONFLICT (student_id, academic_session_id, attendance_date, session_type) DO UPDATE SET " +
		"status = excluded.status, late_minutes = excluded.late_minutes, reason = excluded.reason, " +
		"modified_by = excluded.recorded_by, modified_at = excluded.created_at"

	attendanceOrdering = []core.DBOrdering{
		{Field: "attendance_date", Ascending: true},
		{Field: "session_type", Ascending: true},
		{Field: "student_id", Ascending: true},
	}
)

type attendanceRow struct {
	ID                string      `db:"id"`
	StudentID         string      `db:"student_id"`
	ClassID           string      `db:"class_id"`
	AcademicSessionID string      `db:"academic_session_id"`
	Date              time.Time   `db:"attendance_date"`
	SessionType       string      `db:"session_type"`
	Status            string      `db:"status"`
	LateMinutes       null.Int    `db:"late_minutes"`
	Reason            null.String `db:"reason"`
	RecordedBy        string      `db:"recorded_by"`
	ModifiedBy        null.String `db:"modified_by"`
	CreatedAt         time.Time   `db:"created_at"`
	ModifiedAt        null.Time   `db:"modified_at"`
}

func toRow(rec attendance.Record) attendanceRow {
	return attendanceRow{
		ID:                rec.ID,
		StudentID:         rec.StudentID,
		ClassID:           rec.ClassID,
		AcademicSessionID: rec.AcademicSessionID,
		Date:              attendance.TruncateDate(rec.Date),
		SessionType:       rec.SessionType,
		Status:            string(rec.Status),
		LateMinutes:       null.IntFromPtr(rec.LateMinutes),
		Reason:            null.NewString(rec.Reason, rec.Reason != ""),
		RecordedBy:        rec.RecordedBy,
		ModifiedBy:        null.NewString(rec.ModifiedBy, rec.ModifiedBy != ""),
		CreatedAt:         rec.CreatedAt.UTC(),
		ModifiedAt:        null.TimeFromPtr(rec.ModifiedAt),
	}
}

func (row attendanceRow) record() attendance.Record {
	rec := attendance.Record{
		ID:                row.ID,
		StudentID:         row.StudentID,
		ClassID:           row.ClassID,
		AcademicSessionID: row.AcademicSessionID,
		Date:              attendance.TruncateDate(row.Date),
		SessionType:       row.SessionType,
		Status:            attendance.Status(row.Status),
		LateMinutes:       row.LateMinutes.Ptr(),
		Reason:            row.Reason.String,
		RecordedBy:        row.RecordedBy,
		ModifiedBy:        row.ModifiedBy.String,
		CreatedAt:         row.CreatedAt.UTC(),
	}
	if row.ModifiedAt.Valid {
		t := row.ModifiedAt.Time.UTC()
		rec.ModifiedAt = &t
	}
	return rec
}

type attendanceRepository struct {
	repository
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(exec core.DBExecutor, engine string) *attendanceRepository {
	return &attendanceRepository{repository: newRepository(exec, engine)}
}

func (repo attendanceRepository) query(ctx context.Context, exec core.DBExecutor, qb sq.SelectBuilder) ([]attendance.Record, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "selecting attendance")
	}
	defer func() { _ = rows.Close() }()

	var dest []attendanceRow
	if err = sqlx.StructScan(rows, &dest); err != nil {
		return nil, errors.Wrap(err, "scanning attendance")
	}

	recs := make([]attendance.Record, 0, len(dest))
	for _, row := range dest {
		recs = append(recs, row.record())
	}
	return recs, nil
}

func (repo attendanceRepository) get(ctx context.Context, exec core.DBExecutor, where sq.Sqlizer) (attendance.Record, error) {
	recs, err := repo.query(ctx, exec, repo.sb.Select(attendanceColumns...).From(attendanceTable).Where(where).Limit(1))
	if err != nil {
		return attendance.Record{}, err
	}
	if len(recs) == 0 {
		return attendance.Record{}, attendance.ErrNotFound
	}
	return recs[0], nil
}

func (repo attendanceRepository) UpsertAttendance(ctx context.Context, rec attendance.Record, exec ...core.DBExecutor) (attendance.Record, error) {
	ex := repo.getExec(exec)
	row := toRow(rec)

	query, args, err := repo.sb.Insert(attendanceTable).
		Columns(attendanceColumns...).
		Values(
			row.ID, row.StudentID, row.ClassID, row.AcademicSessionID, row.Date, row.SessionType,
			row.Status, row.LateMinutes, row.Reason, row.RecordedBy, row.ModifiedBy, row.CreatedAt, row.ModifiedAt,
		).
		Suffix(attendanceUpsertSuffix).
		ToSql()
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "building upsert")
	}
	if _, err = ex.ExecContext(ctx, query, args...); err != nil {
		return attendance.Record{}, errors.Wrap(err, "upserting attendance")
	}

	// the stored row keeps its original id on conflict
	return repo.get(ctx, ex, sq.Eq{
		"student_id":          row.StudentID,
		"academic_session_id": row.AcademicSessionID,
		"attendance_date":     row.Date,
		"session_type":        row.SessionType,
	})
}

func (repo attendanceRepository) UpdateAttendance(ctx context.Context, id string, upd attendance.StatusUpdate, exec ...core.DBExecutor) (attendance.Record, error) {
	ex := repo.getExec(exec)

	query, args, err := repo.sb.Update(attendanceTable).
		SetMap(map[string]interface{}{
			"status":      string(upd.Status),
			"reason":      null.NewString(upd.Reason, upd.Reason != ""),
			"modified_by": null.NewString(upd.ModifiedBy, upd.ModifiedBy != ""),
			"modified_at": upd.ModifiedAt.UTC(),
		}).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "building update")
	}

	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "updating attendance")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "updating attendance")
	}
	if n == 0 {
		return attendance.Record{}, attendance.ErrNotFound
	}
	return repo.get(ctx, ex, sq.Eq{"id": id})
}

func (repo attendanceRepository) GetAttendance(ctx context.Context, id string, exec ...core.DBExecutor) (attendance.Record, error) {
	return repo.get(ctx, repo.getExec(exec), sq.Eq{"id": id})
}

func (repo attendanceRepository) QueryAttendance(ctx context.Context, filter attendance.QueryFilter, exec ...core.DBExecutor) ([]attendance.Record, error) {
	where := sq.And{}
	eq := sq.Eq{}
	if filter.StudentID != "" {
		eq["student_id"] = filter.StudentID
	}
	if filter.ClassID != "" {
		eq["class_id"] = filter.ClassID
	}
	if filter.AcademicSessionID != "" {
		eq["academic_session_id"] = filter.AcademicSessionID
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		eq["status"] = statuses
	}
	if len(eq) > 0 {
		where = append(where, eq)
	}
	if !filter.DateFrom.IsZero() {
		where = append(where, sq.GtOrEq{"attendance_date": attendance.TruncateDate(filter.DateFrom)})
	}
	if !filter.DateTo.IsZero() {
		where = append(where, sq.LtOrEq{"attendance_date": attendance.TruncateDate(filter.DateTo)})
	}

	qb := repo.sb.Select(attendanceColumns...).From(attendanceTable)
	if len(where) > 0 {
		qb = qb.Where(where)
	}
	for _, ord := range attendanceOrdering {
		qb = qb.OrderBy(ord.String())
	}
	return repo.query(ctx, repo.getExec(exec), qb)
}
