package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-ledger/core"
	"github.com/trezcool/masomo-ledger/core/notification"
)

const guardianTable = "student_guardians"

type guardianRow struct {
	StudentID  string      `db:"student_id"`
	GuardianID string      `db:"guardian_id"`
	Name       string      `db:"name"`
	Email      null.String `db:"email"`
}

type guardianRepository struct {
	repository
}

var _ notification.GuardianRepository = (*guardianRepository)(nil) // interface compliance check

func NewGuardianRepository(exec core.DBExecutor, engine string) *guardianRepository {
	return &guardianRepository{repository: newRepository(exec, engine)}
}

func (repo guardianRepository) LinkGuardian(ctx context.Context, g notification.Guardian, exec ...core.DBExecutor) error {
	query, args, err := repo.sb.Insert(guardianTable).
		Columns("student_id", "guardian_id", "name", "email").
		Values(g.StudentID, g.ID, g.Name, null.NewString(g.Email, g.Email != "")).
		Suffix("ON CONFLICT (student_id, guardian_id) DO UPDATE SET name = excluded.name, email = excluded.email").
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building insert")
	}
	if _, err = repo.getExec(exec).ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "linking guardian")
	}
	return nil
}

func (repo guardianRepository) QueryGuardians(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]notification.Guardian, error) {
	query, args, err := repo.sb.Select("student_id", "guardian_id", "name", "email").
		From(guardianTable).
		Where(sq.Eq{"student_id": studentID}).
		OrderBy(core.DBOrdering{Field: "guardian_id", Ascending: true}.String()).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	rows, err := repo.getExec(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "selecting guardians")
	}
	defer func() { _ = rows.Close() }()

	var dest []guardianRow
	if err = sqlx.StructScan(rows, &dest); err != nil {
		return nil, errors.Wrap(err, "scanning guardians")
	}

	guardians := make([]notification.Guardian, 0, len(dest))
	for _, row := range dest {
		guardians = append(guardians, notification.Guardian{
			ID:        row.GuardianID,
			StudentID: row.StudentID,
			Name:      row.Name,
			Email:     row.Email.String,
		})
	}
	return guardians, nil
}
