package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/masomo-ledger/core"
	"github.com/trezcool/masomo-ledger/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) UpsertAttendance(_ context.Context, rec attendance.Record, _ ...core.DBExecutor) (attendance.Record, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	tbl := repo.db.attendance
	rec.Date = attendance.TruncateDate(rec.Date)
	key := rec.Key().String()

	if id, ok := tbl.keys[key]; ok {
		existing := tbl.table[id]
		modifiedAt := rec.CreatedAt
		existing.Status = rec.Status
		existing.LateMinutes = rec.LateMinutes
		existing.Reason = rec.Reason
		existing.ModifiedBy = rec.RecordedBy
		existing.ModifiedAt = &modifiedAt
		tbl.table[id] = existing
		return existing, nil
	}

	tbl.table[rec.ID] = rec
	tbl.keys[key] = rec.ID
	return rec, nil
}

func (repo *attendanceRepository) UpdateAttendance(_ context.Context, id string, upd attendance.StatusUpdate, _ ...core.DBExecutor) (attendance.Record, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	rec, ok := repo.db.attendance.table[id]
	if !ok {
		return attendance.Record{}, attendance.ErrNotFound
	}
	modifiedAt := upd.ModifiedAt
	rec.Status = upd.Status
	rec.Reason = upd.Reason
	rec.ModifiedBy = upd.ModifiedBy
	rec.ModifiedAt = &modifiedAt
	repo.db.attendance.table[id] = rec
	return rec, nil
}

func (repo *attendanceRepository) GetAttendance(_ context.Context, id string, _ ...core.DBExecutor) (attendance.Record, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if rec, ok := repo.db.attendance.table[id]; ok {
		return rec, nil
	}
	return attendance.Record{}, attendance.ErrNotFound
}

func matches(rec attendance.Record, filter attendance.QueryFilter) bool {
	if filter.StudentID != "" && rec.StudentID != filter.StudentID {
		return false
	}
	if filter.ClassID != "" && rec.ClassID != filter.ClassID {
		return false
	}
	if filter.AcademicSessionID != "" && rec.AcademicSessionID != filter.AcademicSessionID {
		return false
	}
	if !filter.DateFrom.IsZero() && rec.Date.Before(attendance.TruncateDate(filter.DateFrom)) {
		return false
	}
	if !filter.DateTo.IsZero() && rec.Date.After(attendance.TruncateDate(filter.DateTo)) {
		return false
	}
	if len(filter.Statuses) > 0 {
		for _, s := range filter.Statuses {
			if rec.Status == s {
				return true
			}
		}
		return false
	}
	return true
}

func (repo *attendanceRepository) QueryAttendance(_ context.Context, filter attendance.QueryFilter, _ ...core.DBExecutor) ([]attendance.Record, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	recs := make([]attendance.Record, 0)
	for _, rec := range repo.db.attendance.table {
		if matches(rec, filter) {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.SessionType != b.SessionType {
			return a.SessionType < b.SessionType
		}
		return a.StudentID < b.StudentID
	})
	return recs, nil
}
