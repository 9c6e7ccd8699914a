package attendance

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-ledger/core"
	"github.com/trezcool/masomo-ledger/core/notification"
)

const defaultRecentCount = 10

type (
	// Repository is the attendance record store. Every method joins the
	// caller's transaction when an exec is provided.
	Repository interface {
		// UpsertAttendance inserts rec or, when its natural key exists, overwrites
		// status, late_minutes and reason, setting modified_by to rec.RecordedBy
		// and modified_at to rec.CreatedAt. The original id, class_id,
		// recorded_by and created_at are kept.
		UpsertAttendance(ctx context.Context, rec Record, exec ...core.DBExecutor) (Record, error)
		UpdateAttendance(ctx context.Context, id string, upd StatusUpdate, exec ...core.DBExecutor) (Record, error)
		GetAttendance(ctx context.Context, id string, exec ...core.DBExecutor) (Record, error)
		// QueryAttendance applies AND on the set QueryFilter fields, ordered by
		// date, session_type and student_id.
		QueryAttendance(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Record, error)
	}

	Service interface {
		Upsert(ctx context.Context, na NewAttendance) (Record, error)
		MarkBulk(ctx context.Context, batch []NewAttendance) ([]Record, error)
		MarkBulkPartial(ctx context.Context, batch []NewAttendance) ([]BulkResult, error)
		UpdateWithNotification(ctx context.Context, id string, ua UpdateAttendance, actor core.Actor) (Record, error)

		GetByID(ctx context.Context, id string) (Record, error)
		FindByClassAndDate(ctx context.Context, classID string, date time.Time, statuses ...Status) ([]Record, error)
		FindByStudentAndRange(ctx context.Context, studentID string, start, end time.Time) ([]Record, error)
		FindByClassAndSession(ctx context.Context, classID, academicSessionID string) ([]Record, error)

		ConsecutiveAbsences(ctx context.Context, classID string, minDays int) ([]Run, error)
		ClassSnapshot(ctx context.Context, classID string, date time.Time) (DailySnapshot, error)
		ClassStats(ctx context.Context, classID string, start, end time.Time) (ClassStats, error)
		StudentMonthly(ctx context.Context, studentID string, year, month int) ([]DayDigest, error)
		AttendanceIssues(ctx context.Context, classID, academicSessionID string, threshold float64) ([]StudentIssue, error)
		StudentSummary(ctx context.Context, studentID, academicSessionID string) (Summary, error)
		StudentReport(ctx context.Context, studentID, academicSessionID string, year, month, recent int) (Report, error)
	}

	ServiceDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Tx         core.Transactor
		Repo       Repository
		Guardians  notification.GuardianRepository
		Intents    notification.Repository
		Validate   *validator.Validate
		Translator ut.Translator
	}

	service struct {
		conf       *core.Config
		logger     core.Logger
		tx         core.Transactor
		repo       Repository
		guardians  notification.GuardianRepository
		intents    notification.Repository
		validate   *validator.Validate
		translator ut.Translator
		now        func() time.Time
	}
)

var _ Service = (*service)(nil)

// missing names the unset dependencies. Struct values implementing an
// interface are valid dependencies.
func (deps ServiceDeps) missing() []string {
	var names []string
	if deps.Conf == nil {
		names = append(names, "Conf")
	}
	if deps.Logger == nil {
		names = append(names, "Logger")
	}
	if deps.Tx == nil {
		names = append(names, "Tx")
	}
	if deps.Repo == nil {
		names = append(names, "Repo")
	}
	if deps.Guardians == nil {
		names = append(names, "Guardians")
	}
	if deps.Intents == nil {
		names = append(names, "Intents")
	}
	if deps.Validate == nil {
		names = append(names, "Validate")
	}
	if deps.Translator == nil {
		names = append(names, "Translator")
	}
	return names
}

func NewService(deps ServiceDeps) Service {
	if missing := deps.missing(); len(missing) > 0 {
		panic("attendance.NewService: missing dependencies: " + strings.Join(missing, ", "))
	}

	return &service{
		conf:       deps.Conf,
		logger:     deps.Logger,
		tx:         deps.Tx,
		repo:       deps.Repo,
		guardians:  deps.Guardians,
		intents:    deps.Intents,
		validate:   deps.Validate,
		translator: deps.Translator,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// newRecord builds the record an upsert writes. Date is assumed validated.
func (svc *service) newRecord(na NewAttendance) Record {
	date, _ := ParseDate(na.Date)
	return Record{
		ID:                uuid.New().String(),
		StudentID:         na.StudentID,
		ClassID:           na.ClassID,
		AcademicSessionID: na.AcademicSessionID,
		Date:              date,
		SessionType:       core.CleanString(na.SessionType, true),
		Status:            na.Status,
		LateMinutes:       na.LateMinutes,
		Reason:            core.CleanString(na.Reason),
		RecordedBy:        na.RecordedBy,
		CreatedAt:         svc.now(),
	}
}

func (svc *service) checkBatchSize(size int) error {
	if max := svc.conf.Attendance.MaxBatchSize; max > 0 && size > max {
		return core.NewArgumentError(fmt.Sprintf("batch of %d records exceeds the limit of %d", size, max))
	}
	return nil
}

func keyOf(na NewAttendance) NaturalKey {
	date, _ := ParseDate(na.Date)
	return NaturalKey{
		StudentID:         na.StudentID,
		AcademicSessionID: na.AcademicSessionID,
		Date:              date,
		SessionType:       core.CleanString(na.SessionType, true),
	}
}

func (svc *service) Upsert(ctx context.Context, na NewAttendance) (Record, error) {
	if err := na.Validate(svc.validate, svc.translator); err != nil {
		return Record{}, err
	}

	var rec Record
	err := svc.tx.InTx(ctx, func(ctx context.Context, exec core.DBExecutor) (err error) {
		rec, err = svc.repo.UpsertAttendance(ctx, svc.newRecord(na), exec)
		return err
	})
	if err != nil {
		return Record{}, errors.Wrap(err, "upserting attendance")
	}
	return rec, nil
}

// MarkBulk validates the whole batch, then upserts it in a single transaction.
// Either every record is persisted or none is.
func (svc *service) MarkBulk(ctx context.Context, batch []NewAttendance) ([]Record, error) {
	if err := svc.checkBatchSize(len(batch)); err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		return []Record{}, nil
	}

	for i, na := range batch {
		if err := na.Validate(svc.validate, svc.translator); err != nil {
			return nil, &BatchError{Index: i, Key: keyOf(na), Err: err}
		}
	}

	recs := make([]Record, 0, len(batch))
	err := svc.tx.InTx(ctx, func(ctx context.Context, exec core.DBExecutor) error {
		for i, na := range batch {
			rec, err := svc.repo.UpsertAttendance(ctx, svc.newRecord(na), exec)
			if err != nil {
				return &BatchError{Index: i, Key: keyOf(na), Err: err}
			}
			recs = append(recs, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	svc.logger.Debug(fmt.Sprintf("marked %d attendance records", len(recs)))
	return recs, nil
}

// MarkBulkPartial upserts each record in its own transaction and reports the
// outcome per record. A failing record does not block the others.
func (svc *service) MarkBulkPartial(ctx context.Context, batch []NewAttendance) ([]BulkResult, error) {
	if err := svc.checkBatchSize(len(batch)); err != nil {
		return nil, err
	}

	results := make([]BulkResult, 0, len(batch))
	for i, na := range batch {
		res := BulkResult{Index: i}
		rec, err := svc.Upsert(ctx, na)
		if err != nil {
			res.Err = err
			res.Error = err.Error()
		} else {
			res.Record = &rec
		}
		results = append(results, res)
	}
	return results, nil
}

// UpdateWithNotification changes the status of a record and records a
// notification intent for every guardian of the student, atomically.
func (svc *service) UpdateWithNotification(ctx context.Context, id string, ua UpdateAttendance, actor core.Actor) (Record, error) {
	if err := ua.Validate(svc.validate, svc.translator); err != nil {
		return Record{}, err
	}
	if actor.IsZero() {
		return Record{}, core.NewValidationError(
			ErrMissingField,
			core.FieldError{Field: "actor", Error: ErrActorRequired.Error()},
		)
	}

	var (
		rec   Record
		count int
	)
	err := svc.tx.InTx(ctx, func(ctx context.Context, exec core.DBExecutor) error {
		now := svc.now()
		var err error
		rec, err = svc.repo.UpdateAttendance(ctx, id, StatusUpdate{
			Status:     ua.Status,
			Reason:     core.CleanString(ua.Reason),
			ModifiedBy: actor.ID,
			ModifiedAt: now,
		}, exec)
		if err != nil {
			return err
		}

		guardians, err := svc.guardians.QueryGuardians(ctx, rec.StudentID, exec)
		if err != nil {
			return errors.Wrap(err, "querying guardians")
		}
		if len(guardians) == 0 {
			return nil
		}

		intents := make([]notification.Intent, 0, len(guardians))
		for _, g := range guardians {
			intents = append(intents, notification.Intent{
				ID:           uuid.New().String(),
				RecipientID:  g.ID,
				StudentID:    rec.StudentID,
				AttendanceID: rec.ID,
				Kind:         notification.KindAttendanceChanged,
				Title:        "Attendance updated",
				Message:      statusChangeMessage(rec),
				CreatedAt:    now,
			})
		}
		if err = svc.intents.CreateIntents(ctx, intents, exec); err != nil {
			return errors.Wrap(err, "creating notification intents")
		}
		count = len(intents)
		return nil
	})
	if err != nil {
		return Record{}, errors.Wrap(err, "updating attendance")
	}

	svc.logger.Info(fmt.Sprintf("attendance %s set to %s: %d guardian(s) to notify", rec.ID, rec.Status, count), actor)
	return rec, nil
}

func statusChangeMessage(rec Record) string {
	msg := fmt.Sprintf("Attendance on %s (%s) was changed to %s.", rec.Date.Format(dateLayout), rec.SessionType, rec.Status)
	if rec.Reason != "" {
		msg += " Reason: " + rec.Reason
	}
	return msg
}

func (svc *service) GetByID(ctx context.Context, id string) (Record, error) {
	return svc.repo.GetAttendance(ctx, id)
}

// FindByClassAndDate lists the class records of a day, optionally narrowed to some statuses.
func (svc *service) FindByClassAndDate(ctx context.Context, classID string, date time.Time, statuses ...Status) ([]Record, error) {
	if date.IsZero() {
		return nil, core.NewArgumentError("date is required")
	}
	for _, s := range statuses {
		if !s.Valid() {
			return nil, core.NewArgumentError(fmt.Sprintf("invalid status %q", s))
		}
	}
	date = TruncateDate(date)
	return svc.repo.QueryAttendance(ctx, QueryFilter{ClassID: classID, DateFrom: date, DateTo: date, Statuses: statuses})
}

func checkRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return core.NewArgumentError("start and end dates are required")
	}
	if start.After(end) {
		return core.NewArgumentError("start date is after end date")
	}
	return nil
}

func (svc *service) FindByStudentAndRange(ctx context.Context, studentID string, start, end time.Time) ([]Record, error) {
	start, end = TruncateDate(start), TruncateDate(end)
	if err := checkRange(start, end); err != nil {
		return nil, err
	}
	return svc.repo.QueryAttendance(ctx, QueryFilter{StudentID: studentID, DateFrom: start, DateTo: end})
}

func (svc *service) FindByClassAndSession(ctx context.Context, classID, academicSessionID string) ([]Record, error) {
	return svc.repo.QueryAttendance(ctx, QueryFilter{ClassID: classID, AcademicSessionID: academicSessionID})
}

func (svc *service) ConsecutiveAbsences(ctx context.Context, classID string, minDays int) ([]Run, error) {
	if minDays <= 0 {
		return nil, core.NewArgumentError("minDays must be greater than 0")
	}
	recs, err := svc.repo.QueryAttendance(ctx, QueryFilter{ClassID: classID})
	if err != nil {
		return nil, errors.Wrap(err, "querying class attendance")
	}
	return DetectRuns(recs, minDays)
}

func (svc *service) ClassSnapshot(ctx context.Context, classID string, date time.Time) (DailySnapshot, error) {
	recs, err := svc.FindByClassAndDate(ctx, classID, date)
	if err != nil {
		return DailySnapshot{}, err
	}
	return Snapshot(classID, TruncateDate(date), recs), nil
}

func (svc *service) ClassStats(ctx context.Context, classID string, start, end time.Time) (ClassStats, error) {
	start, end = TruncateDate(start), TruncateDate(end)
	if err := checkRange(start, end); err != nil {
		return ClassStats{}, err
	}
	recs, err := svc.repo.QueryAttendance(ctx, QueryFilter{ClassID: classID, DateFrom: start, DateTo: end})
	if err != nil {
		return ClassStats{}, errors.Wrap(err, "querying class attendance")
	}
	return RangeStats(classID, start, end, recs), nil
}

func monthRange(year, month int) (time.Time, time.Time, error) {
	if year <= 0 || month < 1 || month > 12 {
		return time.Time{}, time.Time{}, core.NewArgumentError(fmt.Sprintf("invalid month %d-%d", year, month))
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, -1), nil
}

func (svc *service) studentMonthly(ctx context.Context, studentID string, year, month int, exec ...core.DBExecutor) ([]DayDigest, error) {
	start, end, err := monthRange(year, month)
	if err != nil {
		return nil, err
	}
	recs, err := svc.repo.QueryAttendance(ctx, QueryFilter{StudentID: studentID, DateFrom: start, DateTo: end}, exec...)
	if err != nil {
		return nil, errors.Wrap(err, "querying student attendance")
	}
	return MonthlyDigest(recs), nil
}

func (svc *service) StudentMonthly(ctx context.Context, studentID string, year, month int) ([]DayDigest, error) {
	return svc.studentMonthly(ctx, studentID, year, month)
}

func (svc *service) AttendanceIssues(ctx context.Context, classID, academicSessionID string, threshold float64) ([]StudentIssue, error) {
	if threshold > 100 {
		return nil, core.NewArgumentError("threshold cannot exceed 100")
	}
	if threshold <= 0 {
		threshold = svc.conf.Attendance.IssueThreshold
		if threshold <= 0 {
			threshold = DefaultIssueThreshold
		}
	}
	recs, err := svc.FindByClassAndSession(ctx, classID, academicSessionID)
	if err != nil {
		return nil, errors.Wrap(err, "querying class attendance")
	}
	return Issues(recs, threshold), nil
}

func (svc *service) StudentSummary(ctx context.Context, studentID, academicSessionID string) (Summary, error) {
	recs, err := svc.repo.QueryAttendance(ctx, QueryFilter{StudentID: studentID, AcademicSessionID: academicSessionID})
	if err != nil {
		return Summary{}, errors.Wrap(err, "querying student attendance")
	}
	return Summarize(studentID, academicSessionID, recs), nil
}

// StudentReport reads the summary, the most recent records and the monthly
// digest inside one read transaction so they observe the same state.
func (svc *service) StudentReport(ctx context.Context, studentID, academicSessionID string, year, month, recent int) (Report, error) {
	if _, _, err := monthRange(year, month); err != nil {
		return Report{}, err
	}
	if recent <= 0 {
		recent = defaultRecentCount
	}

	var report Report
	err := svc.tx.InReadTx(ctx, func(ctx context.Context, exec core.DBExecutor) error {
		recs, err := svc.repo.QueryAttendance(ctx, QueryFilter{StudentID: studentID, AcademicSessionID: academicSessionID}, exec)
		if err != nil {
			return errors.Wrap(err, "querying student attendance")
		}
		report.Summary = Summarize(studentID, academicSessionID, recs)

		sort.SliceStable(recs, func(i, j int) bool {
			if !recs[i].Date.Equal(recs[j].Date) {
				return recs[i].Date.After(recs[j].Date)
			}
			return recs[i].SessionType > recs[j].SessionType
		})
		if len(recs) > recent {
			recs = recs[:recent]
		}
		report.Recent = recs

		report.Monthly, err = svc.studentMonthly(ctx, studentID, year, month, exec)
		return err
	})
	if err != nil {
		return Report{}, errors.Wrap(err, "building student report")
	}
	return report, nil
}
