package attendance

import (
	"time"
)

type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
	StatusHalfDay Status = "half-day"
	StatusOnLeave Status = "on-leave"
)

const dateLayout = "2006-01-02"

var Statuses = []Status{StatusPresent, StatusAbsent, StatusLate, StatusHalfDay, StatusOnLeave}

// Valid returns true when the status is one of Statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate, StatusHalfDay, StatusOnLeave:
		return true
	default:
		return false
	}
}

// NaturalKey is the write identity of a Record.
type NaturalKey struct {
	StudentID         string    `json:"student_id"`
	AcademicSessionID string    `json:"academic_session_id"`
	Date              time.Time `json:"date"`
	SessionType       string    `json:"session_type"`
}

func (k NaturalKey) String() string {
	return k.StudentID + "/" + k.AcademicSessionID + "/" + k.Date.Format(dateLayout) + "/" + k.SessionType
}

// Record is one attendance fact per student, date and session.
type Record struct {
	ID                string     `json:"id"`
	StudentID         string     `json:"student_id"`
	ClassID           string     `json:"class_id"`
	AcademicSessionID string     `json:"academic_session_id"`
	Date              time.Time  `json:"date"`
	SessionType       string     `json:"session_type"`
	Status            Status     `json:"status"`
	LateMinutes       *int       `json:"late_minutes,omitempty"`
	Reason            string     `json:"reason,omitempty"`
	RecordedBy        string     `json:"recorded_by"`
	ModifiedBy        string     `json:"modified_by,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	ModifiedAt        *time.Time `json:"modified_at,omitempty"`
}

func (r Record) Key() NaturalKey {
	return NaturalKey{
		StudentID:         r.StudentID,
		AcademicSessionID: r.AcademicSessionID,
		Date:              r.Date,
		SessionType:       r.SessionType,
	}
}

// NewAttendance contains information needed to create or replace a Record.
type NewAttendance struct {
	StudentID         string `json:"student_id" validate:"required,uuid"`
	ClassID           string `json:"class_id" validate:"required,uuid"`
	AcademicSessionID string `json:"academic_session_id" validate:"required,uuid"`
	Date              string `json:"date" validate:"required,datetime=2006-01-02"`
	SessionType       string `json:"session_type" validate:"required,max=32,alphanum_"`
	Status            Status `json:"status" validate:"required,attstatus"`
	LateMinutes       *int   `json:"late_minutes" validate:"omitempty,min=0,max=1440"`
	Reason            string `json:"reason" validate:"max=500"`
	RecordedBy        string `json:"recorded_by" validate:"required"`
}

// UpdateAttendance defines what may change on an existing Record through the notifier.
type UpdateAttendance struct {
	Status Status `json:"status" validate:"required,attstatus"`
	Reason string `json:"reason" validate:"max=500"`
}

// StatusUpdate is what the Repository writes on an update by id.
type StatusUpdate struct {
	Status     Status
	Reason     string
	ModifiedBy string
	ModifiedAt time.Time
}

type QueryFilter struct {
	StudentID         string
	ClassID           string
	AcademicSessionID string
	DateFrom          time.Time
	DateTo            time.Time
	Statuses          []Status
}

// BulkResult is the per-record outcome of a best-effort batch.
type BulkResult struct {
	Index  int     `json:"index"`
	Record *Record `json:"record,omitempty"`
	Err    error   `json:"-"`
	Error  string  `json:"error,omitempty"`
}

func (br BulkResult) OK() bool {
	return br.Err == nil
}

// Run is a block of consecutive absence records of one student.
type Run struct {
	StudentID string    `json:"student_id"`
	StartDate time.Time `json:"start_date"`
	// EndDate is the date of the record completing the minimum run length.
	EndDate         time.Time `json:"end_date"`
	ConsecutiveDays int       `json:"consecutive_days"`
	RunLength       int       `json:"run_length"`
}

type DailySnapshot struct {
	ClassID string    `json:"class_id"`
	Date    time.Time `json:"date"`
	Present int       `json:"present"`
	Absent  int       `json:"absent"`
	Late    int       `json:"late"`
	HalfDay int       `json:"half_day"`
	OnLeave int       `json:"on_leave"`
	Total   int       `json:"total"`
}

type DayDigest struct {
	Date           time.Time `json:"date"`
	Sessions       string    `json:"sessions"`
	HasLate        bool      `json:"has_late"`
	MaxLateMinutes int       `json:"max_late_minutes"`
	Reasons        string    `json:"reasons,omitempty"`
}

type ClassStats struct {
	ClassID       string    `json:"class_id"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	TotalDays     int       `json:"total_days"`
	AvgPresentPct float64   `json:"avg_present_pct"`
	AvgLatePct    float64   `json:"avg_late_pct"`
	TotalPresent  int       `json:"total_present"`
	TotalAbsent   int       `json:"total_absent"`
	TotalLate     int       `json:"total_late"`
	TotalHalfDay  int       `json:"total_half_day"`
	TotalOnLeave  int       `json:"total_on_leave"`
}

type StudentIssue struct {
	StudentID   string  `json:"student_id"`
	TotalDays   int     `json:"total_days"`
	PresentDays int     `json:"present_days"`
	LateDays    int     `json:"late_days"`
	Percentage  float64 `json:"percentage"`
}

// Summary is the derived per-student, per-academic-session view.
type Summary struct {
	StudentID         string   `json:"student_id"`
	AcademicSessionID string   `json:"academic_session_id"`
	Present           int      `json:"present"`
	Absent            int      `json:"absent"`
	Late              int      `json:"late"`
	HalfDay           int      `json:"half_day"`
	OnLeave           int      `json:"on_leave"`
	Total             int      `json:"total"`
	Percentage        *float64 `json:"percentage,omitempty"`
}

// Report bundles reads that must observe the same point in time.
type Report struct {
	Summary Summary     `json:"summary"`
	Recent  []Record    `json:"recent"`
	Monthly []DayDigest `json:"monthly"`
}

// ParseDate parses a YYYY-MM-DD date into UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}

// TruncateDate drops the time of day, keeping the calendar date in UTC.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
