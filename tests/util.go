package testutil

import (
	"database/sql"
	"io/ioutil"
	"log"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-ledger/core"
	"github.com/trezcool/masomo-ledger/core/attendance"
	logsvc "github.com/trezcool/masomo-ledger/services/logger"
	"github.com/trezcool/masomo-ledger/storage/database"
)

// well-formed ids shared by tests
const (
	ClassID    = "6f1a8f3e-2b47-4c36-9d6e-0c1d2e3f4a5b"
	SessionID  = "0b7c9a52-41d8-4e0f-a3b6-5c2d1e0f9a8b"
	StudentA   = "a3c1e7d2-5b6f-4a89-8c0d-1e2f3a4b5c6d"
	StudentB   = "b4d2f8e3-6c7a-4b9a-9d1e-2f3a4b5c6d7e"
	StudentC   = "c5e3a9f4-7d8b-4cab-ae2f-3a4b5c6d7e8f"
	TeacherID  = "teacher-1"
	GuardianID = "guardian-1"
)

// NewConfig returns a config for tests, independent from the environment.
func NewConfig() *core.Config {
	return &core.Config{
		Env:       "TEST",
		Build:     "test",
		Debug:     true,
		TestMode:  true,
		AppName:   "Masomo",
		SecretKey: "test-secret-key",
		Server: core.ServerConfig{
			Host:               ":8000",
			ShutdownTimeout:    time.Second,
			JWTExpirationDelta: time.Hour,
		},
		Database: core.DatabaseConfig{
			Engine: database.EngineSQLite,
			Path:   ":memory:",
		},
		Attendance: core.AttendanceConfig{
			MaxBatchSize:   50,
			IssueThreshold: 80,
		},
	}
}

// PrepareDB returns a migrated in-memory sqlite database, closed on cleanup.
func PrepareDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db, database.EngineSQLite); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
	return validate, translator
}

// NewLogger returns a logger that reports nowhere.
func NewLogger() core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), NewConfig())
	logger.Enable(false)
	return logger
}

func Date(t *testing.T, s string) time.Time {
	t.Helper()

	d, err := attendance.ParseDate(s)
	if err != nil {
		t.Fatalf("Date(%q) failed: %v", s, err)
	}
	return d
}

func NewAttendance(studentID, date, sessionType string, status attendance.Status) attendance.NewAttendance {
	return attendance.NewAttendance{
		StudentID:         studentID,
		ClassID:           ClassID,
		AcademicSessionID: SessionID,
		Date:              date,
		SessionType:       sessionType,
		Status:            status,
		RecordedBy:        TeacherID,
	}
}

// Record builds an unsaved record of the default class and session.
func Record(t *testing.T, studentID, date, sessionType string, status attendance.Status) attendance.Record {
	return attendance.Record{
		StudentID:         studentID,
		ClassID:           ClassID,
		AcademicSessionID: SessionID,
		Date:              Date(t, date),
		SessionType:       sessionType,
		Status:            status,
		RecordedBy:        TeacherID,
		CreatedAt:         time.Now().UTC(),
	}
}
