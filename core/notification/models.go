package notification

import (
	"context"
	"time"

	"github.com/trezcool/masomo-ledger/core"
)

const KindAttendanceChanged = "attendance.status_changed"

type (
	// Guardian is a party to notify about a student.
	Guardian struct {
		ID        string `json:"id"`
		StudentID string `json:"student_id"`
		Name      string `json:"name"`
		Email     string `json:"email"`
	}

	// Intent is a persisted request to notify a recipient.
	// Delivery happens elsewhere; the engine only records intents.
	Intent struct {
		ID           string    `json:"id"`
		RecipientID  string    `json:"recipient_id"`
		StudentID    string    `json:"student_id"`
		AttendanceID string    `json:"attendance_id"`
		Kind         string    `json:"kind"`
		Title        string    `json:"title"`
		Message      string    `json:"message"`
		CreatedAt    time.Time `json:"created_at"`
	}

	QueryFilter struct {
		RecipientID  string
		StudentID    string
		AttendanceID string
	}

	GuardianRepository interface {
		LinkGuardian(ctx context.Context, g Guardian, exec ...core.DBExecutor) error
		QueryGuardians(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]Guardian, error)
	}

	// Repository is the append-only intent sink.
	Repository interface {
		CreateIntents(ctx context.Context, intents []Intent, exec ...core.DBExecutor) error
		QueryIntents(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Intent, error)
	}
)
