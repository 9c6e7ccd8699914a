package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/masomo-ledger/core"
	"github.com/trezcool/masomo-ledger/core/notification"
)

type guardianRepository struct {
	db *DB
}

var _ notification.GuardianRepository = (*guardianRepository)(nil)

func NewGuardianRepository(db *DB) *guardianRepository {
	return &guardianRepository{db: db}
}

func (repo *guardianRepository) LinkGuardian(_ context.Context, g notification.Guardian, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	gs, ok := repo.db.guardian.table[g.StudentID]
	if !ok {
		gs = make(map[string]notification.Guardian)
		repo.db.guardian.table[g.StudentID] = gs
	}
	gs[g.ID] = g
	return nil
}

func (repo *guardianRepository) QueryGuardians(_ context.Context, studentID string, _ ...core.DBExecutor) ([]notification.Guardian, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	guardians := make([]notification.Guardian, 0, len(repo.db.guardian.table[studentID]))
	for _, g := range repo.db.guardian.table[studentID] {
		guardians = append(guardians, g)
	}
	sort.Slice(guardians, func(i, j int) bool { return guardians[i].ID < guardians[j].ID })
	return guardians, nil
}

type notificationRepository struct {
	db *DB
}

var _ notification.Repository = (*notificationRepository)(nil)

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateIntents(_ context.Context, intents []notification.Intent, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.intent.table = append(repo.db.intent.table, intents...)
	return nil
}

func (repo *notificationRepository) QueryIntents(_ context.Context, filter notification.QueryFilter, _ ...core.DBExecutor) ([]notification.Intent, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	intents := make([]notification.Intent, 0)
	for _, in := range repo.db.intent.table {
		if filter.RecipientID != "" && in.RecipientID != filter.RecipientID {
			continue
		}
		if filter.StudentID != "" && in.StudentID != filter.StudentID {
			continue
		}
		if filter.AttendanceID != "" && in.AttendanceID != filter.AttendanceID {
			continue
		}
		intents = append(intents, in)
	}
	return intents, nil
}
